// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - WebSocket connection state, reconnects and heartbeats
//   - Command queue depth, in-flight slot and completion rates
//   - Push event rates by event name, parse and handler errors
//   - Frame archive flush sizes and failures
package metrics
