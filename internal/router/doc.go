// Package router implements the Message Router component.
//
// The Message Router:
//   - Splits inbound WebSocket messages into JSON frames
//   - Treats frames carrying "jsonrpc" as command completions
//   - Resolves RemoteActionResult UIDs to the originating method
//   - Dispatches push events to registered EventHandlers by name
//   - Coalesces unhandled and ignored events into periodic summaries
//   - Offers every well-formed frame to a buffer for archiving
package router
