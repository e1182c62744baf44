// Package handler reacts to Voyager push events.
//
// A Voyager handler subscribes to the events an operator cares about
// (connection, focus, exposures, guiding, log entries and remote action
// results), keeps per-sequence statistics and forwards human-readable
// notifications through an Outbox.
package handler
