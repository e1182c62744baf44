// Package eventlog archives every inbound Voyager frame to PostgreSQL.
//
// The Writer consumes the router's archive buffer and appends rows to
// voyager_frames(received_at, event, payload) in batches, flushing when a
// batch fills or on a timer. The table is append-only.
package eventlog
