package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Well-known event names.
const (
	// EventCompletion is the pseudo-event handlers register for to observe
	// command completions.
	EventCompletion = "command-completion"

	EventRemoteActionResult = "RemoteActionResult"
	EventPolling            = "Polling"
)

// Payload keys the router reads or writes.
const (
	KeyEvent      = "Event"
	KeyJSONRPC    = "jsonrpc"
	KeyUID        = "UID"
	KeyMethodName = "MethodName"
)

// Config holds configuration for the Message Router.
type Config struct {
	// IgnoredEvents are summarised even if a handler registered for them.
	IgnoredEvents []string

	// CoalesceEvery is the number of suppressed events per summary line.
	CoalesceEvery int // Default: 30

	// ArchiveBufferSize enables the archive buffer when > 0.
	ArchiveBufferSize int
	// ArchiveBufferMax caps archive buffer growth (0 = unbounded).
	ArchiveBufferMax int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		IgnoredEvents: []string{EventPolling},
		CoalesceEvery: 30,
	}
}

// EventHandler consumes push events. Events lists the event names it
// wants; EventCompletion subscribes to command completions.
// Handle must treat payload as read-only.
type EventHandler interface {
	Events() []string
	Handle(ctx context.Context, name string, payload Payload) error
}

// Commands is the dispatcher as seen by the router.
type Commands interface {
	OnCompletion(payload map[string]any)
	MethodFor(uid string) (string, bool)
}

// ProtocolError is a frame that could not be understood. It is logged
// and the frame discarded.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: %s: %v", e.Reason, e.Err)
	}
	return "protocol: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ArchivedFrame is one well-formed inbound frame offered to the archive.
type ArchivedFrame struct {
	ReceivedAt time.Time
	Event      string          // Push event name, or EventCompletion
	Payload    json.RawMessage // Frame bytes, delimiter stripped
}

// Stats contains runtime statistics.
type Stats struct {
	FramesReceived int64
	Completions    int64
	Events         int64
	Enriched       int64
	ParseErrors    int64
	HandlerErrors  int64
	Unhandled      int64
	Archive        BufferStats
}
