package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/rickgao/voyagerbot/internal/command"
	"github.com/rickgao/voyagerbot/internal/connection"
	"github.com/rickgao/voyagerbot/internal/metrics"
)

// Router classifies inbound frames and routes them to the dispatcher or
// to event handlers. HandleFrame is called from the session's run loop
// only; Register, Stats and Archive are safe from any goroutine.
type Router struct {
	cfg      Config
	logger   *slog.Logger
	commands Commands

	handlersMu sync.RWMutex
	handlers   map[string][]EventHandler

	ignored   map[string]struct{}
	coalescer *coalescer

	// Output to the frame archive (nil when disabled)
	archive *GrowableBuffer[ArchivedFrame]

	// Stats
	mu            sync.RWMutex
	received      int64
	completions   int64
	events        int64
	enriched      int64
	parseErrors   int64
	handlerErrors int64
	unhandled     int64
}

// NewRouter creates a new Message Router.
func NewRouter(cfg Config, commands Commands, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "router")

	ignored := make(map[string]struct{}, len(cfg.IgnoredEvents))
	for _, name := range cfg.IgnoredEvents {
		ignored[name] = struct{}{}
	}

	r := &Router{
		cfg:       cfg,
		logger:    logger,
		commands:  commands,
		handlers:  make(map[string][]EventHandler),
		ignored:   ignored,
		coalescer: newCoalescer(cfg.CoalesceEvery, logger),
	}
	if cfg.ArchiveBufferSize > 0 {
		r.archive = NewGrowableBuffer[ArchivedFrame](cfg.ArchiveBufferSize, cfg.ArchiveBufferMax)
	}
	return r
}

// Register adds h for every event it lists. Handlers for the same event
// run in registration order.
func (r *Router) Register(h EventHandler) {
	r.handlersMu.Lock()
	defer r.handlersMu.Unlock()

	for _, name := range h.Events() {
		r.handlers[name] = append(r.handlers[name], h)
	}
}

// Archive returns the buffer every well-formed frame is offered to, or
// nil when archiving is disabled.
func (r *Router) Archive() *GrowableBuffer[ArchivedFrame] {
	return r.archive
}

// Close flushes the pending event summary and closes the archive buffer.
func (r *Router) Close() {
	r.coalescer.flush()
	if r.archive != nil {
		r.archive.Close()
	}
}

// HandleFrame processes one inbound WebSocket message. A message may
// carry several JSON values separated by whitespace, and a single value
// may span lines. After a malformed value decoding resumes at the next
// line.
func (r *Router) HandleFrame(ctx context.Context, msg connection.Message) {
	data := msg.Data
	for {
		data = bytes.TrimLeft(data, " \t\r\n")
		if len(data) == 0 {
			return
		}

		r.mu.Lock()
		r.received++
		r.mu.Unlock()

		dec := json.NewDecoder(bytes.NewReader(data))
		var frame json.RawMessage
		if err := dec.Decode(&frame); err != nil {
			bad := data
			data = nil
			if i := bytes.IndexByte(bad, '\n'); i >= 0 {
				bad, data = bad[:i], bad[i+1:]
			}
			r.reject(&ProtocolError{Reason: "invalid json", Err: err}, bad)
			continue
		}
		data = data[dec.InputOffset():]

		if err := r.route(ctx, msg, frame); err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				r.reject(perr, frame)
			}
		}
	}
}

// reject logs and counts a frame that could not be understood.
func (r *Router) reject(err *ProtocolError, frame []byte) {
	r.logger.Warn("discarding malformed frame",
		"error", err,
		"frame", truncate(bytes.TrimSpace(frame), 256),
	)
	r.mu.Lock()
	r.parseErrors++
	r.mu.Unlock()
	metrics.ParseError()
}

// route classifies and dispatches a single frame.
func (r *Router) route(ctx context.Context, msg connection.Message, frame []byte) error {
	var payload Payload
	if err := json.Unmarshal(frame, &payload); err != nil {
		return &ProtocolError{Reason: "invalid json", Err: err}
	}
	if payload == nil {
		return &ProtocolError{Reason: "frame is not an object"}
	}

	if payload.IsCompletion() {
		r.mu.Lock()
		r.completions++
		r.mu.Unlock()

		r.offer(msg, EventCompletion, frame)
		r.commands.OnCompletion(payload)
		r.dispatch(ctx, EventCompletion, payload, false)
		return nil
	}

	name := payload.Event()
	if name == "" {
		return &ProtocolError{Reason: "frame has neither jsonrpc nor Event"}
	}

	if name == EventRemoteActionResult {
		payload[KeyMethodName] = r.resolve(payload.String(KeyUID))
		r.mu.Lock()
		r.enriched++
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.events++
	r.mu.Unlock()
	metrics.EventRouted(name)

	r.offer(msg, name, frame)
	r.dispatch(ctx, name, payload, true)
	return nil
}

// resolve maps a RemoteActionResult UID to the method that sent it.
func (r *Router) resolve(uid string) string {
	if method, ok := r.commands.MethodFor(uid); ok {
		return method
	}
	return command.NotFound
}

// dispatch runs every handler registered for name. Events nobody handles,
// and ignored events, go to the coalescer when coalesce is set.
func (r *Router) dispatch(ctx context.Context, name string, payload Payload, coalesce bool) {
	if _, skip := r.ignored[name]; skip && coalesce {
		r.coalescer.add(name)
		return
	}

	r.handlersMu.RLock()
	handlers := r.handlers[name]
	r.handlersMu.RUnlock()

	if len(handlers) == 0 {
		if coalesce {
			r.mu.Lock()
			r.unhandled++
			r.mu.Unlock()
			r.coalescer.add(name)
		}
		return
	}

	for _, h := range handlers {
		if err := h.Handle(ctx, name, payload); err != nil {
			r.logger.Warn("event handler failed",
				"event", name,
				"error", err,
			)
			r.mu.Lock()
			r.handlerErrors++
			r.mu.Unlock()
			metrics.HandlerError(name)
		}
	}
}

// offer hands a copy of the frame to the archive buffer.
func (r *Router) offer(msg connection.Message, name string, frame []byte) {
	if r.archive == nil {
		return
	}
	r.archive.Send(ArchivedFrame{
		ReceivedAt: msg.ReceivedAt,
		Event:      name,
		Payload:    bytes.Clone(frame),
	})
}

// Stats returns current statistics.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	s := Stats{
		FramesReceived: r.received,
		Completions:    r.completions,
		Events:         r.events,
		Enriched:       r.enriched,
		ParseErrors:    r.parseErrors,
		HandlerErrors:  r.handlerErrors,
		Unhandled:      r.unhandled,
	}
	r.mu.RUnlock()

	if r.archive != nil {
		s.Archive = r.archive.Stats()
	}
	return s
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
