package command

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/rickgao/voyagerbot/internal/metrics"
)

// Stats provides statistics about the dispatcher.
type Stats struct {
	Queued         int
	InFlight       bool
	InFlightMethod string
	Suspended      bool
	Enqueued       int64
	Sent           int64
	Completed      int64
	SendErrors     int64
	Superseded     int64 // Pending commands replaced on Resume
}

// Dispatcher serialises commands so that at most one is outstanding.
//
// All mutating calls are expected to come from the session's run loop;
// the mutex only makes snapshot reads (Stats, Pending) safe from other
// goroutines.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
	index  *UIDIndex

	mu        sync.Mutex
	queue     []Command
	inFlight  *Command
	nextID    int64
	suspended bool

	enqueued   int64
	sent       int64
	completed  int64
	sendErrors int64
	superseded int64
}

// NewDispatcher creates a dispatcher that transmits through sender.
func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		sender: sender,
		logger: logger,
		index:  NewUIDIndex(),
	}
}

// Enqueue accepts a command and returns its UID. The command is sent
// immediately when nothing is in flight, otherwise it waits its turn.
func (d *Dispatcher) Enqueue(method string, params Params) string {
	d.mu.Lock()
	cmd := d.newCommandLocked(method, params)
	d.queue = append(d.queue, cmd)
	d.mu.Unlock()

	metrics.CommandEnqueued(method)
	d.AttemptDispatch()
	return cmd.UID
}

// newCommandLocked assigns id and UID. Must be called with lock held.
func (d *Dispatcher) newCommandLocked(method string, params Params) Command {
	uid := NewUID()

	p := make(Params, len(params)+1)
	maps.Copy(p, params)
	p[ParamUID] = uid

	d.nextID++
	d.enqueued++
	d.index.Record(uid, method)

	return Command{
		ID:     d.nextID,
		UID:    uid,
		Method: method,
		Params: p,
	}
}

// AttemptDispatch sends the queue head if the in-flight slot is free.
// The lock is not held while the sender writes, so snapshot reads never
// wait on the socket.
func (d *Dispatcher) AttemptDispatch() {
	d.mu.Lock()
	if d.suspended || len(d.queue) == 0 {
		d.updateGaugesLocked()
		d.mu.Unlock()
		return
	}
	if d.inFlight != nil {
		d.logger.Debug("command deferred, another command in flight",
			"in_flight", d.inFlight.Method,
			"queued", len(d.queue),
		)
		d.updateGaugesLocked()
		d.mu.Unlock()
		return
	}

	cmd := d.queue[0]
	d.queue = d.queue[1:]
	d.inFlight = &cmd
	d.updateGaugesLocked()
	d.mu.Unlock()

	data, err := cmd.Encode()
	if err == nil {
		err = d.sender.Send(data)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		// Keep the command; it goes out again on the next attempt.
		if d.inFlight != nil && d.inFlight.ID == cmd.ID {
			d.inFlight = nil
			d.queue = append([]Command{cmd}, d.queue...)
		}
		d.sendErrors++
		d.logger.Warn("command send failed",
			"method", cmd.Method,
			"id", cmd.ID,
			"error", err,
		)
		d.updateGaugesLocked()
		return
	}

	d.sent++
	metrics.CommandSent(cmd.Method)
	d.logger.Debug("command sent",
		"method", cmd.Method,
		"id", cmd.ID,
		"uid", cmd.UID,
	)
}

// OnCompletion frees the in-flight slot and sends the next command.
// The payload is only inspected for logging.
func (d *Dispatcher) OnCompletion(payload map[string]any) {
	d.mu.Lock()
	done := d.inFlight
	d.inFlight = nil
	if done != nil {
		d.completed++
	}
	d.mu.Unlock()

	if done == nil {
		d.logger.Debug("completion with no command in flight")
	} else {
		metrics.CommandCompleted(done.Method)
		if rpcErr, ok := payload["error"]; ok && rpcErr != nil {
			d.logger.Warn("command completed with error",
				"method", done.Method,
				"id", done.ID,
				"error", rpcErr,
			)
		} else {
			d.logger.Debug("command completed", "method", done.Method, "id", done.ID)
		}
	}

	d.AttemptDispatch()
}

// Suspend stops transmission after the connection is lost. The in-flight
// command, which can no longer complete, returns to the head of the queue.
func (d *Dispatcher) Suspend() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inFlight != nil {
		d.queue = append([]Command{*d.inFlight}, d.queue...)
		d.logger.Debug("in-flight command requeued", "method", d.inFlight.Method)
		d.inFlight = nil
	}
	d.suspended = true
	d.updateGaugesLocked()
}

// Resume re-enables transmission. Priority requests are placed ahead of
// everything still pending, in the order given, and pending commands with
// the same method as a priority request are dropped as superseded. The
// priority UIDs are returned.
func (d *Dispatcher) Resume(priority ...Request) []string {
	d.mu.Lock()
	methods := make(map[string]struct{}, len(priority))
	uids := make([]string, 0, len(priority))
	head := make([]Command, 0, len(priority)+len(d.queue))
	for _, req := range priority {
		cmd := d.newCommandLocked(req.Method, req.Params)
		head = append(head, cmd)
		uids = append(uids, cmd.UID)
		methods[req.Method] = struct{}{}
		metrics.CommandEnqueued(req.Method)
	}

	for _, cmd := range d.queue {
		if _, dup := methods[cmd.Method]; dup {
			d.superseded++
			d.logger.Debug("pending command superseded",
				"method", cmd.Method,
				"id", cmd.ID,
			)
			continue
		}
		head = append(head, cmd)
	}
	d.queue = head
	d.suspended = false
	d.mu.Unlock()

	d.AttemptDispatch()
	return uids
}

// MethodFor returns the method of the command that carried uid.
func (d *Dispatcher) MethodFor(uid string) (string, bool) {
	return d.index.Lookup(uid)
}

// Index returns the session-wide uid -> method index.
func (d *Dispatcher) Index() *UIDIndex {
	return d.index
}

// InFlight returns the command awaiting completion, if any.
func (d *Dispatcher) InFlight() (Command, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight == nil {
		return Command{}, false
	}
	return *d.inFlight, true
}

// Pending returns a copy of the queue in send order.
func (d *Dispatcher) Pending() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Command, len(d.queue))
	copy(out, d.queue)
	return out
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{
		Queued:     len(d.queue),
		InFlight:   d.inFlight != nil,
		Suspended:  d.suspended,
		Enqueued:   d.enqueued,
		Sent:       d.sent,
		Completed:  d.completed,
		SendErrors: d.sendErrors,
		Superseded: d.superseded,
	}
	if d.inFlight != nil {
		s.InFlightMethod = d.inFlight.Method
	}
	return s
}

func (d *Dispatcher) updateGaugesLocked() {
	metrics.SetQueueDepth(len(d.queue))
	metrics.SetInFlight(d.inFlight != nil)
}
