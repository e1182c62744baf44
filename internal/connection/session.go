package connection

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/voyagerbot/internal/command"
	"github.com/rickgao/voyagerbot/internal/metrics"
)

// frameDelimiter terminates every outbound frame.
var frameDelimiter = []byte("\r\n")

// enqueueRequest carries a command from another goroutine into the run loop.
type enqueueRequest struct {
	method string
	params command.Params
	reply  chan string
}

// Session maintains one logical connection to the Voyager server across
// any number of physical reconnects.
type Session struct {
	cfg       SessionConfig
	logger    *slog.Logger
	newClient func(ClientConfig, *slog.Logger) Client

	requests chan enqueueRequest
	failures chan error
	stopped  chan struct{}
	running  atomic.Bool

	mu      sync.RWMutex
	state   State
	client  Client
	backoff *Backoff

	// Owned by the run loop.
	keepAlive *keepAlive

	connects   atomic.Int64
	reconnects atomic.Int64
	heartbeats atomic.Int64
	frames     atomic.Int64
}

// NewSession creates a session. Nothing is dialled until Run.
func NewSession(cfg SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		cfg:       cfg,
		logger:    logger.With("component", "session"),
		newClient: NewClient,
		requests:  make(chan enqueueRequest),
		failures:  make(chan error, 1),
		stopped:   make(chan struct{}),
		state:     StateDisconnected,
		backoff:   NewBackoff(cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay),
	}
}

// Run connects and keeps the session alive until ctx is cancelled, in which
// case it returns nil. With auto-reconnect disabled the first connection
// loss ends Run with an error wrapping ErrTerminalShutdown.
//
// Every inbound message is passed to inbound from this goroutine, which is
// also the only caller of disp's mutating methods.
func (s *Session) Run(ctx context.Context, disp Dispatcher, inbound FrameHandler) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session already running")
	}
	defer close(s.stopped)

	// Nothing can be transmitted before the first Ready.
	disp.Suspend()

	for {
		client, err := s.connect(ctx, disp)
		if err == nil {
			err = s.serve(ctx, client, disp, inbound)
		}
		s.teardown(disp)

		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			s.logger.Info("session stopped")
			return nil
		}

		if !s.cfg.AutoReconnect {
			s.setState(StateDisconnected)
			s.logger.Error("connection lost, auto-reconnect disabled", "error", err)
			return fmt.Errorf("%w: %w", ErrTerminalShutdown, err)
		}

		delay := s.nextDelay()
		s.reconnects.Add(1)
		metrics.Reconnect(delay)
		s.logger.Warn("connection lost, reconnecting",
			"error", err,
			"delay", delay,
		)

		if !s.wait(ctx, delay, disp) {
			s.setState(StateDisconnected)
			s.logger.Info("session stopped")
			return nil
		}
	}
}

// connect dials the server and, once Ready, starts the keep-alive and
// queues the bootstrap sequence ahead of anything left over.
func (s *Session) connect(ctx context.Context, disp Dispatcher) (Client, error) {
	s.setState(StateConnecting)

	cfg := s.cfg.Client
	cfg.URL = s.cfg.URL()

	client := s.newClient(cfg, s.logger)
	if err := client.Connect(ctx); err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}

	s.mu.Lock()
	s.client = client
	s.backoff.Reset()
	s.mu.Unlock()
	s.setState(StateReady)
	s.connects.Add(1)

	s.logger.Info("connected", "url", cfg.URL)

	s.startKeepAlive(ctx)
	uids := disp.Resume(s.bootstrap()...)
	s.logger.Debug("bootstrap queued", "commands", len(uids))

	return client, nil
}

// serve pumps inbound messages and enqueue requests until the connection
// fails or ctx is cancelled.
func (s *Session) serve(ctx context.Context, client Client, disp Dispatcher, inbound FrameHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-client.Errors():
			// Frames read before the failure are still delivered.
			s.drainMessages(ctx, client, inbound)
			return &TransportError{Op: "read", Err: err}

		case err := <-s.failures:
			return err

		case msg := <-client.Messages():
			s.frames.Add(1)
			inbound.HandleFrame(ctx, msg)

		case req := <-s.requests:
			s.accept(disp, req)
		}
	}
}

func (s *Session) drainMessages(ctx context.Context, client Client, inbound FrameHandler) {
	for {
		select {
		case msg := <-client.Messages():
			s.frames.Add(1)
			inbound.HandleFrame(ctx, msg)
		default:
			return
		}
	}
}

// teardown stops everything tied to the current connection. The in-flight
// command goes back to the head of the queue.
func (s *Session) teardown(disp Dispatcher) {
	s.setState(StateClosing)
	s.stopKeepAlive()

	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()

	if client != nil {
		if err := client.Close(); err != nil {
			s.logger.Debug("close failed", "error", err)
		}
	}

	disp.Suspend()

	select {
	case <-s.failures:
	default:
	}
}

// wait sleeps for d while still accepting enqueue requests.
func (s *Session) wait(ctx context.Context, d time.Duration, disp Dispatcher) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case req := <-s.requests:
			s.accept(disp, req)
		}
	}
}

func (s *Session) accept(disp Dispatcher, req enqueueRequest) {
	req.reply <- disp.Enqueue(req.method, req.params)
}

func (s *Session) nextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backoff.Next()
}

// bootstrap returns the commands that configure a fresh connection.
func (s *Session) bootstrap() []command.Request {
	reqs := make([]command.Request, 0, 4)

	if s.cfg.Username != "" {
		token := base64.URLEncoding.EncodeToString([]byte(s.cfg.Username + ":" + s.cfg.Password))
		reqs = append(reqs, command.Request{
			Method: command.MethodAuthenticate,
			Params: command.Params{"Base": token},
		})
	}

	return append(reqs,
		command.Request{Method: command.MethodSetDashboardMode, Params: command.Params{"IsOn": true}},
		command.Request{Method: command.MethodSetLogEvent, Params: command.Params{"IsOn": true, "Level": 0}},
		command.Request{Method: command.MethodGetFilterConfiguration, Params: command.Params{}},
	)
}

// Send writes one serialised frame followed by the line delimiter.
// A write failure is reported to the run loop, which reconnects.
func (s *Session) Send(frame []byte) error {
	s.mu.RLock()
	client, state := s.client, s.state
	s.mu.RUnlock()

	if client == nil || state != StateReady {
		return ErrNotConnected
	}

	buf := make([]byte, 0, len(frame)+len(frameDelimiter))
	buf = append(buf, frame...)
	buf = append(buf, frameDelimiter...)

	if err := client.Send(buf); err != nil {
		terr := &TransportError{Op: "write", Err: err}
		select {
		case s.failures <- terr:
		default:
		}
		return terr
	}
	return nil
}

// Enqueue submits a command from any goroutine and returns its UID.
// It blocks until the run loop has accepted the command.
func (s *Session) Enqueue(ctx context.Context, method string, params command.Params) (string, error) {
	if method == "" {
		return "", command.ErrEmptyMethod
	}

	req := enqueueRequest{
		method: method,
		params: params,
		reply:  make(chan string, 1),
	}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.stopped:
		return "", ErrSessionStopped
	}

	return <-req.reply, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	metrics.SetConnectionState(int(state))
	if prev != state {
		s.logger.Debug("state changed", "from", prev, "to", state)
	}
}

// Stats returns current statistics.
func (s *Session) Stats() SessionStats {
	s.mu.RLock()
	state := s.state
	delay := s.backoff.Current()
	s.mu.RUnlock()

	return SessionStats{
		State:          state,
		Connects:       s.connects.Load(),
		Reconnects:     s.reconnects.Load(),
		ReconnectDelay: delay,
		Heartbeats:     s.heartbeats.Load(),
		FramesReceived: s.frames.Load(),
	}
}
