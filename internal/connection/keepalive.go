package connection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rickgao/voyagerbot/internal/metrics"
)

// heartbeat is the Polling frame the server expects at least every 15s.
type heartbeat struct {
	Event     string `json:"Event"`
	Timestamp int64  `json:"Timestamp"`
	Inst      int    `json:"Inst"`
}

// EncodeHeartbeat returns the Polling frame for t, without delimiter.
func EncodeHeartbeat(t time.Time) ([]byte, error) {
	return json.Marshal(heartbeat{
		Event:     "Polling",
		Timestamp: t.Unix(),
		Inst:      1,
	})
}

// keepAlive is the handle of one running keep-alive goroutine.
type keepAlive struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startKeepAlive replaces any running keep-alive with a new one.
func (s *Session) startKeepAlive(ctx context.Context) {
	s.stopKeepAlive()

	kctx, cancel := context.WithCancel(ctx)
	ka := &keepAlive{cancel: cancel, done: make(chan struct{})}
	s.keepAlive = ka

	go func() {
		defer close(ka.done)
		s.keepAliveLoop(kctx)
	}()
}

// stopKeepAlive cancels the running keep-alive and waits for it to exit.
func (s *Session) stopKeepAlive() {
	if s.keepAlive == nil {
		return
	}
	s.keepAlive.cancel()
	<-s.keepAlive.done
	s.keepAlive = nil
}

// keepAliveLoop sends a heartbeat immediately and then every interval.
// Heartbeats bypass the command queue.
func (s *Session) keepAliveLoop(ctx context.Context) {
	interval := s.cfg.KeepAliveInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.sendHeartbeat(); err != nil {
			s.logger.Debug("heartbeat failed, keep-alive stopping", "error", err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Session) sendHeartbeat() error {
	frame, err := EncodeHeartbeat(time.Now())
	if err != nil {
		return err
	}
	if err := s.Send(frame); err != nil {
		return err
	}
	s.heartbeats.Add(1)
	metrics.Heartbeat()
	return nil
}
