package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rickgao/voyagerbot/internal/config"
	"github.com/rickgao/voyagerbot/internal/connection"
	"github.com/rickgao/voyagerbot/internal/database"
	"github.com/rickgao/voyagerbot/internal/notify"
	"github.com/rickgao/voyagerbot/internal/router"
)

type stubSession struct{ stats connection.SessionStats }

func (s stubSession) Stats() connection.SessionStats { return s.stats }

type stubRouter struct{}

func (stubRouter) Stats() router.Stats { return router.Stats{Events: 3} }

type stubOutbox struct{}

func (stubOutbox) Stats() notify.QueueStats { return notify.QueueStats{Delivered: 2} }

type stubDB struct{ err error }

func (d stubDB) Ping(context.Context) error { return d.err }

func getHealth(t *testing.T, h http.Handler) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return rec.Code, body
}

func TestHealthHandler(t *testing.T) {
	ready := stubSession{connection.SessionStats{State: connection.StateReady}}
	down := stubSession{connection.SessionStats{State: connection.StateConnecting}}

	tests := []struct {
		name       string
		sess       stubSession
		db         database.Pinger
		wantCode   int
		wantStatus string
	}{
		{"ready without database", ready, nil, http.StatusOK, "healthy"},
		{"ready with database", ready, stubDB{}, http.StatusOK, "healthy"},
		{"reconnecting", down, nil, http.StatusOK, "degraded"},
		{"database down", ready, stubDB{errors.New("refused")}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHealthHandler("/metrics", tt.sess, stubRouter{}, stubOutbox{}, tt.db)
			code, body := getHealth(t, h)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %v", body["status"], tt.wantStatus)
			}
			components := body["components"].(map[string]any)
			if _, ok := components["database"]; ok != (tt.db != nil) {
				t.Errorf("database component present = %v, want %v", ok, tt.db != nil)
			}
		})
	}
}

func TestHealthHandlerServesMetrics(t *testing.T) {
	h := newHealthHandler("/metrics", stubSession{}, stubRouter{}, stubOutbox{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("metrics code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSessionConfig(t *testing.T) {
	off := false
	v := config.VoyagerConfig{
		Host:               "obs",
		Port:               5951,
		Username:           "admin",
		Password:           "secret",
		AutoReconnect:      &off,
		ReconnectBaseDelay: 2 * time.Second,
		ReconnectMaxDelay:  time.Minute,
		KeepAliveInterval:  3 * time.Second,
		ReadTimeout:        20 * time.Second,
		WriteTimeout:       time.Second,
		HandshakeTimeout:   4 * time.Second,
		BufferSize:         10,
	}

	got := sessionConfig(v)
	if got.URL() != "ws://obs:5951/" {
		t.Errorf("URL() = %q, want %q", got.URL(), "ws://obs:5951/")
	}
	if got.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}
	if got.ReconnectBaseDelay != 2*time.Second || got.ReconnectMaxDelay != time.Minute {
		t.Errorf("backoff = %v..%v, want 2s..1m", got.ReconnectBaseDelay, got.ReconnectMaxDelay)
	}
	if got.Client.ReadTimeout != 20*time.Second {
		t.Errorf("Client.ReadTimeout = %v, want 20s", got.Client.ReadTimeout)
	}
	if got.Client.BufferSize != 10 {
		t.Errorf("Client.BufferSize = %d, want 10", got.Client.BufferSize)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		l := newLogger(config.LogConfig{Level: tt.level, Format: "json"})
		if !l.Enabled(context.Background(), tt.want) {
			t.Errorf("level %q: %v not enabled", tt.level, tt.want)
		}
		if tt.want > slog.LevelDebug && l.Enabled(context.Background(), tt.want-1) {
			t.Errorf("level %q: %v enabled", tt.level, tt.want-1)
		}
	}
}
