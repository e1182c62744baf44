package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rickgao/voyagerbot/internal/connection"
	"github.com/rickgao/voyagerbot/internal/database"
	"github.com/rickgao/voyagerbot/internal/metrics"
	"github.com/rickgao/voyagerbot/internal/notify"
	"github.com/rickgao/voyagerbot/internal/router"
)

type healthSource interface {
	Stats() connection.SessionStats
}

type routerSource interface {
	Stats() router.Stats
}

type outboxSource interface {
	Stats() notify.QueueStats
}

// newHealthHandler serves /health and the Prometheus endpoint. db may be
// nil when archiving is disabled.
func newHealthHandler(metricsPath string, sess healthSource, rtr routerSource, outbox outboxSource, db database.Pinger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, metrics.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		s := sess.Stats()
		health.Components["voyager"] = map[string]any{
			"state":           s.State.String(),
			"connects":        s.Connects,
			"reconnects":      s.Reconnects,
			"reconnect_delay": s.ReconnectDelay.String(),
			"frames":          s.FramesReceived,
		}
		if s.State != connection.StateReady {
			health.Status = "degraded"
		}

		rs := rtr.Stats()
		health.Components["router"] = map[string]any{
			"events":         rs.Events,
			"completions":    rs.Completions,
			"parse_errors":   rs.ParseErrors,
			"handler_errors": rs.HandlerErrors,
		}

		qs := outbox.Stats()
		health.Components["notifier"] = map[string]any{
			"pending":   qs.Pending,
			"delivered": qs.Delivered,
			"failed":    qs.Failed,
			"dropped":   qs.Dropped,
		}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["database"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["database"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
