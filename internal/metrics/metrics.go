package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voyagerbot"

var (
	registerOnce sync.Once

	commandsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "enqueued_total",
			Help:      "Commands accepted by the dispatcher.",
		},
		[]string{"method"},
	)
	commandsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "sent_total",
			Help:      "Commands written to the socket.",
		},
		[]string{"method"},
	)
	commandsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "completed_total",
			Help:      "Completions that freed the in-flight slot.",
		},
		[]string{"method"},
	)
	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "commands",
		Name:      "queue_depth",
		Help:      "Commands waiting behind the in-flight slot.",
	})
	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "commands",
		Name:      "in_flight",
		Help:      "1 when a command awaits completion.",
	})

	eventsRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "events_total",
			Help:      "Inbound push events by event name.",
		},
		[]string{"event"},
	)
	parseErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "router",
		Name:      "parse_errors_total",
		Help:      "Inbound frames discarded as malformed.",
	})
	handlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "handler_errors_total",
			Help:      "Errors returned by event handlers.",
		},
		[]string{"event"},
	)

	connectionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "connection",
		Name:      "state",
		Help:      "Session state (0 disconnected, 1 connecting, 2 ready, 3 closing).",
	})
	reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connection",
		Name:      "reconnects_total",
		Help:      "Reconnect attempts after a lost connection.",
	})
	reconnectDelay = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "connection",
		Name:      "reconnect_delay_seconds",
		Help:      "Backoff delay used for the last reconnect.",
	})
	heartbeats = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connection",
		Name:      "heartbeats_total",
		Help:      "Keep-alive frames written.",
	})

	archiveRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "archive",
		Name:      "rows_total",
		Help:      "Frames written to the archive table.",
	})
	archiveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "archive",
		Name:      "errors_total",
		Help:      "Failed archive flushes.",
	})
)

// Register adds all collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			commandsEnqueued, commandsSent, commandsCompleted, queueDepth, inFlight,
			eventsRouted, parseErrors, handlerErrors,
			connectionState, reconnects, reconnectDelay, heartbeats,
			archiveRows, archiveErrors,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func CommandEnqueued(method string) { commandsEnqueued.WithLabelValues(method).Inc() }

func CommandSent(method string) { commandsSent.WithLabelValues(method).Inc() }

func CommandCompleted(method string) { commandsCompleted.WithLabelValues(method).Inc() }

func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

func SetInFlight(busy bool) {
	if busy {
		inFlight.Set(1)
		return
	}
	inFlight.Set(0)
}

func EventRouted(event string) { eventsRouted.WithLabelValues(event).Inc() }

func ParseError() { parseErrors.Inc() }

func HandlerError(event string) { handlerErrors.WithLabelValues(event).Inc() }

func SetConnectionState(state int) { connectionState.Set(float64(state)) }

func Reconnect(delay time.Duration) {
	reconnects.Inc()
	reconnectDelay.Set(delay.Seconds())
}

func Heartbeat() { heartbeats.Inc() }

func ArchiveFlushed(rows int) { archiveRows.Add(float64(rows)) }

func ArchiveError() { archiveErrors.Inc() }
