package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCommandCounters(t *testing.T) {
	before := testutil.ToFloat64(commandsSent.WithLabelValues("RemoteSetDashboardMode"))

	CommandSent("RemoteSetDashboardMode")
	CommandSent("RemoteSetDashboardMode")

	got := testutil.ToFloat64(commandsSent.WithLabelValues("RemoteSetDashboardMode"))
	if got-before != 2 {
		t.Errorf("sent delta = %v, want 2", got-before)
	}
}

func TestGauges(t *testing.T) {
	SetQueueDepth(7)
	if got := testutil.ToFloat64(queueDepth); got != 7 {
		t.Errorf("queue depth = %v, want 7", got)
	}

	SetInFlight(true)
	if got := testutil.ToFloat64(inFlight); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	SetInFlight(false)
	if got := testutil.ToFloat64(inFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}

	Reconnect(8 * time.Second)
	if got := testutil.ToFloat64(reconnectDelay); got != 8 {
		t.Errorf("reconnect delay = %v, want 8", got)
	}
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	Register()
	Register() // second call is a no-op

	Heartbeat()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "voyagerbot_connection_heartbeats_total") {
		t.Error("expected heartbeat counter in exposition")
	}
}
