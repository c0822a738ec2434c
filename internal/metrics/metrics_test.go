package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObservePush("upsert", nil)
	m.ObservePush("upsert", errors.New("boom"))
	m.ObservePush("remove", nil)
	m.ObserveConflict()
	m.ObserveTransition("confirmed")
	m.ObserveSweep(2, 1, 0)
	m.SetQueueDepth(3)

	if got := testutil.ToFloat64(m.Pushes.WithLabelValues("upsert", "ok")); got != 1 {
		t.Errorf("upsert ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Pushes.WithLabelValues("upsert", "error")); got != 1 {
		t.Errorf("upsert error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Conflicts); got != 1 {
		t.Errorf("conflicts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Sweeps.WithLabelValues("pushed")); got != 2 {
		t.Errorf("sweep pushed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.QueueDepth); got != 3 {
		t.Errorf("queue depth = %v, want 3", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObservePush("upsert", nil)
	m.ObserveConflict()
	m.ObserveDropped()
	m.ObserveRequest("/api/health", "GET", "200")
	m.ObserveSweep(1, 1, 1)
	m.SetQueueDepth(1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil Handler() status = %d, want 404", rec.Code)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest("/api/events", "POST", "201")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `rooms_http_requests_total{code="201",method="POST",route="/api/events"} 1`) {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
}
