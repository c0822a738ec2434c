// Package metrics exposes Prometheus counters for the reservation engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	registry *prometheus.Registry

	Requests    *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	Conflicts   prometheus.Counter
	Pushes      *prometheus.CounterVec
	Dropped     prometheus.Counter
	Sweeps      *prometheus.CounterVec
	QueueDepth  prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rooms_http_requests_total",
				Help: "HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rooms_event_transitions_total",
				Help: "Committed event status changes by resulting status.",
			},
			[]string{"status"},
		),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rooms_event_conflicts_total",
			Help: "Writes rejected because a confirmed event already holds the room.",
		}),
		Pushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rooms_schedule_pushes_total",
				Help: "Scheduler calls by operation and result.",
			},
			[]string{"op", "result"},
		),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rooms_push_queue_dropped_total",
			Help: "Push tasks dropped because the queue was full.",
		}),
		Sweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rooms_reconcile_events_total",
				Help: "Events handled by reconciliation sweeps by outcome.",
			},
			[]string{"outcome"},
		),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rooms_push_queue_depth",
			Help: "Push tasks waiting for a worker.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests, m.Transitions, m.Conflicts, m.Pushes, m.Dropped, m.Sweeps, m.QueueDepth,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest counts an HTTP request.
func (m *Metrics) ObserveRequest(route, method, code string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, code).Inc()
}

// ObserveTransition counts a committed status change.
func (m *Metrics) ObserveTransition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

// ObserveConflict counts a rejected overlapping write.
func (m *Metrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}

// ObservePush counts a scheduler call.
func (m *Metrics) ObservePush(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Pushes.WithLabelValues(op, result).Inc()
}

// ObserveDropped counts a push task lost to a full queue.
func (m *Metrics) ObserveDropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}

// ObserveSweep adds the outcome counts of one reconciliation sweep.
func (m *Metrics) ObserveSweep(pushed, skipped, failed int) {
	if m == nil {
		return
	}
	m.Sweeps.WithLabelValues("pushed").Add(float64(pushed))
	m.Sweeps.WithLabelValues("skipped").Add(float64(skipped))
	m.Sweeps.WithLabelValues("failed").Add(float64(failed))
}

// SetQueueDepth records the number of waiting push tasks.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
