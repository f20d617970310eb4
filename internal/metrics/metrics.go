// Package metrics exposes Prometheus collectors for chart generation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels recorded for each chart request.
const (
	OutcomeGenerated    = "generated"
	OutcomeEmptyCell    = "empty_cell"
	OutcomeBadRequest   = "bad_request"
	OutcomeReadError    = "read_error"
	OutcomeInsufficient = "insufficient_data"
	OutcomeWriteError   = "write_error"
	OutcomeError        = "error"
)

// Metrics groups the collectors registered for the chart server.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration, which keeps tests independent of the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nitrogen_response",
			Name:      "chart_requests_total",
			Help:      "Chart requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nitrogen_response",
			Name:      "chart_generation_seconds",
			Help:      "Time spent loading, fitting and rendering a chart.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"mode"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

// Observe records one finished request.
func (m *Metrics) Observe(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode, outcome).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Reject counts a request that ended before a chart could be timed.
func (m *Metrics) Reject(mode, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode, outcome).Inc()
}

// Requests exposes the request counter for inspection.
func (m *Metrics) Requests() *prometheus.CounterVec {
	return m.requests
}
