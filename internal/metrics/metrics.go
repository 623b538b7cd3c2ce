// Package metrics exposes Prometheus counters for relay traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "promptrelay"

// Metrics groups the relay collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	attempts *prometheus.CounterVec
	results  *prometheus.CounterVec
	backoff  prometheus.Histogram
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Upstream completion calls by handler and outcome.",
		}, []string{"handler", "outcome"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_results_total",
			Help:      "Relay responses by handler and result.",
		}, []string{"handler", "result"}),
		backoff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backoff_seconds",
			Help:      "Waits inserted between attempts after rate limiting.",
			Buckets:   []float64{0.5, 1, 2, 3, 4, 5, 10, 30, 60},
		}),
	}

	m.registry.MustRegister(
		m.attempts,
		m.results,
		m.backoff,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Attempt counts one upstream call.
func (m *Metrics) Attempt(handler, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(handler, outcome).Inc()
}

// Result counts one response sent to a caller.
func (m *Metrics) Result(handler, result string) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(handler, result).Inc()
}

// Backoff records one wait.
func (m *Metrics) Backoff(d time.Duration) {
	if m == nil {
		return
	}
	m.backoff.Observe(d.Seconds())
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
