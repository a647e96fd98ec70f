// Package metrics provides Prometheus metrics for the copilot relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	StreamChunksTotal  prometheus.Counter
	StreamTimeoutsTotal prometheus.Counter
	CacheLookupsTotal  *prometheus.CounterVec
	BackendFetchErrors *prometheus.CounterVec
	GenerationDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_requests_total",
				Help: "Total number of relay requests by mode and status.",
			},
			[]string{"mode", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_request_duration_seconds",
				Help:    "Relay request duration by mode.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		StreamChunksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_stream_chunks_total",
				Help: "Total text chunks relayed from the generation stream.",
			},
		),
		StreamTimeoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_stream_timeouts_total",
				Help: "Total generation streams aborted by the idle timeout.",
			},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_insights_cache_lookups_total",
				Help: "Insights cache lookups by result (hit or miss).",
			},
			[]string{"result"},
		),
		BackendFetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_backend_fetch_errors_total",
				Help: "Backend collection fetches that degraded to empty, by collection.",
			},
			[]string{"collection"},
		),
		GenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_generation_duration_seconds",
				Help:    "End-to-end generation call duration.",
				Buckets: prometheus.DefBuckets,
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal)
	reg.MustRegister(m.RequestDuration)
	reg.MustRegister(m.StreamChunksTotal)
	reg.MustRegister(m.StreamTimeoutsTotal)
	reg.MustRegister(m.CacheLookupsTotal)
	reg.MustRegister(m.BackendFetchErrors)
	reg.MustRegister(m.GenerationDuration)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(mode, status string) {
	m.RequestsTotal.WithLabelValues(mode, status).Inc()
}

// ObserveDuration records request duration.
func (m *Metrics) ObserveDuration(mode string, seconds float64) {
	m.RequestDuration.WithLabelValues(mode).Observe(seconds)
}

// RecordCacheLookup increments the cache lookup counter.
func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordBackendError increments the degraded-fetch counter for a collection.
func (m *Metrics) RecordBackendError(collection string) {
	m.BackendFetchErrors.WithLabelValues(collection).Inc()
}

// RecordStreamChunk increments the relayed chunk counter.
func (m *Metrics) RecordStreamChunk() {
	m.StreamChunksTotal.Inc()
}

// RecordStreamTimeout increments the idle-timeout counter.
func (m *Metrics) RecordStreamTimeout() {
	m.StreamTimeoutsTotal.Inc()
}
