package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bridge.
type Metrics struct {
	RequestTotal       *prometheus.CounterVec
	RequestDurationMs  *prometheus.HistogramVec
	UpstreamTotal      *prometheus.CounterVec
	UpstreamDurationMs *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flodesk_bridge_request_total",
			Help: "Total number of dispatched actions.",
		}, []string{"action", "status"}),

		RequestDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flodesk_bridge_request_duration_ms",
			Help:    "Total action duration in milliseconds (including Flodesk latency).",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"action"}),

		UpstreamTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "flodesk_bridge_upstream_request_total",
			Help: "Total HTTP calls made to the Flodesk API.",
		}, []string{"method", "status"}),

		UpstreamDurationMs: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flodesk_bridge_upstream_duration_ms",
			Help:    "Flodesk API call duration in milliseconds.",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"method"}),
	}
}

// RecordRequest records a completed action dispatch.
func (m *Metrics) RecordRequest(action, status string, durationMs float64) {
	m.RequestTotal.WithLabelValues(action, status).Inc()
	m.RequestDurationMs.WithLabelValues(action).Observe(durationMs)
}

// RecordUpstream records one HTTP call to the Flodesk API. status is the
// HTTP status code, or "error" when no response was received.
func (m *Metrics) RecordUpstream(method, status string, durationMs float64) {
	m.UpstreamTotal.WithLabelValues(method, status).Inc()
	m.UpstreamDurationMs.WithLabelValues(method).Observe(durationMs)
}
