package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-level Prometheus metrics. Feature packages
// register their own metrics next to their services.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	EventsIngested  *prometheus.CounterVec
}

// New creates and registers all application-level Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		EventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_events_ingested_total",
			Help: "Lifecycle events accepted by the ingest API, by kind",
		}, []string{"kind"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(seconds)
}

// IncEventsIngested counts one accepted lifecycle event.
func (m *Metrics) IncEventsIngested(kind string) {
	if m == nil {
		return
	}
	m.EventsIngested.WithLabelValues(kind).Inc()
}
