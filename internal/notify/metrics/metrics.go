package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the notification pipeline's Prometheus metrics.
type Metrics struct {
	Emitted        *prometheus.CounterVec
	Suppressed     prometheus.Counter
	MirrorUpdates  prometheus.Counter
	FanoutDuration prometheus.Histogram
	FanoutUsers    prometheus.Counter
	FanoutDropped  prometheus.Counter
}

// New creates and registers the notification metrics.
func New() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_notifications_emitted_total",
			Help: "Notification events emitted, by template",
		}, []string{"template"}),
		Suppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beacon_notifications_suppressed_total",
			Help: "Lifecycle events that produced no notification",
		}),
		MirrorUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beacon_message_publish_syncs_total",
			Help: "Stored message records re-flagged after a publish status change",
		}),
		FanoutDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "beacon_subscription_fanout_duration_seconds",
			Help:    "Wall time of one auto-subscription fan-out",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		FanoutUsers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beacon_subscription_fanout_users_total",
			Help: "Users processed by the auto-subscription fan-out",
		}),
		FanoutDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "beacon_subscription_fanout_dropped_total",
			Help: "Fan-out requests dropped because the queue was full",
		}),
	}
}

func (m *Metrics) IncEmitted(template string) {
	if m == nil {
		return
	}
	m.Emitted.WithLabelValues(template).Inc()
}

func (m *Metrics) IncSuppressed() {
	if m == nil {
		return
	}
	m.Suppressed.Inc()
}

func (m *Metrics) AddMirrorUpdates(n int) {
	if m == nil {
		return
	}
	m.MirrorUpdates.Add(float64(n))
}

func (m *Metrics) ObserveFanout(seconds float64, users int) {
	if m == nil {
		return
	}
	m.FanoutDuration.Observe(seconds)
	m.FanoutUsers.Add(float64(users))
}

func (m *Metrics) IncFanoutDropped() {
	if m == nil {
		return
	}
	m.FanoutDropped.Inc()
}
