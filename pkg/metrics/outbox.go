package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outbox relay outcomes.
const (
	OutboxPublished    = "published"
	OutboxRetried      = "retried"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics tracks what the relay did with each outbox row.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	publish *prometheus.HistogramVec
	batches prometheus.Counter
}

// NewOutboxMetrics registers the relay metrics. A nil registerer yields a
// no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the relay, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	publish := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Broker publish latency in seconds, by topic.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
	}, []string{"topic"})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_batches_total",
		Help: "Non-empty batches claimed by the relay.",
	})
	reg.MustRegister(events, publish, batches)
	return &OutboxMetrics{events: events, publish: publish, batches: batches}
}

func (m *OutboxMetrics) Event(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

func (m *OutboxMetrics) ObservePublish(topic string, d time.Duration) {
	if m == nil || m.publish == nil {
		return
	}
	m.publish.WithLabelValues(normalizeLabel(topic)).Observe(d.Seconds())
}

func (m *OutboxMetrics) Batch() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}
