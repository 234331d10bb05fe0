package throttle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the admission engine.
//
// A Metrics instance may be shared by several limiters; series are
// partitioned by the limiter name label.
type Metrics struct {
	// Acquire outcomes
	acquireOutcomes *prometheus.CounterVec

	// Callers currently waiting for admission
	queueDepth *prometheus.GaugeVec

	// Time spent waiting before a terminal outcome
	queuedDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil registerer creates unregistered collectors, useful in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		acquireOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "throttle_acquire_outcomes_total",
				Help: "Total number of acquire calls by terminal outcome",
			},
			[]string{"limiter", "outcome"},
		),

		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "throttle_queue_depth",
				Help: "Number of callers currently waiting for admission",
			},
			[]string{"limiter"},
		),

		queuedDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "throttle_queued_duration_seconds",
				Help:    "Time spent waiting for admission before a terminal outcome",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"limiter", "outcome"},
		),
	}
}

// recordOutcome updates the outcome counter and duration histogram.
func (m *Metrics) recordOutcome(limiter, outcome string, seconds float64) {
	m.acquireOutcomes.WithLabelValues(limiter, outcome).Inc()
	m.queuedDuration.WithLabelValues(limiter, outcome).Observe(seconds)
}

// setQueueDepth updates the queue depth gauge.
func (m *Metrics) setQueueDepth(limiter string, depth int) {
	m.queueDepth.WithLabelValues(limiter).Set(float64(depth))
}
