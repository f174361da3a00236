package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision module.
type Metrics struct {
	Decisions     *prometheus.CounterVec
	DecideLatency prometheus.Histogram
	Deliveries    prometheus.Counter
}

// New creates and registers all decision metrics.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medleave_decisions_total",
			Help: "Total decision attempts by outcome",
		}, []string{"outcome"}), // outcome: "accepted", "rejected", "conflict", "validation", "not_found", "internal"

		DecideLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medleave_decide_duration_seconds",
			Help:    "Duration of the full decide unit of work",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		Deliveries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medleave_deliveries_created_total",
			Help: "Delivery rows created by the acceptance fan-out",
		}),
	}
}

// IncrementDecision records a decision outcome.
func (m *Metrics) IncrementDecision(outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(outcome).Inc()
	}
}

// ObserveDecideLatency records the decide duration.
func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}

// AddDeliveries records newly created delivery rows.
func (m *Metrics) AddDeliveries(n int) {
	if m != nil && n > 0 {
		m.Deliveries.Add(float64(n))
	}
}
