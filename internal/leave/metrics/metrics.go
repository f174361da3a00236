package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the submission module.
type Metrics struct {
	Submissions   *prometheus.CounterVec
	SubmitLatency prometheus.Histogram
}

// New creates and registers all submission metrics.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medleave_submissions_total",
			Help: "Total leave request submissions by outcome",
		}, []string{"outcome"}), // outcome: "created", "validation", "conflict", "storage", "internal"

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medleave_submit_duration_seconds",
			Help:    "Duration of the full submit unit of work",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementSubmission records a submission outcome.
func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

// ObserveSubmitLatency records the submit duration.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
