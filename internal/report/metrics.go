package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for report submission.
type Metrics struct {
	Submitted *prometheus.CounterVec
}

// NewMetrics creates and registers report metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civicwatch_reports_submitted_total",
			Help: "Total number of reports submitted by category",
		}, []string{"category"}),
	}
}

// IncrementSubmitted records one accepted submission.
func (m *Metrics) IncrementSubmitted(category string) {
	m.Submitted.WithLabelValues(category).Inc()
}
