package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for moderation decisions.
type Metrics struct {
	Decisions *prometheus.CounterVec
}

// NewMetrics creates and registers moderation metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civicwatch_moderation_decisions_total",
			Help: "Total number of committed moderation decisions by action",
		}, []string{"action"}),
	}
}

// IncrementDecisions records one committed decision.
func (m *Metrics) IncrementDecisions(action string) {
	m.Decisions.WithLabelValues(action).Inc()
}
