package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for rate limiting.
type Metrics struct {
	Denied *prometheus.CounterVec
}

// NewMetrics creates and registers rate limit metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Denied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civicwatch_ratelimit_denied_total",
			Help: "Total number of denied rate limit consumes by policy kind",
		}, []string{"kind"}),
	}
}

// IncrementDenied records one denial for the given policy kind.
func (m *Metrics) IncrementDenied(kind string) {
	m.Denied.WithLabelValues(kind).Inc()
}
