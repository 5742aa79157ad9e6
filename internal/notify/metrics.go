package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for notification dispatch.
type Metrics struct {
	Enqueued prometheus.Counter
	Dropped  prometheus.Counter
}

// NewMetrics creates and registers notification metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Enqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civicwatch_notifications_enqueued_total",
			Help: "Total number of notifications accepted by the dispatcher",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civicwatch_notifications_dropped_total",
			Help: "Total number of notifications dropped because the buffer was full",
		}),
	}
}

func (m *Metrics) IncrementEnqueued() { m.Enqueued.Inc() }
func (m *Metrics) IncrementDropped()  { m.Dropped.Inc() }
