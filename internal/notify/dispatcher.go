package notify

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// fanOutLimit bounds concurrent sends for one notification's targets.
const fanOutLimit = 4

// Dispatcher queues notifications behind a buffered channel and delivers
// them from a background worker. Enqueue never blocks the caller; when the
// buffer is full the notification is dropped and counted.
type Dispatcher struct {
	sender  Sender
	inbox   chan Notification
	logger  *slog.Logger
	dropped atomic.Int64
	metrics *Metrics
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher with the given buffer size.
func NewDispatcher(sender Sender, bufferSize int, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		inbox:  make(chan Notification, bufferSize),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue hands a notification to the background worker. Returns false when
// the buffer is saturated and the notification was dropped.
func (d *Dispatcher) Enqueue(n Notification) bool {
	select {
	case d.inbox <- n:
		if d.metrics != nil {
			d.metrics.IncrementEnqueued()
		}
		return true
	default:
		d.dropped.Add(1)
		if d.metrics != nil {
			d.metrics.IncrementDropped()
		}
		d.logger.Warn("notification dropped, buffer full",
			"title", n.Title,
			"targets", len(n.Targets),
			"dropped_total", d.dropped.Load(),
		)
		return false
	}
}

// Dropped reports how many notifications were discarded since start.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run consumes the inbox until the context is cancelled, draining whatever
// is already buffered before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case n := <-d.inbox:
					d.deliver(context.WithoutCancel(ctx), n)
				default:
					return ctx.Err()
				}
			}
		case n := <-d.inbox:
			d.deliver(ctx, n)
		}
	}
}

// deliver fans one notification out to all its targets. Failures are logged
// and never propagated.
func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for _, target := range n.Targets {
		g.Go(func() error {
			if err := d.sender.Send(ctx, target, n); err != nil {
				d.logger.Warn("notification send failed",
					"target_kind", string(target.Kind),
					"target_address", target.Address,
					"title", n.Title,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}
