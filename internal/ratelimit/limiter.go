package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/requestcontext"
)

// Policy names one fixed-window ceiling. Kind distinguishes the two
// instantiations (submission quota, code-request quota) in keys, logs, and
// metrics.
type Policy struct {
	Kind   string
	Limit  int
	Window time.Duration
}

// Limiter applies fixed-window policies against a counter store.
type Limiter struct {
	store   CounterStore
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Limiter.
type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// New constructs a limiter over the given counter store.
func New(store CounterStore, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	l := &Limiter{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Check reports whether the subject could act right now without counting
// anything. Callers that intend to act must use Consume.
func (l *Limiter) Check(ctx context.Context, p Policy, subject string) (Result, error) {
	res, err := l.store.Peek(ctx, l.key(p, subject), p.Limit, p.Window, requestcontext.Now(ctx))
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	return res, nil
}

// Consume counts one action for the subject if the ceiling allows it.
// A denied result carries the remaining time until the window resets.
func (l *Limiter) Consume(ctx context.Context, p Policy, subject string) (Result, error) {
	res, err := l.store.Consume(ctx, l.key(p, subject), p.Limit, p.Window, requestcontext.Now(ctx))
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume rate limit")
	}

	if !res.Allowed {
		if l.metrics != nil {
			l.metrics.IncrementDenied(p.Kind)
		}
		if l.logger != nil {
			l.logger.InfoContext(ctx, "rate limit exceeded",
				"kind", p.Kind,
				"subject", subject,
				"limit", p.Limit,
				"retry_after_seconds", int(res.RetryAfter.Seconds()),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}

	return res, nil
}

func (l *Limiter) key(p Policy, subject string) string {
	return fmt.Sprintf("%s:%s", p.Kind, subject)
}
