// Package ratelimit implements the fixed-window limiter gating report
// submission (per-publisher daily quota by trust tier) and one-time-code
// issuance (flat per-address hourly quota). A window starts on first use and
// the counter resets wholesale at the boundary; there is no gradual decay.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Result reports the outcome of a check or consume against one subject key.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// DeniedError carries the denial details so the transport layer can set a
// Retry-After header. Services wrap it with a rate_limited code.
type DeniedError struct {
	Result Result
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.Result.RetryAfter)
}

// CounterStore is a per-key fixed-window counter.
//
// Consume must be atomic per key: it counts the action if and only if the
// ceiling has not been reached, so two concurrent consumes for the same
// subject can never both pass a quota with one slot left. Denied consumes
// must not increment the counter.
//
// Peek is read-only and never mutates the counter.
type CounterStore interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
	Peek(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}
