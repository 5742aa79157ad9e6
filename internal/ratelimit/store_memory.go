package ratelimit

import (
	"context"
	"sync"
	"time"
)

// fixedWindow is one subject's counter. The window began at resetAt-window
// and the counter resets wholesale once now reaches resetAt.
type fixedWindow struct {
	count   int
	resetAt time.Time
}

// InMemoryCounterStore implements CounterStore with mutex-guarded fixed
// windows. Suitable for tests and single-instance deployments; use
// RedisCounterStore when counters must be shared.
type InMemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	lastGC  time.Time
}

// NewInMemoryCounterStore creates an empty in-memory counter store.
func NewInMemoryCounterStore() *InMemoryCounterStore {
	return &InMemoryCounterStore{windows: make(map[string]*fixedWindow)}
}

func (s *InMemoryCounterStore) Consume(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeGC(now, window)

	w := s.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &fixedWindow{count: 0, resetAt: now.Add(window)}
		s.windows[key] = w
	}

	if w.count >= limit {
		return denied(limit, w.resetAt, now), nil
	}

	w.count++
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

func (s *InMemoryCounterStore) Peek(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		return Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: now.Add(window)}, nil
	}
	if w.count >= limit {
		return denied(limit, w.resetAt, now), nil
	}
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - w.count,
		ResetAt:   w.resetAt,
	}, nil
}

func denied(limit int, resetAt, now time.Time) Result {
	return Result{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: resetAt.Sub(now),
	}
}

// maybeGC drops long-expired windows so abandoned subjects do not grow the
// map forever. Must be called with s.mu held.
func (s *InMemoryCounterStore) maybeGC(now time.Time, window time.Duration) {
	if now.Sub(s.lastGC) < time.Minute {
		return
	}
	for key, w := range s.windows {
		if now.Sub(w.resetAt) > 2*window {
			delete(s.windows, key)
		}
	}
	s.lastGC = now
}
