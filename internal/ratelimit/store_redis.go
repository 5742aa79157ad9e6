package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore implements CounterStore on a shared Redis instance so
// quotas hold across service replicas. The fixed window is an INCR counter
// with an expiry set when the window starts; a denied consume rolls its
// increment back so denials never count.
type RedisCounterStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCounterStore creates a Redis-backed counter store.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client, prefix: "ratelimit:"}
}

// Consume increments the subject's window counter. Redis server time governs
// window expiry, so the injected now is used only for RetryAfter reporting.
func (s *RedisCounterStore) Consume(ctx context.Context, key string, limit int, window time.Duration, _ time.Time) (Result, error) {
	rkey := s.prefix + key

	count, err := s.client.Incr(ctx, rkey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("incr rate counter: %w", err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, rkey, window).Err(); err != nil {
			return Result{}, fmt.Errorf("expire rate counter: %w", err)
		}
	}

	if int(count) > limit {
		// Roll back: the denied attempt must not consume quota.
		if err := s.client.Decr(ctx, rkey).Err(); err != nil {
			return Result{}, fmt.Errorf("rollback rate counter: %w", err)
		}
		return s.deniedResult(ctx, rkey, limit, window)
	}

	ttl, err := s.client.PTTL(ctx, rkey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ttl rate counter: %w", err)
	}
	if ttl < 0 {
		ttl = window
	}
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count),
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

func (s *RedisCounterStore) Peek(ctx context.Context, key string, limit int, window time.Duration, _ time.Time) (Result, error) {
	rkey := s.prefix + key

	count, err := s.client.Get(ctx, rkey).Int()
	if err != nil {
		if err == redis.Nil {
			return Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: time.Now().Add(window)}, nil
		}
		return Result{}, fmt.Errorf("get rate counter: %w", err)
	}

	if count >= limit {
		return s.deniedResult(ctx, rkey, limit, window)
	}

	ttl, err := s.client.PTTL(ctx, rkey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ttl rate counter: %w", err)
	}
	if ttl < 0 {
		ttl = window
	}
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

func (s *RedisCounterStore) deniedResult(ctx context.Context, rkey string, limit int, window time.Duration) (Result, error) {
	ttl, err := s.client.PTTL(ctx, rkey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ttl rate counter: %w", err)
	}
	if ttl < 0 {
		ttl = window
	}
	return Result{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    time.Now().Add(ttl),
		RetryAfter: ttl,
	}, nil
}
