package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicwatch/pkg/requestcontext"
)

func TestLimiter_Consume(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	submission := Policy{Kind: "submission", Limit: 2, Window: 24 * time.Hour}

	newLimiter := func(t *testing.T) *Limiter {
		t.Helper()
		l, err := New(NewInMemoryCounterStore())
		require.NoError(t, err)
		return l
	}

	at := func(ts time.Time) context.Context {
		return requestcontext.WithTime(context.Background(), ts)
	}

	t.Run("standard tier allows two submissions per day", func(t *testing.T) {
		l := newLimiter(t)

		res, err := l.Consume(at(base), submission, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1, res.Remaining)

		res, err = l.Consume(at(base.Add(2*time.Hour)), submission, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)

		res, err = l.Consume(at(base.Add(4*time.Hour)), submission, "user-1")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 20*time.Hour, res.RetryAfter)
	})

	t.Run("quota returns after the window elapses", func(t *testing.T) {
		l := newLimiter(t)

		for i := 0; i < 2; i++ {
			_, err := l.Consume(at(base), submission, "user-1")
			require.NoError(t, err)
		}

		res, err := l.Consume(at(base.Add(24*time.Hour)), submission, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("policies of different kinds count separately", func(t *testing.T) {
		l := newLimiter(t)
		codes := Policy{Kind: "code_request", Limit: 1, Window: time.Hour}

		res, err := l.Consume(at(base), submission, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = l.Consume(at(base), codes, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
	})

	t.Run("subjects count separately", func(t *testing.T) {
		l := newLimiter(t)
		one := Policy{Kind: "submission", Limit: 1, Window: 24 * time.Hour}

		_, err := l.Consume(at(base), one, "user-1")
		require.NoError(t, err)

		res, err := l.Consume(at(base), one, "user-2")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}

func TestLimiter_Check(t *testing.T) {
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	p := Policy{Kind: "submission", Limit: 1, Window: 24 * time.Hour}

	l, err := New(NewInMemoryCounterStore())
	require.NoError(t, err)

	ctx := requestcontext.WithTime(context.Background(), base)

	res, err := l.Check(ctx, p, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Checking never spends quota.
	res, err = l.Check(ctx, p, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	_, err = l.Consume(ctx, p, "user-1")
	require.NoError(t, err)

	res, err = l.Check(ctx, p, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
