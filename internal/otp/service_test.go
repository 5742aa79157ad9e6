package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/requestcontext"

	"civicwatch/internal/jwttoken"
	"civicwatch/internal/notify"
	"civicwatch/internal/ratelimit"
	"civicwatch/internal/user"
)

// capturingEnqueuer records delivery notifications so tests can read the
// issued code the way a recipient would.
type capturingEnqueuer struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (e *capturingEnqueuer) Enqueue(n notify.Notification) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, n)
	return true
}

func (e *capturingEnqueuer) lastCode(t *testing.T) string {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	require.NotEmpty(t, e.sent)
	code := e.sent[len(e.sent)-1].Data["code"]
	require.Len(t, code, 6)
	return code
}

type fixture struct {
	svc      *Service
	enqueuer *capturingEnqueuer
	users    *user.InMemoryStore
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	limiter, err := ratelimit.New(ratelimit.NewInMemoryCounterStore())
	require.NoError(t, err)

	enqueuer := &capturingEnqueuer{}
	users := user.NewInMemoryStore()
	tokens := jwttoken.NewService("test-signing-key", "civicwatch", "civicwatch-api")

	opts = append([]Option{WithDispatcher(enqueuer)}, opts...)
	svc, err := NewService(NewInMemoryStore(), users, tokens, limiter, opts...)
	require.NoError(t, err)

	return &fixture{svc: svc, enqueuer: enqueuer, users: users}
}

func at(ts time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), ts)
}

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestService_IssueAndVerify(t *testing.T) {
	t.Run("issued code verifies once and mints tokens", func(t *testing.T) {
		f := newFixture(t)
		ctx := at(base)

		require.NoError(t, f.svc.Issue(ctx, "Reporter@Example.com"))
		code := f.enqueuer.lastCode(t)

		pair, err := f.svc.Verify(at(base.Add(time.Minute)), "reporter@example.com", code)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, "Bearer", pair.TokenType)

		// First-time addresses are registered as citizens.
		u, err := f.users.FindByEmail(ctx, "reporter@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.RoleCitizen, u.Role)

		// Consumed codes never verify again.
		_, err = f.svc.Verify(at(base.Add(2*time.Minute)), "reporter@example.com", code)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("existing user keeps role and id", func(t *testing.T) {
		f := newFixture(t)
		existing := &user.User{ID: id.NewUserID(), Email: "mod@example.com", Role: user.RoleModerator, CreatedAt: base}
		require.NoError(t, f.users.Create(context.Background(), existing))

		require.NoError(t, f.svc.Issue(at(base), "mod@example.com"))
		pair, err := f.svc.Verify(at(base.Add(time.Minute)), "mod@example.com", f.enqueuer.lastCode(t))
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)

		u, err := f.users.FindByEmail(context.Background(), "mod@example.com")
		require.NoError(t, err)
		assert.Equal(t, existing.ID, u.ID)
		assert.Equal(t, user.RoleModerator, u.Role)
	})

	t.Run("expired code is rejected", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Issue(at(base), "a@example.com"))
		code := f.enqueuer.lastCode(t)

		_, err := f.svc.Verify(at(base.Add(6*time.Minute)), "a@example.com", code)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Equal(t, "code expired", dErrors.MessageOf(err))
	})

	t.Run("three wrong guesses exhaust the code", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Issue(at(base), "a@example.com"))
		code := f.enqueuer.lastCode(t)

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}
		for i := 0; i < 3; i++ {
			_, err := f.svc.Verify(at(base), "a@example.com", wrong)
			require.Error(t, err)
			assert.Equal(t, "code mismatch", dErrors.MessageOf(err))
		}

		// Even the right code fails once attempts are spent.
		_, err := f.svc.Verify(at(base), "a@example.com", code)
		require.Error(t, err)
		assert.Equal(t, "attempt limit reached", dErrors.MessageOf(err))
	})

	t.Run("re-issue replaces the pending code", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.svc.Issue(at(base), "a@example.com"))
		first := f.enqueuer.lastCode(t)

		require.NoError(t, f.svc.Issue(at(base.Add(time.Minute)), "a@example.com"))
		second := f.enqueuer.lastCode(t)

		if first != second {
			_, err := f.svc.Verify(at(base.Add(2*time.Minute)), "a@example.com", first)
			require.Error(t, err)
		}
		_, err := f.svc.Verify(at(base.Add(2*time.Minute)), "a@example.com", second)
		require.NoError(t, err)
	})

	t.Run("verify with no pending code is unauthorized", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Verify(at(base), "a@example.com", "123456")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Equal(t, "no pending code", dErrors.MessageOf(err))
	})
}

func TestService_IssueRateLimit(t *testing.T) {
	f := newFixture(t, WithCodePolicy(ratelimit.Policy{Kind: "code_request", Limit: 5, Window: time.Hour}))

	for i := 0; i < 5; i++ {
		require.NoError(t, f.svc.Issue(at(base.Add(time.Duration(i)*time.Minute)), "a@example.com"))
	}

	err := f.svc.Issue(at(base.Add(10*time.Minute)), "a@example.com")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))

	// Another address still has its full allowance.
	require.NoError(t, f.svc.Issue(at(base.Add(10*time.Minute)), "b@example.com"))

	// The window reset restores the allowance.
	require.NoError(t, f.svc.Issue(at(base.Add(61*time.Minute)), "a@example.com"))
}

func TestService_Validation(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Issue(at(base), "not-an-email")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = f.svc.Verify(at(base), "a@example.com", "12345")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
