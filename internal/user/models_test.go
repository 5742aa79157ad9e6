package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/sentinel"
)

func TestRole_TrustTier(t *testing.T) {
	assert.Equal(t, TierStandard, RoleCitizen.TrustTier())
	assert.Equal(t, TierTrusted, RoleTrustedReporter.TrustTier())
	assert.Equal(t, TierTrusted, RoleModerator.TrustTier())
	assert.Equal(t, TierTrusted, RoleAdmin.TrustTier())
}

func TestRole_CanModerate(t *testing.T) {
	assert.False(t, RoleCitizen.CanModerate())
	assert.False(t, RoleTrustedReporter.CanModerate())
	assert.True(t, RoleModerator.CanModerate())
	assert.True(t, RoleAdmin.CanModerate())
}

func TestUser_Validate(t *testing.T) {
	valid := User{ID: id.NewUserID(), Email: "a@example.com", Role: RoleCitizen}
	require.NoError(t, valid.Validate())

	noEmail := valid
	noEmail.Email = "  "
	require.Error(t, noEmail.Validate())

	badRole := valid
	badRole.Role = Role("superuser")
	require.Error(t, badRole.Validate())
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	newUser := func(email string) *User {
		return &User{
			ID:        id.NewUserID(),
			Email:     email,
			Role:      RoleCitizen,
			CreatedAt: time.Now(),
		}
	}

	t.Run("create and find by id and email", func(t *testing.T) {
		store := NewInMemoryStore()
		u := newUser("Reporter@Example.com")
		require.NoError(t, store.Create(ctx, u))

		got, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)

		// Email lookup is case-insensitive.
		got, err = store.FindByEmail(ctx, "reporter@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		store := NewInMemoryStore()
		require.NoError(t, store.Create(ctx, newUser("a@example.com")))

		err := store.Create(ctx, newUser("A@example.com"))
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.FindByID(ctx, id.NewUserID())
		require.ErrorIs(t, err, sentinel.ErrNotFound)

		_, err = store.FindByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("trust score moves by delta with no floor", func(t *testing.T) {
		store := NewInMemoryStore()
		u := newUser("a@example.com")
		require.NoError(t, store.Create(ctx, u))

		score, err := store.AdjustTrustScore(ctx, u.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, score)

		for i := 0; i < 5; i++ {
			score, err = store.AdjustTrustScore(ctx, u.ID, -1)
			require.NoError(t, err)
		}
		assert.Equal(t, -3, score)
	})

	t.Run("update role", func(t *testing.T) {
		store := NewInMemoryStore()
		u := newUser("a@example.com")
		require.NoError(t, store.Create(ctx, u))

		require.NoError(t, store.UpdateRole(ctx, u.ID, RoleTrustedReporter))
		got, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, RoleTrustedReporter, got.Role)
		assert.Equal(t, "trusted", got.TrustBadge())
	})
}
