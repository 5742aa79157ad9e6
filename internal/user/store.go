package user

import (
	"context"

	id "civicwatch/pkg/domain"
)

// Store persists users. Implementations return sentinel.ErrNotFound wrapped
// with context when a lookup misses.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, userID id.UserID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateRole(ctx context.Context, userID id.UserID, role Role) error

	// AdjustTrustScore applies a signed delta and returns the new score.
	// There is no lower bound; scores may go negative.
	AdjustTrustScore(ctx context.Context, userID id.UserID, delta int) (int, error)
}
