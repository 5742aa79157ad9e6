// Package user holds publisher identities and the trust score mutated by
// moderation decisions.
package user

import (
	"strings"
	"time"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
)

// Role classifies an account. Moderator-tier roles see and decide on all
// reports; publisher-tier roles own their submissions.
type Role string

const (
	RoleCitizen         Role = "citizen"
	RoleTrustedReporter Role = "trusted_reporter"
	RoleModerator       Role = "moderator"
	RoleAdmin           Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleTrustedReporter, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// CanModerate reports whether the role may decide on reports.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// TrustTier is the role-derived classification that sets the submission
// quota and is snapshotted onto each report as a badge.
type TrustTier string

const (
	TierStandard TrustTier = "standard"
	TierTrusted  TrustTier = "trusted"
)

// TrustTier derives the tier from the role. Any role above plain citizen is
// trusted.
func (r Role) TrustTier() TrustTier {
	if r == RoleCitizen {
		return TierStandard
	}
	return TierTrusted
}

// User is a registered account. TrustScore moves only through moderation
// side effects and has no lower bound.
type User struct {
	ID         id.UserID
	Email      string
	Role       Role
	TrustScore int
	CreatedAt  time.Time
}

// TrustBadge is the tier string snapshotted onto reports at submission.
func (u *User) TrustBadge() string {
	return string(u.Role.TrustTier())
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !u.Role.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown role")
	}
	return nil
}
