// Package domain defines the typed identifiers shared across modules.
// Each ID is a distinct UUID type so the compiler rejects cross-entity
// assignment, and parsing enforces the "valid, non-empty, non-nil" invariant
// at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "civicwatch/pkg/domain-errors"
)

type (
	// UserID identifies a publisher or moderator identity.
	UserID uuid.UUID

	// ReportID identifies an incident report.
	ReportID uuid.UUID

	// StationID identifies a jurisdictional office.
	StationID uuid.UUID

	// ReviewID identifies a citizen complaint against a published report.
	ReviewID uuid.UUID

	// AuditEntryID identifies a moderation audit entry.
	AuditEntryID uuid.UUID
)

func parseUUID(kind, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return parsed, nil
}

// ParseUserID parses and validates a user ID string.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID("user_id", raw)
	return UserID(parsed), err
}

// ParseReportID parses and validates a report ID string.
func ParseReportID(raw string) (ReportID, error) {
	parsed, err := parseUUID("report_id", raw)
	return ReportID(parsed), err
}

// ParseStationID parses and validates a station ID string.
func ParseStationID(raw string) (StationID, error) {
	parsed, err := parseUUID("station_id", raw)
	return StationID(parsed), err
}

// ParseReviewID parses and validates a review ID string.
func ParseReviewID(raw string) (ReviewID, error) {
	parsed, err := parseUUID("review_id", raw)
	return ReviewID(parsed), err
}

// NewUserID returns a fresh random user ID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewReportID returns a fresh random report ID.
func NewReportID() ReportID { return ReportID(uuid.New()) }

// NewStationID returns a fresh random station ID.
func NewStationID() StationID { return StationID(uuid.New()) }

// NewReviewID returns a fresh random review ID.
func NewReviewID() ReviewID { return ReviewID(uuid.New()) }

// NewAuditEntryID returns a fresh random audit entry ID.
func NewAuditEntryID() AuditEntryID { return AuditEntryID(uuid.New()) }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id StationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ReviewID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AuditEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id ReportID) String() string     { return uuid.UUID(id).String() }
func (id StationID) String() string    { return uuid.UUID(id).String() }
func (id ReviewID) String() string     { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string { return uuid.UUID(id).String() }
