// Package report holds the incident report entity and its lifecycle state
// machine. Reports enter as submitted, publishers may edit them back into
// submitted from an editable status, and moderators move them through
// verified, rejected, and taken_down.
package report

import (
	"strings"
	"time"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"

	"civicwatch/internal/geo"
)

// Status is the lifecycle state of a report. Visibility to the public is a
// function of status alone: only verified reports are public.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusVerified  Status = "verified"
	StatusRejected  Status = "rejected"
	StatusTakenDown Status = "taken_down"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusVerified, StatusRejected, StatusTakenDown:
		return true
	}
	return false
}

// Editable reports whether the publisher may still change content. An edit
// always returns the report to submitted.
func (s Status) Editable() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusRejected:
		return true
	}
	return false
}

// Public reports whether anonymous readers may see the report.
func (s Status) Public() bool {
	return s == StatusVerified
}

// CanTransition reports whether a moderator may move a report from one
// status to another. Verified reports can only be taken down.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusSubmitted:
		return to == StatusVerified || to == StatusRejected || to == StatusTakenDown
	case StatusVerified:
		return to == StatusTakenDown
	}
	return false
}

// Category is the closed set of incident kinds.
type Category string

const (
	CategoryInfrastructure Category = "infrastructure"
	CategoryEnvironment    Category = "environment"
	CategorySafety         Category = "safety"
	CategoryTraffic        Category = "traffic"
	CategoryVandalism      Category = "vandalism"
	CategoryOther          Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryInfrastructure, CategoryEnvironment, CategorySafety, CategoryTraffic, CategoryVandalism, CategoryOther:
		return true
	}
	return false
}

// ModerationStamp is the note/moderator/timestamp triple written by a
// decision. The three fields are set together or not at all.
type ModerationStamp struct {
	Note        string
	ModeratorID id.UserID
	At          time.Time
}

// Report is one incident report.
type Report struct {
	ID       id.ReportID
	Title    string
	Body     string
	Category Category

	// Coordinate is optional; reports may carry only a textual address.
	Coordinate *geo.Coordinate
	Address    string

	// StationID is the assigned jurisdiction. Nullable until resolution;
	// once the report is verified it may be overwritten by re-resolution
	// but never cleared.
	StationID *id.StationID

	Status     Status
	Moderation *ModerationStamp

	PublisherID id.UserID
	// PublisherBadge is the publisher's trust tier captured at submission.
	PublisherBadge string

	Views  int64
	Shares int64

	OccurredAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

func (r *Report) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if strings.TrimSpace(r.Body) == "" {
		return dErrors.New(dErrors.CodeValidation, "body is required")
	}
	if !r.Category.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown category")
	}
	if !r.Status.Valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown status")
	}
	if r.Coordinate != nil {
		if r.Coordinate.Latitude < -90 || r.Coordinate.Latitude > 90 {
			return dErrors.New(dErrors.CodeValidation, "latitude must be between -90 and 90")
		}
		if r.Coordinate.Longitude < -180 || r.Coordinate.Longitude > 180 {
			return dErrors.New(dErrors.CodeValidation, "longitude must be between -180 and 180")
		}
	}
	return nil
}

// ReviewStatus tracks a citizen complaint against a report.
type ReviewStatus string

const (
	ReviewOpen     ReviewStatus = "open"
	ReviewResolved ReviewStatus = "resolved"
)

// Review is a citizen complaint filed against a verified report. Resolving
// one may cascade into a takedown of the report.
type Review struct {
	ID         id.ReviewID
	ReportID   id.ReportID
	ReporterID id.UserID
	Reason     string
	Status     ReviewStatus
	Resolution string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

func (rv *Review) Validate() error {
	if strings.TrimSpace(rv.Reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}
