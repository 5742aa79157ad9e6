package report

import (
	"context"
	"time"

	id "civicwatch/pkg/domain"
)

// Filter narrows a report listing.
type Filter struct {
	PublisherID *id.UserID
	Status      *Status
	Category    *Category
	// PublicOnly restricts the listing to verified reports.
	PublicOnly bool
	Limit      int
	Offset     int
}

// Store persists reports. Lookups return sentinel.ErrNotFound wrapped with
// context when they miss; soft-deleted reports are invisible to every
// method except hard Delete.
type Store interface {
	Create(ctx context.Context, r *Report) error
	FindByID(ctx context.Context, reportID id.ReportID) (*Report, error)
	List(ctx context.Context, f Filter) ([]*Report, error)

	// Update rewrites publisher-editable content fields and status.
	Update(ctx context.Context, r *Report) error

	// UpdateStatus is a compare-and-swap on the expected source status. It
	// writes the moderation stamp, and overwrites the jurisdiction when
	// stationID is non-nil. Returns sentinel.ErrConflict when the report
	// is no longer in the expected status.
	UpdateStatus(ctx context.Context, reportID id.ReportID, from, to Status, stamp ModerationStamp, stationID *id.StationID) error

	SoftDelete(ctx context.Context, reportID id.ReportID, at time.Time) error
	Delete(ctx context.Context, reportID id.ReportID) error

	IncrementViews(ctx context.Context, reportID id.ReportID) error
	IncrementShares(ctx context.Context, reportID id.ReportID) error
}

// ReviewStore persists citizen complaints against reports.
type ReviewStore interface {
	Create(ctx context.Context, rv *Review) error
	FindByID(ctx context.Context, reviewID id.ReviewID) (*Review, error)
	ListByReport(ctx context.Context, reportID id.ReportID) ([]*Review, error)

	// MarkResolved flips an open review to resolved. Returns
	// sentinel.ErrConflict when the review is already resolved.
	MarkResolved(ctx context.Context, reviewID id.ReviewID, resolution string, at time.Time) error
}
