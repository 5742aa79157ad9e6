package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/platform/sentinel"
	"civicwatch/pkg/requestcontext"

	"civicwatch/internal/geo"
	"civicwatch/internal/notify"
	"civicwatch/internal/ratelimit"
	"civicwatch/internal/station"
	"civicwatch/internal/user"
)

// Enqueuer is the slice of the notification dispatcher the report service
// needs for submission notifications.
type Enqueuer interface {
	Enqueue(n notify.Notification) bool
}

// SubmissionPolicies holds the per-tier daily submission ceilings.
type SubmissionPolicies struct {
	Standard ratelimit.Policy
	Trusted  ratelimit.Policy
}

// DefaultSubmissionPolicies gives plain citizens 2 reports a day and any
// trusted tier 10.
func DefaultSubmissionPolicies() SubmissionPolicies {
	return SubmissionPolicies{
		Standard: ratelimit.Policy{Kind: "submission", Limit: 2, Window: 24 * time.Hour},
		Trusted:  ratelimit.Policy{Kind: "submission", Limit: 10, Window: 24 * time.Hour},
	}
}

func (p SubmissionPolicies) forTier(tier user.TrustTier) ratelimit.Policy {
	if tier == user.TierTrusted {
		return p.Trusted
	}
	return p.Standard
}

// Service owns report submission, publisher edits, visibility, and reviews.
type Service struct {
	reports    Store
	reviews    ReviewStore
	users      user.Store
	stations   station.Store
	limiter    *ratelimit.Limiter
	policies   SubmissionPolicies
	dispatcher Enqueuer
	logger     *slog.Logger
	metrics    *Metrics
}

// Option configures the report service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithDispatcher(d Enqueuer) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

func WithSubmissionPolicies(p SubmissionPolicies) Option {
	return func(s *Service) {
		s.policies = p
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wires the report service.
func NewService(reports Store, reviews ReviewStore, users user.Store, stations station.Store, limiter *ratelimit.Limiter, opts ...Option) (*Service, error) {
	if reports == nil || reviews == nil || users == nil || stations == nil || limiter == nil {
		return nil, fmt.Errorf("reports, reviews, users, stations, and limiter are required")
	}
	s := &Service{
		reports:  reports,
		reviews:  reviews,
		users:    users,
		stations: stations,
		limiter:  limiter,
		policies: DefaultSubmissionPolicies(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SubmitInput carries the publisher-provided fields of a new report.
type SubmitInput struct {
	Title      string
	Body       string
	Category   Category
	Coordinate *geo.Coordinate
	Address    string
	OccurredAt time.Time
}

// Submit creates a report in submitted status for the authenticated
// publisher. The submission quota is consumed first; jurisdiction is
// pre-assigned best effort when a coordinate is present.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Report, error) {
	publisherID := requestcontext.UserID(ctx)
	if publisherID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	publisher, err := s.users.FindByID(ctx, publisherID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "unknown publisher")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load publisher")
	}

	now := requestcontext.Now(ctx)
	r := &Report{
		ID:             id.NewReportID(),
		Title:          in.Title,
		Body:           in.Body,
		Category:       in.Category,
		Coordinate:     in.Coordinate,
		Address:        in.Address,
		Status:         StatusSubmitted,
		PublisherID:    publisherID,
		PublisherBadge: publisher.TrustBadge(),
		OccurredAt:     in.OccurredAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if r.OccurredAt.IsZero() {
		r.OccurredAt = now
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	// The quota is consumed only for a submission that would otherwise
	// succeed; invalid input never spends allowance.
	policy := s.policies.forTier(publisher.Role.TrustTier())
	res, err := s.limiter.Consume(ctx, policy, publisherID.String())
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return nil, dErrors.Wrap(&ratelimit.DeniedError{Result: res}, dErrors.CodeRateLimited, "daily submission limit reached")
	}

	// Pre-assignment is best effort; resolution failures never block a
	// submission and verification re-resolves anyway.
	if in.Coordinate != nil {
		if stationID, ok := s.resolveJurisdiction(ctx, *in.Coordinate); ok {
			r.StationID = &stationID
		}
	}

	if err := s.reports.Create(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create report")
	}

	if s.metrics != nil {
		s.metrics.IncrementSubmitted(string(r.Category))
	}
	if s.dispatcher != nil {
		s.dispatcher.Enqueue(notify.Notification{
			Targets: []notify.Target{{Kind: notify.TargetPublisher, Address: publisher.Email}},
			Title:   "Report received",
			Body:    "Your report has been submitted and is awaiting moderation.",
			Data:    map[string]string{"report_id": r.ID.String()},
		})
	}

	s.logger.InfoContext(ctx, "report submitted",
		"report_id", r.ID.String(),
		"publisher_id", publisherID.String(),
		"category", string(r.Category),
		"has_coordinate", in.Coordinate != nil,
		"request_id", requestcontext.RequestID(ctx),
	)
	return r, nil
}

func (s *Service) resolveJurisdiction(ctx context.Context, coord geo.Coordinate) (id.StationID, bool) {
	candidates, err := s.stations.ListActive(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "jurisdiction pre-assignment skipped", "error", err)
		return id.StationID{}, false
	}
	match, ok := geo.Nearest(coord, candidates)
	if !ok {
		return id.StationID{}, false
	}
	return match.Station.ID, true
}

// EditInput carries the publisher-editable fields. Nil pointers leave the
// current value untouched.
type EditInput struct {
	Title      *string
	Body       *string
	Category   *Category
	Coordinate *geo.Coordinate
	Address    *string
	OccurredAt *time.Time
}

// Edit lets the publisher change content while the report is editable. Any
// edit returns the report to submitted for re-moderation.
func (s *Service) Edit(ctx context.Context, reportID id.ReportID, in EditInput) (*Report, error) {
	r, err := s.loadOwned(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !r.Status.Editable() {
		return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("report in status %s cannot be edited", r.Status))
	}

	if in.Title != nil {
		r.Title = *in.Title
	}
	if in.Body != nil {
		r.Body = *in.Body
	}
	if in.Category != nil {
		r.Category = *in.Category
	}
	if in.Coordinate != nil {
		c := *in.Coordinate
		r.Coordinate = &c
	}
	if in.Address != nil {
		r.Address = *in.Address
	}
	if in.OccurredAt != nil {
		r.OccurredAt = *in.OccurredAt
	}
	r.Status = StatusSubmitted
	r.UpdatedAt = requestcontext.Now(ctx)

	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.reports.Update(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update report")
	}
	return r, nil
}

// Delete removes a report. Publishers hard-delete their own unverified
// reports; a verified report is only soft-deleted unless the caller is an
// admin.
func (s *Service) Delete(ctx context.Context, reportID id.ReportID) error {
	callerRole := user.Role(requestcontext.UserRole(ctx))
	if callerRole == user.RoleAdmin {
		if err := s.reports.Delete(ctx, reportID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete report")
		}
		return nil
	}

	r, err := s.loadOwned(ctx, reportID)
	if err != nil {
		return err
	}

	if r.Status == StatusVerified {
		if err := s.reports.SoftDelete(ctx, reportID, requestcontext.Now(ctx)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete report")
		}
		return nil
	}
	if err := s.reports.Delete(ctx, reportID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete report")
	}
	return nil
}

// Get returns one report subject to visibility: verified reports are
// public, everything else is visible only to its publisher and to
// moderator-tier roles. Hidden reports read as not found.
func (s *Service) Get(ctx context.Context, reportID id.ReportID) (*Report, error) {
	r, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	if !s.visibleTo(ctx, r) {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	return r, nil
}

// List returns reports the caller may see. Anonymous and citizen callers
// get verified reports plus their own; moderator-tier roles see everything.
func (s *Service) List(ctx context.Context, f Filter) ([]*Report, error) {
	callerRole := user.Role(requestcontext.UserRole(ctx))
	callerID := requestcontext.UserID(ctx)

	if !callerRole.CanModerate() {
		if f.PublisherID != nil && !callerID.IsNil() && *f.PublisherID == callerID {
			// Own listing: all statuses.
		} else {
			f.PublicOnly = true
		}
	}

	reports, err := s.reports.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reports")
	}
	return reports, nil
}

// RecordView bumps the view counter for a visible report.
func (s *Service) RecordView(ctx context.Context, reportID id.ReportID) error {
	if _, err := s.Get(ctx, reportID); err != nil {
		return err
	}
	if err := s.reports.IncrementViews(ctx, reportID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record view")
	}
	return nil
}

// RecordShare bumps the share counter for a visible report.
func (s *Service) RecordShare(ctx context.Context, reportID id.ReportID) error {
	if _, err := s.Get(ctx, reportID); err != nil {
		return err
	}
	if err := s.reports.IncrementShares(ctx, reportID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record share")
	}
	return nil
}

// FileReview records a citizen complaint against a verified report.
func (s *Service) FileReview(ctx context.Context, reportID id.ReportID, reason string) (*Review, error) {
	reporterID := requestcontext.UserID(ctx)
	if reporterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	r, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusVerified {
		return nil, dErrors.New(dErrors.CodeConflict, "only verified reports can be reviewed")
	}

	rv := &Review{
		ID:         id.NewReviewID(),
		ReportID:   reportID,
		ReporterID: reporterID,
		Reason:     reason,
		Status:     ReviewOpen,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := rv.Validate(); err != nil {
		return nil, err
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create review")
	}

	s.logger.InfoContext(ctx, "report review filed",
		"review_id", rv.ID.String(),
		"report_id", reportID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return rv, nil
}

// ListReviews returns the complaints filed against one report. Moderator
// only; the transport layer guards the route.
func (s *Service) ListReviews(ctx context.Context, reportID id.ReportID) ([]*Review, error) {
	reviews, err := s.reviews.ListByReport(ctx, reportID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reviews")
	}
	return reviews, nil
}

func (s *Service) visibleTo(ctx context.Context, r *Report) bool {
	if r.Status.Public() {
		return true
	}
	if user.Role(requestcontext.UserRole(ctx)).CanModerate() {
		return true
	}
	callerID := requestcontext.UserID(ctx)
	return !callerID.IsNil() && callerID == r.PublisherID
}

// loadOwned loads a report and requires the caller to be its publisher.
func (s *Service) loadOwned(ctx context.Context, reportID id.ReportID) (*Report, error) {
	callerID := requestcontext.UserID(ctx)
	if callerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	r, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	if r.PublisherID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "not the publisher of this report")
	}
	return r, nil
}
