// Package moderation orchestrates moderator decisions: the status
// transition and every side effect it owes (jurisdiction re-resolution,
// trust adjustment, audit trail, notifications) as one coherent unit.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/platform/sentinel"
	"civicwatch/pkg/requestcontext"

	"civicwatch/internal/audit"
	"civicwatch/internal/geo"
	"civicwatch/internal/notify"
	"civicwatch/internal/report"
	"civicwatch/internal/station"
	"civicwatch/internal/user"
)

// Trust deltas applied as decision side effects. There is deliberately no
// floor on the resulting score.
const (
	trustDeltaVerify = 2
	trustDeltaReject = -1
)

// Enqueuer is the slice of the notification dispatcher the orchestrator
// needs for post-commit fan-out.
type Enqueuer interface {
	Enqueue(n notify.Notification) bool
}

// Service executes moderator decisions.
type Service struct {
	reports    report.Store
	reviews    report.ReviewStore
	users      user.Store
	stations   station.Store
	trail      *audit.Publisher
	txRunner   TxRunner
	dispatcher Enqueuer
	logger     *slog.Logger
	metrics    *Metrics
}

// Option configures the orchestrator.
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

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wires the orchestrator. All store dependencies, the audit
// publisher, and the transaction runner are required.
func NewService(reports report.Store, reviews report.ReviewStore, users user.Store, stations station.Store, trail *audit.Publisher, txRunner TxRunner, opts ...Option) (*Service, error) {
	if reports == nil || reviews == nil || users == nil || stations == nil || trail == nil || txRunner == nil {
		return nil, fmt.Errorf("reports, reviews, users, stations, trail, and txRunner are required")
	}
	s := &Service{
		reports:  reports,
		reviews:  reviews,
		users:    users,
		stations: stations,
		trail:    trail,
		txRunner: txRunner,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Decide applies one moderator decision to a report. The new status must be
// verified, rejected, or taken_down; anything else is invalid input. An
// unknown report is not found; an illegal transition, or losing the race to
// another decision, is a conflict. Side effects happen if and only if the
// transition commits.
func (s *Service) Decide(ctx context.Context, reportID id.ReportID, newStatus report.Status, note string) (*report.Report, error) {
	moderatorID := requestcontext.UserID(ctx)
	if moderatorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	switch newStatus {
	case report.StatusVerified, report.StatusRejected, report.StatusTakenDown:
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%q is not a decidable status", newStatus))
	}

	r, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}

	if !report.CanTransition(r.Status, newStatus) {
		return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("cannot move report from %s to %s", r.Status, newStatus))
	}

	// Verification re-resolves jurisdiction against the current active
	// stations; the fresh assignment wins over any pre-assignment.
	var stationID *id.StationID
	if newStatus == report.StatusVerified && r.Coordinate != nil {
		stationID = s.resolveJurisdiction(ctx, *r.Coordinate)
	}

	stamp := report.ModerationStamp{
		Note:        note,
		ModeratorID: moderatorID,
		At:          requestcontext.Now(ctx),
	}

	if err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		return s.applyDecision(ctx, r, newStatus, stamp, stationID)
	}); err != nil {
		return nil, err
	}

	r.Status = newStatus
	r.Moderation = &stamp
	if stationID != nil {
		r.StationID = stationID
	}
	r.UpdatedAt = stamp.At

	if s.metrics != nil {
		s.metrics.IncrementDecisions(string(actionFor(newStatus)))
	}
	s.notifyDecision(ctx, r, newStatus)

	s.logger.InfoContext(ctx, "moderation decision applied",
		"report_id", r.ID.String(),
		"moderator_id", moderatorID.String(),
		"new_status", string(newStatus),
		"request_id", requestcontext.RequestID(ctx),
	)
	return r, nil
}

// applyDecision is the transactional core: status CAS, trust delta, and
// audit append succeed or fail together.
func (s *Service) applyDecision(ctx context.Context, r *report.Report, newStatus report.Status, stamp report.ModerationStamp, stationID *id.StationID) error {
	err := s.reports.UpdateStatus(ctx, r.ID, r.Status, newStatus, stamp, stationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeConflict, "report was decided concurrently")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update report status")
	}

	if delta := trustDelta(newStatus); delta != 0 {
		if _, err := s.users.AdjustTrustScore(ctx, r.PublisherID, delta); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to adjust trust score")
		}
	}

	return s.trail.Emit(ctx, audit.Entry{
		ModeratorID: stamp.ModeratorID,
		Action:      actionFor(newStatus),
		TargetType:  audit.TargetReport,
		TargetID:    r.ID.String(),
		Reason:      stamp.Note,
		Timestamp:   stamp.At,
	})
}

// ResolveReview closes a citizen complaint against the given report. When
// takeDown is set, resolving cascades into the full takedown bundle for the
// reviewed report.
func (s *Service) ResolveReview(ctx context.Context, reportID id.ReportID, reviewID id.ReviewID, takeDown bool, note string) (*report.Review, error) {
	moderatorID := requestcontext.UserID(ctx)
	if moderatorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	rv, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "review not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review")
	}
	if rv.ReportID != reportID {
		return nil, dErrors.New(dErrors.CodeNotFound, "review not found for this report")
	}
	if rv.Status == report.ReviewResolved {
		return nil, dErrors.New(dErrors.CodeConflict, "review already resolved")
	}

	r, err := s.reports.FindByID(ctx, rv.ReportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "report not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report")
	}
	if takeDown && !report.CanTransition(r.Status, report.StatusTakenDown) {
		return nil, dErrors.New(dErrors.CodeConflict, fmt.Sprintf("cannot take down report in status %s", r.Status))
	}

	now := requestcontext.Now(ctx)
	resolution := "dismissed"
	if takeDown {
		resolution = "upheld"
	}
	stamp := report.ModerationStamp{Note: note, ModeratorID: moderatorID, At: now}

	if err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.MarkResolved(ctx, reviewID, resolution, now); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "review already resolved")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve review")
		}
		if takeDown {
			if err := s.applyDecision(ctx, r, report.StatusTakenDown, stamp, nil); err != nil {
				return err
			}
		}
		return s.trail.Emit(ctx, audit.Entry{
			ModeratorID: moderatorID,
			Action:      audit.ActionResolveReportReview,
			TargetType:  audit.TargetReview,
			TargetID:    reviewID.String(),
			Reason:      note,
			Timestamp:   now,
		})
	}); err != nil {
		return nil, err
	}

	rv.Status = report.ReviewResolved
	rv.Resolution = resolution
	rv.ResolvedAt = &now

	if takeDown {
		r.Status = report.StatusTakenDown
		r.Moderation = &stamp
		if s.metrics != nil {
			s.metrics.IncrementDecisions(string(audit.ActionTakeDownIncident))
		}
		s.notifyDecision(ctx, r, report.StatusTakenDown)
	}

	s.logger.InfoContext(ctx, "report review resolved",
		"review_id", reviewID.String(),
		"report_id", rv.ReportID.String(),
		"resolution", resolution,
		"request_id", requestcontext.RequestID(ctx),
	)
	return rv, nil
}

func (s *Service) resolveJurisdiction(ctx context.Context, coord geo.Coordinate) *id.StationID {
	candidates, err := s.stations.ListActive(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "jurisdiction re-resolution skipped", "error", err)
		return nil
	}
	match, ok := geo.Nearest(coord, candidates)
	if !ok {
		return nil
	}
	stationID := match.Station.ID
	return &stationID
}

// notifyDecision runs post-commit: the publisher always hears about a
// decision; station staff are fanned out to only on verification. Failures
// are the dispatcher's problem, never the decision's.
func (s *Service) notifyDecision(ctx context.Context, r *report.Report, newStatus report.Status) {
	if s.dispatcher == nil {
		return
	}

	if publisher, err := s.users.FindByID(ctx, r.PublisherID); err == nil {
		s.dispatcher.Enqueue(notify.Notification{
			Targets: []notify.Target{{Kind: notify.TargetPublisher, Address: publisher.Email}},
			Title:   publisherTitle(newStatus),
			Body:    publisherBody(newStatus),
			Data:    map[string]string{"report_id": r.ID.String(), "status": string(newStatus)},
		})
	} else {
		s.logger.WarnContext(ctx, "publisher notification skipped", "report_id", r.ID.String(), "error", err)
	}

	if newStatus != report.StatusVerified || r.StationID == nil {
		return
	}
	st, err := s.stations.FindByID(ctx, *r.StationID)
	if err != nil {
		s.logger.WarnContext(ctx, "station notification skipped", "station_id", r.StationID.String(), "error", err)
		return
	}
	targets := make([]notify.Target, 0, len(st.ContactEmails))
	for _, email := range st.ContactEmails {
		targets = append(targets, notify.Target{Kind: notify.TargetStationStaff, Address: email})
	}
	if len(targets) == 0 {
		return
	}
	s.dispatcher.Enqueue(notify.Notification{
		Targets: targets,
		Title:   "Verified incident in your jurisdiction",
		Body:    r.Title,
		Data:    map[string]string{"report_id": r.ID.String(), "station_id": st.ID.String()},
	})
}

func trustDelta(newStatus report.Status) int {
	switch newStatus {
	case report.StatusVerified:
		return trustDeltaVerify
	case report.StatusRejected:
		return trustDeltaReject
	}
	return 0
}

func actionFor(newStatus report.Status) audit.Action {
	switch newStatus {
	case report.StatusVerified:
		return audit.ActionVerifyIncident
	case report.StatusRejected:
		return audit.ActionRejectIncident
	default:
		return audit.ActionTakeDownIncident
	}
}

func publisherTitle(newStatus report.Status) string {
	switch newStatus {
	case report.StatusVerified:
		return "Your report was verified"
	case report.StatusRejected:
		return "Your report was rejected"
	default:
		return "Your report was taken down"
	}
}

func publisherBody(newStatus report.Status) string {
	switch newStatus {
	case report.StatusVerified:
		return "A moderator verified your report; it is now publicly visible."
	case report.StatusRejected:
		return "A moderator rejected your report. You may edit and resubmit it."
	default:
		return "A moderator removed your report from public view."
	}
}
