package station

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
)

// Service owns the admin-facing station lifecycle. Deactivation is a soft
// flag: assignments on historical reports always survive it.
type Service struct {
	store  Store
	trail  *audit.Publisher
	logger *slog.Logger
}

// Option configures the station service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService wires the station service.
func NewService(store Store, trail *audit.Publisher, opts ...Option) (*Service, error) {
	if store == nil || trail == nil {
		return nil, fmt.Errorf("store and trail are required")
	}
	s := &Service{store: store, trail: trail, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateInput carries the admin-provided fields of a new station.
type CreateInput struct {
	Name          string
	Latitude      float64
	Longitude     float64
	ContactEmails []string
	ContactPhone  string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Station, error) {
	st := &Station{
		ID:            id.NewStationID(),
		Name:          in.Name,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		Active:        true,
		ContactEmails: in.ContactEmails,
		ContactPhone:  in.ContactPhone,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, st); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create station")
	}
	s.logger.InfoContext(ctx, "station created", "station_id", st.ID.String(), "name", st.Name)
	return st, nil
}

func (s *Service) Get(ctx context.Context, stationID id.StationID) (*Station, error) {
	st, err := s.store.FindByID(ctx, stationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "station not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load station")
	}
	return st, nil
}

// List returns active stations, or every station when includeInactive is
// set (admin views).
func (s *Service) List(ctx context.Context, includeInactive bool) ([]*Station, error) {
	var (
		stations []*Station
		err      error
	)
	if includeInactive {
		stations, err = s.store.ListAll(ctx)
	} else {
		stations, err = s.store.ListActive(ctx)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list stations")
	}
	return stations, nil
}

// UpdateInput carries the mutable station fields. Nil pointers leave the
// current value untouched.
type UpdateInput struct {
	Name          *string
	Latitude      *float64
	Longitude     *float64
	ContactEmails *[]string
	ContactPhone  *string
}

func (s *Service) Update(ctx context.Context, stationID id.StationID, in UpdateInput) (*Station, error) {
	st, err := s.Get(ctx, stationID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		st.Name = *in.Name
	}
	if in.Latitude != nil {
		st.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		st.Longitude = *in.Longitude
	}
	if in.ContactEmails != nil {
		st.ContactEmails = *in.ContactEmails
	}
	if in.ContactPhone != nil {
		st.ContactPhone = *in.ContactPhone
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, st); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "station not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update station")
	}
	return st, nil
}

// SetActive flips the soft activity flag and records who did it. Inactive
// stations drop out of jurisdiction resolution but keep their historical
// assignments.
func (s *Service) SetActive(ctx context.Context, stationID id.StationID, active bool) error {
	adminID := requestcontext.UserID(ctx)
	if adminID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	now := requestcontext.Now(ctx)
	if err := s.store.SetActive(ctx, stationID, active, now); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "station not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update station")
	}

	action := audit.ActionStationDeactivated
	if active {
		action = audit.ActionStationReactivated
	}
	if err := s.trail.Emit(ctx, audit.Entry{
		ModeratorID: adminID,
		Action:      action,
		TargetType:  audit.TargetStation,
		TargetID:    stationID.String(),
		Timestamp:   now,
	}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "station activity changed",
		"station_id", stationID.String(),
		"active", active,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
