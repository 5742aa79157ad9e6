package report

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/sentinel"
)

// InMemoryStore stores reports in memory for tests/dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[id.ReportID]*Report
}

// NewInMemoryStore constructs an empty in-memory report store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{reports: make(map[id.ReportID]*Report)}
}

func cloneReport(r *Report) *Report {
	cp := *r
	if r.Coordinate != nil {
		c := *r.Coordinate
		cp.Coordinate = &c
	}
	if r.StationID != nil {
		s := *r.StationID
		cp.StationID = &s
	}
	if r.Moderation != nil {
		m := *r.Moderation
		cp.Moderation = &m
	}
	if r.DeletedAt != nil {
		d := *r.DeletedAt
		cp.DeletedAt = &d
	}
	return &cp
}

func (s *InMemoryStore) Create(_ context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ID] = cloneReport(r)
	return nil
}

// find returns the live record, treating soft-deleted reports as missing.
// Callers must hold the lock.
func (s *InMemoryStore) find(reportID id.ReportID) (*Report, error) {
	r, ok := s.reports[reportID]
	if !ok || r.DeletedAt != nil {
		return nil, fmt.Errorf("report not found: %w", sentinel.ErrNotFound)
	}
	return r, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, reportID id.ReportID) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.find(reportID)
	if err != nil {
		return nil, err
	}
	return cloneReport(r), nil
}

func (s *InMemoryStore) List(_ context.Context, f Filter) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Report
	for _, r := range s.reports {
		if r.DeletedAt != nil {
			continue
		}
		if f.PublisherID != nil && r.PublisherID != *f.PublisherID {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.Category != nil && r.Category != *f.Category {
			continue
		}
		if f.PublicOnly && !r.Status.Public() {
			continue
		}
		out = append(out, cloneReport(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.find(r.ID); err != nil {
		return err
	}
	s.reports[r.ID] = cloneReport(r)
	return nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, reportID id.ReportID, from, to Status, stamp ModerationStamp, stationID *id.StationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.find(reportID)
	if err != nil {
		return err
	}
	if r.Status != from {
		return fmt.Errorf("report status changed concurrently: %w", sentinel.ErrConflict)
	}
	r.Status = to
	m := stamp
	r.Moderation = &m
	if stationID != nil {
		st := *stationID
		r.StationID = &st
	}
	r.UpdatedAt = stamp.At
	return nil
}

func (s *InMemoryStore) SoftDelete(_ context.Context, reportID id.ReportID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.find(reportID)
	if err != nil {
		return err
	}
	r.DeletedAt = &at
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, reportID id.ReportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[reportID]; !ok {
		return fmt.Errorf("report not found: %w", sentinel.ErrNotFound)
	}
	delete(s.reports, reportID)
	return nil
}

func (s *InMemoryStore) IncrementViews(_ context.Context, reportID id.ReportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.find(reportID)
	if err != nil {
		return err
	}
	r.Views++
	return nil
}

func (s *InMemoryStore) IncrementShares(_ context.Context, reportID id.ReportID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.find(reportID)
	if err != nil {
		return err
	}
	r.Shares++
	return nil
}

// InMemoryReviewStore stores report reviews in memory for tests/dev.
type InMemoryReviewStore struct {
	mu      sync.RWMutex
	reviews map[id.ReviewID]*Review
}

// NewInMemoryReviewStore constructs an empty in-memory review store.
func NewInMemoryReviewStore() *InMemoryReviewStore {
	return &InMemoryReviewStore{reviews: make(map[id.ReviewID]*Review)}
}

func cloneReview(rv *Review) *Review {
	cp := *rv
	if rv.ResolvedAt != nil {
		t := *rv.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}

func (s *InMemoryReviewStore) Create(_ context.Context, rv *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[rv.ID] = cloneReview(rv)
	return nil
}

func (s *InMemoryReviewStore) FindByID(_ context.Context, reviewID id.ReviewID) (*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rv, ok := s.reviews[reviewID]
	if !ok {
		return nil, fmt.Errorf("review not found: %w", sentinel.ErrNotFound)
	}
	return cloneReview(rv), nil
}

func (s *InMemoryReviewStore) ListByReport(_ context.Context, reportID id.ReportID) ([]*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Review
	for _, rv := range s.reviews {
		if rv.ReportID == reportID {
			out = append(out, cloneReview(rv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryReviewStore) MarkResolved(_ context.Context, reviewID id.ReviewID, resolution string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rv, ok := s.reviews[reviewID]
	if !ok {
		return fmt.Errorf("review not found: %w", sentinel.ErrNotFound)
	}
	if rv.Status == ReviewResolved {
		return fmt.Errorf("review already resolved: %w", sentinel.ErrConflict)
	}
	rv.Status = ReviewResolved
	rv.Resolution = resolution
	rv.ResolvedAt = &at
	return nil
}
