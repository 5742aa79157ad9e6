package station

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/sentinel"
)

// InMemoryStore stores stations in memory for tests/dev.
type InMemoryStore struct {
	mu       sync.RWMutex
	stations map[id.StationID]*Station
}

// NewInMemoryStore constructs an empty in-memory station store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{stations: make(map[id.StationID]*Station)}
}

func (s *InMemoryStore) Create(_ context.Context, st *Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.stations[st.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, stationID id.StationID) (*Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[stationID]
	if !ok {
		return nil, fmt.Errorf("station not found: %w", sentinel.ErrNotFound)
	}
	cp := *st
	return &cp, nil
}

func (s *InMemoryStore) ListActive(ctx context.Context) ([]*Station, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, st := range all {
		if st.Active {
			active = append(active, st)
		}
	}
	return active, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Station, 0, len(s.stations))
	for _, st := range s.stations {
		cp := *st
		out = append(out, &cp)
	}
	// Stable order: creation time, then ID. The resolver's tie-break
	// depends on this ordering.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, st *Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.stations[st.ID]; !ok {
		return fmt.Errorf("station not found: %w", sentinel.ErrNotFound)
	}
	cp := *st
	s.stations[st.ID] = &cp
	return nil
}

func (s *InMemoryStore) SetActive(_ context.Context, stationID id.StationID, active bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stations[stationID]
	if !ok {
		return fmt.Errorf("station not found: %w", sentinel.ErrNotFound)
	}
	st.Active = active
	if active {
		st.DeactivatedAt = nil
	} else {
		st.DeactivatedAt = &at
	}
	return nil
}
