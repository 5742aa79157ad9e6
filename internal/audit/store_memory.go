package audit

import (
	"context"
	"sync"

	id "civicwatch/pkg/domain"
)

// InMemoryStore keeps trail entries in memory for tests/dev. Append-only;
// nothing ever removes an entry.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemoryStore constructs an empty in-memory trail store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *InMemoryStore) ListByTarget(_ context.Context, targetType TargetType, targetID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.TargetType == targetType && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByModerator(_ context.Context, moderatorID id.UserID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.ModeratorID == moderatorID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every entry in append order. Test helper.
func (s *InMemoryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
