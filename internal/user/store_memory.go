package user

import (
	"context"
	"fmt"
	"strings"
	"sync"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/sentinel"
)

// InMemoryStore stores users in memory for tests/dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]*User
	byEmail map[string]id.UserID
}

// NewInMemoryStore constructs an empty in-memory user store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:   make(map[id.UserID]*User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := emailKey(u.Email)
	if _, ok := s.byEmail[key]; ok {
		return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	}
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[key] = u.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	cp := *s.users[userID]
	return &cp, nil
}

func (s *InMemoryStore) UpdateRole(_ context.Context, userID id.UserID, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	u.Role = role
	return nil
}

func (s *InMemoryStore) AdjustTrustScore(_ context.Context, userID id.UserID, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	u.TrustScore += delta
	return u.TrustScore, nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
