package otp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"civicwatch/pkg/platform/sentinel"
)

// InMemoryStore stores pending codes in memory. The mutex spans the whole
// Consume so concurrent verifies for one address serialize.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewInMemoryStore constructs an empty in-memory code store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*Record)}
}

// Save stores the record, replacing any pending code for the address.
func (s *InMemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.Address] = &cp
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, address string, maxAttempts int, now time.Time, match func(hash []byte) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[address]
	if !ok {
		return fmt.Errorf("no pending code: %w", sentinel.ErrNotFound)
	}
	if now.After(rec.ExpiresAt) {
		delete(s.records, address)
		return fmt.Errorf("code expired: %w", sentinel.ErrExpired)
	}
	if rec.Attempts >= maxAttempts {
		delete(s.records, address)
		return fmt.Errorf("attempt limit reached: %w", sentinel.ErrExhausted)
	}
	if !match(rec.CodeHash) {
		rec.Attempts++
		return fmt.Errorf("code mismatch: %w", sentinel.ErrMismatch)
	}

	// One-time use: success removes the record.
	delete(s.records, address)
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for address, rec := range s.records {
		if now.After(rec.ExpiresAt) {
			delete(s.records, address)
			deleted++
		}
	}
	return deleted, nil
}
