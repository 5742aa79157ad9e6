package otp

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"civicwatch/pkg/platform/sentinel"
)

type CodeStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func (s *CodeStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestCodeStoreSuite(t *testing.T) {
	suite.Run(t, new(CodeStoreSuite))
}

func (s *CodeStoreSuite) save(address string, hash []byte) {
	err := s.store.Save(context.Background(), &Record{
		Address:   address,
		CodeHash:  hash,
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(5 * time.Minute),
	})
	s.Require().NoError(err)
}

func (s *CodeStoreSuite) consume(address string, now time.Time, hash []byte) error {
	return s.store.Consume(context.Background(), address, 3, now, func(stored []byte) bool {
		return bytes.Equal(stored, hash)
	})
}

func (s *CodeStoreSuite) TestConsume() {
	hash := []byte("hashed-code")

	s.Run("success removes the record", func() {
		s.SetupTest()
		s.save("a@example.com", hash)

		s.Require().NoError(s.consume("a@example.com", s.now.Add(time.Minute), hash))

		// One-time use: the same code never verifies twice.
		err := s.consume("a@example.com", s.now.Add(time.Minute), hash)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unknown address is not found", func() {
		s.SetupTest()
		err := s.consume("nobody@example.com", s.now, hash)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("expired code is rejected and removed", func() {
		s.SetupTest()
		s.save("a@example.com", hash)

		err := s.consume("a@example.com", s.now.Add(6*time.Minute), hash)
		s.Require().ErrorIs(err, sentinel.ErrExpired)

		err = s.consume("a@example.com", s.now.Add(6*time.Minute), hash)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("mismatch charges one attempt", func() {
		s.SetupTest()
		s.save("a@example.com", hash)

		err := s.consume("a@example.com", s.now, []byte("wrong"))
		s.Require().ErrorIs(err, sentinel.ErrMismatch)

		// Still verifiable while attempts remain.
		s.Require().NoError(s.consume("a@example.com", s.now, hash))
	})

	s.Run("attempt ceiling exhausts the code even for the right guess", func() {
		s.SetupTest()
		s.save("a@example.com", hash)

		for i := 0; i < 3; i++ {
			err := s.consume("a@example.com", s.now, []byte("wrong"))
			s.Require().ErrorIs(err, sentinel.ErrMismatch)
		}

		err := s.consume("a@example.com", s.now, hash)
		s.Require().ErrorIs(err, sentinel.ErrExhausted)
	})

	s.Run("re-issue replaces the pending code and resets attempts", func() {
		s.SetupTest()
		s.save("a@example.com", hash)
		s.Require().ErrorIs(s.consume("a@example.com", s.now, []byte("wrong")), sentinel.ErrMismatch)

		fresh := []byte("fresh-hash")
		s.save("a@example.com", fresh)

		s.Require().ErrorIs(s.consume("a@example.com", s.now, hash), sentinel.ErrMismatch)
		s.Require().NoError(s.consume("a@example.com", s.now, fresh))
	})
}

func (s *CodeStoreSuite) TestDeleteExpired() {
	hash := []byte("hashed-code")
	s.save("old@example.com", hash)
	err := s.store.Save(context.Background(), &Record{
		Address:   "fresh@example.com",
		CodeHash:  hash,
		CreatedAt: s.now.Add(10 * time.Minute),
		ExpiresAt: s.now.Add(15 * time.Minute),
	})
	s.Require().NoError(err)

	deleted, err := s.store.DeleteExpired(context.Background(), s.now.Add(6*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, deleted)

	s.Require().ErrorIs(s.consume("old@example.com", s.now.Add(6*time.Minute), hash), sentinel.ErrNotFound)
	s.Require().NoError(s.consume("fresh@example.com", s.now.Add(6*time.Minute), hash))
}
