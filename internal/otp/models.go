// Package otp implements the one-time-code authenticator: short-lived
// six-digit codes delivered out of band, hashed at rest, consumed on first
// successful verification.
package otp

import (
	"context"
	"time"
)

// Record is the pending code for one address. Only the bcrypt hash of the
// code is stored; the plaintext exists solely in the delivery notification.
type Record struct {
	Address   string
	CodeHash  []byte
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store persists pending codes, at most one per address.
//
// Consume is atomic per address and enforces the full verification contract
// with sentinel errors: ErrNotFound when no code is pending, ErrExpired when
// the code aged out (record removed), ErrExhausted when the attempt ceiling
// was already reached (record removed), ErrMismatch when match fails (one
// attempt charged). A successful match removes the record so a code can
// never be used twice.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Consume(ctx context.Context, address string, maxAttempts int, now time.Time, match func(hash []byte) bool) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
