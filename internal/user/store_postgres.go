package user

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/sentinel"
	"civicwatch/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// querier lets store methods run against the pool or a transaction carried
// in the context.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, email, role, trust_score, created_at)
		VALUES ($1, lower($2), $3, $4, $5)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(u.ID),
		u.Email,
		string(u.Role),
		u.TrustScore,
		u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*User, error) {
	query := `
		SELECT id, email, role, trust_score, created_at
		FROM users
		WHERE id = $1
	`
	return s.scanUser(s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, role, trust_score, created_at
		FROM users
		WHERE email = lower($1)
	`
	return s.scanUser(s.q(ctx).QueryRowContext(ctx, query, email))
}

func (s *PostgresStore) UpdateRole(ctx context.Context, userID id.UserID, role Role) error {
	query := `UPDATE users SET role = $2 WHERE id = $1`
	res, err := s.q(ctx).ExecContext(ctx, query, uuid.UUID(userID), string(role))
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AdjustTrustScore(ctx context.Context, userID id.UserID, delta int) (int, error) {
	query := `
		UPDATE users
		SET trust_score = trust_score + $2
		WHERE id = $1
		RETURNING trust_score
	`
	var score int
	err := s.q(ctx).QueryRowContext(ctx, query, uuid.UUID(userID), delta).Scan(&score)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return 0, fmt.Errorf("adjust trust score: %w", err)
	}
	return score, nil
}

func (s *PostgresStore) scanUser(row *sql.Row) (*User, error) {
	var (
		u     User
		rawID uuid.UUID
		role  string
	)
	err := row.Scan(&rawID, &u.Email, &role, &u.TrustScore, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.ID = id.UserID(rawID)
	u.Role = Role(role)
	return &u, nil
}
