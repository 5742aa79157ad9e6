package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/tx"
)

// PostgresStore persists trail entries in PostgreSQL. Inserts join the
// transaction carried in the context when there is one, so an entry commits
// with the decision that produced it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed trail store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) exec(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO audit_entries (id, moderator_id, action, target_type, target_id, reason, client_ip, client_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID),
		uuid.UUID(e.ModeratorID),
		string(e.Action),
		string(e.TargetType),
		e.TargetID,
		e.Reason,
		e.ClientIP,
		e.ClientInfo,
		e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByTarget(ctx context.Context, targetType TargetType, targetID string) ([]Entry, error) {
	query := `
		SELECT id, moderator_id, action, target_type, target_id, reason, client_ip, client_info, created_at
		FROM audit_entries
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at, id
	`
	return s.list(ctx, query, string(targetType), targetID)
}

func (s *PostgresStore) ListByModerator(ctx context.Context, moderatorID id.UserID) ([]Entry, error) {
	query := `
		SELECT id, moderator_id, action, target_type, target_id, reason, client_ip, client_info, created_at
		FROM audit_entries
		WHERE moderator_id = $1
		ORDER BY created_at, id
	`
	return s.list(ctx, query, uuid.UUID(moderatorID))
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e           Entry
			rawID       uuid.UUID
			moderatorID uuid.UUID
			action      string
			targetType  string
		)
		err := rows.Scan(&rawID, &moderatorID, &action, &targetType, &e.TargetID, &e.Reason, &e.ClientIP, &e.ClientInfo, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.ID = id.AuditEntryID(rawID)
		e.ModeratorID = id.UserID(moderatorID)
		e.Action = Action(action)
		e.TargetType = TargetType(targetType)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return out, nil
}
