package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/sentinel"
	"civicwatch/pkg/platform/tx"
)

// PostgresReviewStore persists report reviews in PostgreSQL.
type PostgresReviewStore struct {
	db *sql.DB
}

// NewPostgresReviewStore constructs a PostgreSQL-backed review store.
func NewPostgresReviewStore(db *sql.DB) *PostgresReviewStore {
	return &PostgresReviewStore{db: db}
}

func (s *PostgresReviewStore) exec(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresReviewStore) Create(ctx context.Context, rv *Review) error {
	query := `
		INSERT INTO report_reviews (id, report_id, reporter_id, reason, status, resolution, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(rv.ID),
		uuid.UUID(rv.ReportID),
		uuid.UUID(rv.ReporterID),
		rv.Reason,
		string(rv.Status),
		rv.Resolution,
		rv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *PostgresReviewStore) FindByID(ctx context.Context, reviewID id.ReviewID) (*Review, error) {
	query := `
		SELECT id, report_id, reporter_id, reason, status, resolution, created_at, resolved_at
		FROM report_reviews
		WHERE id = $1
	`
	rv, err := scanReview(s.db.QueryRowContext(ctx, query, uuid.UUID(reviewID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("review not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("query review: %w", err)
	}
	return rv, nil
}

func (s *PostgresReviewStore) ListByReport(ctx context.Context, reportID id.ReportID) ([]*Review, error) {
	query := `
		SELECT id, report_id, reporter_id, reason, status, resolution, created_at, resolved_at
		FROM report_reviews
		WHERE report_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(reportID))
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var out []*Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}

func (s *PostgresReviewStore) MarkResolved(ctx context.Context, reviewID id.ReviewID, resolution string, at time.Time) error {
	query := `
		UPDATE report_reviews
		SET status = $2, resolution = $3, resolved_at = $4
		WHERE id = $1 AND status = $5
	`
	res, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(reviewID),
		string(ReviewResolved),
		resolution,
		at,
		string(ReviewOpen),
	)
	if err != nil {
		return fmt.Errorf("resolve review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.FindByID(ctx, reviewID); err != nil {
			return err
		}
		return fmt.Errorf("review already resolved: %w", sentinel.ErrConflict)
	}
	return nil
}

func scanReview(row rowScanner) (*Review, error) {
	var (
		rv         Review
		rawID      uuid.UUID
		reportID   uuid.UUID
		reporterID uuid.UUID
		status     string
		resolvedAt sql.NullTime
	)
	err := row.Scan(&rawID, &reportID, &reporterID, &rv.Reason, &status, &rv.Resolution, &rv.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	rv.ID = id.ReviewID(rawID)
	rv.ReportID = id.ReportID(reportID)
	rv.ReporterID = id.UserID(reporterID)
	rv.Status = ReviewStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		rv.ResolvedAt = &t
	}
	return &rv, nil
}
