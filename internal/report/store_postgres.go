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

	"civicwatch/internal/geo"
)

const reportColumns = `
	id, title, body, category, latitude, longitude, address, station_id,
	status, moderation_note, moderator_id, moderated_at,
	publisher_id, publisher_badge, views, shares,
	occurred_at, created_at, updated_at
`

// PostgresStore persists reports in PostgreSQL. Status changes join the
// transaction carried in the context so a decision and its side effects
// commit together.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed report store.
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

func (s *PostgresStore) Create(ctx context.Context, r *Report) error {
	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	var lat, lon sql.NullFloat64
	if r.Coordinate != nil {
		lat = sql.NullFloat64{Float64: r.Coordinate.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: r.Coordinate.Longitude, Valid: true}
	}
	_, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID),
		r.Title,
		r.Body,
		string(r.Category),
		lat,
		lon,
		r.Address,
		nullableID(r.StationID),
		string(r.Status),
		moderationNote(r.Moderation),
		moderatorID(r.Moderation),
		moderatedAt(r.Moderation),
		uuid.UUID(r.PublisherID),
		r.PublisherBadge,
		r.Views,
		r.Shares,
		r.OccurredAt,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reportID id.ReportID) (*Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE id = $1 AND deleted_at IS NULL
	`
	r, err := scanReport(s.db.QueryRowContext(ctx, query, uuid.UUID(reportID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("report not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("query report: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE deleted_at IS NULL
	`
	var args []any
	n := 0
	arg := func(v any) string {
		n++
		args = append(args, v)
		return fmt.Sprintf("$%d", n)
	}

	if f.PublisherID != nil {
		query += " AND publisher_id = " + arg(uuid.UUID(*f.PublisherID))
	}
	if f.Status != nil {
		query += " AND status = " + arg(string(*f.Status))
	}
	if f.Category != nil {
		query += " AND category = " + arg(string(*f.Category))
	}
	if f.PublicOnly {
		query += " AND status = " + arg(string(StatusVerified))
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += " OFFSET " + arg(f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, r *Report) error {
	query := `
		UPDATE reports
		SET title = $2, body = $3, category = $4, latitude = $5, longitude = $6,
		    address = $7, status = $8, occurred_at = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
	`
	var lat, lon sql.NullFloat64
	if r.Coordinate != nil {
		lat = sql.NullFloat64{Float64: r.Coordinate.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: r.Coordinate.Longitude, Valid: true}
	}
	res, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID),
		r.Title,
		r.Body,
		string(r.Category),
		lat,
		lon,
		r.Address,
		string(r.Status),
		r.OccurredAt,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return requireReportRow(res)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, reportID id.ReportID, from, to Status, stamp ModerationStamp, stationID *id.StationID) error {
	query := `
		UPDATE reports
		SET status = $3,
		    moderation_note = $4, moderator_id = $5, moderated_at = $6,
		    station_id = COALESCE($7, station_id),
		    updated_at = $6
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
	`
	res, err := s.exec(ctx).ExecContext(ctx, query,
		uuid.UUID(reportID),
		string(from),
		string(to),
		stamp.Note,
		uuid.UUID(stamp.ModeratorID),
		stamp.At,
		nullableID(stationID),
	)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Either the report is gone or another decision won the race.
		if _, err := s.FindByID(ctx, reportID); err != nil {
			return err
		}
		return fmt.Errorf("report status changed concurrently: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, reportID id.ReportID, at time.Time) error {
	query := `UPDATE reports SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := s.exec(ctx).ExecContext(ctx, query, uuid.UUID(reportID), at)
	if err != nil {
		return fmt.Errorf("soft delete report: %w", err)
	}
	return requireReportRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, reportID id.ReportID) error {
	res, err := s.exec(ctx).ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, uuid.UUID(reportID))
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return requireReportRow(res)
}

func (s *PostgresStore) IncrementViews(ctx context.Context, reportID id.ReportID) error {
	return s.increment(ctx, reportID, "views")
}

func (s *PostgresStore) IncrementShares(ctx context.Context, reportID id.ReportID) error {
	return s.increment(ctx, reportID, "shares")
}

func (s *PostgresStore) increment(ctx context.Context, reportID id.ReportID, column string) error {
	query := fmt.Sprintf(`UPDATE reports SET %s = %s + 1 WHERE id = $1 AND deleted_at IS NULL`, column, column)
	res, err := s.exec(ctx).ExecContext(ctx, query, uuid.UUID(reportID))
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	return requireReportRow(res)
}

func requireReportRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("report not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func nullableID[T ~[16]byte](v *T) any {
	if v == nil {
		return nil
	}
	return uuid.UUID(*v)
}

func moderationNote(m *ModerationStamp) any {
	if m == nil {
		return nil
	}
	return m.Note
}

func moderatorID(m *ModerationStamp) any {
	if m == nil {
		return nil
	}
	return uuid.UUID(m.ModeratorID)
}

func moderatedAt(m *ModerationStamp) any {
	if m == nil {
		return nil
	}
	return m.At
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*Report, error) {
	var (
		r           Report
		rawID       uuid.UUID
		category    string
		lat, lon    sql.NullFloat64
		stationID   uuid.NullUUID
		status      string
		note        sql.NullString
		moderator   uuid.NullUUID
		moderatedAt sql.NullTime
		publisherID uuid.UUID
	)
	err := row.Scan(
		&rawID, &r.Title, &r.Body, &category, &lat, &lon, &r.Address, &stationID,
		&status, &note, &moderator, &moderatedAt,
		&publisherID, &r.PublisherBadge, &r.Views, &r.Shares,
		&r.OccurredAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ID = id.ReportID(rawID)
	r.Category = Category(category)
	r.Status = Status(status)
	r.PublisherID = id.UserID(publisherID)
	if lat.Valid && lon.Valid {
		r.Coordinate = &geo.Coordinate{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if stationID.Valid {
		st := id.StationID(stationID.UUID)
		r.StationID = &st
	}
	// The moderation triple is set together; moderated_at is the marker.
	if moderatedAt.Valid && moderator.Valid {
		r.Moderation = &ModerationStamp{
			Note:        note.String,
			ModeratorID: id.UserID(moderator.UUID),
			At:          moderatedAt.Time,
		}
	}
	return &r, nil
}
