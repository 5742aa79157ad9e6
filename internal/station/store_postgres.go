package station

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "civicwatch/pkg/domain"
	"civicwatch/pkg/platform/sentinel"
)

// PostgresStore persists stations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed station store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, st *Station) error {
	query := `
		INSERT INTO stations (id, name, latitude, longitude, active, contact_emails, contact_phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(st.ID),
		st.Name,
		st.Latitude,
		st.Longitude,
		st.Active,
		pq.Array(st.ContactEmails),
		st.ContactPhone,
		st.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert station: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, stationID id.StationID) (*Station, error) {
	query := `
		SELECT id, name, latitude, longitude, active, contact_emails, contact_phone, created_at, deactivated_at
		FROM stations
		WHERE id = $1
	`
	st, err := scanStation(s.db.QueryRowContext(ctx, query, uuid.UUID(stationID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("station not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("query station: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*Station, error) {
	return s.list(ctx, `
		SELECT id, name, latitude, longitude, active, contact_emails, contact_phone, created_at, deactivated_at
		FROM stations
		WHERE active
		ORDER BY created_at, id
	`)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*Station, error) {
	return s.list(ctx, `
		SELECT id, name, latitude, longitude, active, contact_emails, contact_phone, created_at, deactivated_at
		FROM stations
		ORDER BY created_at, id
	`)
}

func (s *PostgresStore) list(ctx context.Context, query string) ([]*Station, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	var out []*Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stations: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, st *Station) error {
	query := `
		UPDATE stations
		SET name = $2, latitude = $3, longitude = $4, contact_emails = $5, contact_phone = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(st.ID),
		st.Name,
		st.Latitude,
		st.Longitude,
		pq.Array(st.ContactEmails),
		st.ContactPhone,
	)
	if err != nil {
		return fmt.Errorf("update station: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) SetActive(ctx context.Context, stationID id.StationID, active bool, at time.Time) error {
	query := `
		UPDATE stations
		SET active = $2, deactivated_at = CASE WHEN $2 THEN NULL ELSE $3 END
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(stationID), active, at)
	if err != nil {
		return fmt.Errorf("set station active: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("station not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (*Station, error) {
	var (
		st            Station
		rawID         uuid.UUID
		emails        pq.StringArray
		deactivatedAt sql.NullTime
	)
	err := row.Scan(
		&rawID,
		&st.Name,
		&st.Latitude,
		&st.Longitude,
		&st.Active,
		&emails,
		&st.ContactPhone,
		&st.CreatedAt,
		&deactivatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.ID = id.StationID(rawID)
	st.ContactEmails = []string(emails)
	if deactivatedAt.Valid {
		t := deactivatedAt.Time
		st.DeactivatedAt = &t
	}
	return &st, nil
}
