package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (rollcall.sessions).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new session row.
func (s *PostgresStore) Create(ctx context.Context, row Row) error {
	var lat, lng, acc *float64
	if row.Location != nil {
		lat = &row.Location.Latitude
		lng = &row.Location.Longitude
		acc = &row.Location.AccuracyM
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rollcall.sessions (
			id, subject, section, date,
			instructor_name, instructor_email,
			created_at, started_at, ended_at,
			latitude, longitude, accuracy_m
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, NULL,
			$9, $10, $11
		)
	`, row.ID, row.Subject, row.Section, row.Date,
		row.InstructorName, row.InstructorEmail,
		row.CreatedAt, row.StartedAt,
		lat, lng, acc)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

// GetByID loads a session row by id.
func (s *PostgresStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	row, err := scanRow(s.pool.QueryRow(ctx, `
		SELECT
			id, subject, section, date,
			instructor_name, instructor_email,
			created_at, started_at, ended_at,
			latitude, longitude, accuracy_m
		FROM rollcall.sessions
		WHERE id = $1
	`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	return row, err
}

// SetEnded stamps the end instant exactly once.
func (s *PostgresStore) SetEnded(ctx context.Context, sessionID string, endedAt time.Time) error {
	// The WHERE clause enforces the lifecycle invariants in one statement:
	// the row exists, has not ended, and ended_at >= started_at.
	tag, err := s.pool.Exec(ctx, `
		UPDATE rollcall.sessions
		SET ended_at = $2
		WHERE id = $1 AND ended_at IS NULL AND started_at <= $2
	`, sessionID, endedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	row, err := s.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if row.EndedAt != nil {
		return ErrAlreadyEnded
	}
	return ErrInvalidEnd
}

// ListByInstructor returns the instructor's sessions, most recent first.
func (s *PostgresStore) ListByInstructor(ctx context.Context, email string) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id, subject, section, date,
			instructor_name, instructor_email,
			created_at, started_at, ended_at,
			latitude, longitude, accuracy_m
		FROM rollcall.sessions
		WHERE instructor_email = $1
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(sc rowScanner) (Row, error) {
	var (
		row           Row
		lat, lng, acc *float64
	)
	err := sc.Scan(
		&row.ID, &row.Subject, &row.Section, &row.Date,
		&row.InstructorName, &row.InstructorEmail,
		&row.CreatedAt, &row.StartedAt, &row.EndedAt,
		&lat, &lng, &acc,
	)
	if err != nil {
		return Row{}, err
	}
	if lat != nil && lng != nil {
		loc := Location{Latitude: *lat, Longitude: *lng}
		if acc != nil {
			loc.AccuracyM = *acc
		}
		row.Location = &loc
	}
	return row, nil
}
