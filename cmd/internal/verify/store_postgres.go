package verify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (rollcall.attendance and
// rollcall.attendance_rejected).
//
// Duplicate exclusion rides on the unique index over
// (session_id, claimant_contact): concurrent identical submissions race on
// the constraint inside the database, so exactly one insert wins regardless
// of how many application processes are submitting.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed submission store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InsertAccepted persists an accepted record, or ErrDuplicate if the
// claimant already holds one for the session.
func (s *PostgresStore) InsertAccepted(ctx context.Context, rec AttendanceRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO rollcall.attendance (
			id, session_id, token_id,
			claimant_name, claimant_contact, claimant_phone,
			latitude, longitude, distance_m,
			submitted_at, recorded_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11
		)
		ON CONFLICT (session_id, claimant_contact) DO NOTHING
	`, id, rec.SessionID, rec.TokenID,
		rec.ClaimantName, rec.ClaimantContact, rec.ClaimantPhone,
		rec.Latitude, rec.Longitude, rec.DistanceM,
		rec.SubmittedAt, rec.RecordedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// InsertRejected persists an audit record for a declined attempt.
func (s *PostgresStore) InsertRejected(ctx context.Context, rej RejectedSubmission) error {
	id := rej.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rollcall.attendance_rejected (
			id, session_id, token_id,
			claimant_name, claimant_contact, claimant_phone,
			latitude, longitude, reason,
			submitted_at, recorded_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11
		)
	`, id, rej.SessionID, rej.TokenID,
		rej.ClaimantName, rej.ClaimantContact, rej.ClaimantPhone,
		rej.Latitude, rej.Longitude, string(rej.Reason),
		rej.SubmittedAt, rej.RecordedAt)
	return err
}

// QueryAccepted returns a session's accepted records, most recent first.
func (s *PostgresStore) QueryAccepted(ctx context.Context, sessionID string) ([]AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id, session_id, token_id,
			claimant_name, claimant_contact, claimant_phone,
			latitude, longitude, distance_m,
			submitted_at, recorded_at
		FROM rollcall.attendance
		WHERE session_id = $1
		ORDER BY recorded_at DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttendanceRecord
	for rows.Next() {
		var rec AttendanceRecord
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.TokenID,
			&rec.ClaimantName, &rec.ClaimantContact, &rec.ClaimantPhone,
			&rec.Latitude, &rec.Longitude, &rec.DistanceM,
			&rec.SubmittedAt, &rec.RecordedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// QueryRejected returns a session's rejected submissions, most recent first.
func (s *PostgresStore) QueryRejected(ctx context.Context, sessionID string) ([]RejectedSubmission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			id, session_id, token_id,
			claimant_name, claimant_contact, claimant_phone,
			latitude, longitude, reason,
			submitted_at, recorded_at
		FROM rollcall.attendance_rejected
		WHERE session_id = $1
		ORDER BY recorded_at DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RejectedSubmission
	for rows.Next() {
		var rej RejectedSubmission
		var reason string
		if err := rows.Scan(
			&rej.ID, &rej.SessionID, &rej.TokenID,
			&rej.ClaimantName, &rej.ClaimantContact, &rej.ClaimantPhone,
			&rej.Latitude, &rej.Longitude, &reason,
			&rej.SubmittedAt, &rej.RecordedAt,
		); err != nil {
			return nil, err
		}
		rej.Reason = Reason(reason)
		out = append(out, rej)
	}
	return out, rows.Err()
}
