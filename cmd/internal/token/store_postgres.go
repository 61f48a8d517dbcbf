package token

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL (rollcall.tokens).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed token store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert persists a freshly minted token.
func (s *PostgresStore) Insert(ctx context.Context, tok Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rollcall.tokens (id, session_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, tok.ID, tok.SessionID, tok.IssuedAt, tok.ExpiresAt)
	return err
}

// GetByID loads a token by id.
func (s *PostgresStore) GetByID(ctx context.Context, tokenID string) (Token, error) {
	var tok Token
	err := s.pool.QueryRow(ctx, `
		SELECT id, session_id, issued_at, expires_at
		FROM rollcall.tokens
		WHERE id = $1
	`, tokenID).Scan(&tok.ID, &tok.SessionID, &tok.IssuedAt, &tok.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Token{}, ErrNotFound
	}
	if err != nil {
		return Token{}, err
	}
	return tok, nil
}

// CountBySession returns how many tokens were issued for a session.
func (s *PostgresStore) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM rollcall.tokens WHERE session_id = $1
	`, sessionID).Scan(&n)
	return n, err
}

// Truncate caps a token's expiry at the given instant (idempotent; never
// extends a window).
func (s *PostgresStore) Truncate(ctx context.Context, tokenID string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rollcall.tokens
		SET expires_at = $2
		WHERE id = $1 AND expires_at > $2
	`, tokenID, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Already expired or unknown id; distinguish for the caller's logs.
		if _, err := s.GetByID(ctx, tokenID); err != nil {
			return err
		}
	}
	return nil
}
