package token

import (
	"context"
	"time"
)

// Store abstracts persistence for issued tokens.
type Store interface {
	// Insert persists a freshly minted token. The issuer publishes a token
	// as current only after Insert succeeds.
	Insert(ctx context.Context, tok Token) error

	// GetByID loads a token by id. Returns ErrNotFound when absent.
	GetByID(ctx context.Context, tokenID string) (Token, error)

	// CountBySession returns how many tokens were issued for a session.
	CountBySession(ctx context.Context, sessionID string) (int, error)

	// Truncate caps a token's expiry at the given instant. Used when a token
	// is replaced before its natural expiry so that no two tokens of one
	// session have overlapping validity windows.
	Truncate(ctx context.Context, tokenID string, expiresAt time.Time) error
}
