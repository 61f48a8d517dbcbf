package token

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used when no database is configured and
// by unit tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Token
}

// NewMemoryStore constructs an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Token)}
}

// Insert persists a freshly minted token.
func (s *MemoryStore) Insert(ctx context.Context, tok Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[tok.ID] = tok
	return nil
}

// GetByID loads a token by id.
func (s *MemoryStore) GetByID(ctx context.Context, tokenID string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.rows[tokenID]
	if !ok {
		return Token{}, ErrNotFound
	}
	return tok, nil
}

// CountBySession returns how many tokens were issued for a session.
func (s *MemoryStore) CountBySession(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, tok := range s.rows {
		if tok.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

// Truncate caps a token's expiry at the given instant.
func (s *MemoryStore) Truncate(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.rows[tokenID]
	if !ok {
		return ErrNotFound
	}
	if tok.ExpiresAt.After(expiresAt) {
		tok.ExpiresAt = expiresAt
		s.rows[tokenID] = tok
	}
	return nil
}
