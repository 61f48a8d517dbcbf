// Package token holds the rotating-token model, its persistence, and the
// issuer that mints one token per rotation interval while a session is
// active.
//
// Tokens are opaque identifiers validated by store lookup, not signed
// assertions. A token is valid for the half-open window [issue, expiry):
// the issue instant itself is valid, the expiry instant is not.
package token

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Token mirrors the rollcall.tokens row. Rows are retained indefinitely for
// audit; only an early replacement may truncate the expiry instant.
type Token struct {
	ID        string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether now falls inside the token's validity window.
func (t Token) ValidAt(now time.Time) bool {
	return !now.Before(t.IssuedAt) && now.Before(t.ExpiresAt)
}

// Mint creates a token for the session with expiry = now + interval.
// ULIDs give a time-ordered prefix plus a random suffix, so ids are unique
// with overwhelming probability without coordination.
func Mint(sessionID string, now time.Time, interval time.Duration) (Token, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return Token{}, err
	}
	return Token{
		ID:        id.String(),
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(interval),
	}, nil
}
