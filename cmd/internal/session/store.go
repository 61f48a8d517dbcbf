package session

import (
	"context"
	"time"
)

// Store abstracts persistence for session rows.
//
// Implementations must make Create and SetEnded fail loudly: the lifecycle
// controller never advances past a failed durable write.
type Store interface {
	// Create inserts a new session row. Returns ErrConflict if the id exists.
	Create(ctx context.Context, row Row) error

	// GetByID loads a session row by id.
	GetByID(ctx context.Context, sessionID string) (Row, error)

	// SetEnded stamps the end instant exactly once.
	// Returns ErrNotFound, ErrAlreadyEnded, or ErrInvalidEnd as appropriate.
	SetEnded(ctx context.Context, sessionID string, endedAt time.Time) error

	// ListByInstructor returns the instructor's sessions, most recent first.
	ListByInstructor(ctx context.Context, email string) ([]Row, error)
}
