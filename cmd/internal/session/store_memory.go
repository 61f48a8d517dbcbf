package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used when no database is configured and
// by unit tests. It applies the same lifecycle invariants as the Postgres
// store.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Row
}

// NewMemoryStore constructs an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Row)}
}

// Create inserts a new session row.
func (s *MemoryStore) Create(ctx context.Context, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[row.ID]; ok {
		return ErrConflict
	}
	s.rows[row.ID] = row
	return nil
}

// GetByID loads a session row by id.
func (s *MemoryStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[sessionID]
	if !ok {
		return Row{}, ErrNotFound
	}
	return row, nil
}

// SetEnded stamps the end instant exactly once.
func (s *MemoryStore) SetEnded(ctx context.Context, sessionID string, endedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[sessionID]
	if !ok {
		return ErrNotFound
	}
	if row.EndedAt != nil {
		return ErrAlreadyEnded
	}
	if endedAt.Before(row.StartedAt) {
		return ErrInvalidEnd
	}

	row.EndedAt = &endedAt
	s.rows[sessionID] = row
	return nil
}

// ListByInstructor returns the instructor's sessions, most recent first.
func (s *MemoryStore) ListByInstructor(ctx context.Context, email string) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Row
	for _, row := range s.rows {
		if row.InstructorEmail == email {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
