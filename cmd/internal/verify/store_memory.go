package verify

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used when no database is configured and
// by unit tests. The mutex around the dedupe map gives the same
// compare-and-insert atomicity the Postgres unique index provides.
type MemoryStore struct {
	mu       sync.Mutex
	accepted map[string]AttendanceRecord // session_id + "\x00" + contact
	rejected []RejectedSubmission
}

// NewMemoryStore constructs an empty in-memory submission store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accepted: make(map[string]AttendanceRecord)}
}

func acceptedKey(sessionID, contact string) string {
	return sessionID + "\x00" + contact
}

// InsertAccepted persists an accepted record, or ErrDuplicate if the
// claimant already holds one for the session.
func (s *MemoryStore) InsertAccepted(ctx context.Context, rec AttendanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := acceptedKey(rec.SessionID, rec.ClaimantContact)
	if _, ok := s.accepted[key]; ok {
		return ErrDuplicate
	}
	s.accepted[key] = rec
	return nil
}

// InsertRejected persists an audit record for a declined attempt.
func (s *MemoryStore) InsertRejected(ctx context.Context, rej RejectedSubmission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rej.ID == "" {
		rej.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, rej)
	return nil
}

// QueryAccepted returns a session's accepted records, most recent first.
func (s *MemoryStore) QueryAccepted(ctx context.Context, sessionID string) ([]AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	var out []AttendanceRecord
	for _, rec := range s.accepted {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}

// QueryRejected returns a session's rejected submissions, most recent first.
func (s *MemoryStore) QueryRejected(ctx context.Context, sessionID string) ([]RejectedSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	var out []RejectedSubmission
	for _, rej := range s.rejected {
		if rej.SessionID == sessionID {
			out = append(out, rej)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}
