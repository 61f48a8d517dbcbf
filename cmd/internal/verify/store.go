package verify

import "context"

// Store abstracts persistence for accepted and rejected submissions.
//
// InsertAccepted is the one operation requiring true mutual exclusion: under
// concurrent identical submissions, exactly one insert may succeed per
// (session, claimant contact). Implementations enforce this with a unique
// constraint or an equivalent atomic compare-and-insert.
type Store interface {
	// InsertAccepted persists an accepted record. Returns ErrDuplicate when
	// the claimant contact already has an accepted record for the session.
	InsertAccepted(ctx context.Context, rec AttendanceRecord) error

	// InsertRejected persists an audit record for a declined attempt.
	InsertRejected(ctx context.Context, rej RejectedSubmission) error

	// QueryAccepted returns a session's accepted records, most recent first.
	QueryAccepted(ctx context.Context, sessionID string) ([]AttendanceRecord, error)

	// QueryRejected returns a session's rejected submissions, most recent first.
	QueryRejected(ctx context.Context, sessionID string) ([]RejectedSubmission, error)
}
