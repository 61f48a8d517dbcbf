// Package verify implements the attendance submission verifier: the one
// contract in the system that is invoked concurrently by arbitrarily many
// claimant clients.
//
// The decision ladder is fixed: token validity window, session open,
// proximity (when an instructor location exists), then per-claimant
// uniqueness. Uniqueness is delegated to store atomicity (a unique
// constraint or an equivalent compare-and-insert), never to an unguarded
// read-then-write.
package verify

import (
	"context"
	"time"
)

// Reason is a rejection reason drawn from the fixed taxonomy.
type Reason string

const (
	// ReasonTokenExpiredOrInvalid covers unknown tokens, tokens of another
	// session, and tokens outside their [issue, expiry) window.
	ReasonTokenExpiredOrInvalid Reason = "TOKEN_EXPIRED_OR_INVALID"
	// ReasonSessionClosed is returned once the session's end instant is set.
	ReasonSessionClosed Reason = "SESSION_CLOSED"
	// ReasonOutOfRange is returned when the claimant is farther from the
	// instructor than the configured proximity threshold.
	ReasonOutOfRange Reason = "OUT_OF_RANGE"
	// ReasonDuplicateSubmission is returned when the claimant contact already
	// has an accepted record for the session.
	ReasonDuplicateSubmission Reason = "DUPLICATE_SUBMISSION"
)

// Message returns the human-readable string shown in the failed-attempts
// roster.
func (r Reason) Message() string {
	switch r {
	case ReasonTokenExpiredOrInvalid:
		return "QR code expired or invalid. Scan the current code."
	case ReasonSessionClosed:
		return "The attendance session has ended."
	case ReasonOutOfRange:
		return "You are too far from the classroom."
	case ReasonDuplicateSubmission:
		return "Attendance already marked for this session."
	default:
		return string(r)
	}
}

// Submission is one attendance claim as presented by a claimant.
type Submission struct {
	TokenID   string
	SessionID string

	ClaimantName    string
	ClaimantContact string
	ClaimantPhone   *string

	// Location is the claimant's reported position. Trusted as-is; location
	// spoofing defenses are out of scope.
	Latitude  float64
	Longitude float64

	// SubmittedAt is the client-reported submission instant, recorded for
	// audit. Validity is always evaluated against server time.
	SubmittedAt time.Time
}

// Outcome is the verifier's decision for one submission.
type Outcome struct {
	Accepted bool
	Reason   Reason // empty when accepted

	// DistanceM is the great-circle distance from the instructor, set only
	// when the session carries an instructor location.
	DistanceM *float64
}

// Verifier is the contract any backing implementation must honor. It must be
// safe to call concurrently for the same token from many distinct claimants
// and idempotent per (session, claimant contact).
type Verifier interface {
	Submit(ctx context.Context, now time.Time, sub Submission) (Outcome, error)
}

// AttendanceRecord mirrors the rollcall.attendance row (accepted
// submissions).
type AttendanceRecord struct {
	ID              string
	SessionID       string
	TokenID         string
	ClaimantName    string
	ClaimantContact string
	ClaimantPhone   *string
	Latitude        float64
	Longitude       float64
	DistanceM       *float64
	SubmittedAt     time.Time
	RecordedAt      time.Time
}

// RejectedSubmission mirrors the rollcall.attendance_rejected row. Immutable
// audit trail; every non-accept path writes one.
type RejectedSubmission struct {
	ID              string
	SessionID       string
	TokenID         string
	ClaimantName    string
	ClaimantContact string
	ClaimantPhone   *string
	Latitude        float64
	Longitude       float64
	Reason          Reason
	SubmittedAt     time.Time
	RecordedAt      time.Time
}
