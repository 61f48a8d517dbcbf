package verify

import "errors"

var (
	// ErrDuplicate is returned by Store.InsertAccepted when the claimant
	// contact already has an accepted record for the session.
	ErrDuplicate = errors.New("duplicate accepted record")

	// ErrInvalidSubmission is returned for structurally invalid submissions
	// (missing token, session, or claimant identity fields).
	ErrInvalidSubmission = errors.New("invalid submission")
)
