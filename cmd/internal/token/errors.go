package token

import "errors"

var (
	// ErrNotFound is returned when a token id does not match any row.
	ErrNotFound = errors.New("token not found")

	// ErrAlreadyRunning is returned when Start is called on a running issuer.
	ErrAlreadyRunning = errors.New("issuer already running")

	// ErrNotRunning is returned when an operation requires a running issuer.
	ErrNotRunning = errors.New("issuer not running")

	// ErrInvalidInterval is returned for a non-positive rotation interval.
	ErrInvalidInterval = errors.New("invalid rotation interval")
)
