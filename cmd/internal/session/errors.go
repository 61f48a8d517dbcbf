package session

import "errors"

var (
	// ErrNotFound is returned when a session id does not match any row.
	ErrNotFound = errors.New("session not found")

	// ErrConflict is returned when a session id already exists.
	ErrConflict = errors.New("session already exists")

	// ErrAlreadyEnded is returned when the end instant is stamped twice.
	ErrAlreadyEnded = errors.New("session already ended")

	// ErrInvalidEnd is returned when the end instant precedes the start instant.
	ErrInvalidEnd = errors.New("end instant precedes start instant")
)
