// Package lifecycle drives the instructor-side session state machine.
//
// One Controller owns one session at a time and moves it through
// Setup -> Starting -> Active -> Ending -> Ended. Transitions are durable
// before they are visible: the session row exists before issuance begins,
// and the end instant is stamped before the rosters are finalized.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"rollcall/cmd/internal/session"
)

// State names a position in the session lifecycle.
type State string

const (
	StateSetup    State = "setup"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateEnding   State = "ending"
	StateEnded    State = "ended"
)

var (
	// ErrInvalidRequest means the start request is structurally unusable
	// (missing subject or section).
	ErrInvalidRequest = errors.New("lifecycle: invalid start request")

	// ErrSessionActive means a start was attempted while a session runs.
	ErrSessionActive = errors.New("lifecycle: session already active")

	// ErrNoActiveSession means the operation needs an active session.
	ErrNoActiveSession = errors.New("lifecycle: no active session")

	// ErrLocationUnavailable means location capture failed and the request
	// did not allow proceeding without one.
	ErrLocationUnavailable = errors.New("lifecycle: location unavailable")

	// ErrConfirmRequired means logout was attempted mid-session without
	// explicit confirmation.
	ErrConfirmRequired = errors.New("lifecycle: confirmation required while session active")
)

// LocationProvider yields the instructor's current position. Implementations
// are expected to honor ctx cancellation; the controller bounds each capture
// with its configured timeout.
type LocationProvider interface {
	Current(ctx context.Context) (session.Location, error)
}

// StartRequest describes the session to open.
type StartRequest struct {
	Subject    string
	Section    string
	Date       string
	Instructor session.Instructor

	// AllowNoLocation lets the session proceed without a captured location
	// when acquisition fails. Proximity verification is then disabled for
	// the whole session.
	AllowNoLocation bool
}

// FixedLocation is a LocationProvider returning a preconfigured position,
// used when the instructor's coordinates come from configuration rather than
// a live fix.
type FixedLocation session.Location

func (f FixedLocation) Current(ctx context.Context) (session.Location, error) {
	return session.Location(f), nil
}

// NoLocation is a LocationProvider that always fails, for deployments with
// no position source at all.
type NoLocation struct{}

func (NoLocation) Current(ctx context.Context) (session.Location, error) {
	return session.Location{}, ErrLocationUnavailable
}

// clampInterval pins a rotation interval to the allowed policy band.
func clampInterval(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
