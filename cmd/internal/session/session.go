// Package session holds the attendance session model and its persistence.
//
// A session is one instructor-led attendance window bounded by start/end
// instants. It is created once when the window opens, mutated exactly once
// (the end instant) when the window closes, and immutable afterward.
package session

import (
	"fmt"
	"strings"
	"time"
)

// Location is a geographic reading captured at session start.
type Location struct {
	Latitude  float64
	Longitude float64
	AccuracyM float64
}

// Instructor is an already-authenticated instructor identity.
// Credential verification happens outside this module.
type Instructor struct {
	Name  string
	Email string
}

// Row mirrors the rollcall.sessions row.
type Row struct {
	ID              string
	Subject         string
	Section         string
	Date            string
	InstructorName  string
	InstructorEmail string
	CreatedAt       time.Time
	StartedAt       time.Time
	EndedAt         *time.Time

	// Location is nil when acquisition failed or was declined; proximity
	// verification is disabled for the session in that case.
	Location *Location
}

// Open reports whether the session is still accepting submissions.
func (r Row) Open() bool { return r.EndedAt == nil }

// NewID composes a session identifier from the class descriptor and the
// start instant, e.g. "Physics-A-2026-08-31-1756600000000".
func NewID(subject, section, date string, startedAt time.Time) string {
	return fmt.Sprintf("%s-%s-%s-%d",
		strings.TrimSpace(subject),
		strings.TrimSpace(section),
		strings.TrimSpace(date),
		startedAt.UnixMilli(),
	)
}
