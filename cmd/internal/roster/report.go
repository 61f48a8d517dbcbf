package roster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rollcall/cmd/internal/session"
	"rollcall/cmd/internal/verify"
)

// ReportRow is one line of an attendance export.
type ReportRow struct {
	Name      string
	Contact   string
	Status    string
	MarkedAt  time.Time
	DistanceM *float64
}

// Distance renders the distance column; sessions without an instructor
// location have no distance to show.
func (r ReportRow) Distance() string {
	if r.DistanceM == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f m", *r.DistanceM)
}

// BuildReport turns a session's accepted records into export rows.
//
// Rows come out in submission order, oldest first, and each claimant contact
// appears exactly once. When a contact somehow holds more than one record the
// earliest wins; later ones are dropped.
func BuildReport(accepted []verify.AttendanceRecord) []ReportRow {
	recs := append([]verify.AttendanceRecord(nil), accepted...)
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].RecordedAt.Before(recs[j].RecordedAt) })

	seen := make(map[string]struct{}, len(recs))
	out := make([]ReportRow, 0, len(recs))
	for _, rec := range recs {
		if _, ok := seen[rec.ClaimantContact]; ok {
			continue
		}
		seen[rec.ClaimantContact] = struct{}{}
		out = append(out, ReportRow{
			Name:      rec.ClaimantName,
			Contact:   rec.ClaimantContact,
			Status:    "Present",
			MarkedAt:  rec.RecordedAt,
			DistanceM: rec.DistanceM,
		})
	}
	return out
}

// SessionSummary pairs a past session with its aggregate counts.
type SessionSummary struct {
	Session    session.Row
	TokenCount int
	Accepted   int
	Rejected   int
}

// History returns summaries of an instructor's past sessions, newest first.
// A per-session count failure is tolerated as zero so one bad row cannot
// hide the rest of the history.
func History(ctx context.Context, sessions session.Store, records verify.Store, count TokenCounter, instructorEmail string) ([]SessionSummary, error) {
	rows, err := sessions.ListByInstructor(ctx, instructorEmail)
	if err != nil {
		return nil, err
	}

	out := make([]SessionSummary, 0, len(rows))
	for _, row := range rows {
		sum := SessionSummary{Session: row}
		if accepted, err := records.QueryAccepted(ctx, row.ID); err == nil {
			sum.Accepted = len(accepted)
		}
		if rejected, err := records.QueryRejected(ctx, row.ID); err == nil {
			sum.Rejected = len(rejected)
		}
		if n, err := count.CountBySession(ctx, row.ID); err == nil {
			sum.TokenCount = n
		}
		out = append(out, sum)
	}
	return out, nil
}

// TokenCounter is the slice of the token store History needs.
type TokenCounter interface {
	CountBySession(ctx context.Context, sessionID string) (int, error)
}
