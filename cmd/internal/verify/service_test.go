package verify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"rollcall/cmd/internal/session"
	"rollcall/cmd/internal/token"
)

const (
	roomLat = 28.6139
	roomLng = 77.2090
)

type fixture struct {
	svc      *Service
	sessions *session.MemoryStore
	tokens   *token.MemoryStore
	records  *MemoryStore
	sess     session.Row
	tok      token.Token
}

// newFixture provisions an open session with an instructor location and one
// token valid for [now, now+5s).
func newFixture(t *testing.T, now time.Time, radiusM float64, withLocation bool) fixture {
	t.Helper()
	ctx := context.Background()

	sessions := session.NewMemoryStore()
	tokens := token.NewMemoryStore()
	records := NewMemoryStore()

	sess := session.Row{
		ID:        "Physics-A-2026-08-31-1756600000000",
		Subject:   "Physics",
		Section:   "A",
		Date:      "2026-08-31",
		CreatedAt: now,
		StartedAt: now,
	}
	if withLocation {
		sess.Location = &session.Location{Latitude: roomLat, Longitude: roomLng}
	}
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatalf("Create session: %v", err)
	}

	tok, err := token.Mint(sess.ID, now, 5*time.Second)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := tokens.Insert(ctx, tok); err != nil {
		t.Fatalf("Insert token: %v", err)
	}

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := NewService(log, Config{ProximityRadiusM: radiusM}, sessions, tokens, records)
	return fixture{svc: svc, sessions: sessions, tokens: tokens, records: records, sess: sess, tok: tok}
}

func (f fixture) submission(contact string) Submission {
	return Submission{
		TokenID:         f.tok.ID,
		SessionID:       f.sess.ID,
		ClaimantName:    "Asha Rao",
		ClaimantContact: contact,
		Latitude:        roomLat,
		Longitude:       roomLng,
		SubmittedAt:     f.tok.IssuedAt,
	}
}

func TestSubmit_Accepts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t, now, 50, true)

	out, err := f.svc.Submit(ctx, now.Add(time.Second), f.submission("asha@example.edu"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Accepted || out.Reason != "" {
		t.Fatalf("Submit: expected accept, got %+v", out)
	}
	if out.DistanceM == nil || *out.DistanceM > 1 {
		t.Fatalf("Submit: expected near-zero distance, got %v", out.DistanceM)
	}

	recs, err := f.records.QueryAccepted(ctx, f.sess.ID)
	if err != nil {
		t.Fatalf("QueryAccepted: %v", err)
	}
	if len(recs) != 1 || recs[0].ClaimantContact != "asha@example.edu" {
		t.Fatalf("QueryAccepted: unexpected records %+v", recs)
	}
	if recs[0].TokenID != f.tok.ID {
		t.Fatalf("QueryAccepted: wrong token id %q", recs[0].TokenID)
	}
}

func TestSubmit_RejectsStructurallyInvalid(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t, now, 50, true)

	sub := f.submission("asha@example.edu")
	sub.ClaimantName = "   "
	if _, err := f.svc.Submit(ctx, now, sub); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("Submit blank name: expected ErrInvalidSubmission, got %v", err)
	}

	sub = f.submission("asha@example.edu")
	sub.TokenID = ""
	if _, err := f.svc.Submit(ctx, now, sub); !errors.Is(err, ErrInvalidSubmission) {
		t.Fatalf("Submit blank token: expected ErrInvalidSubmission, got %v", err)
	}
}

func TestSubmit_TokenChecks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t, now, 50, true)

	// Unknown token.
	sub := f.submission("asha@example.edu")
	sub.TokenID = "01UNKNOWNUNKNOWNUNKNOWNUNK"
	out, err := f.svc.Submit(ctx, now, sub)
	if err != nil {
		t.Fatalf("Submit unknown token: %v", err)
	}
	if out.Accepted || out.Reason != ReasonTokenExpiredOrInvalid {
		t.Fatalf("Submit unknown token: got %+v", out)
	}

	// Token minted for a different session.
	foreign, err := token.Mint("other-session", now, 5*time.Second)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if err := f.tokens.Insert(ctx, foreign); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	sub = f.submission("asha@example.edu")
	sub.TokenID = foreign.ID
	out, err = f.svc.Submit(ctx, now, sub)
	if err != nil {
		t.Fatalf("Submit foreign token: %v", err)
	}
	if out.Accepted || out.Reason != ReasonTokenExpiredOrInvalid {
		t.Fatalf("Submit foreign token: got %+v", out)
	}

	// Every rejection leaves an audit row.
	rejs, err := f.records.QueryRejected(ctx, f.sess.ID)
	if err != nil {
		t.Fatalf("QueryRejected: %v", err)
	}
	if len(rejs) != 2 {
		t.Fatalf("QueryRejected: expected 2 audit rows, got %d", len(rejs))
	}
}

func TestSubmit_ValidityWindowBoundaries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t, now, 50, true)
	expiry := f.tok.ExpiresAt

	cases := []struct {
		name       string
		at         time.Time
		contact    string
		wantAccept bool
	}{
		{"just inside window", expiry.Add(-time.Millisecond), "inside@example.edu", true},
		{"at expiry", expiry, "at@example.edu", false},
		{"just past expiry", expiry.Add(time.Millisecond), "past@example.edu", false},
		{"before issue", f.tok.IssuedAt.Add(-time.Millisecond), "early@example.edu", false},
	}
	for _, tc := range cases {
		out, err := f.svc.Submit(ctx, tc.at, f.submission(tc.contact))
		if err != nil {
			t.Fatalf("Submit %s: %v", tc.name, err)
		}
		if out.Accepted != tc.wantAccept {
			t.Errorf("Submit %s: accepted=%v, want %v", tc.name, out.Accepted, tc.wantAccept)
		}
		if !tc.wantAccept && out.Reason != ReasonTokenExpiredOrInvalid {
			t.Errorf("Submit %s: reason=%q", tc.name, out.Reason)
		}
	}
}

func TestSubmit_SessionClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t, now, 50, true)

	if err := f.sessions.SetEnded(ctx, f.sess.ID, now.Add(time.Second)); err != nil {
		t.Fatalf("SetEnded: %v", err)
	}

	// The token window is still open; the closed session alone rejects.
	out, err := f.svc.Submit(ctx, now.Add(2*time.Second), f.submission("late@example.edu"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Accepted || out.Reason != ReasonSessionClosed {
		t.Fatalf("Submit after end: got %+v", out)
	}
}

func TestSubmit_Proximity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t, now, 50, true)

	// ~200 m north of the instructor.
	far := f.submission("far@example.edu")
	far.Latitude = roomLat + 0.0018
	out, err := f.svc.Submit(ctx, now, far)
	if err != nil {
		t.Fatalf("Submit far: %v", err)
	}
	if out.Accepted || out.Reason != ReasonOutOfRange {
		t.Fatalf("Submit far: got %+v", out)
	}
	if out.DistanceM == nil || *out.DistanceM < 150 || *out.DistanceM > 250 {
		t.Fatalf("Submit far: distance %v, want ~200", out.DistanceM)
	}

	// ~10 m away is inside the 50 m radius.
	near := f.submission("near@example.edu")
	near.Latitude = roomLat + 0.00009
	out, err = f.svc.Submit(ctx, now, near)
	if err != nil {
		t.Fatalf("Submit near: %v", err)
	}
	if !out.Accepted {
		t.Fatalf("Submit near: got %+v", out)
	}
	if out.DistanceM == nil || *out.DistanceM > 20 {
		t.Fatalf("Submit near: distance %v, want ~10", out.DistanceM)
	}
}

func TestSubmit_NoInstructorLocation_SkipsProximity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t, now, 50, false)

	// Claimant is kilometers away; without a session location the proximity
	// check does not apply and no distance is reported.
	sub := f.submission("remote@example.edu")
	sub.Latitude = roomLat + 0.1
	out, err := f.svc.Submit(ctx, now, sub)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Accepted {
		t.Fatalf("Submit without location: got %+v", out)
	}
	if out.DistanceM != nil {
		t.Fatalf("Submit without location: unexpected distance %v", *out.DistanceM)
	}
}

func TestSubmit_Duplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t, now, 50, true)

	if _, err := f.svc.Submit(ctx, now, f.submission("asha@example.edu")); err != nil {
		t.Fatalf("Submit first: %v", err)
	}

	out, err := f.svc.Submit(ctx, now.Add(time.Second), f.submission("asha@example.edu"))
	if err != nil {
		t.Fatalf("Submit second: %v", err)
	}
	if out.Accepted || out.Reason != ReasonDuplicateSubmission {
		t.Fatalf("Submit second: got %+v", out)
	}

	// A different claimant on the same token is fine.
	other, err := f.svc.Submit(ctx, now.Add(time.Second), f.submission("vikram@example.edu"))
	if err != nil {
		t.Fatalf("Submit other: %v", err)
	}
	if !other.Accepted {
		t.Fatalf("Submit other: got %+v", other)
	}
}

func TestSubmit_ConcurrentDuplicates_ExactlyOneAccept(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Now().UTC()
	f := newFixture(t, now, 50, true)

	const n = 30
	outcomes := make([]Outcome, n)
	errs := make([]error, n)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outcomes[i], errs[i] = f.svc.Submit(ctx, now, f.submission("asha@example.edu"))
		}(i)
	}
	close(start)
	wg.Wait()

	accepted, duplicates := 0, 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("Submit %d: %v", i, errs[i])
		}
		switch {
		case outcomes[i].Accepted:
			accepted++
		case outcomes[i].Reason == ReasonDuplicateSubmission:
			duplicates++
		default:
			t.Fatalf("Submit %d: unexpected outcome %+v", i, outcomes[i])
		}
	}
	if accepted != 1 || duplicates != n-1 {
		t.Fatalf("expected 1 accept and %d duplicates, got %d and %d", n-1, accepted, duplicates)
	}

	recs, err := f.records.QueryAccepted(ctx, f.sess.ID)
	if err != nil {
		t.Fatalf("QueryAccepted: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("QueryAccepted: expected exactly 1 record, got %d", len(recs))
	}
	rejs, err := f.records.QueryRejected(ctx, f.sess.ID)
	if err != nil {
		t.Fatalf("QueryRejected: %v", err)
	}
	if len(rejs) != n-1 {
		t.Fatalf("QueryRejected: expected %d audit rows, got %d", n-1, len(rejs))
	}
}

func TestReason_Message(t *testing.T) {
	t.Parallel()

	for _, r := range []Reason{
		ReasonTokenExpiredOrInvalid,
		ReasonSessionClosed,
		ReasonOutOfRange,
		ReasonDuplicateSubmission,
	} {
		if r.Message() == string(r) || r.Message() == "" {
			t.Errorf("Message %s: expected a human-readable string", r)
		}
	}
	if Reason("OTHER").Message() != "OTHER" {
		t.Errorf("Message fallback: got %q", Reason("OTHER").Message())
	}
}
