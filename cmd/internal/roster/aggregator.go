// Package roster aggregates verification results for display and reporting.
//
// While a session is active the aggregator polls the store on a fixed
// cadence and republishes the accepted and rejected records as two
// recency-ordered rosters. Polling is read-only and idempotent: a poll with
// no new data changes nothing, and a poll that completes after the session
// ended is discarded.
package roster

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rollcall/cmd/internal/metrics"
	"rollcall/cmd/internal/token"
	"rollcall/cmd/internal/verify"
)

const pollTimeout = 4 * time.Second

// Aggregator polls a session's submission records on a fixed cadence.
type Aggregator struct {
	log      *slog.Logger
	records  verify.Store
	tokens   token.Store
	interval time.Duration

	mu        sync.Mutex
	sessionID string
	accepted  []verify.AttendanceRecord
	rejected  []verify.RejectedSubmission
	done      chan struct{}
	stopped   chan struct{}
}

// NewAggregator constructs an aggregator polling at the given interval.
func NewAggregator(log *slog.Logger, records verify.Store, tokens token.Store, interval time.Duration) *Aggregator {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Aggregator{log: log, records: records, tokens: tokens, interval: interval}
}

// Start begins polling for the session: one poll immediately, then one per
// interval.
func (a *Aggregator) Start(ctx context.Context, sessionID string) {
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return
	}
	a.sessionID = sessionID
	done := make(chan struct{})
	stopped := make(chan struct{})
	a.done = done
	a.stopped = stopped
	a.mu.Unlock()

	go a.run(ctx, done, stopped, sessionID)
}

func (a *Aggregator) run(ctx context.Context, done, stopped chan struct{}, sessionID string) {
	defer close(stopped)

	tick := time.NewTicker(a.interval)
	defer tick.Stop()

	a.poll(ctx, sessionID)

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-tick.C:
			a.poll(ctx, sessionID)
		}
	}
}

// poll fetches both rosters and applies them if the session is still the
// active one. A failed read is logged and skipped; the next scheduled poll
// supersedes it.
func (a *Aggregator) poll(ctx context.Context, sessionID string) {
	pctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	accepted, err := a.records.QueryAccepted(pctx, sessionID)
	if err != nil {
		metrics.AggregatorPollFailures.Inc()
		a.log.Warn("roster.poll.fail", "session_id", sessionID, "kind", "accepted", "err", err)
		return
	}
	rejected, err := a.records.QueryRejected(pctx, sessionID)
	if err != nil {
		metrics.AggregatorPollFailures.Inc()
		a.log.Warn("roster.poll.fail", "session_id", sessionID, "kind", "rejected", "err", err)
		return
	}

	a.mu.Lock()
	if a.sessionID != sessionID {
		// The session ended (or another one started) while this poll was in
		// flight; its results no longer apply.
		a.mu.Unlock()
		return
	}
	a.accepted = accepted
	a.rejected = rejected
	a.mu.Unlock()

	metrics.AggregatorPolls.Inc()
}

// Stop halts polling and clears the live rosters. An in-flight poll may
// complete but its results are discarded.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	done := a.done
	stopped := a.stopped
	a.done = nil
	a.stopped = nil
	a.sessionID = ""
	a.accepted = nil
	a.rejected = nil
	a.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped
}

// Snapshot returns copies of the live rosters, most recent first.
func (a *Aggregator) Snapshot() (accepted []verify.AttendanceRecord, rejected []verify.RejectedSubmission) {
	a.mu.Lock()
	defer a.mu.Unlock()
	accepted = append([]verify.AttendanceRecord(nil), a.accepted...)
	rejected = append([]verify.RejectedSubmission(nil), a.rejected...)
	return accepted, rejected
}

// Summary is the final aggregation of a session.
type Summary struct {
	SessionID  string
	TokenCount int
	Accepted   []verify.AttendanceRecord
	Rejected   []verify.RejectedSubmission
}

// Finalize performs one full pull directly against the store, including the
// issuance count. Used once at session end, after the end instant is durably
// stamped.
func (a *Aggregator) Finalize(ctx context.Context, sessionID string) (Summary, error) {
	accepted, err := a.records.QueryAccepted(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	rejected, err := a.records.QueryRejected(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	count, err := a.tokens.CountBySession(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		SessionID:  sessionID,
		TokenCount: count,
		Accepted:   accepted,
		Rejected:   rejected,
	}, nil
}
