package token

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rollcall/cmd/internal/metrics"
)

const persistTimeout = 5 * time.Second

// Issuer mints one token per rotation interval for the active session and
// maintains a per-second countdown for display.
//
// Each Start owns a dedicated rotator goroutine; Stop and SetInterval wait
// for the outgoing rotator to fully stop before returning, so no two
// rotation timers are ever live at once and no issuance can happen after
// Stop returns.
type Issuer struct {
	log   *slog.Logger
	store Store

	// issueMu serializes actual issuance (scheduled ticks and IssueNow).
	issueMu sync.Mutex

	mu        sync.Mutex
	rot       *rotator
	sessionID string
	interval  time.Duration
	current   *Token
	countdown int
	history   []string
}

type rotator struct {
	done    chan struct{}
	stopped chan struct{}
}

// NewIssuer constructs an Issuer over the given token store.
func NewIssuer(log *slog.Logger, store Store) *Issuer {
	return &Issuer{log: log, store: store}
}

// Start begins issuance for the session: one token immediately, then one per
// interval. The countdown starts at the interval and is decremented once per
// second, resetting whenever a token is issued.
func (i *Issuer) Start(ctx context.Context, sessionID string, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	i.mu.Lock()
	if i.rot != nil {
		i.mu.Unlock()
		return ErrAlreadyRunning
	}
	i.sessionID = sessionID
	i.interval = interval
	i.countdown = int(interval / time.Second)
	i.startLocked(ctx)
	i.mu.Unlock()

	i.log.Info("issuer.start", "session_id", sessionID, "interval", interval.String())
	return nil
}

// startLocked launches a fresh rotator. Caller holds i.mu.
func (i *Issuer) startLocked(ctx context.Context) {
	r := &rotator{done: make(chan struct{}), stopped: make(chan struct{})}
	i.rot = r
	go i.run(ctx, r, i.sessionID, i.interval)
}

func (i *Issuer) run(ctx context.Context, r *rotator, sessionID string, interval time.Duration) {
	defer close(r.stopped)

	rotate := time.NewTicker(interval)
	defer rotate.Stop()
	second := time.NewTicker(time.Second)
	defer second.Stop()

	// Zero-delay first token.
	i.issue(ctx, r, sessionID, interval)

	for {
		select {
		case <-r.done:
			return
		case <-ctx.Done():
			return
		case <-rotate.C:
			// Re-check stop: the tick may have raced with done.
			select {
			case <-r.done:
				return
			default:
			}
			i.issue(ctx, r, sessionID, interval)
		case <-second.C:
			i.tickCountdown(r)
		}
	}
}

// issue mints, persists, and only then publishes a token as current. A failed
// durable write is surfaced in logs and metrics; the token is never published
// and the rotation loop keeps ticking.
func (i *Issuer) issue(ctx context.Context, r *rotator, sessionID string, interval time.Duration) {
	i.issueMu.Lock()
	defer i.issueMu.Unlock()

	i.mu.Lock()
	owned := i.rot == r
	i.mu.Unlock()
	if !owned {
		// Stopped or restarted before this issuance began; nothing may reach
		// the store on behalf of the old rotator.
		return
	}

	now := time.Now().UTC()
	tok, err := Mint(sessionID, now, interval)
	if err != nil {
		i.log.Error("issuer.mint.fail", "session_id", sessionID, "err", err)
		metrics.TokenPersistFailures.Inc()
		return
	}

	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := i.store.Insert(pctx, tok); err != nil {
		i.log.Error("issuer.persist.fail", "session_id", sessionID, "token_id", tok.ID, "err", err)
		metrics.TokenPersistFailures.Inc()
		return
	}

	i.mu.Lock()
	if i.rot != r {
		// Stopped or restarted while persisting; the replacement rotator
		// owns the current slot now.
		i.mu.Unlock()
		return
	}
	prev := i.current
	cur := tok
	i.current = &cur
	i.countdown = int(interval / time.Second)
	i.history = append(i.history, tok.ID)
	i.mu.Unlock()

	metrics.TokensIssued.Inc()
	i.log.Info("issuer.token", "session_id", sessionID, "token_id", tok.ID, "expires_at", tok.ExpiresAt)

	// The replaced token's window is capped at the replacement instant so a
	// session never has two simultaneously valid tokens.
	if prev != nil && prev.ExpiresAt.After(now) {
		if err := i.store.Truncate(pctx, prev.ID, now); err != nil {
			i.log.Warn("issuer.truncate.fail", "token_id", prev.ID, "err", err)
		}
	}
}

func (i *Issuer) tickCountdown(r *rotator) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.rot != r {
		return
	}
	// The countdown only resets when a token is actually issued; if the two
	// tickers drift or a persist fails, it floors at zero instead of
	// pretending a rotation happened.
	if i.countdown > 0 {
		i.countdown--
	}
}

// IssueNow mints a token out of cadence (the "generate now" action). The
// rotation schedule itself is unchanged; the countdown resets.
func (i *Issuer) IssueNow(ctx context.Context) error {
	i.mu.Lock()
	r := i.rot
	sessionID := i.sessionID
	interval := i.interval
	i.mu.Unlock()

	if r == nil {
		return ErrNotRunning
	}
	i.issue(ctx, r, sessionID, interval)
	return nil
}

// SetInterval stops the running rotator, waits for it to fully stop, caps
// the outgoing token's validity window, and restarts with the new interval
// (issuing immediately). No two rotation timers are ever active concurrently.
func (i *Issuer) SetInterval(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	i.mu.Lock()
	r := i.rot
	if r == nil {
		i.mu.Unlock()
		return ErrNotRunning
	}
	i.rot = nil
	cur := i.current
	i.mu.Unlock()

	close(r.done)
	<-r.stopped

	if cur != nil {
		now := time.Now().UTC()
		if cur.ExpiresAt.After(now) {
			tctx, cancel := context.WithTimeout(ctx, persistTimeout)
			if err := i.store.Truncate(tctx, cur.ID, now); err != nil {
				i.log.Warn("issuer.truncate.fail", "token_id", cur.ID, "err", err)
			}
			cancel()
		}
	}

	i.mu.Lock()
	i.interval = interval
	i.countdown = int(interval / time.Second)
	i.current = nil
	i.startLocked(ctx)
	i.mu.Unlock()

	i.log.Info("issuer.interval", "session_id", i.SessionID(), "interval", interval.String())
	return nil
}

// Stop halts rotation and countdown and clears all transient state. When it
// returns, no further issuance or countdown tick can occur.
func (i *Issuer) Stop() {
	i.mu.Lock()
	r := i.rot
	sessionID := i.sessionID
	i.rot = nil
	i.sessionID = ""
	i.current = nil
	i.countdown = 0
	i.history = nil
	i.mu.Unlock()

	if r == nil {
		return
	}
	close(r.done)
	<-r.stopped

	// An IssueNow may still hold issueMu; taking it here means any in-flight
	// issuance has fully finished (or bailed on the ownership check) before
	// Stop returns.
	i.issueMu.Lock()
	i.issueMu.Unlock() //nolint:staticcheck // barrier, not a critical section

	i.log.Info("issuer.stop", "session_id", sessionID)
}

// Running reports whether a rotator is active.
func (i *Issuer) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rot != nil
}

// SessionID returns the session being issued for, or "" when stopped.
func (i *Issuer) SessionID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.sessionID
}

// Current returns the published current token, if any.
func (i *Issuer) Current() (Token, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.current == nil {
		return Token{}, false
	}
	return *i.current, true
}

// Countdown returns the seconds remaining until the next scheduled rotation,
// as shown to the instructor. Display state only.
func (i *Issuer) Countdown() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.countdown
}

// History returns the ids issued during the current run, oldest first.
func (i *Issuer) History() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]string, len(i.history))
	copy(out, i.history)
	return out
}
