package lifecycle

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rollcall/cmd/internal/roster"
	"rollcall/cmd/internal/session"
	"rollcall/cmd/internal/token"
)

// Config holds lifecycle policy.
type Config struct {
	// RotateInterval is the initial token rotation interval. Clamped to
	// [MinRotateInterval, MaxRotateInterval].
	RotateInterval time.Duration

	// MinRotateInterval / MaxRotateInterval bound the adjustable rotation
	// cadence.
	MinRotateInterval time.Duration
	MaxRotateInterval time.Duration

	// LocationTimeout bounds the location capture at session start.
	LocationTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinRotateInterval <= 0 {
		c.MinRotateInterval = 5 * time.Second
	}
	if c.MaxRotateInterval <= 0 {
		c.MaxRotateInterval = 10 * time.Second
	}
	if c.RotateInterval <= 0 {
		c.RotateInterval = c.MinRotateInterval
	}
	c.RotateInterval = clampInterval(c.RotateInterval, c.MinRotateInterval, c.MaxRotateInterval)
	if c.LocationTimeout <= 0 {
		c.LocationTimeout = 20 * time.Second
	}
	return c
}

// Controller coordinates the session store, token issuer, and roster
// aggregator through the lifecycle. One session at a time.
type Controller struct {
	log      *slog.Logger
	cfg      Config
	sessions session.Store
	issuer   *token.Issuer
	agg      *roster.Aggregator
	location LocationProvider

	mu      sync.Mutex
	state   State
	current *session.Row
	summary *roster.Summary
}

// NewController builds a controller in the Setup state.
func NewController(log *slog.Logger, cfg Config, sessions session.Store, issuer *token.Issuer, agg *roster.Aggregator, location LocationProvider) *Controller {
	if location == nil {
		location = NoLocation{}
	}
	return &Controller{
		log:      log,
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		issuer:   issuer,
		agg:      agg,
		location: location,
		state:    StateSetup,
	}
}

// Start opens a new session at the given instant: capture location, persist
// the row, then begin aggregation and token issuance.
//
// Failures before the durable create leave no trace; a failed create returns
// to Setup with nothing written.
func (c *Controller) Start(ctx context.Context, now time.Time, req StartRequest) (session.Row, error) {
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Section) == "" {
		return session.Row{}, ErrInvalidRequest
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = now.Format("2006-01-02")
	}

	c.mu.Lock()
	if c.state != StateSetup {
		c.mu.Unlock()
		return session.Row{}, ErrSessionActive
	}
	c.state = StateStarting
	c.mu.Unlock()

	loc, err := c.captureLocation(ctx)
	if err != nil {
		if !req.AllowNoLocation {
			c.setState(StateSetup)
			return session.Row{}, err
		}
		c.log.Warn("lifecycle.location.skip", "err", err)
		loc = nil
	}

	row := session.Row{
		ID:              session.NewID(req.Subject, req.Section, date, now),
		Subject:         strings.TrimSpace(req.Subject),
		Section:         strings.TrimSpace(req.Section),
		Date:            date,
		InstructorName:  req.Instructor.Name,
		InstructorEmail: req.Instructor.Email,
		CreatedAt:       now,
		StartedAt:       now,
		Location:        loc,
	}
	if err := c.sessions.Create(ctx, row); err != nil {
		c.setState(StateSetup)
		return session.Row{}, err
	}

	c.agg.Start(ctx, row.ID)
	if err := c.issuer.Start(ctx, row.ID, c.cfg.RotateInterval); err != nil {
		// The row exists but issuance never began; close the window so the
		// orphaned session cannot accept submissions.
		c.agg.Stop()
		if endErr := c.sessions.SetEnded(ctx, row.ID, now); endErr != nil {
			c.log.Error("lifecycle.orphan.fail", "session_id", row.ID, "err", endErr)
		}
		c.setState(StateSetup)
		return session.Row{}, err
	}

	c.mu.Lock()
	c.state = StateActive
	c.current = &row
	c.summary = nil
	c.mu.Unlock()

	c.log.Info("lifecycle.start",
		"session_id", row.ID,
		"subject", row.Subject,
		"section", row.Section,
		"has_location", loc != nil,
	)
	return row, nil
}

// captureLocation attempts a bounded location fix.
func (c *Controller) captureLocation(ctx context.Context) (*session.Location, error) {
	lctx, cancel := context.WithTimeout(ctx, c.cfg.LocationTimeout)
	defer cancel()

	loc, err := c.location.Current(lctx)
	if err != nil {
		return nil, ErrLocationUnavailable
	}
	return &loc, nil
}

// SetRotateInterval adjusts the rotation cadence of the active session. The
// requested interval is clamped to the configured band before it reaches the
// issuer.
func (c *Controller) SetRotateInterval(ctx context.Context, d time.Duration) (time.Duration, error) {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return 0, ErrNoActiveSession
	}
	c.mu.Unlock()

	clamped := clampInterval(d, c.cfg.MinRotateInterval, c.cfg.MaxRotateInterval)
	if err := c.issuer.SetInterval(ctx, clamped); err != nil {
		return 0, err
	}
	return clamped, nil
}

// IssueNow forces an out-of-cadence token for the active session.
func (c *Controller) IssueNow(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	c.mu.Unlock()
	return c.issuer.IssueNow(ctx)
}

// End closes the active session at the given instant. The end stamp is made
// durable first; only then do issuance and aggregation stop and the final
// summary is pulled. A failed end stamp leaves the session Active.
func (c *Controller) End(ctx context.Context, now time.Time) (roster.Summary, error) {
	c.mu.Lock()
	if c.state != StateActive || c.current == nil {
		c.mu.Unlock()
		return roster.Summary{}, ErrNoActiveSession
	}
	id := c.current.ID
	c.state = StateEnding
	c.mu.Unlock()

	if err := c.sessions.SetEnded(ctx, id, now); err != nil {
		c.setState(StateActive)
		return roster.Summary{}, err
	}

	c.issuer.Stop()

	sum, err := c.agg.Finalize(ctx, id)
	if err != nil {
		// The session is durably closed regardless; report what we have.
		c.log.Warn("lifecycle.finalize.fail", "session_id", id, "err", err)
		sum = roster.Summary{SessionID: id}
	}
	c.agg.Stop()

	c.mu.Lock()
	c.state = StateEnded
	if c.current != nil {
		c.current.EndedAt = &now
	}
	c.summary = &sum
	c.mu.Unlock()

	c.log.Info("lifecycle.end",
		"session_id", id,
		"tokens_issued", sum.TokenCount,
		"accepted", len(sum.Accepted),
		"rejected", len(sum.Rejected),
	)
	return sum, nil
}

// Logout tears the controller down. With a session active it requires
// explicit confirmation, then performs a full End so nothing is left open.
func (c *Controller) Logout(ctx context.Context, now time.Time, confirmed bool) error {
	c.mu.Lock()
	active := c.state == StateActive
	c.mu.Unlock()

	if active {
		if !confirmed {
			return ErrConfirmRequired
		}
		if _, err := c.End(ctx, now); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.state = StateSetup
	c.current = nil
	c.summary = nil
	c.mu.Unlock()

	c.log.Info("lifecycle.logout")
	return nil
}

// Reset returns an Ended controller to Setup for the next session.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateEnded {
		return
	}
	c.state = StateSetup
	c.current = nil
	c.summary = nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the session the controller owns, if any.
func (c *Controller) Current() (session.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return session.Row{}, false
	}
	return *c.current, true
}

// Summary returns the final summary of the last ended session, if any.
func (c *Controller) Summary() (roster.Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.summary == nil {
		return roster.Summary{}, false
	}
	return *c.summary, true
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
