package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"rollcall/cmd/internal/lifecycle"
	"rollcall/cmd/internal/roster"
	"rollcall/cmd/internal/session"
	attendancev1 "rollcall/shared/contracts/attendance/v1"
)

// Run is the CLI entrypoint used by cmd/rollcall.
// It returns an error instead of calling os.Exit to keep defers effective.
func Run() error {
	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel)

	a, err := New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.Run(ctx)
}

// Run starts one session and blocks until ctx is cancelled, then ends it and
// emits the final report. The session components run on their own contexts;
// ctx cancellation only triggers the orderly end.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	stopMetrics := startMetrics(a.log, a.cfg.MetricsAddr)

	now := time.Now().UTC()
	row, err := a.ctl.Start(context.Background(), now, lifecycle.StartRequest{
		Subject: a.cfg.Subject,
		Section: a.cfg.Section,
		Date:    a.cfg.Date,
		Instructor: session.Instructor{
			Name:  a.cfg.InstructorName,
			Email: a.cfg.InstructorEmail,
		},
		AllowNoLocation: a.cfg.AllowNoLocation,
	})
	if err != nil {
		return err
	}
	a.log.Info("session.active", "session_id", row.ID, "db_enabled", a.dbEnabled)

	go a.announceTokens(ctx)

	<-ctx.Done()
	a.log.Info("session.stop", "reason", "context_done")

	endCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	sum, err := a.ctl.End(endCtx, time.Now().UTC())
	if err != nil {
		stopMetrics(endCtx)
		return err
	}

	for _, r := range roster.BuildReport(sum.Accepted) {
		a.log.Info("report.row",
			"name", r.Name,
			"contact", r.Contact,
			"status", r.Status,
			"marked_at", r.MarkedAt,
			"distance", r.Distance(),
		)
	}
	a.log.Info("report.done",
		"session_id", sum.SessionID,
		"tokens_issued", sum.TokenCount,
		"accepted", len(sum.Accepted),
		"rejected", len(sum.Rejected),
	)

	stopMetrics(endCtx)
	return nil
}

// announceTokens logs the encoded display payload whenever the current token
// changes. This is the daemon's stand-in for rendering the QR code.
func (a *App) announceTokens(ctx context.Context) {
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			tok, ok := a.issuer.Current()
			if !ok || tok.ID == last {
				continue
			}
			last = tok.ID

			payload, err := attendancev1.Encode(attendancev1.Payload{
				TokenID:   tok.ID,
				SessionID: tok.SessionID,
			})
			if err != nil {
				a.log.Warn("display.encode.fail", "token_id", tok.ID, "err", err)
				continue
			}
			a.log.Info("display.token",
				"payload", payload,
				"expires_at", tok.ExpiresAt,
				"countdown", a.issuer.Countdown(),
			)
		}
	}
}
