// Package app wires the rollcall runtime: config, logging, persistence, and
// the session lifecycle components.
//
// One process runs one instructor session from start to end. Claimant
// submissions arrive through the shared database (see cmd/loadgen and the
// verify package); this process owns issuance, aggregation, and the
// lifecycle itself.
package app

import (
	"context"

	"rollcall/cmd/internal/lifecycle"
	"rollcall/cmd/internal/roster"
	"rollcall/cmd/internal/session"
	"rollcall/cmd/internal/token"
	"rollcall/cmd/internal/verify"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the rollcall runtime: it owns the stores and the lifecycle
// controller for the one session this process runs.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	sessions session.Store
	tokens   token.Store
	records  verify.Store

	issuer *token.Issuer
	agg    *roster.Aggregator
	ctl    *lifecycle.Controller
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	a := &App{cfg: cfg, log: log}

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		a.sessions = session.NewMemoryStore()
		a.tokens = token.NewMemoryStore()
		a.records = verify.NewMemoryStore()
	} else {
		pool, err := NewDBPool(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		log.Info("db.enabled.postgres_store")
		a.dbPool = pool
		a.dbEnabled = true
		a.sessions = session.NewPostgresStore(pool)
		a.tokens = token.NewPostgresStore(pool)
		a.records = verify.NewPostgresStore(pool)
	}

	a.issuer = token.NewIssuer(log, a.tokens)
	a.agg = roster.NewAggregator(log, a.records, a.tokens, cfg.PollInterval)

	var loc lifecycle.LocationProvider
	if cfg.HasLocation {
		loc = lifecycle.FixedLocation{Latitude: cfg.Latitude, Longitude: cfg.Longitude}
	}

	a.ctl = lifecycle.NewController(log, lifecycle.Config{
		RotateInterval:  cfg.RotateInterval,
		LocationTimeout: cfg.LocationTimeout,
	}, a.sessions, a.issuer, a.agg, loc)

	return a, nil
}

// Controller exposes the lifecycle controller, mainly for tests.
func (a *App) Controller() *lifecycle.Controller { return a.ctl }

// Verifier builds a claimant-side verifier over the app's stores. The daemon
// itself does not accept submissions; this exists for in-process use such as
// tests and the in-memory mode.
func (a *App) Verifier() *verify.Service {
	return verify.NewService(a.log, verify.Config{ProximityRadiusM: a.cfg.ProximityRadiusM},
		a.sessions, a.tokens, a.records)
}

// Close releases the app's resources.
func (a *App) Close() {
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}
