// Package main provides a load harness for concurrent attendance submission.
//
// It validates, against a live database or fully in-memory:
//   - the duplicate-exclusion race (N identical claims, exactly one accept)
//   - throughput of distinct claims under concurrency
//   - proximity and token-window rejections under load
//
// By default it provisions a scratch session and token, fires all claims at
// once, and prints an outcome summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"rollcall/cmd/internal/session"
	"rollcall/cmd/internal/token"
	"rollcall/cmd/internal/verify"
	attendancev1 "rollcall/shared/contracts/attendance/v1"
)

type result struct {
	outcome verify.Outcome
	err     error
	took    time.Duration
}

func main() {
	_ = godotenv.Load()

	var (
		dbURL    = flag.String("db", os.Getenv("ROLLCALL_DATABASE_URL"), "Postgres URL (empty runs fully in-memory)")
		payload  = flag.String("payload", "", "Encoded display payload to target; empty provisions a scratch session and token")
		n        = flag.Int("n", 30, "Concurrent submissions")
		mode     = flag.String("mode", "same", "Claimant mode: same (duplicate race) or distinct")
		lat      = flag.Float64("lat", 28.6139, "Claimant latitude")
		lng      = flag.Float64("lng", 77.2090, "Claimant longitude")
		radius   = flag.Float64("radius", 50, "Proximity radius in meters (0 disables)")
		validity = flag.Duration("validity", 60*time.Second, "Scratch token validity window")
		timeout  = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Parse()

	if *n <= 0 {
		fatalf("invalid -n: %d", *n)
	}
	if *mode != "same" && *mode != "distinct" {
		fatalf("invalid -mode: %q", *mode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	sessions, tokens, records, cleanup := mustStores(ctx, *dbURL)
	defer cleanup()

	verifier := verify.NewService(log, verify.Config{ProximityRadiusM: *radius}, sessions, tokens, records)

	target := mustTarget(ctx, *payload, *lat, *lng, *validity, sessions, tokens)
	fmt.Printf("target: session=%s token=%s mode=%s n=%d\n", target.SessionID, target.TokenID, *mode, *n)

	results := make([]result, *n)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < *n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			contact := "loadtest@example.edu"
			name := "Load Tester"
			if *mode == "distinct" {
				contact = fmt.Sprintf("student%03d@example.edu", i)
				name = fmt.Sprintf("Student %03d", i)
			}

			<-start
			began := time.Now()
			out, err := verifier.Submit(ctx, time.Now().UTC(), verify.Submission{
				TokenID:         target.TokenID,
				SessionID:       target.SessionID,
				ClaimantName:    name,
				ClaimantContact: contact,
				Latitude:        *lat,
				Longitude:       *lng,
				SubmittedAt:     time.Now().UTC(),
			})
			results[i] = result{outcome: out, err: err, took: time.Since(began)}
		}(i)
	}

	close(start)
	wg.Wait()

	summarize(results)
}

// mustStores wires either Postgres-backed or in-memory stores.
func mustStores(ctx context.Context, dbURL string) (session.Store, token.Store, verify.Store, func()) {
	if dbURL == "" {
		return session.NewMemoryStore(), token.NewMemoryStore(), verify.NewMemoryStore(), func() {}
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fatalf("db connect: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		fatalf("db ping: %v", err)
	}
	return session.NewPostgresStore(pool), token.NewPostgresStore(pool), verify.NewPostgresStore(pool), pool.Close
}

// mustTarget resolves the token and session to hit: a decoded display
// payload, or a freshly provisioned scratch pair.
func mustTarget(ctx context.Context, payload string, lat, lng float64, validity time.Duration, sessions session.Store, tokens token.Store) attendancev1.Payload {
	if payload != "" {
		p, err := attendancev1.Decode(payload)
		if err != nil {
			fatalf("invalid -payload: %v", err)
		}
		return p
	}

	now := time.Now().UTC()
	row := session.Row{
		ID:              session.NewID("LoadTest", "A", now.Format("2006-01-02"), now),
		Subject:         "LoadTest",
		Section:         "A",
		Date:            now.Format("2006-01-02"),
		InstructorName:  "Load Harness",
		InstructorEmail: "loadgen@example.edu",
		CreatedAt:       now,
		StartedAt:       now,
		Location:        &session.Location{Latitude: lat, Longitude: lng},
	}
	if err := sessions.Create(ctx, row); err != nil {
		fatalf("create session: %v", err)
	}

	tok, err := token.Mint(row.ID, now, validity)
	if err != nil {
		fatalf("mint token: %v", err)
	}
	if err := tokens.Insert(ctx, tok); err != nil {
		fatalf("insert token: %v", err)
	}

	return attendancev1.Payload{TokenID: tok.ID, SessionID: row.ID}
}

func summarize(results []result) {
	var (
		accepted int
		errs     int
		reasons  = map[verify.Reason]int{}
		total    time.Duration
		min, max time.Duration
	)
	for _, r := range results {
		if r.err != nil {
			errs++
			fmt.Fprintf(os.Stderr, "submit error: %v\n", r.err)
			continue
		}
		if r.outcome.Accepted {
			accepted++
		} else {
			reasons[r.outcome.Reason]++
		}
		total += r.took
		if min == 0 || r.took < min {
			min = r.took
		}
		if r.took > max {
			max = r.took
		}
	}

	fmt.Printf("accepted=%d errors=%d\n", accepted, errs)
	for reason, count := range reasons {
		fmt.Printf("rejected %s=%d\n", reason, count)
	}
	if done := len(results) - errs; done > 0 {
		fmt.Printf("latency min=%s avg=%s max=%s\n", min, total/time.Duration(done), max)
	}
	if errs > 0 {
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "loadgen: "+format+"\n", args...)
	os.Exit(1)
}
