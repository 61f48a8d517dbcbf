// Package metrics defines the Prometheus collectors shared across the
// rollcall runtime. Collectors register on the default registry; the app
// exposes them on an optional listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokensIssued counts tokens minted and persisted by the issuer.
	TokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_tokens_issued_total",
		Help: "Tokens minted, persisted, and published as current.",
	})

	// TokenPersistFailures counts issuance attempts whose durable write failed.
	// Such tokens are never published as current.
	TokenPersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_token_persist_failures_total",
		Help: "Token issuance attempts dropped because the durable write failed.",
	})

	// Submissions counts verifier decisions by outcome and rejection reason.
	// Accepted submissions carry reason="".
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_submissions_total",
		Help: "Attendance submissions by outcome and rejection reason.",
	}, []string{"outcome", "reason"})

	// AggregatorPolls counts roster polls that completed.
	AggregatorPolls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_aggregator_polls_total",
		Help: "Roster polls completed against the store.",
	})

	// AggregatorPollFailures counts roster polls that were skipped on error.
	AggregatorPollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_aggregator_poll_failures_total",
		Help: "Roster polls skipped because a store read failed.",
	})
)
