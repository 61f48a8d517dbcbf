package verify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rollcall/cmd/internal/metrics"
	"rollcall/cmd/internal/session"
	"rollcall/cmd/internal/token"
)

// Config holds verifier policy.
type Config struct {
	// ProximityRadiusM is the accept threshold for the distance between
	// claimant and instructor. Zero disables the proximity check even when
	// the session carries a location.
	ProximityRadiusM float64
}

// Service is the reference Verifier implementation over the durable stores.
//
// It performs the read-only checks itself and delegates the one racy step,
// the duplicate-check-and-insert per (session, claimant), to the store's
// atomicity guarantees.
type Service struct {
	log      *slog.Logger
	cfg      Config
	sessions session.Store
	tokens   token.Store
	records  Store
}

// NewService constructs a verifier over the given stores.
func NewService(log *slog.Logger, cfg Config, sessions session.Store, tokens token.Store, records Store) *Service {
	return &Service{log: log, cfg: cfg, sessions: sessions, tokens: tokens, records: records}
}

// Submit evaluates one attendance claim at the given instant.
//
// Rejections are routine outcomes, not errors: they are recorded for audit
// and returned with their reason. The error return is reserved for store
// failures on the accept path.
func (s *Service) Submit(ctx context.Context, now time.Time, sub Submission) (Outcome, error) {
	if strings.TrimSpace(sub.TokenID) == "" ||
		strings.TrimSpace(sub.SessionID) == "" ||
		strings.TrimSpace(sub.ClaimantName) == "" ||
		strings.TrimSpace(sub.ClaimantContact) == "" {
		return Outcome{}, ErrInvalidSubmission
	}

	// 1. Token must exist, belong to the stated session, and be inside its
	// validity window at evaluation time.
	tok, err := s.tokens.GetByID(ctx, sub.TokenID)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return s.reject(ctx, now, sub, ReasonTokenExpiredOrInvalid), nil
		}
		return Outcome{}, err
	}
	if tok.SessionID != sub.SessionID || !tok.ValidAt(now) {
		return s.reject(ctx, now, sub, ReasonTokenExpiredOrInvalid), nil
	}

	// 2. Session must still be open.
	sess, err := s.sessions.GetByID(ctx, sub.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return s.reject(ctx, now, sub, ReasonSessionClosed), nil
		}
		return Outcome{}, err
	}
	if !sess.Open() {
		return s.reject(ctx, now, sub, ReasonSessionClosed), nil
	}

	// 3. Proximity, only when an instructor location was recorded and a
	// threshold is configured. Without a location the submission proceeds on
	// token and identity grounds alone.
	var distance *float64
	if sess.Location != nil {
		d := DistanceM(sess.Location.Latitude, sess.Location.Longitude, sub.Latitude, sub.Longitude)
		distance = &d
		if s.cfg.ProximityRadiusM > 0 && d > s.cfg.ProximityRadiusM {
			out := s.reject(ctx, now, sub, ReasonOutOfRange)
			out.DistanceM = distance
			return out, nil
		}
	}

	// 4+5. Atomic duplicate-check-and-insert, then accept.
	rec := AttendanceRecord{
		SessionID:       sub.SessionID,
		TokenID:         sub.TokenID,
		ClaimantName:    sub.ClaimantName,
		ClaimantContact: sub.ClaimantContact,
		ClaimantPhone:   sub.ClaimantPhone,
		Latitude:        sub.Latitude,
		Longitude:       sub.Longitude,
		DistanceM:       distance,
		SubmittedAt:     sub.SubmittedAt,
		RecordedAt:      now,
	}
	if err := s.records.InsertAccepted(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			out := s.reject(ctx, now, sub, ReasonDuplicateSubmission)
			out.DistanceM = distance
			return out, nil
		}
		return Outcome{}, err
	}

	metrics.Submissions.WithLabelValues("accepted", "").Inc()
	s.log.Info("verify.accept",
		"session_id", sub.SessionID,
		"token_id", sub.TokenID,
		"contact", sub.ClaimantContact,
	)
	return Outcome{Accepted: true, DistanceM: distance}, nil
}

// reject records the audit row and returns the rejection outcome. A failed
// audit write degrades to a log entry; the decision stands either way.
func (s *Service) reject(ctx context.Context, now time.Time, sub Submission, reason Reason) Outcome {
	rej := RejectedSubmission{
		SessionID:       sub.SessionID,
		TokenID:         sub.TokenID,
		ClaimantName:    sub.ClaimantName,
		ClaimantContact: sub.ClaimantContact,
		ClaimantPhone:   sub.ClaimantPhone,
		Latitude:        sub.Latitude,
		Longitude:       sub.Longitude,
		Reason:          reason,
		SubmittedAt:     sub.SubmittedAt,
		RecordedAt:      now,
	}
	if err := s.records.InsertRejected(ctx, rej); err != nil {
		s.log.Warn("verify.audit.fail",
			"session_id", sub.SessionID,
			"contact", sub.ClaimantContact,
			"reason", string(reason),
			"err", err,
		)
	}

	metrics.Submissions.WithLabelValues("rejected", string(reason)).Inc()
	s.log.Info("verify.reject",
		"session_id", sub.SessionID,
		"token_id", sub.TokenID,
		"contact", sub.ClaimantContact,
		"reason", string(reason),
	)
	return Outcome{Accepted: false, Reason: reason}
}
