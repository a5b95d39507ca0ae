package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/habeshapay/receiptproof/internal/banks"
	"github.com/habeshapay/receiptproof/internal/observability/metrics"
	"github.com/habeshapay/receiptproof/internal/storage"
)

// LoggingMiddleware returns a service middleware that logs every
// verification and records its outcome metric. TransportUnavailable is
// the only outcome logged as an operational fault; every other kind is
// an expected, user-facing result.
func LoggingMiddleware(logger *slog.Logger) func(Service) Service {
	return func(next Service) Service {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

type loggingMiddleware struct {
	next   Service
	logger *slog.Logger
}

func (m *loggingMiddleware) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	start := time.Now()
	result, err := m.next.Verify(ctx, req)

	if err != nil {
		m.logger.Warn("Verify aborted",
			"bank", req.BankCode,
			"reference", req.Reference,
			"duration", time.Since(start),
			"error", err,
		)
		return result, err
	}

	metrics.Verification(req.BankCode, result.Outcome())

	if !result.Verified && result.Failure.Kind == KindTransportUnavailable {
		m.logger.Error("Verify transport failure",
			"bank", req.BankCode,
			"reference", req.Reference,
			"duration", time.Since(start),
			"message", result.Failure.Message,
		)
		return result, nil
	}

	m.logger.Info("Verify",
		"bank", req.BankCode,
		"reference", req.Reference,
		"outcome", result.Outcome(),
		"duration", time.Since(start),
	)
	return result, nil
}

func (m *loggingMiddleware) ListBanks() []banks.Descriptor {
	return m.next.ListBanks()
}

// AttemptRecorder is the storage capability the audit middleware needs.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, a *storage.Attempt) error
}

// AuditMiddleware returns a service middleware that records every
// verification attempt. Only the request identifiers and the classified
// outcome are stored; parsed receipt contents are never persisted.
func AuditMiddleware(store AttemptRecorder, logger *slog.Logger) func(Service) Service {
	return func(next Service) Service {
		return &auditMiddleware{next: next, store: store, logger: logger}
	}
}

type auditMiddleware struct {
	next   Service
	store  AttemptRecorder
	logger *slog.Logger
}

func (m *auditMiddleware) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	start := time.Now()
	result, err := m.next.Verify(ctx, req)
	if err != nil {
		return result, err
	}

	attempt := &storage.Attempt{
		BankCode:   req.BankCode,
		Reference:  req.Reference,
		Verified:   result.Verified,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if result.Failure != nil {
		attempt.Stage = string(result.Failure.Stage)
		attempt.Kind = string(result.Failure.Kind)
	}

	// Best effort: a broken audit trail must not fail a verification
	// the bank has already confirmed.
	if recErr := m.store.RecordAttempt(ctx, attempt); recErr != nil {
		m.logger.Warn("recording verification attempt failed", "error", recErr)
	}

	return result, nil
}

func (m *auditMiddleware) ListBanks() []banks.Descriptor {
	return m.next.ListBanks()
}
