package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habeshapay/receiptproof/internal/banks"
	"github.com/habeshapay/receiptproof/internal/storage"
)

// fixedService returns a canned result
type fixedService struct {
	result *VerifyResult
	err    error
}

func (s *fixedService) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	return s.result, s.err
}

func (s *fixedService) ListBanks() []banks.Descriptor { return nil }

// captureRecorder captures recorded attempts
type captureRecorder struct {
	attempts []*storage.Attempt
	err      error
}

func (r *captureRecorder) RecordAttempt(ctx context.Context, a *storage.Attempt) error {
	if r.err != nil {
		return r.err
	}
	r.attempts = append(r.attempts, a)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuditMiddleware_RecordsVerified(t *testing.T) {
	inner := &fixedService{result: &VerifyResult{Verified: true, Receipt: &banks.Receipt{}}}
	recorder := &captureRecorder{}
	svc := AuditMiddleware(recorder, discardLogger())(inner)

	result, err := svc.Verify(context.Background(), VerifyRequest{
		BankCode:        "CBE",
		Reference:       "FT24123ABCDE",
		ReceiverAccount: "1000000004532",
	})
	require.NoError(t, err)
	assert.True(t, result.Verified)

	require.Len(t, recorder.attempts, 1)
	a := recorder.attempts[0]
	assert.Equal(t, "CBE", a.BankCode)
	assert.Equal(t, "FT24123ABCDE", a.Reference)
	assert.True(t, a.Verified)
	assert.Empty(t, a.Stage)
	assert.Empty(t, a.Kind)
}

func TestAuditMiddleware_RecordsFailure(t *testing.T) {
	inner := &fixedService{result: &VerifyResult{Failure: &Failure{
		Stage:   StageFetch,
		Kind:    KindNotYetAvailable,
		Message: "receipt not yet available",
	}}}
	recorder := &captureRecorder{}
	svc := AuditMiddleware(recorder, discardLogger())(inner)

	_, err := svc.Verify(context.Background(), VerifyRequest{BankCode: "CBE", Reference: "FT24123ABCDE"})
	require.NoError(t, err)

	require.Len(t, recorder.attempts, 1)
	assert.Equal(t, "fetch", recorder.attempts[0].Stage)
	assert.Equal(t, "NOT_YET_AVAILABLE", recorder.attempts[0].Kind)
	assert.False(t, recorder.attempts[0].Verified)
}

func TestAuditMiddleware_StoreFailureDoesNotFailVerification(t *testing.T) {
	inner := &fixedService{result: &VerifyResult{Verified: true, Receipt: &banks.Receipt{}}}
	recorder := &captureRecorder{err: errors.New("disk full")}
	svc := AuditMiddleware(recorder, discardLogger())(inner)

	result, err := svc.Verify(context.Background(), VerifyRequest{BankCode: "CBE", Reference: "FT24123ABCDE"})
	require.NoError(t, err)
	assert.True(t, result.Verified)
}

func TestAuditMiddleware_SkipsAbortedVerifications(t *testing.T) {
	inner := &fixedService{err: context.Canceled}
	recorder := &captureRecorder{}
	svc := AuditMiddleware(recorder, discardLogger())(inner)

	_, err := svc.Verify(context.Background(), VerifyRequest{BankCode: "CBE", Reference: "FT24123ABCDE"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recorder.attempts)
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	inner := &fixedService{result: &VerifyResult{Failure: &Failure{
		Stage: StageValidate,
		Kind:  KindReceiverMismatch,
	}}}
	svc := LoggingMiddleware(discardLogger())(inner)

	result, err := svc.Verify(context.Background(), VerifyRequest{BankCode: "CBE", Reference: "FT24123ABCDE"})
	require.NoError(t, err)
	assert.Equal(t, KindReceiverMismatch, result.Failure.Kind)
}
