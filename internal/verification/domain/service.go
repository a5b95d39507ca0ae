package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/habeshapay/receiptproof/internal/banks"
	"github.com/habeshapay/receiptproof/internal/extract"
	"github.com/habeshapay/receiptproof/internal/fetch"
	"github.com/habeshapay/receiptproof/internal/observability/metrics"
)

// Service is the verification pipeline interface.
type Service interface {
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	ListBanks() []banks.Descriptor
}

type service struct {
	registry  *banks.Registry
	fetcher   fetch.Fetcher
	extractor extract.Extractor
}

// NewService creates the verification pipeline. The pipeline holds no
// mutable state between calls; the registry is read-only, so any number
// of Verify calls may run concurrently.
func NewService(registry *banks.Registry, fetcher fetch.Fetcher, extractor extract.Extractor) *service {
	return &service{
		registry:  registry,
		fetcher:   fetcher,
		extractor: extractor,
	}
}

// ListBanks returns the descriptors of all supported banks.
func (s *service) ListBanks() []banks.Descriptor {
	return s.registry.List()
}

// Verify runs one request through the pipeline:
// resolve -> validate reference -> build URL -> fetch -> extract text ->
// parse fields -> check receiver account -> check reference round-trip.
// Every classified failure is returned in the result; the error return is
// reserved for context cancellation.
func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	client, ok := s.registry.Get(req.BankCode)
	if !ok {
		return failed(StageResolve, KindUnknownBank,
			fmt.Sprintf("bank %q is not supported", req.BankCode)), nil
	}

	// Pure pre-check; a rejected reference never reaches the network.
	reference, err := client.ValidateReference(req.Reference)
	if err != nil {
		return failed(StageRef, KindInvalidReferenceFormat, err.Error()), nil
	}

	url := client.ReceiptURL(req.ReceiverAccount, reference)

	fetchStart := time.Now()
	doc, err := s.fetcher.Fetch(ctx, url)
	metrics.FetchObserved(req.BankCode, time.Since(fetchStart))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failed(StageFetch, classifyFetch(err), err.Error()), nil
	}

	text, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return failed(StageExtract, KindUnextractableContent,
			fmt.Sprintf("document could not be decoded: %v", err)), nil
	}
	if strings.TrimSpace(text) == "" {
		// The document decoded but carries no selectable text; some
		// banks occasionally issue image-only receipts.
		return failed(StageExtract, KindUnextractableContent,
			"document contains no extractable text"), nil
	}

	receipt, err := client.ParseReceiptText(text)
	if err != nil {
		f := &Failure{Stage: StageParse, Kind: KindFieldParseFailure, Message: err.Error()}
		var parseErr *banks.ParseError
		if errors.As(err, &parseErr) {
			f.MissingFields = parseErr.Missing
		}
		return &VerifyResult{Failure: f}, nil
	}

	if err := client.MatchReceiverAccount(req.ReceiverAccount, receipt); err != nil {
		return failed(StageValidate, KindReceiverMismatch, err.Error()), nil
	}

	// Guard against the bank host returning the wrong document for a
	// malformed or reused URL: the reference parsed back out of the
	// receipt must be the one we asked about.
	if !referencesEqual(receipt.ReferenceNo, reference) {
		return failed(StageValidate, KindReferenceMismatch,
			fmt.Sprintf("receipt carries reference %q, requested %q", receipt.ReferenceNo, reference)), nil
	}

	return &VerifyResult{Verified: true, Receipt: receipt}, nil
}

func failed(stage Stage, kind Kind, message string) *VerifyResult {
	return &VerifyResult{Failure: &Failure{Stage: stage, Kind: kind, Message: message}}
}

func classifyFetch(err error) Kind {
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		return KindNotFoundOrInvalidReference
	case errors.Is(err, fetch.ErrNotYetAvailable):
		return KindNotYetAvailable
	default:
		return KindTransportUnavailable
	}
}

// referencesEqual compares references ignoring case and any embedded
// whitespace, which PDF extraction tends to scatter.
func referencesEqual(a, b string) bool {
	strip := func(s string) string {
		return strings.Join(strings.Fields(s), "")
	}
	return strings.EqualFold(strip(a), strip(b))
}
