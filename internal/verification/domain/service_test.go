package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habeshapay/receiptproof/internal/banks"
	"github.com/habeshapay/receiptproof/internal/banks/cbe"
	"github.com/habeshapay/receiptproof/internal/fetch"
)

const cbeReceiptText = `Commercial Bank of Ethiopia
Payer John Doe
Account 1****6789
Receiver Store X
Account 1****4532
Payment Date & Time 7/25/2024, 3:45:12 PM
Reference No. (VAT Invoice No) FT24123ABCDE
Reason / Type of service Transfer to Store X
Transferred Amount 500.00 ETB
Commission or Service Charge 0.00 ETB
15% VAT on Commission 0.00 ETB
Total amount debited from customers account 500.00 ETB
`

// mockFetcher implements fetch.Fetcher and counts calls
type mockFetcher struct {
	calls   int
	lastURL string
	doc     []byte
	err     error
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.calls++
	m.lastURL = url
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

// mockExtractor implements extract.Extractor
type mockExtractor struct {
	text string
	err  error
}

func (m *mockExtractor) Extract(ctx context.Context, doc []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func newTestService(t *testing.T, fetcher fetch.Fetcher, extractor *mockExtractor) Service {
	t.Helper()
	registry := banks.NewRegistry()
	require.NoError(t, registry.Register(cbe.New("")))
	return NewService(registry, fetcher, extractor)
}

func validRequest() VerifyRequest {
	return VerifyRequest{
		BankCode:        "CBE",
		Reference:       "FT24123ABCDE",
		ReceiverAccount: "1000000004532",
	}
}

func TestVerify_Success(t *testing.T) {
	fetcher := &mockFetcher{doc: []byte("%PDF-1.7 stub")}
	extractor := &mockExtractor{text: cbeReceiptText}
	svc := newTestService(t, fetcher, extractor)

	result, err := svc.Verify(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Nil(t, result.Failure)
	require.NotNil(t, result.Receipt)
	assert.Equal(t, "John Doe", result.Receipt.SenderName)
	assert.Equal(t, "FT24123ABCDE", result.Receipt.ReferenceNo)
	assert.Equal(t, "500.00 ETB", result.Receipt.TransferredAmount)
	assert.Equal(t, "verified", result.Outcome())

	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "https://apps.cbe.com.et:100/?id=FT24123ABCDE00004532", fetcher.lastURL)
}

func TestVerify_UnknownBank(t *testing.T) {
	fetcher := &mockFetcher{doc: []byte("%PDF-1.7 stub")}
	svc := newTestService(t, fetcher, &mockExtractor{text: cbeReceiptText})

	req := validRequest()
	req.BankCode = "TELEBIRR"
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.Verified)
	require.NotNil(t, result.Failure)
	assert.Equal(t, StageResolve, result.Failure.Stage)
	assert.Equal(t, KindUnknownBank, result.Failure.Kind)
	assert.Equal(t, 0, fetcher.calls)
}

func TestVerify_InvalidReferenceSkipsNetwork(t *testing.T) {
	fetcher := &mockFetcher{doc: []byte("%PDF-1.7 stub")}
	svc := newTestService(t, fetcher, &mockExtractor{text: cbeReceiptText})

	req := validRequest()
	req.Reference = "not-a-reference"
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.Verified)
	require.NotNil(t, result.Failure)
	assert.Equal(t, StageRef, result.Failure.Stage)
	assert.Equal(t, KindInvalidReferenceFormat, result.Failure.Kind)
	assert.False(t, result.Failure.Kind.Retryable())

	// The rejected reference must never reach the bank host
	assert.Equal(t, 0, fetcher.calls)
}

func TestVerify_FetchClassification(t *testing.T) {
	tests := []struct {
		name      string
		fetchErr  error
		wantKind  Kind
		retryable bool
	}{
		{"not found", fetch.ErrNotFound, KindNotFoundOrInvalidReference, false},
		{"not yet available", fetch.ErrNotYetAvailable, KindNotYetAvailable, true},
		{"host unavailable", fetch.ErrUnavailable, KindTransportUnavailable, true},
		{"unclassified transport error", errors.New("connection reset"), KindTransportUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{err: tt.fetchErr}
			svc := newTestService(t, fetcher, &mockExtractor{text: cbeReceiptText})

			result, err := svc.Verify(context.Background(), validRequest())
			require.NoError(t, err)

			assert.False(t, result.Verified)
			require.NotNil(t, result.Failure)
			assert.Equal(t, StageFetch, result.Failure.Stage)
			assert.Equal(t, tt.wantKind, result.Failure.Kind)
			assert.Equal(t, tt.retryable, result.Failure.Kind.Retryable())
		})
	}
}

func TestVerify_ExtractError(t *testing.T) {
	fetcher := &mockFetcher{doc: []byte("%PDF-1.7 stub")}
	svc := newTestService(t, fetcher, &mockExtractor{err: errors.New("malformed xref table")})

	result, err := svc.Verify(context.Background(), validRequest())
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, StageExtract, result.Failure.Stage)
	assert.Equal(t, KindUnextractableContent, result.Failure.Kind)
}

func TestVerify_EmptyText(t *testing.T) {
	fetcher := &mockFetcher{doc: []byte("%PDF-1.7 stub")}
	svc := newTestService(t, fetcher, &mockExtractor{text: "   \n\n  "})

	result, err := svc.Verify(context.Background(), validRequest())
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, StageExtract, result.Failure.Stage)
	assert.Equal(t, KindUnextractableContent, result.Failure.Kind)
}

func TestVerify_ParseFailureCarriesMissingFields(t *testing.T) {
	// Receipt text without the amount row
	text := `Payer John Doe
Account 1****6789
Receiver Store X
Account 1****4532
Reference No. (VAT Invoice No) FT24123ABCDE
`
	fetcher := &mockFetcher{doc: []byte("%PDF-1.7 stub")}
	svc := newTestService(t, fetcher, &mockExtractor{text: text})

	result, err := svc.Verify(context.Background(), validRequest())
	require.NoError(t, err)

	assert.False(t, result.Verified)
	require.NotNil(t, result.Failure)
	assert.Equal(t, StageParse, result.Failure.Stage)
	assert.Equal(t, KindFieldParseFailure, result.Failure.Kind)
	assert.Equal(t, []string{"transferredAmount"}, result.Failure.MissingFields)
}

func TestVerify_ReceiverMismatch(t *testing.T) {
	fetcher := &mockFetcher{doc: []byte("%PDF-1.7 stub")}
	svc := newTestService(t, fetcher, &mockExtractor{text: cbeReceiptText})

	req := validRequest()
	req.ReceiverAccount = "1000000009999"
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, StageValidate, result.Failure.Stage)
	assert.Equal(t, KindReceiverMismatch, result.Failure.Kind)
	assert.False(t, result.Failure.Kind.Retryable())
}

func TestVerify_ReferenceMismatch(t *testing.T) {
	// The host answered with a document, but the receipt inside carries
	// a different reference than the one requested.
	fetcher := &mockFetcher{doc: []byte("%PDF-1.7 stub")}
	svc := newTestService(t, fetcher, &mockExtractor{text: cbeReceiptText})

	req := validRequest()
	req.Reference = "FT99999ZZZZZ"
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Equal(t, StageValidate, result.Failure.Stage)
	assert.Equal(t, KindReferenceMismatch, result.Failure.Kind)
}

func TestVerify_NormalizedReferenceAccepted(t *testing.T) {
	// Lowercase input normalizes to the reference printed on the receipt
	fetcher := &mockFetcher{doc: []byte("%PDF-1.7 stub")}
	svc := newTestService(t, fetcher, &mockExtractor{text: cbeReceiptText})

	req := validRequest()
	req.Reference = "ft24123abcde"
	result, err := svc.Verify(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Verified)
}

func TestVerify_ContextCanceledDuringFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &cancelingFetcher{cancel: cancel}
	svc := newTestService(t, fetcher, &mockExtractor{text: cbeReceiptText})

	result, err := svc.Verify(ctx, validRequest())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelingFetcher cancels the request context and fails, simulating a
// download aborted by client disconnect.
type cancelingFetcher struct {
	cancel context.CancelFunc
}

func (f *cancelingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.cancel()
	return nil, ctx.Err()
}

func TestReferencesEqual(t *testing.T) {
	assert.True(t, referencesEqual("FT24123ABCDE", "FT24123ABCDE"))
	assert.True(t, referencesEqual("ft24123abcde", "FT24123ABCDE"))
	assert.True(t, referencesEqual("FT 24123 ABCDE", "FT24123ABCDE"))
	assert.False(t, referencesEqual("FT24123ABCDE", "FT99999ZZZZZ"))
	assert.False(t, referencesEqual("", "FT24123ABCDE"))
}

func TestKindRetryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindUnknownBank:                false,
		KindInvalidReferenceFormat:     false,
		KindNotFoundOrInvalidReference: false,
		KindNotYetAvailable:            true,
		KindTransportUnavailable:       true,
		KindUnextractableContent:       false,
		KindFieldParseFailure:          false,
		KindReceiverMismatch:           false,
		KindReferenceMismatch:          false,
	}
	for kind, want := range retryable {
		assert.Equal(t, want, kind.Retryable(), "kind %s", kind)
	}
}

func TestListBanks(t *testing.T) {
	svc := newTestService(t, &mockFetcher{}, &mockExtractor{})

	list := svc.ListBanks()
	require.Len(t, list, 1)
	assert.Equal(t, "CBE", list[0].Code)
}
