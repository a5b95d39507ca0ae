// Package fetch downloads receipt documents from bank hosts and
// classifies transport-level failures.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Classified fetch outcomes. Callers branch on these with errors.Is.
var (
	// ErrNotFound: the host answered with a terminal non-success status.
	// Indistinguishable from "the reference does not exist".
	ErrNotFound = errors.New("receipt not found or invalid reference")

	// ErrNotYetAvailable: the host answered 200 but the body is empty or
	// not a PDF yet. The bank may still be generating the receipt.
	ErrNotYetAvailable = errors.New("receipt not yet available")

	// ErrUnavailable: DNS, timeout, connection or unexpected TLS
	// failure. The only retryable, operator-facing class.
	ErrUnavailable = errors.New("receipt host unavailable")
)

// pdfSignature is the magic prefix of every PDF document.
const pdfSignature = "%PDF-"

// DefaultTimeout bounds one receipt download end to end.
const DefaultTimeout = 15 * time.Second

// maxReceiptSize caps the response body. Real receipts are a few hundred
// kilobytes; anything larger is not a receipt.
const maxReceiptSize = 10 << 20

// Fetcher retrieves a receipt document by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches receipts over HTTPS from bank-controlled hosts.
type HTTPFetcher struct {
	client *http.Client
}

// New creates a fetcher with the given per-request timeout (DefaultTimeout
// when zero).
//
// Certificate verification is disabled on purpose: the supported banks
// serve receipts behind certificates that do not chain to a public root
// (CBE's host in particular), and the documents fetched are themselves
// the thing being verified. This is a deliberate trust decision limited
// to receipt downloads, not a general-purpose client.
func New(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- see New
			},
			// Bank hosts occasionally bounce through one redirect.
			// Anything beyond that is treated as a broken host.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > 1 {
					return errors.New("stopped after one redirect")
				}
				return nil
			},
		},
	}
}

// Fetch downloads the document at url and returns its bytes, or one of
// the classified sentinel errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", "receiptproof/1.0")
	req.Header.Set("Accept", "application/pdf")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := f.client.Do(req)
	if err != nil {
		// Covers DNS failure, timeouts, refused connections, TLS
		// breakage beyond the tolerated self-signed case, redirect
		// loops and redirects without a Location header.
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: host answered %d", ErrNotFound, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReceiptSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrNotYetAvailable)
	}
	if !strings.HasPrefix(string(body), pdfSignature) {
		return nil, fmt.Errorf("%w: body is not a PDF document", ErrNotYetAvailable)
	}

	return body, nil
}
