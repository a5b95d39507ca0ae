// Package client provides a Go client for the Receiptproof API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a Receiptproof API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new Receiptproof client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			// Verification waits on the bank host; leave headroom
			// above the server's own fetch timeout.
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Bank describes one supported bank.
type Bank struct {
	Code                 string `json:"code"`
	DisplayName          string `json:"displayName"`
	LogoURL              string `json:"logoUrl,omitempty"`
	ReferenceLabel       string `json:"referenceLabel"`
	ReferencePlaceholder string `json:"referencePlaceholder"`
}

// Receipt is the structured receipt returned for a verified payment.
type Receipt struct {
	SenderName            string `json:"senderName"`
	SenderBank            string `json:"senderBank,omitempty"`
	SenderAccountNumber   string `json:"senderAccountNumber,omitempty"`
	ReceiverName          string `json:"receiverName,omitempty"`
	ReceiverBank          string `json:"receiverBank,omitempty"`
	ReceiverAccountNumber string `json:"receiverAccountNumber,omitempty"`
	Narrative             string `json:"narrative,omitempty"`
	PaymentDateTime       string `json:"paymentDateTime,omitempty"`
	ReferenceNo           string `json:"referenceNo"`
	TransferredAmount     string `json:"transferredAmount"`
	Commission            string `json:"commission,omitempty"`
	VAT                   string `json:"vat,omitempty"`
	TotalAmount           string `json:"totalAmount,omitempty"`
}

// Failure is a classified verification failure.
type Failure struct {
	Stage         string   `json:"stage"`
	Kind          string   `json:"kind"`
	Message       string   `json:"message"`
	Retryable     bool     `json:"retryable"`
	MissingFields []string `json:"missingFields,omitempty"`
}

// VerifyRequest is the request for verifying a payment.
type VerifyRequest struct {
	BankCode        string `json:"bankCode"`
	Reference       string `json:"reference"`
	ReceiverAccount string `json:"receiverAccount"`
}

// VerifyResult is the tagged verification outcome.
type VerifyResult struct {
	Verified bool     `json:"verified"`
	Receipt  *Receipt `json:"receipt,omitempty"`
	Failure  *Failure `json:"failure,omitempty"`
}

// APIError is an error response from the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Verify verifies one bank transfer.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	var result VerifyResult
	if err := c.post(ctx, "/api/v1/verify", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListBanks returns the supported banks.
func (c *Client) ListBanks(ctx context.Context) ([]Bank, error) {
	var resp struct {
		Banks []Bank `json:"banks"`
	}
	if err := c.get(ctx, "/api/v1/banks", &resp); err != nil {
		return nil, err
	}
	return resp.Banks, nil
}

// Attempt is one audit trail record.
type Attempt struct {
	ID         string `json:"id"`
	BankCode   string `json:"bankCode"`
	Reference  string `json:"reference"`
	Stage      string `json:"stage,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Verified   bool   `json:"verified"`
	DurationMS int64  `json:"durationMs"`
	CreatedAt  string `json:"createdAt"`
}

// ListAttempts returns recent verification attempts (requires an API key).
func (c *Client) ListAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	var resp struct {
		Attempts []Attempt `json:"attempts"`
	}
	path := "/api/v1/attempts"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Attempts, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Code != "" {
			return &APIError{
				StatusCode: resp.StatusCode,
				Code:       envelope.Error.Code,
				Message:    envelope.Error.Message,
			}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "UNKNOWN",
			Message:    string(data),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
