// Package transport provides HTTP request/response types for the
// verification domain.
package transport

import "github.com/habeshapay/receiptproof/internal/verification/domain"

// VerifyRequest is the HTTP request body for verifying a payment.
type VerifyRequest struct {
	BankCode        string `json:"bankCode"`
	Reference       string `json:"reference"`
	ReceiverAccount string `json:"receiverAccount"`
}

// ToDomain converts VerifyRequest to domain.VerifyRequest.
func (r VerifyRequest) ToDomain() domain.VerifyRequest {
	return domain.VerifyRequest{
		BankCode:        r.BankCode,
		Reference:       r.Reference,
		ReceiverAccount: r.ReceiverAccount,
	}
}

// FailureResponse is the classified failure in a verification response.
type FailureResponse struct {
	Stage         string   `json:"stage"`
	Kind          string   `json:"kind"`
	Message       string   `json:"message"`
	Retryable     bool     `json:"retryable"`
	MissingFields []string `json:"missingFields,omitempty"`
}

// VerifyResponse is the response body for a verification request.
type VerifyResponse struct {
	Verified bool             `json:"verified"`
	Receipt  any              `json:"receipt,omitempty"`
	Failure  *FailureResponse `json:"failure,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
