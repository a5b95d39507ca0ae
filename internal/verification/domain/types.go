// Package domain contains the receipt verification pipeline.
package domain

import "github.com/habeshapay/receiptproof/internal/banks"

// Stage identifies where in the pipeline a verification stopped.
type Stage string

// Pipeline stages, in execution order.
const (
	StageResolve  Stage = "resolve"
	StageRef      Stage = "reference"
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StageParse    Stage = "parse"
	StageValidate Stage = "validate"
)

// Kind classifies a verification failure. Every kind renders a distinct
// user-facing message; none are collapsed into a generic failure.
type Kind string

const (
	KindUnknownBank                Kind = "UNKNOWN_BANK"
	KindInvalidReferenceFormat     Kind = "INVALID_REFERENCE_FORMAT"
	KindNotFoundOrInvalidReference Kind = "NOT_FOUND_OR_INVALID_REFERENCE"
	KindNotYetAvailable            Kind = "NOT_YET_AVAILABLE"
	KindTransportUnavailable       Kind = "TRANSPORT_UNAVAILABLE"
	KindUnextractableContent       Kind = "UNEXTRACTABLE_CONTENT"
	KindFieldParseFailure          Kind = "FIELD_PARSE_FAILURE"
	KindReceiverMismatch           Kind = "RECEIVER_MISMATCH"
	KindReferenceMismatch          Kind = "REFERENCE_MISMATCH"
)

// Retryable reports whether retrying the same verification can succeed
// without the caller changing anything. NotYetAvailable needs a delay
// (the bank may still be generating the receipt); TransportUnavailable
// is an infrastructure fault.
func (k Kind) Retryable() bool {
	return k == KindNotYetAvailable || k == KindTransportUnavailable
}

// Failure describes a classified verification failure.
type Failure struct {
	Stage   Stage  `json:"stage"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	// MissingFields names the required receipt fields a parser could
	// not locate, set only for KindFieldParseFailure. It is the first
	// diagnostic consulted when a bank changes its receipt layout.
	MissingFields []string `json:"missingFields,omitempty"`
}

// VerifyRequest is one verification invocation.
type VerifyRequest struct {
	BankCode        string `json:"bankCode"`
	Reference       string `json:"reference"`
	ReceiverAccount string `json:"receiverAccount"`
}

// VerifyResult is the tagged outcome of one verification: either
// Verified with a Receipt, or a Failure. Never both.
type VerifyResult struct {
	Verified bool           `json:"verified"`
	Receipt  *banks.Receipt `json:"receipt,omitempty"`
	Failure  *Failure       `json:"failure,omitempty"`
}

// Outcome is the result label used for logs, metrics and the audit
// trail: "verified" or the failure kind.
func (r *VerifyResult) Outcome() string {
	if r.Verified {
		return "verified"
	}
	return string(r.Failure.Kind)
}
