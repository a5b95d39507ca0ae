// Package banks provides the bank client interface and implementations
// for the banks whose transfer receipts can be verified (CBE, Dashen, etc.).
package banks

import (
	"errors"
	"fmt"
	"strings"
)

// Descriptor is the static identity of a supported bank. One instance per
// client implementation, created at process start and never mutated.
type Descriptor struct {
	Code                 string `json:"code"`        // "CBE", "DASHEN"
	DisplayName          string `json:"displayName"` // "Commercial Bank of Ethiopia"
	LogoURL              string `json:"logoUrl,omitempty"`
	ReferenceLabel       string `json:"referenceLabel"`
	ReferencePlaceholder string `json:"referencePlaceholder"`
}

// Receipt is the structured content of one bank-issued payment receipt.
// Monetary fields stay as the bank-formatted strings from the document;
// formats differ per bank and callers only display or compare them.
type Receipt struct {
	SenderName            string `json:"senderName"`
	SenderBank            string `json:"senderBank,omitempty"`
	SenderAccountNumber   string `json:"senderAccountNumber,omitempty"`
	ReceiverName          string `json:"receiverName,omitempty"`
	ReceiverBank          string `json:"receiverBank,omitempty"`
	ReceiverAccountNumber string `json:"receiverAccountNumber,omitempty"`
	Narrative             string `json:"narrative,omitempty"`
	PaymentDateTime       string `json:"paymentDateTime,omitempty"` // as printed by the bank
	ReferenceNo           string `json:"referenceNo"`
	TransferredAmount     string `json:"transferredAmount"`
	Commission            string `json:"commission,omitempty"`
	VAT                   string `json:"vat,omitempty"`
	TotalAmount           string `json:"totalAmount,omitempty"`
}

// Common errors returned by bank clients.
var (
	ErrInvalidReference = errors.New("invalid reference format")
	ErrReceiverMismatch = errors.New("receiver account mismatch")
)

// ParseError reports which required receipt fields a parser could not
// locate. It usually means the bank changed its receipt layout.
type ParseError struct {
	Missing []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("missing required receipt fields: %s", strings.Join(e.Missing, ", "))
}

// Client verifies receipts for exactly one bank.
type Client interface {
	// Descriptor returns the bank's static identity.
	Descriptor() Descriptor

	// ValidateReference checks the bank-specific reference syntax and
	// returns the normalized form. Pure and deterministic; no I/O.
	ValidateReference(reference string) (string, error)

	// ReceiptURL builds the URL of the receipt document. Pure string
	// construction; how (and whether) the receiver account is embedded
	// is bank-specific and documented on each implementation.
	ReceiptURL(receiverAccount, reference string) string

	// ParseReceiptText extracts a Receipt from the document's plain text.
	// Returns *ParseError when any required field is missing.
	ParseReceiptText(text string) (*Receipt, error)

	// MatchReceiverAccount applies the bank's comparison rule between the
	// expected receiver account and the one printed on the receipt. The
	// rule is deliberately not shared across banks: some receipts mask
	// the account and only a trailing suffix can be compared.
	MatchReceiverAccount(expected string, r *Receipt) error
}

// RequiredFieldsMissing returns the names of the fields every parsed
// receipt must carry (sender name, transferred amount, reference) that
// are empty on r. Parsers report failure instead of returning a receipt
// missing any of these.
func RequiredFieldsMissing(r *Receipt) []string {
	var missing []string
	if strings.TrimSpace(r.SenderName) == "" {
		missing = append(missing, "senderName")
	}
	if strings.TrimSpace(r.TransferredAmount) == "" {
		missing = append(missing, "transferredAmount")
	}
	if strings.TrimSpace(r.ReferenceNo) == "" {
		missing = append(missing, "referenceNo")
	}
	return missing
}

// Digits strips every non-digit rune. Account comparison rules work on
// the digits only, since banks print accounts with masking characters.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
