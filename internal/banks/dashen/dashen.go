// Package dashen implements the bank client for Dashen Bank. Dashen
// serves receipts from its own receipt host, addressed by the transaction
// reference alone, and prints the full receiver account on the receipt.
package dashen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/habeshapay/receiptproof/internal/banks"
)

// DefaultBaseURL is Dashen's receipt host.
const DefaultBaseURL = "https://receipts.dashenbanksc.com.et"

// referencePattern is Dashen's reference shape: 10 to 20 alphanumerics.
var referencePattern = regexp.MustCompile(`^[A-Z0-9]{10,20}$`)

// Field extraction patterns. Unlike CBE, Dashen labels both parties
// distinctly ("Sender" / "Beneficiary"), so there is no repeated-label
// ambiguity and no party tracking is needed.
var (
	reSender       = regexp.MustCompile(`(?i)^sender(?:\s+name)?\s*:?\s*([\w][\w\s&.'-]*)$`)
	reSenderAcct   = regexp.MustCompile(`(?i)^sender account\s*:?\s*(\S+)`)
	reBeneficiary  = regexp.MustCompile(`(?i)^beneficiary(?:\s+name)?\s*:?\s*([\w][\w\s&.'-]*)$`)
	reBenefAcct    = regexp.MustCompile(`(?i)^beneficiary account\s*:?\s*(\S+)`)
	reBenefBank    = regexp.MustCompile(`(?i)^beneficiary bank\s*:?\s*(.+)`)
	reAmount       = regexp.MustCompile(`(?i)^transferred amount\s*:?\s*(ETB\s*[\d,]+\.\d{2})`)
	reCharge       = regexp.MustCompile(`(?i)^service charge\s*:?\s*(ETB\s*[\d,]+\.\d{2})`)
	reVAT          = regexp.MustCompile(`(?i)^VAT\s*\(15%\)\s*:?\s*(ETB\s*[\d,]+\.\d{2})`)
	reTotal        = regexp.MustCompile(`(?i)^total\s*:?\s*(ETB\s*[\d,]+\.\d{2})`)
	reNarrative    = regexp.MustCompile(`(?i)^narrative\s*:?\s*(.+)`)
	reReference    = regexp.MustCompile(`(?i)^transaction reference\s*:?\s*([A-Za-z0-9]+)`)
	reTransferDate = regexp.MustCompile(`(?i)^transaction date\s*:?\s*(.+)`)
)

// Client is the Dashen bank client.
type Client struct {
	baseURL string
}

// New creates a Dashen client. Pass "" for the real receipt host.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Descriptor() banks.Descriptor {
	return banks.Descriptor{
		Code:                 "DASHEN",
		DisplayName:          "Dashen Bank",
		LogoURL:              "/static/banks/dashen.png",
		ReferenceLabel:       "Transaction Reference",
		ReferencePlaceholder: "D2410023456789",
	}
}

// ValidateReference normalizes to upper case and checks Dashen's
// alphanumeric reference shape.
func (c *Client) ValidateReference(reference string) (string, error) {
	ref := strings.ToUpper(strings.TrimSpace(reference))
	if !referencePattern.MatchString(ref) {
		return "", fmt.Errorf("%w: Dashen references are 10-20 letters and digits", banks.ErrInvalidReference)
	}
	return ref, nil
}

// ReceiptURL builds the receipt address. Dashen addresses receipts by
// reference only; the receiver account does not appear in the URL.
func (c *Client) ReceiptURL(receiverAccount, reference string) string {
	return fmt.Sprintf("%s/receipt?reference=%s", c.baseURL, reference)
}

// ParseReceiptText extracts the receipt fields from Dashen's receipt text.
func (c *Client) ParseReceiptText(text string) (*banks.Receipt, error) {
	r := &banks.Receipt{
		SenderBank: "Dashen Bank",
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case matches(line, reSenderAcct) != "":
			r.SenderAccountNumber = matches(line, reSenderAcct)
		case matches(line, reSender) != "":
			r.SenderName = matches(line, reSender)
		case matches(line, reBenefAcct) != "":
			r.ReceiverAccountNumber = matches(line, reBenefAcct)
		case matches(line, reBenefBank) != "":
			r.ReceiverBank = matches(line, reBenefBank)
		case matches(line, reBeneficiary) != "":
			r.ReceiverName = matches(line, reBeneficiary)
		case matches(line, reAmount) != "":
			r.TransferredAmount = matches(line, reAmount)
		case matches(line, reCharge) != "":
			r.Commission = matches(line, reCharge)
		case matches(line, reVAT) != "":
			r.VAT = matches(line, reVAT)
		case matches(line, reTotal) != "":
			r.TotalAmount = matches(line, reTotal)
		case matches(line, reTransferDate) != "":
			r.PaymentDateTime = matches(line, reTransferDate)
		case matches(line, reReference) != "":
			r.ReferenceNo = matches(line, reReference)
		case matches(line, reNarrative) != "":
			r.Narrative = matches(line, reNarrative)
		}
	}

	if missing := banks.RequiredFieldsMissing(r); len(missing) > 0 {
		return nil, &banks.ParseError{Missing: missing}
	}
	return r, nil
}

// MatchReceiverAccount compares full account numbers. Dashen prints the
// beneficiary account unmasked, so an exact digits comparison is both
// possible and required.
func (c *Client) MatchReceiverAccount(expected string, r *banks.Receipt) error {
	want := banks.Digits(expected)
	got := banks.Digits(r.ReceiverAccountNumber)
	if want == "" || got == "" || want != got {
		return fmt.Errorf("%w: receipt beneficiary account does not equal the expected account", banks.ErrReceiverMismatch)
	}
	return nil
}

func matches(line string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(line); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
