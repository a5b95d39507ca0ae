// Package cbe implements the bank client for the Commercial Bank of
// Ethiopia. CBE hosts official receipts as PDF documents on
// apps.cbe.com.et; the document is addressed by the transfer reference
// concatenated with the last 8 digits of the receiver's account.
package cbe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/habeshapay/receiptproof/internal/banks"
)

// DefaultBaseURL is CBE's receipt host. The non-standard port and the
// self-signed certificate chain are properties of the real service.
const DefaultBaseURL = "https://apps.cbe.com.et:100"

// urlAccountSuffixLen is how many trailing digits of the receiver
// account CBE embeds in the receipt URL.
const urlAccountSuffixLen = 8

// matchSuffixLen is how many trailing digits are compared when checking
// the receiver account. CBE receipts mask the account (1****4532), so
// only the printed tail is comparable.
const matchSuffixLen = 4

// referencePattern is CBE's transfer reference shape: "FT" followed by
// ten alphanumerics, e.g. FT24123ABCDE.
var referencePattern = regexp.MustCompile(`^FT[A-Z0-9]{10}$`)

// Field extraction patterns. CBE receipts are two-party documents: the
// "Account" label repeats for payer and receiver, so account lines are
// attributed to whichever party label ("Payer" / "Receiver") was seen
// most recently rather than by occurrence counting.
var (
	rePayer     = regexp.MustCompile(`(?i)^payer\s*:?\s*([\w][\w\s&.'-]*)$`)
	reReceiver  = regexp.MustCompile(`(?i)^receiver\s*:?\s*([\w][\w\s&.'-]*)$`)
	reAccount   = regexp.MustCompile(`(?i)^account\s*:?\s*(\S+)`)
	reAmount    = regexp.MustCompile(`(?i)transferred amount\s*:?\s*([\d,]+\.\d{2})\s*ETB`)
	reCharge    = regexp.MustCompile(`(?i)commission or service charge\s*:?\s*([\d,]+\.\d{2})\s*ETB`)
	reVAT       = regexp.MustCompile(`(?i)15% VAT on commission\s*:?\s*([\d,]+\.\d{2})\s*ETB`)
	reTotal     = regexp.MustCompile(`(?i)total amount debited[\w\s']*\s*:?\s*([\d,]+\.\d{2})\s*ETB`)
	reReason    = regexp.MustCompile(`(?i)reason\s*/?\s*type of service\s*:?\s*(.+)`)
	reReference = regexp.MustCompile(`(?i)reference no\.?\s*:?\s*(.+)`)
	reDate      = regexp.MustCompile(`(?i)payment date\s*&?\s*time\s*:?\s*(\d{1,2}/\d{1,2}/\d{4}(?:,?\s*\d{1,2}:\d{2}:\d{2}\s*(?:AM|PM)?)?)`)

	// Removes the "(VAT Invoice No)" parenthetical CBE prints between
	// the reference label and the value.
	reParenthetical = regexp.MustCompile(`^\(.*?\)\s*`)

	// PDF text extraction merges adjacent words on CBE receipts;
	// reinsert a space at lower-to-upper case boundaries.
	reMergedWords = regexp.MustCompile(`([a-z])([A-Z])`)
)

// Client is the CBE bank client.
type Client struct {
	baseURL string
}

// New creates a CBE client. baseURL overrides the receipt host, which
// tests point at a local stub; pass "" for the real host.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Descriptor() banks.Descriptor {
	return banks.Descriptor{
		Code:                 "CBE",
		DisplayName:          "Commercial Bank of Ethiopia",
		LogoURL:              "/static/banks/cbe.png",
		ReferenceLabel:       "Reference No. (VAT Invoice No)",
		ReferencePlaceholder: "FT24123ABCDE",
	}
}

// ValidateReference normalizes to upper case and checks CBE's FT-prefixed
// 12-character reference shape.
func (c *Client) ValidateReference(reference string) (string, error) {
	ref := strings.ToUpper(strings.TrimSpace(reference))
	if !referencePattern.MatchString(ref) {
		return "", fmt.Errorf("%w: CBE references look like FT24123ABCDE", banks.ErrInvalidReference)
	}
	return ref, nil
}

// ReceiptURL builds the receipt address. CBE keys the document on the
// reference plus the last 8 digits of the receiver account, not the full
// account number.
func (c *Client) ReceiptURL(receiverAccount, reference string) string {
	digits := banks.Digits(receiverAccount)
	if len(digits) > urlAccountSuffixLen {
		digits = digits[len(digits)-urlAccountSuffixLen:]
	}
	return fmt.Sprintf("%s/?id=%s%s", c.baseURL, reference, digits)
}

// ParseReceiptText extracts the receipt fields from CBE's receipt text.
func (c *Client) ParseReceiptText(text string) (*banks.Receipt, error) {
	r := &banks.Receipt{
		SenderBank:   "Commercial Bank of Ethiopia",
		ReceiverBank: "Commercial Bank of Ethiopia",
	}

	// "", "payer" or "receiver": which party the next Account line
	// belongs to.
	party := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(reMergedWords.ReplaceAllString(raw, "$1 $2"))
		if line == "" {
			continue
		}

		switch {
		case matches(line, rePayer) != "":
			r.SenderName = matches(line, rePayer)
			party = "payer"
		case matches(line, reReceiver) != "":
			r.ReceiverName = matches(line, reReceiver)
			party = "receiver"
		case matches(line, reAccount) != "":
			switch party {
			case "payer":
				r.SenderAccountNumber = matches(line, reAccount)
			case "receiver":
				r.ReceiverAccountNumber = matches(line, reAccount)
			}
		case matches(line, reAmount) != "":
			r.TransferredAmount = matches(line, reAmount) + " ETB"
		case matches(line, reCharge) != "":
			r.Commission = matches(line, reCharge) + " ETB"
		case matches(line, reVAT) != "":
			r.VAT = matches(line, reVAT) + " ETB"
		case matches(line, reTotal) != "":
			r.TotalAmount = matches(line, reTotal) + " ETB"
		case matches(line, reDate) != "":
			r.PaymentDateTime = matches(line, reDate)
		case matches(line, reReference) != "":
			ref := matches(line, reReference)
			r.ReferenceNo = strings.TrimSpace(reParenthetical.ReplaceAllString(ref, ""))
		case matches(line, reReason) != "":
			r.Narrative = matches(line, reReason)
		}
	}

	if missing := banks.RequiredFieldsMissing(r); len(missing) > 0 {
		return nil, &banks.ParseError{Missing: missing}
	}
	return r, nil
}

// MatchReceiverAccount compares the trailing 4 digits of the expected and
// parsed accounts. Comparing more is impossible: the receipt masks
// everything but the tail, and callers often hold only the tail shown to
// the payer.
func (c *Client) MatchReceiverAccount(expected string, r *banks.Receipt) error {
	want := banks.Digits(expected)
	got := banks.Digits(r.ReceiverAccountNumber)
	if len(want) < matchSuffixLen || len(got) < matchSuffixLen {
		return fmt.Errorf("%w: need at least %d account digits to compare", banks.ErrReceiverMismatch, matchSuffixLen)
	}
	if want[len(want)-matchSuffixLen:] != got[len(got)-matchSuffixLen:] {
		return fmt.Errorf("%w: receipt receiver account ends in %s", banks.ErrReceiverMismatch, got[len(got)-matchSuffixLen:])
	}
	return nil
}

func matches(line string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(line); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
