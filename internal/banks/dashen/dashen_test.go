package dashen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habeshapay/receiptproof/internal/banks"
)

const sampleReceiptText = `Dashen Bank Transfer Receipt
Sender Name Abebe Kebede
Sender Account 5011234567890
Beneficiary Name Store X
Beneficiary Account 5019876543210
Beneficiary Bank Dashen Bank
Transaction Reference D2410023456789
Transaction Date 25-Jul-2024 15:45
Transferred Amount ETB 1,250.00
Service Charge ETB 0.00
VAT (15%) ETB 0.00
Total ETB 1,250.00
Narrative Invoice 42
`

func TestValidateReference(t *testing.T) {
	c := New("")

	ref, err := c.ValidateReference("D2410023456789")
	require.NoError(t, err)
	assert.Equal(t, "D2410023456789", ref)

	ref, err = c.ValidateReference(" d2410023456789 ")
	require.NoError(t, err)
	assert.Equal(t, "D2410023456789", ref)
}

func TestValidateReference_Invalid(t *testing.T) {
	c := New("")

	for _, bad := range []string{
		"",
		"D24100",                 // too short
		"D24100234567890123456",  // too long
		"D2410-23456789",         // non-alphanumeric
	} {
		_, err := c.ValidateReference(bad)
		assert.Error(t, err, "reference %q should be rejected", bad)
		assert.True(t, errors.Is(err, banks.ErrInvalidReference))
	}
}

func TestReceiptURL(t *testing.T) {
	c := New("")

	// The receiver account never appears in the URL
	url := c.ReceiptURL("5019876543210", "D2410023456789")
	assert.Equal(t, "https://receipts.dashenbanksc.com.et/receipt?reference=D2410023456789", url)

	url = c.ReceiptURL("", "D2410023456789")
	assert.Equal(t, "https://receipts.dashenbanksc.com.et/receipt?reference=D2410023456789", url)
}

func TestReceiptURL_BaseOverride(t *testing.T) {
	c := New("https://stub.local:8443/")
	url := c.ReceiptURL("5019876543210", "D2410023456789")
	assert.Equal(t, "https://stub.local:8443/receipt?reference=D2410023456789", url)
}

func TestParseReceiptText(t *testing.T) {
	c := New("")

	r, err := c.ParseReceiptText(sampleReceiptText)
	require.NoError(t, err)

	assert.Equal(t, "Abebe Kebede", r.SenderName)
	assert.Equal(t, "5011234567890", r.SenderAccountNumber)
	assert.Equal(t, "Store X", r.ReceiverName)
	assert.Equal(t, "5019876543210", r.ReceiverAccountNumber)
	assert.Equal(t, "Dashen Bank", r.ReceiverBank)
	assert.Equal(t, "D2410023456789", r.ReferenceNo)
	assert.Equal(t, "25-Jul-2024 15:45", r.PaymentDateTime)
	assert.Equal(t, "ETB 1,250.00", r.TransferredAmount)
	assert.Equal(t, "ETB 0.00", r.Commission)
	assert.Equal(t, "ETB 0.00", r.VAT)
	assert.Equal(t, "ETB 1,250.00", r.TotalAmount)
	assert.Equal(t, "Invoice 42", r.Narrative)
	assert.Equal(t, "Dashen Bank", r.SenderBank)
}

func TestParseReceiptText_BareLabels(t *testing.T) {
	c := New("")

	// Older receipt layout without the "Name" suffix on party labels
	text := `Sender Abebe Kebede
Sender Account 5011234567890
Beneficiary Store X
Beneficiary Account 5019876543210
Transaction Reference D2410023456789
Transferred Amount ETB 1,250.00
`
	r, err := c.ParseReceiptText(text)
	require.NoError(t, err)
	assert.Equal(t, "Abebe Kebede", r.SenderName)
	assert.Equal(t, "Store X", r.ReceiverName)
	assert.Equal(t, "5011234567890", r.SenderAccountNumber)
	assert.Equal(t, "5019876543210", r.ReceiverAccountNumber)
}

func TestParseReceiptText_MissingFields(t *testing.T) {
	c := New("")

	text := `Beneficiary Name Store X
Beneficiary Account 5019876543210
Transaction Date 25-Jul-2024 15:45
`
	_, err := c.ParseReceiptText(text)
	require.Error(t, err)

	var parseErr *banks.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, []string{"senderName", "transferredAmount", "referenceNo"}, parseErr.Missing)
}

func TestMatchReceiverAccount(t *testing.T) {
	c := New("")
	r := &banks.Receipt{ReceiverAccountNumber: "5019876543210"}

	// Full account equality on digits
	assert.NoError(t, c.MatchReceiverAccount("5019876543210", r))
	assert.NoError(t, c.MatchReceiverAccount("501-987-654-3210", r))

	// A trailing-suffix match is not enough for Dashen
	err := c.MatchReceiverAccount("3210", r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, banks.ErrReceiverMismatch))

	err = c.MatchReceiverAccount("", r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, banks.ErrReceiverMismatch))
}
