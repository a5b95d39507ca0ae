package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/habeshapay/receiptproof/pkg/client"
)

func createVerifyCmd() *cobra.Command {
	var bank string
	var reference string
	var account string
	var jsonOutput bool
	var retries int
	var retryDelay time.Duration

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a bank transfer receipt",
		Long: `Verify that a bank transfer reference corresponds to a real payment
into the given receiving account.

The bank, reference, and receiving account can come from flags or from
receiptproof.toml (bank and receiver_account keys).

Receipts are sometimes published by the bank a few seconds after the
transfer completes. Use --retries to poll while the failure is retryable.

EXAMPLES:
  # Verify a CBE transfer
  receiptproof verify --bank cbe --reference FT24123ABCDE --receiver-account 1000000004532

  # Use defaults from receiptproof.toml
  receiptproof verify --reference FT24123ABCDE

  # Poll up to 5 times while the receipt is not yet published
  receiptproof verify --bank cbe --reference FT24123ABCDE --receiver-account 1000000004532 --retries 5

  # Output as JSON
  receiptproof verify --bank cbe --reference FT24123ABCDE --receiver-account 1000000004532 --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bank == "" || account == "" {
				if config := loadProjectConfigSilent(); config != nil {
					if bank == "" {
						bank = config.Bank
					}
					if account == "" {
						account = config.ReceiverAccount
					}
				}
			}

			if bank == "" {
				return fmt.Errorf("bank code required (use --bank or set bank in receiptproof.toml)")
			}
			if reference == "" {
				return fmt.Errorf("reference required (use --reference)")
			}
			if account == "" {
				return fmt.Errorf("receiving account required (use --receiver-account or set receiver_account in receiptproof.toml)")
			}

			// The server matches bank codes exactly; accept lowercase
			// on the command line.
			return runVerify(strings.ToUpper(bank), reference, account, jsonOutput, retries, retryDelay)
		},
	}

	cmd.Flags().StringVar(&bank, "bank", "", "bank code (e.g. cbe, dashen)")
	cmd.Flags().StringVar(&reference, "reference", "", "transaction reference from the payer's receipt")
	cmd.Flags().StringVar(&account, "receiver-account", "", "account number the payment should have arrived on")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&retries, "retries", 0, "retry count for retryable failures")
	cmd.Flags().DurationVar(&retryDelay, "retry-delay", 3*time.Second, "delay between retries")

	return cmd
}

func runVerify(bank, reference, account string, jsonOutput bool, retries int, retryDelay time.Duration) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	req := client.VerifyRequest{
		BankCode:        bank,
		Reference:       reference,
		ReceiverAccount: account,
	}

	var result *client.VerifyResult
	for attempt := 0; ; attempt++ {
		var err error
		result, err = c.Verify(ctx, req)
		if err != nil {
			return fmt.Errorf("verification request failed: %w", err)
		}

		if result.Verified || result.Failure == nil || !result.Failure.Retryable || attempt >= retries {
			break
		}

		if !jsonOutput {
			fmt.Printf("Receipt not available yet (%s), retrying in %s...\n", result.Failure.Kind, retryDelay)
		}
		time.Sleep(retryDelay)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		if !result.Verified {
			os.Exit(1)
		}
		return nil
	}

	if result.Verified {
		fmt.Println("✅ Payment verified")
		fmt.Println()
		printReceipt(result.Receipt)
		return nil
	}

	f := result.Failure
	fmt.Println("❌ Verification failed")
	fmt.Println()
	fmt.Printf("  Stage:   %s\n", f.Stage)
	fmt.Printf("  Kind:    %s\n", f.Kind)
	fmt.Printf("  Message: %s\n", f.Message)
	if len(f.MissingFields) > 0 {
		fmt.Printf("  Missing: %v\n", f.MissingFields)
	}
	if f.Retryable {
		fmt.Println()
		fmt.Println("This failure is retryable; the receipt may appear shortly.")
	}
	os.Exit(1)
	return nil
}

func printReceipt(r *client.Receipt) {
	if r == nil {
		return
	}
	fmt.Printf("  Reference: %s\n", r.ReferenceNo)
	fmt.Printf("  Amount:    %s\n", r.TransferredAmount)
	if r.SenderName != "" {
		fmt.Printf("  Sender:    %s", r.SenderName)
		if r.SenderAccountNumber != "" {
			fmt.Printf(" (%s)", r.SenderAccountNumber)
		}
		fmt.Println()
	}
	if r.ReceiverName != "" {
		fmt.Printf("  Receiver:  %s", r.ReceiverName)
		if r.ReceiverAccountNumber != "" {
			fmt.Printf(" (%s)", r.ReceiverAccountNumber)
		}
		fmt.Println()
	}
	if r.PaymentDateTime != "" {
		fmt.Printf("  Date:      %s\n", r.PaymentDateTime)
	}
	if r.Narrative != "" {
		fmt.Printf("  Reason:    %s\n", r.Narrative)
	}
	if r.TotalAmount != "" {
		fmt.Printf("  Total:     %s\n", r.TotalAmount)
	}
}
