package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/habeshapay/receiptproof/pkg/client"
)

func createAttemptsCmd() *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List recent verification attempts",
		Long: `List recent verification attempts recorded by the server.

Requires an API key (run 'receiptproof auth login' first).

EXAMPLES:
  # Show the 50 most recent attempts
  receiptproof attempts

  # Show the last 10
  receiptproof attempts --limit 10

  # Output as JSON
  receiptproof attempts --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttempts(limit, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "number of attempts to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runAttempts(limit int, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())

	attempts, err := c.ListAttempts(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to list attempts: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"attempts": attempts})
	}

	if len(attempts) == 0 {
		fmt.Println("No attempts recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tBANK\tREFERENCE\tOUTCOME\tDURATION")
	for _, a := range attempts {
		outcome := "verified"
		if !a.Verified {
			outcome = a.Kind
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dms\n", a.CreatedAt, a.BankCode, a.Reference, outcome, a.DurationMS)
	}
	w.Flush()

	return nil
}
