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

func createBanksCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "banks",
		Short: "List supported banks",
		Long: `List the banks the server can verify receipts for.

EXAMPLES:
  receiptproof banks

  # Output as JSON
  receiptproof banks --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBanks(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runBanks(jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())

	banks, err := c.ListBanks(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list banks: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"banks": banks})
	}

	if len(banks) == 0 {
		fmt.Println("No banks configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tREFERENCE")
	for _, b := range banks {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Code, b.DisplayName, b.ReferencePlaceholder)
	}
	w.Flush()

	return nil
}
