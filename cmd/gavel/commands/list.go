package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	marketpkg "github.com/dyluth/gavel/internal/market"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open auctions and fixed-price listings",
	Long: `List all assets with live market state on the instance.

For each asset, displays the sale kind (auction or listing), its state,
the seller, the price or current leading bid, and the time remaining in
the bidding window.

Use --json for machine-readable JSONL output.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSONL format")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	m, closeAll, err := openMarket(cmd)
	if err != nil {
		return err
	}
	defer closeAll()

	rows, err := marketpkg.Collect(ctx, m.client)
	if err != nil {
		return err
	}

	if listJSON {
		return marketpkg.FormatJSONL(os.Stdout, rows)
	}

	marketpkg.FormatTable(os.Stdout, rows, m.client.InstanceName())
	return nil
}
