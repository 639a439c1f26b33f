package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/gavel/internal/printer"
)

var sellPrice int64

var sellCmd = &cobra.Command{
	Use:   "sell <asset>",
	Short: "List an asset for instant purchase at a fixed price",
	Long: `List an asset you own for instant purchase at a fixed price.

Requires a prior custody approval for the engine ('gavel asset approve').
An asset with a live auction cannot be listed; the two sale paths are
mutually exclusive. Listing again replaces the previous price.`,
	Args: cobra.ExactArgs(1),
	RunE: runSell,
}

func init() {
	sellCmd.Flags().Int64Var(&sellPrice, "price", 0, "Fixed price in base units (required)")
	sellCmd.MarkFlagRequired("price")
	rootCmd.AddCommand(sellCmd)
}

func runSell(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	asset := args[0]

	id, err := caller()
	if err != nil {
		return err
	}

	m, closeAll, err := openMarket(cmd)
	if err != nil {
		return err
	}
	defer closeAll()

	listing, err := m.engine.SetPrice(ctx, id, asset, sellPrice)
	if err != nil {
		return err
	}

	printer.Success("%s listed for instant purchase at %d\n", asset, listing.Price)
	return nil
}
