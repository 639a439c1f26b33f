package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/gavel/internal/printer"
)

var buyPayment int64

var buyCmd = &cobra.Command{
	Use:   "buy <asset>",
	Short: "Purchase a listed asset at its fixed price",
	Long: `Purchase a listed asset at its fixed price.

--payment is the most you are willing to pay and must cover the listed
price; only the listed price actually leaves your account. The purchase is
atomic: payment, custody transfer and listing removal happen together or
not at all.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuy,
}

func init() {
	buyCmd.Flags().Int64Var(&buyPayment, "payment", 0, "Payment cap in base units (required)")
	buyCmd.MarkFlagRequired("payment")
	rootCmd.AddCommand(buyCmd)
}

func runBuy(cmd *cobra.Command, args []string) error {
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

	if err := m.engine.InstantBuy(ctx, id, asset, buyPayment); err != nil {
		return err
	}

	printer.Success("you now own %s\n", asset)
	return nil
}
