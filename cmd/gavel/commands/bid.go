package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/gavel/internal/printer"
)

var bidAmount int64

var bidCmd = &cobra.Command{
	Use:   "bid <asset>",
	Short: "Commit funds toward an active auction",
	Long: `Commit funds toward an active auction.

Bids are cumulative: your payments for the same auction add up, and your
total must strictly beat the current leading bid (or meet the starting
price for an opening bid). If you are outbid, reclaim your escrow with
'gavel withdraw bid'.`,
	Args: cobra.ExactArgs(1),
	RunE: runBid,
}

func init() {
	bidCmd.Flags().Int64Var(&bidAmount, "amount", 0, "Payment in base units (required)")
	bidCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(bidCmd)
}

func runBid(cmd *cobra.Command, args []string) error {
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

	auction, err := m.engine.Bid(ctx, id, asset, bidAmount)
	if err != nil {
		return err
	}

	printer.Success("you lead the auction for %s with a total of %d\n",
		asset, auction.HighestAmount)
	return nil
}
