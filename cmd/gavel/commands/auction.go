package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/gavel/internal/printer"
	"github.com/dyluth/gavel/internal/timespec"
)

var (
	auctionStartPrice  int64
	auctionStartWindow string
)

var auctionCmd = &cobra.Command{
	Use:   "auction",
	Short: "Manage timed auctions",
	Long: `Manage the lifecycle of a timed auction:

  start    → open bidding (escrows the asset with the engine)
  cancel   → void an auction that has no bids yet
  end      → close the bidding window (seller early, anyone after expiry)
  finalize → settle the winning bid into seller proceeds
  claim    → deliver the asset to the winner`,
}

var auctionStartCmd = &cobra.Command{
	Use:   "start <asset>",
	Short: "Open a timed auction for an asset you own",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuctionStart,
}

var auctionCancelCmd = &cobra.Command{
	Use:   "cancel <asset>",
	Short: "Cancel an auction before any bids are placed",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuctionCancel,
}

var auctionEndCmd = &cobra.Command{
	Use:   "end <asset>",
	Short: "Close the bidding window",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuctionEnd,
}

var auctionFinalizeCmd = &cobra.Command{
	Use:   "finalize <asset>",
	Short: "Settle a closed auction",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuctionFinalize,
}

var auctionClaimCmd = &cobra.Command{
	Use:   "claim <asset>",
	Short: "Deliver a finalized auction's asset to the winner",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuctionClaim,
}

func init() {
	auctionStartCmd.Flags().Int64Var(&auctionStartPrice, "price", 0, "Starting price in base units (required)")
	auctionStartCmd.Flags().StringVar(&auctionStartWindow, "duration", "1h", "Bidding window: a duration ('1h30m') or an RFC3339 deadline")
	auctionStartCmd.MarkFlagRequired("price")

	auctionCmd.AddCommand(auctionStartCmd, auctionCancelCmd, auctionEndCmd,
		auctionFinalizeCmd, auctionClaimCmd)
	rootCmd.AddCommand(auctionCmd)
}

func runAuctionStart(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	asset := args[0]

	id, err := caller()
	if err != nil {
		return err
	}

	window, err := timespec.Window(auctionStartWindow, time.Now())
	if err != nil {
		return err
	}

	m, closeAll, err := openMarket(cmd)
	if err != nil {
		return err
	}
	defer closeAll()

	auction, err := m.engine.StartAuction(ctx, id, asset, auctionStartPrice, window)
	if err != nil {
		return err
	}

	printer.Success("auction started for %s: starting price %d, closes %s\n",
		asset, auction.StartingPrice, time.UnixMilli(auction.EndTimeMs).Format(time.RFC3339))
	return nil
}

func runAuctionCancel(cmd *cobra.Command, args []string) error {
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

	if err := m.engine.CancelAuction(ctx, id, asset); err != nil {
		return err
	}

	printer.Success("auction for %s cancelled, asset returned\n", asset)
	return nil
}

func runAuctionEnd(cmd *cobra.Command, args []string) error {
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

	if err := m.engine.EndAuction(ctx, id, asset); err != nil {
		return err
	}

	printer.Success("bidding closed for %s\n", asset)
	return nil
}

func runAuctionFinalize(cmd *cobra.Command, args []string) error {
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

	if err := m.engine.Finalize(ctx, id, asset); err != nil {
		return err
	}

	auction, err := m.engine.Auction(ctx, asset)
	if err != nil {
		return err
	}

	printer.Success("auction for %s finalized: %s won at %d\n",
		asset, auction.HighestBidder, auction.HighestAmount)
	return nil
}

func runAuctionClaim(cmd *cobra.Command, args []string) error {
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

	if err := m.engine.ClaimAsset(ctx, id, asset); err != nil {
		return err
	}

	printer.Success("asset %s delivered to the winning bidder\n", asset)
	return nil
}
