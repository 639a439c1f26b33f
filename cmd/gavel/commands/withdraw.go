package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/gavel/internal/printer"
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Reclaim escrowed funds",
	Long: `Reclaim funds held by the engine:

  bid <asset> → your escrowed bids for an auction you no longer lead
  proceeds    → your balance from completed sales`,
}

var withdrawBidCmd = &cobra.Command{
	Use:   "bid <asset>",
	Short: "Reclaim your escrowed bids for an auction",
	Args:  cobra.ExactArgs(1),
	RunE:  runWithdrawBid,
}

var withdrawProceedsCmd = &cobra.Command{
	Use:   "proceeds",
	Short: "Withdraw your balance from completed sales",
	Args:  cobra.NoArgs,
	RunE:  runWithdrawProceeds,
}

func init() {
	withdrawCmd.AddCommand(withdrawBidCmd, withdrawProceedsCmd)
	rootCmd.AddCommand(withdrawCmd)
}

func runWithdrawBid(cmd *cobra.Command, args []string) error {
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

	amount, err := m.engine.WithdrawBid(ctx, id, asset)
	if err != nil {
		return err
	}

	printer.Success("withdrew %d from the auction for %s\n", amount, asset)
	return nil
}

func runWithdrawProceeds(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	id, err := caller()
	if err != nil {
		return err
	}

	m, closeAll, err := openMarket(cmd)
	if err != nil {
		return err
	}
	defer closeAll()

	amount, err := m.engine.WithdrawProceeds(ctx, id)
	if err != nil {
		return err
	}

	printer.Success("withdrew %d in sale proceeds\n", amount)
	return nil
}
