package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/gavel/internal/printer"
)

var fundAmount int64

var fundCmd = &cobra.Command{
	Use:   "fund",
	Short: "Credit your account from outside the market",
	Long: `Credit your account from outside the market (the deposit primitive).
Use 'gavel balance' to check the result.`,
	Args: cobra.NoArgs,
	RunE: runFund,
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show your account balance and withdrawable proceeds",
	Args:  cobra.NoArgs,
	RunE:  runBalance,
}

func init() {
	fundCmd.Flags().Int64Var(&fundAmount, "amount", 0, "Amount in base units (required)")
	fundCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(fundCmd, balanceCmd)
}

func runFund(cmd *cobra.Command, args []string) error {
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

	if err := m.bank.Deposit(ctx, id, fundAmount); err != nil {
		return err
	}

	balance, err := m.bank.Balance(ctx, id)
	if err != nil {
		return err
	}

	printer.Success("deposited %d, balance is now %d\n", fundAmount, balance)
	return nil
}

func runBalance(cmd *cobra.Command, args []string) error {
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

	balance, err := m.bank.Balance(ctx, id)
	if err != nil {
		return err
	}

	proceeds, err := m.engine.Proceeds(ctx, id)
	if err != nil {
		return err
	}

	printer.Info("balance: %d\n", balance)
	printer.Info("withdrawable proceeds: %d\n", proceeds)
	return nil
}
