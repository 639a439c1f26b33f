package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/gavel/internal/printer"
	"github.com/dyluth/gavel/pkg/ledger"
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Manage asset custody records",
	Long: `Manage asset custody records:

  register <asset> → record a new asset under your identity
  approve <asset>  → let the engine move the asset (required before selling)
  owner <asset>    → show who holds the asset`,
}

var assetRegisterCmd = &cobra.Command{
	Use:   "register <asset>",
	Short: "Record a new asset under your identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetRegister,
}

var assetApproveCmd = &cobra.Command{
	Use:   "approve <asset>",
	Short: "Approve the engine to move an asset you own",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetApprove,
}

var assetOwnerCmd = &cobra.Command{
	Use:   "owner <asset>",
	Short: "Show who holds an asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetOwner,
}

func init() {
	assetCmd.AddCommand(assetRegisterCmd, assetApproveCmd, assetOwnerCmd)
	rootCmd.AddCommand(assetCmd)
}

func runAssetRegister(cmd *cobra.Command, args []string) error {
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

	if err := m.custody.Register(ctx, asset, id); err != nil {
		return err
	}

	printer.Success("asset %s registered to %s\n", asset, id)
	return nil
}

func runAssetApprove(cmd *cobra.Command, args []string) error {
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

	operator := ledger.OperatorIdentity(m.client.InstanceName())
	if err := m.custody.Approve(ctx, id, asset, operator); err != nil {
		return err
	}

	printer.Success("engine approved to move %s\n", asset)
	return nil
}

func runAssetOwner(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	asset := args[0]

	m, closeAll, err := openMarket(cmd)
	if err != nil {
		return err
	}
	defer closeAll()

	owner, err := m.custody.Owner(ctx, asset)
	if err != nil {
		return err
	}

	printer.Info("%s\n", owner)
	return nil
}
