package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gavel",
	Short: "Gavel - auction and settlement engine for unique digital assets",
	Long: `Gavel lets an asset owner list an asset for timed competitive bidding
or immediate fixed-price purchase, escrows funds safely, and settles
ownership and payment exactly once per asset.

State lives in Redis; every operation is an atomic transaction against the
asset's market records. Outbid funds are reclaimed with 'gavel withdraw',
never pushed back automatically.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
