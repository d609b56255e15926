package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chaintrace-systems/chaintrace-stack/common/config"
)

var cfg *config.CLIConfig

var rootCmd = &cobra.Command{
	Use:   "ctrace",
	Short: "ChainTrace CLI",
	Long: `ctrace is the command-line interface for the ChainTrace anomaly pipeline.

Submit supply-chain telemetry, browse scored anomaly records, fetch
per-feature explanations, and inspect ledger anchors from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
}

func initConfig() {
	var err error
	cfg, err = config.LoadCLI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		cfg = config.DefaultCLI()
	}
}
