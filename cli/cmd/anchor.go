package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaintrace-systems/chaintrace-stack/cli/internal/client"
	"github.com/chaintrace-systems/chaintrace-stack/cli/pkg/output"
	"github.com/chaintrace-systems/chaintrace-stack/common/models"
)

var anchorCmd = &cobra.Command{
	Use:   "anchor [anomaly-id]",
	Short: "Inspect the ledger anchor of an anomaly",
	Long:  "Fetch the ledger anchoring state (pending, confirmed, or unreachable) for an anomaly record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		anchorClient := client.NewAnchorClient(cfg.GetAnchorURL(profile))

		anchor, err := anchorClient.GetAnchor(args[0])
		if err != nil {
			return fmt.Errorf("failed to get anchor: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(anchor)
		}

		output.Info("Anomaly ID: %s", anchor.AnomalyID)
		output.Info("Status:     %s", output.AnchorStatus(string(anchor.Status)))
		output.Info("Digest:     %s", anchor.Digest)
		output.Info("Attempts:   %d", anchor.Attempts)
		if anchor.TxRef != "" {
			output.Info("Tx Ref:     %s", anchor.TxRef)
		}
		if anchor.Status == models.AnchorConfirmed {
			output.Info("Block Ref:  %s", anchor.BlockRef)
			output.Info("Consensus:  %.2f", anchor.ConsensusRatio)
			output.Info("Anchored:   %s", anchor.AnchoredAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(anchorCmd)
}
