package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaintrace-systems/chaintrace-stack/cli/internal/client"
	"github.com/chaintrace-systems/chaintrace-stack/cli/pkg/output"
)

var explainCmd = &cobra.Command{
	Use:   "explain [anomaly-id]",
	Short: "Explain an anomaly verdict",
	Long:  "Fetch the ranked per-feature attribution for a scored anomaly record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		explain := client.NewExplainClient(cfg.GetExplainURL(profile))

		exp, err := explain.GetExplanation(args[0])
		if err != nil {
			return fmt.Errorf("failed to get explanation: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(exp)
		}

		output.Info("Anomaly ID: %s", exp.AnomalyID)
		output.Info("Model:      %s", exp.ModelVersion)
		output.Info("Computed:   %s", exp.ComputedAt.Format("2006-01-02 15:04:05"))
		output.Info("%s", exp.Summary)
		fmt.Println()

		table := output.NewTable([]string{"Feature", "Contribution", "Direction"})
		for _, c := range exp.Contributions {
			table.AddRow([]string{c.Feature, fmt.Sprintf("%+.4f", c.Contribution), c.Direction})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
