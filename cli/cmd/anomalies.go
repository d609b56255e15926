package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaintrace-systems/chaintrace-stack/cli/internal/client"
	"github.com/chaintrace-systems/chaintrace-stack/cli/pkg/output"
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Browse scored anomaly records",
}

var anomaliesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List anomaly records",
	Long:    "List stored anomaly records, newest first, with optional filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		detect := client.NewDetectClient(cfg.GetDetectURL(profile))

		filter := client.AnomalyFilter{}
		filter.OrgID, _ = cmd.Flags().GetString("org")
		filter.DataType, _ = cmd.Flags().GetString("data-type")
		filter.MinSeverity, _ = cmd.Flags().GetString("min-severity")
		filter.From, _ = cmd.Flags().GetString("from")
		filter.To, _ = cmd.Flags().GetString("to")
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		filter.Offset, _ = cmd.Flags().GetInt("offset")
		if filter.OrgID == "" {
			filter.OrgID = cfg.GetOrgID(profile)
		}

		list, err := detect.ListAnomalies(filter)
		if err != nil {
			return fmt.Errorf("failed to list anomalies: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(list)
		}

		if len(list.Records) == 0 {
			output.Info("No anomalies found")
			return nil
		}

		table := output.NewTable([]string{"ID", "Org", "Data Type", "Severity", "Confidence", "Model", "Created At"})
		for _, rec := range list.Records {
			table.AddRow([]string{
				rec.ID,
				rec.OrgID,
				string(rec.DataType),
				output.Severity(string(rec.Verdict.Severity)),
				fmt.Sprintf("%.3f", rec.Verdict.Confidence),
				rec.ModelVersion,
				rec.Verdict.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		table.Render()

		output.Info("\nShowing %d of %d total anomalies", len(list.Records), list.Total)
		return nil
	},
}

var anomaliesGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get one anomaly record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		detect := client.NewDetectClient(cfg.GetDetectURL(profile))

		rec, err := detect.GetAnomaly(args[0])
		if err != nil {
			return fmt.Errorf("failed to get anomaly: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(rec)
		}

		output.Info("Anomaly ID:  %s", rec.ID)
		output.Info("Org:         %s", rec.OrgID)
		output.Info("Data Type:   %s", rec.DataType)
		output.Info("Severity:    %s", output.Severity(string(rec.Verdict.Severity)))
		output.Info("Confidence:  %.3f", rec.Verdict.Confidence)
		output.Info("Model:       %s", rec.ModelVersion)
		output.Info("Telemetry:   %s", rec.TelemetryRef.RecordID)
		output.Info("Created:     %s", rec.Verdict.CreatedAt.Format("2006-01-02 15:04:05"))
		if rec.Verdict.Degraded {
			output.Warn("Verdict is degraded: one or more detectors failed")
		}

		if len(rec.Verdict.Scores) > 0 {
			fmt.Println()
			table := output.NewTable([]string{"Detector", "Kind", "Raw Score"})
			for _, s := range rec.Verdict.Scores {
				raw := fmt.Sprintf("%.4f", s.Raw)
				if s.Unavailable {
					raw = "unavailable"
				}
				table.AddRow([]string{s.Detector, string(s.Kind), raw})
			}
			table.Render()
		}
		return nil
	},
}

func init() {
	anomaliesListCmd.Flags().String("org", "", "filter by organization ID")
	anomaliesListCmd.Flags().String("data-type", "", "filter by data type")
	anomaliesListCmd.Flags().String("min-severity", "", "minimum severity: low, medium, high, critical")
	anomaliesListCmd.Flags().String("from", "", "records created at or after this RFC 3339 timestamp")
	anomaliesListCmd.Flags().String("to", "", "records created before this RFC 3339 timestamp")
	anomaliesListCmd.Flags().Int("limit", 50, "maximum records to return")
	anomaliesListCmd.Flags().Int("offset", 0, "records to skip")

	anomaliesCmd.AddCommand(anomaliesListCmd)
	anomaliesCmd.AddCommand(anomaliesGetCmd)
	rootCmd.AddCommand(anomaliesCmd)
}
