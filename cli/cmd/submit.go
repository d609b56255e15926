package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chaintrace-systems/chaintrace-stack/cli/internal/client"
	"github.com/chaintrace-systems/chaintrace-stack/cli/pkg/output"
)

var submitCmd = &cobra.Command{
	Use:   "submit [file]",
	Short: "Submit a telemetry record for scoring",
	Long: `Submit one telemetry record to the detection service and print the verdict.

The record is read from the named JSON file, or from stdin when no file
is given. Example payload:

  {
    "record_id": "shipment-42",
    "org_id": "org-acme",
    "data_type": "temperature",
    "fields": {"value": 38.0, "unit": "c", "setpoint": 4.0}
  }`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("read telemetry payload: %w", err)
		}

		var sub client.TelemetrySubmission
		if err := json.Unmarshal(data, &sub); err != nil {
			return fmt.Errorf("parse telemetry payload: %w", err)
		}

		profile, _ := cmd.Flags().GetString("profile")
		if org, _ := cmd.Flags().GetString("org"); org != "" {
			sub.OrgID = org
		} else if sub.OrgID == "" {
			sub.OrgID = cfg.GetOrgID(profile)
		}

		detect := client.NewDetectClient(cfg.GetDetectURL(profile))
		rec, err := detect.Submit(&sub)
		if err != nil {
			return fmt.Errorf("failed to submit telemetry: %w", err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(rec)
		}

		output.Success("Scored %s", rec.ID)
		output.Info("Severity:   %s", output.Severity(string(rec.Verdict.Severity)))
		output.Info("Confidence: %.3f", rec.Verdict.Confidence)
		output.Info("Model:      %s", rec.ModelVersion)
		if rec.Verdict.Degraded {
			output.Warn("Verdict is degraded: one or more detectors failed")
		}
		return nil
	},
}

func init() {
	submitCmd.Flags().String("org", "", "organization ID (overrides payload and profile)")
	rootCmd.AddCommand(submitCmd)
}
