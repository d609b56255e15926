package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaintrace-systems/chaintrace-stack/cli/internal/client"
	"github.com/chaintrace-systems/chaintrace-stack/cli/internal/seeder"
	"github.com/chaintrace-systems/chaintrace-stack/cli/pkg/output"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed synthetic telemetry",
	Long: `Generate synthetic supply-chain telemetry and submit it for scoring.

Most readings are baseline sensor data; --anomaly-rate controls the fraction
injected with cold-chain breaches, humidity spikes, and route deviations.

Examples:
  # 500 readings, 5% anomalous, all data types
  ctrace seed --org org-acme --count 500

  # Temperature only, heavier anomaly load, reproducible
  ctrace seed --org org-acme --types temperature --anomaly-rate 0.2 --seed 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")

		org, _ := cmd.Flags().GetString("org")
		if org == "" {
			org = cfg.GetOrgID(profile)
		}
		if org == "" {
			return fmt.Errorf("organization ID is required: pass --org or configure a profile")
		}

		count, _ := cmd.Flags().GetInt("count")
		rate, _ := cmd.Flags().GetFloat64("anomaly-rate")
		if rate < 0 || rate > 1 {
			return fmt.Errorf("anomaly rate must be within 0..1")
		}
		types, _ := cmd.Flags().GetString("types")
		interval, _ := cmd.Flags().GetDuration("interval")
		seed, _ := cmd.Flags().GetInt64("seed")

		opts := seeder.Options{
			OrgID:       org,
			Count:       count,
			AnomalyRate: rate,
			Interval:    interval,
			Seed:        seed,
		}
		if types != "" {
			opts.DataTypes = strings.Split(types, ",")
		}

		runner := seeder.NewRunner(opts, client.NewDetectClient(cfg.GetDetectURL(profile)))
		res, err := runner.Run()
		if err != nil {
			return err
		}

		output.Success("Submitted %d readings (%d failed)", res.Submitted, res.Failed)
		for _, sev := range []string{"low", "medium", "high", "critical"} {
			if n := res.Flagged[sev]; n > 0 {
				output.Info("  %s: %d", output.Severity(sev), n)
			}
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().String("org", "", "organization ID to seed under")
	seedCmd.Flags().Int("count", 100, "number of readings to submit")
	seedCmd.Flags().Float64("anomaly-rate", 0.05, "fraction of readings injected as anomalies")
	seedCmd.Flags().String("types", "", "comma-separated data types (default: all)")
	seedCmd.Flags().Duration("interval", 0, "pause between submissions")
	seedCmd.Flags().Int64("seed", 0, "random seed for reproducible runs (0 = random)")
	rootCmd.AddCommand(seedCmd)
}
