package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaintrace-systems/chaintrace-stack/cli/pkg/output"
	"github.com/chaintrace-systems/chaintrace-stack/common/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage CLI profiles",
	Long:  "Create and inspect named endpoint profiles stored in ~/.ctrace/config.yaml",
}

var profileSetCmd = &cobra.Command{
	Use:   "set [name]",
	Short: "Create or update a profile and make it current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		p := &config.CLIProfile{}
		if existing, err := cfg.GetProfile(name); err == nil {
			*p = *existing
		}

		if v, _ := cmd.Flags().GetString("detect-url"); v != "" {
			p.DetectURL = v
		}
		if v, _ := cmd.Flags().GetString("explain-url"); v != "" {
			p.ExplainURL = v
		}
		if v, _ := cmd.Flags().GetString("anchor-url"); v != "" {
			p.AnchorURL = v
		}
		if v, _ := cmd.Flags().GetString("org"); v != "" {
			p.OrgID = v
		}

		if err := cfg.SaveProfile(name, p); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		output.Success("Profile %q saved and made current", name)
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			return output.JSON(cfg.Profiles)
		}

		if len(cfg.Profiles) == 0 {
			output.Info("No profiles configured; using defaults (%s)", cfg.Defaults.DetectURL)
			return nil
		}

		table := output.NewTable([]string{"Name", "Detect URL", "Explain URL", "Anchor URL", "Org", "Current"})
		for name, p := range cfg.Profiles {
			current := ""
			if name == cfg.CurrentProfile {
				current = "*"
			}
			table.AddRow([]string{name, p.DetectURL, p.ExplainURL, p.AnchorURL, p.OrgID, current})
		}
		table.Render()
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use [name]",
	Short: "Switch the current profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, err := cfg.GetProfile(name); err != nil {
			return err
		}
		cfg.CurrentProfile = name
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		output.Success("Switched to profile %q", name)
		return nil
	},
}

func init() {
	profileSetCmd.Flags().String("detect-url", "", "detection service base URL")
	profileSetCmd.Flags().String("explain-url", "", "explanation service base URL")
	profileSetCmd.Flags().String("anchor-url", "", "anchor service base URL")
	profileSetCmd.Flags().String("org", "", "default organization ID for this profile")

	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileUseCmd)
	rootCmd.AddCommand(profileCmd)
}
