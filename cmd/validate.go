// =============================================================================
// Ledger Cleaner - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   cleaner validate
//
// Loads the main configuration and every profile and reports problems
// without processing anything. Exits non-zero when an error is found.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ledger-cleaner/internal/config"
	"github.com/ginjaninja78/ledger-cleaner/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and source profiles",

	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadMainConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		profiles, err := config.LoadProfiles(cfg.ProfilesDir, cfg.DefaultProfile)
		if err != nil {
			return fmt.Errorf("failed to load profiles: %w", err)
		}

		fmt.Printf("Checked %d profile(s) from %s\n", len(profiles.All()), cfg.ProfilesDir)

		result := validation.ValidateAll(cfg, profiles)
		if len(result.Errors) == 0 {
			color.New(color.FgGreen).Println("Configuration is valid")
			return nil
		}

		for _, e := range result.Errors {
			if e.Severity == validation.SeverityError {
				color.New(color.FgRed).Printf("  %s\n", e.Error())
			} else {
				color.New(color.FgYellow).Printf("  %s\n", e.Error())
			}
		}
		fmt.Printf("%d error(s), %d warning(s)\n", result.ErrorCount, result.WarningCount)

		if !result.IsValid() {
			return fmt.Errorf("configuration has %d error(s)", result.ErrorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
