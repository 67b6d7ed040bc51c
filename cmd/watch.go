// =============================================================================
// Ledger Cleaner - Watch Command
// =============================================================================
//
// COMMAND USAGE:
//   cleaner watch [--debounce 500ms]
//
// Watches the input directory and cleans each export once it stops changing.
// Results are archived and named exactly as with 'cleaner process'.
//
// =============================================================================

package cmd

import (
	"context"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ledger-cleaner/internal/converter"
	"github.com/ginjaninja78/ledger-cleaner/internal/watch"
	"github.com/ginjaninja78/ledger-cleaner/pkg/utils"
)

// debounce is the quiet period before a changed file is processed.
var debounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Clean ledger exports as they arrive in the input directory",

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.cfg.EnsureDirs(); err != nil {
			return err
		}

		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)

		handler := func(ctx context.Context, path string) error {
			result := converter.New(path, a.profiles.Match(path), a.cfg, a.logger).Run(ctx)
			if !result.Success {
				red.Printf("  ✗ %s\n", result)
				if _, err := utils.WriteErrorLog(result.ErrorEntries(), a.cfg.OutputDir); err != nil {
					a.logger.Error("failed to write error log", "error", err)
				}
				return result.Error
			}
			green.Printf("  ✓ %s\n", result)
			return nil
		}

		w, err := watch.New(watch.Config{Dir: a.cfg.InputDir, Debounce: debounce}, handler, a.logger)
		if err != nil {
			return err
		}

		color.New(color.Bold).Printf("Watching %s (Ctrl+C to stop)\n", a.cfg.InputDir)
		return w.Start(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed file is processed")
}
