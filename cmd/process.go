// =============================================================================
// Ledger Cleaner - Process Command
// =============================================================================
//
// This file defines the 'process' command, the batch entry point. It cleans
// every ledger export found in the input directory.
//
// COMMAND USAGE:
//   cleaner process [flags]
//
// FLAGS:
//   --file      : Process only this file
//   --profile   : Use this profile for every file instead of matching by name
//   --dry-run   : Clean without writing output files or archiving
//
// PROCESSING PIPELINE:
//   1. Load configuration and profiles
//   2. Discover input files (.xlsx, .xlsm, .csv)
//   3. Match each file to a profile
//   4. Clean the files concurrently, at most max_concurrency at a time
//   5. Write the error log and processing summary
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/ledger-cleaner/internal/config"
	"github.com/ginjaninja78/ledger-cleaner/internal/converter"
	"github.com/ginjaninja78/ledger-cleaner/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun cleans without writing output files.
var dryRun bool

// filePath is a single file to process.
var filePath string

// profileCode forces a profile for every file.
var profileCode string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Clean the ledger exports in the input directory",
	Long: `The process command scans the input directory for ledger exports, matches
each one to a source profile by file name and cleans it. The cleaned table is
added to a copy of the original workbook, written to the output directory.

Files are processed concurrently. Unless continue_on_error is false, a
failing file does not stop the others.

On successful processing:
  - The cleaned workbook is placed in the output directory
  - The original export is moved to the input archive
  - A summary report is generated

On error:
  - An error log is created in the output directory
  - The original export remains in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Clean without writing output files or archiving",
	)

	processCmd.Flags().StringVar(
		&filePath,
		"file",
		"",
		"Path to a single file to process",
	)

	processCmd.Flags().StringVar(
		&profileCode,
		"profile",
		"",
		"Profile code to use for every file (default: match by file name)",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context) error {
	startTime := time.Now()
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	bold.Println("=== Ledger Cleaner ===")

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !dryRun {
		if err := a.cfg.EnsureDirs(); err != nil {
			return err
		}
	}
	fmt.Printf("Loaded %d profile(s)\n", len(a.profiles.All()))

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	files := a.cfg.Files()

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else {
		inputFiles, err = files.DiscoverInputFiles()
		if err != nil {
			return fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	if len(inputFiles) == 0 {
		yellow.Println("No ledger exports found in the input directory.")
		return nil
	}
	fmt.Printf("Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 3: MATCH PROFILES
	// =========================================================================

	profiles := make([]*config.Profile, len(inputFiles))
	for i, file := range inputFiles {
		profile, err := pickProfile(a.profiles, file)
		if err != nil {
			return err
		}
		profiles[i] = profile
	}

	// =========================================================================
	// STEP 4: PROCESS FILES CONCURRENTLY
	// =========================================================================
	// Results are stored by index so the report keeps discovery order.

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrency)

	results := make([]converter.Result, len(inputFiles))
	for i, file := range inputFiles {
		g.Go(func() error {
			result := converter.New(file, profiles[i], a.cfg, a.logger).
				WithDryRun(dryRun).
				Run(gctx)
			results[i] = result
			if !result.Success && !a.cfg.ContinueOnError {
				return fmt.Errorf("%s: %w", filepath.Base(file), result.Error)
			}
			return nil
		})
	}
	stopErr := g.Wait()

	// =========================================================================
	// STEP 5: REPORT
	// =========================================================================

	summary := utils.ProcessingSummary{StartTime: startTime}
	var errorEntries []utils.ErrorLogEntry

	for _, result := range results {
		if result.FilePath == "" {
			// Never started: an earlier failure stopped the run.
			continue
		}
		summary.Add(result.SummaryEntry())
		errorEntries = append(errorEntries, result.ErrorEntries()...)

		if result.Success {
			green.Printf("  ✓ %s\n", result)
		} else {
			red.Printf("  ✗ %s\n", result)
		}
	}
	summary.EndTime = time.Now()

	fmt.Println()
	bold.Println("=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	green.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	if summary.FailedFiles > 0 {
		red.Printf("Errors:          %d\n", summary.FailedFiles)
	} else {
		fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	}
	fmt.Printf("Rows:            %d -> %d\n", summary.InputRows, summary.OutputRows)
	if summary.InvalidDates > 0 || summary.AmountIssues > 0 {
		yellow.Printf("Invalid dates:   %d\n", summary.InvalidDates)
		yellow.Printf("Amount issues:   %d\n", summary.AmountIssues)
	}
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if !dryRun {
		logPath, err := utils.WriteErrorLog(errorEntries, a.cfg.OutputDir)
		if err != nil {
			a.logger.Error("failed to write error log", "error", err)
		} else if logPath != "" {
			yellow.Printf("\nErrors have been logged to %s\n", logPath)
		}

		summaryPath, err := utils.WriteSummaryLog(summary, a.cfg.OutputDir)
		if err != nil {
			a.logger.Error("failed to write summary", "error", err)
		} else {
			fmt.Printf("Summary written to %s\n", summaryPath)
		}
	}

	if stopErr != nil {
		return fmt.Errorf("processing stopped: %w", stopErr)
	}
	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// pickProfile returns the --profile profile, or the one matching file.
func pickProfile(set *config.ProfileSet, file string) (*config.Profile, error) {
	if profileCode == "" {
		return set.Match(file), nil
	}
	p, ok := set.Get(profileCode)
	if !ok {
		return nil, errors.New("unknown profile " + profileCode)
	}
	return p, nil
}
