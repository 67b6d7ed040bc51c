// =============================================================================
// Ledger Cleaner - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (cleaner)
//   ├── processCmd  (cleaner process)
//   ├── serveCmd    (cleaner serve)
//   ├── watchCmd    (cleaner watch)
//   ├── validateCmd (cleaner validate)
//   └── versionCmd  (cleaner version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads the .env file (if present) into the environment
//   2. Applies the --no-color flag
//   Commands that need them then call loadApp for the main config,
//   the source profiles and the logger.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ledger-cleaner/internal/config"
	"github.com/ginjaninja78/ledger-cleaner/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile is loaded into the environment before the configuration.
var envFile string

// verbose forces debug logging.
var verbose bool

// noColor disables coloured console output.
var noColor bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cleaner",
	Short: "Ledger Cleaner - Normalise accounting ledger exports into a flat table",

	Long: `Ledger Cleaner turns the spreadsheet exported by an accounting system's
ledger report into an analysis-ready workbook. Separator and banner rows are
removed, empty columns pruned, grouped dates filled down, the columns renamed
to a fixed schema and amounts and dates converted to real values. The cleaned
table is added to the original workbook as a new sheet.

Example Usage:
  cleaner process                     # Clean every export in the input directory
  cleaner process --file razao.xlsx   # Clean a single file
  cleaner serve --addr :9000          # Accept uploads over HTTP
  cleaner watch                       # Clean exports as they arrive
  cleaner validate                    # Check configuration and profiles`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		if noColor {
			color.NoColor = true
		}
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. SIGINT and SIGTERM cancel the command's context.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the persistent flags shared by every subcommand.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Environment file loaded before the configuration (ignored if missing)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().BoolVar(
		&noColor,
		"no-color",
		false,
		"Disable coloured output",
	)
}

// =============================================================================
// SHARED STATE
// =============================================================================

// app bundles what the working commands share.
type app struct {
	cfg      *config.MainConfig
	profiles *config.ProfileSet
	logger   *slog.Logger
	closer   io.Closer
}

// loadApp loads the main configuration and the profiles, and builds the
// logger. The caller must call Close.
func loadApp() (*app, error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	profiles, err := config.LoadProfiles(cfg.ProfilesDir, cfg.DefaultProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, profiles: profiles, logger: logger, closer: closer}, nil
}

// Close releases the log file.
func (a *app) Close() error { return a.closer.Close() }
