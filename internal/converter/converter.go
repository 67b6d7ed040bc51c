// =============================================================================
// Ledger Cleaner - Converter Module
// =============================================================================
//
// The per-file job: one ledger export in, one reassembled workbook out.
//
// STEPS:
//   1. Build the cleaning pipeline from the profile
//   2. Decode the input (workbook or CSV export)
//   3. Clean the first sheet and reassemble the workbook
//   4. Write the output workbook
//   5. Archive the processed files
//
// Converters share no mutable state; the batch command runs several at once.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/ledger-cleaner/internal/cleaner"
	"github.com/ginjaninja78/ledger-cleaner/internal/config"
	"github.com/ginjaninja78/ledger-cleaner/internal/xlsxwriter"
	"github.com/ginjaninja78/ledger-cleaner/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of one Run.
type Result struct {
	// FilePath is the input that was cleaned.
	FilePath string

	// Profile is the code of the profile the file was cleaned with.
	Profile string

	// OutputFile is the written workbook, empty on failure or a dry run.
	OutputFile string

	// ArchivePath is where the input file was archived, if it was.
	ArchivePath string

	Success bool
	Error   error

	// Report is the cleaning report, nil when cleaning did not complete.
	Report *cleaner.Report

	Stats ProcessingStats
}

// ProcessingStats are the counters reported for one file.
type ProcessingStats struct {
	// InputRows is the row count of the sheet that was cleaned.
	InputRows int

	// OutputRows is the row count of the cleaned table.
	OutputRows int

	// Sheets is the number of sheets in the output workbook.
	Sheets int

	// DroppedColumns lists the source columns removed as empty.
	DroppedColumns []string

	// InvalidDates is the number of date cells that became blank.
	InvalidDates int

	// AmountIssues is the number of amount cells left blank under the
	// blank amount policy.
	AmountIssues int

	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter processes one input file.
type Converter struct {
	path       string
	profile    *config.Profile
	mainConfig *config.MainConfig
	files      *utils.FileManager
	logger     *slog.Logger
	dryRun     bool
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a Converter for the file at path. A nil logger discards output.
func New(path string, profile *config.Profile, mainConfig *config.MainConfig, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Converter{
		path:       path,
		profile:    profile,
		mainConfig: mainConfig,
		files:      mainConfig.Files(),
		logger:     logger.With("file", filepath.Base(path), "profile", profile.Code),
	}
}

// WithDryRun makes Run stop after cleaning: nothing is written or archived.
func (c *Converter) WithDryRun(dryRun bool) *Converter {
	c.dryRun = dryRun
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the processing pipeline for the file. A cancelled ctx stops
// the run between steps.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{
		FilePath: c.path,
		Profile:  c.profile.Code,
	}
	fail := func(err error) Result {
		result.Error = err
		result.Stats.ProcessingTime = time.Since(startTime)
		c.logger.Error("processing failed", "kind", Kind(err), "error", err)
		return result
	}

	c.logger.Info("processing file")

	// =========================================================================
	// STEP 1: BUILD PIPELINE
	// =========================================================================

	spec, err := c.profile.CleanerSpec()
	if err != nil {
		return fail(fmt.Errorf("%w: %v", cleaner.ErrInvalidSpec, err))
	}
	pipeline, err := cleaner.New(spec, c.logger)
	if err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 2: DECODE INPUT
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	wb, err := DecodeFile(c.path, c.profile.CSVSettings)
	if err != nil {
		return fail(err)
	}
	c.logger.Debug("decoded input", "sheets", wb.Len())

	// =========================================================================
	// STEP 3: CLEAN AND REASSEMBLE
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	out, report, err := pipeline.CleanAndReassemble(wb)
	if err != nil {
		return fail(err)
	}

	result.Report = report
	result.Stats.InputRows = report.InputRows
	result.Stats.OutputRows = report.OutputRows()
	result.Stats.Sheets = out.Len()
	result.Stats.DroppedColumns = report.DroppedColumns
	result.Stats.InvalidDates = report.InvalidDates
	result.Stats.AmountIssues = len(report.Issues)

	for _, issue := range report.Issues {
		c.logger.Warn("amount left blank", "row", issue.Row, "column", issue.Column, "value", issue.Value)
	}

	if c.dryRun {
		result.Success = true
		result.Stats.ProcessingTime = time.Since(startTime)
		c.logger.Info("dry run complete", "output_rows", result.Stats.OutputRows)
		return result
	}

	// =========================================================================
	// STEP 4: WRITE OUTPUT FILE
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	outputPath := filepath.Join(c.mainConfig.OutputDir, c.outputFileName())
	if err := xlsxwriter.WriteFile(out, outputPath); err != nil {
		return fail(err)
	}
	result.OutputFile = outputPath
	c.logger.Info("wrote output", "output", outputPath, "rows", result.Stats.OutputRows)

	// =========================================================================
	// STEP 5: ARCHIVE FILES
	// =========================================================================
	// Archival failures are logged but do not fail the file: the output is
	// already written.

	if archived, err := c.files.ArchiveInputFile(c.path); err != nil {
		c.logger.Warn("failed to archive input file", "error", err)
	} else if archived != c.path {
		result.ArchivePath = archived
	}
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		c.logger.Warn("failed to archive output file", "error", err)
	}

	// =========================================================================
	// COMPLETE
	// =========================================================================

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)
	return result
}

// outputFileName expands the configured output name format.
func (c *Converter) outputFileName() string {
	original := strings.TrimSuffix(filepath.Base(c.path), filepath.Ext(c.path))
	return utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, map[string]string{
		"original": original,
		"profile":  c.profile.Code,
	})
}

// =============================================================================
// LOG ENTRIES
// =============================================================================

// ErrorEntries returns the error log entries for r: one for a failure, plus
// one per amount left blank.
func (r Result) ErrorEntries() []utils.ErrorLogEntry {
	var entries []utils.ErrorLogEntry
	now := time.Now()
	file := filepath.Base(r.FilePath)

	if r.Error != nil {
		entry := utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     file,
			Profile:      r.Profile,
			ErrorType:    Kind(r.Error),
			ErrorMessage: r.Error.Error(),
		}
		if se, ok := AsSchemaError(r.Error); ok {
			entry.Stage = se.Stage
			entry.Column = se.Column
		}
		if pe, ok := AsParseError(r.Error); ok {
			entry.Column = pe.Column
			entry.RowNumber = pe.Row
			entry.Value = pe.Value
		}
		entries = append(entries, entry)
	}

	if r.Report != nil {
		for _, issue := range r.Report.Issues {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     file,
				Profile:      r.Profile,
				ErrorType:    "amount",
				ErrorMessage: issue.Message,
				Stage:        cleaner.StageCoerceValues,
				Column:       issue.Column,
				RowNumber:    issue.Row,
				Value:        issue.Value,
			})
		}
	}
	return entries
}

// SummaryEntry converts r into the form recorded in the processing summary.
func (r Result) SummaryEntry() (*utils.ProcessedFileInfo, *utils.FailedFileInfo) {
	if !r.Success {
		msg := "unknown error"
		if r.Error != nil {
			msg = r.Error.Error()
		}
		return nil, &utils.FailedFileInfo{
			InputFile:    r.FilePath,
			ErrorMessage: msg,
			ErrorType:    Kind(r.Error),
		}
	}
	return &utils.ProcessedFileInfo{
		InputFile:      r.FilePath,
		OutputFile:     r.OutputFile,
		ArchivePath:    r.ArchivePath,
		Profile:        r.Profile,
		InputRows:      r.Stats.InputRows,
		OutputRows:     r.Stats.OutputRows,
		DroppedColumns: r.Stats.DroppedColumns,
		InvalidDates:   r.Stats.InvalidDates,
		AmountIssues:   r.Stats.AmountIssues,
		ProcessTime:    r.Stats.ProcessingTime,
	}, nil
}

// String formats r for console output.
func (r Result) String() string {
	if !r.Success {
		return fmt.Sprintf("%s: %v", filepath.Base(r.FilePath), r.Error)
	}
	if r.OutputFile == "" {
		return fmt.Sprintf("%s: %d -> %d rows (dry run)", filepath.Base(r.FilePath), r.Stats.InputRows, r.Stats.OutputRows)
	}
	return fmt.Sprintf("%s -> %s: %d -> %d rows", filepath.Base(r.FilePath), filepath.Base(r.OutputFile), r.Stats.InputRows, r.Stats.OutputRows)
}
