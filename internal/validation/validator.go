// =============================================================================
// Ledger Cleaner - Configuration Validation
// =============================================================================
//
// This module checks the main configuration and every source profile before
// any file is processed, so a layout mistake is reported once, up front,
// instead of as a schema error on every input.
//
// PROFILE RULES:
//   - Liveness anchors: exactly two valid column letters
//   - Fill column: a valid column letter
//   - Target columns: exactly seven non-empty, unique names
//   - Sheet name: a valid worksheet name
//   - Amount policy: "fail" or "blank"
//   - CSV: a known encoding, a single-character delimiter, skip_rows >= 0
//   - File patterns: valid globs (warning when none are given)
//
// ERROR HANDLING:
//   - Problems are collected, not returned one by one
//   - Each problem names the profile and the offending key
//   - "warning" problems are reported but do not fail validation
//
// =============================================================================

package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ledger-cleaner/internal/cleaner"
	"github.com/ginjaninja78/ledger-cleaner/internal/config"
	"github.com/ginjaninja78/ledger-cleaner/internal/csvparser"
	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single configuration problem.
type ValidationError struct {
	// Severity is "error" (fatal) or "warning".
	Severity string

	// Profile is the code of the profile, or empty for the main config.
	Profile string

	// Field is the YAML key that failed validation.
	Field string

	// Value is the offending value.
	Value string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	scope := "config"
	if e.Profile != "" {
		scope = "profile " + e.Profile
	}
	return fmt.Sprintf("[%s] %s, %s: %s (value: '%s')",
		strings.ToUpper(e.Severity),
		scope,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result contains the outcome of a validation run.
type Result struct {
	// Errors contains every problem found, warnings included.
	Errors []*ValidationError

	// ErrorCount is the number of fatal problems.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int
}

// IsValid reports whether no fatal problem was found.
func (r *Result) IsValid() bool { return r.ErrorCount == 0 }

func (r *Result) add(errs ...*ValidationError) {
	for _, e := range errs {
		r.Errors = append(r.Errors, e)
		if e.Severity == SeverityError {
			r.ErrorCount++
		} else {
			r.WarningCount++
		}
	}
}

// =============================================================================
// MAIN VALIDATION FUNCTIONS
// =============================================================================

// ValidateAll validates the main configuration and every profile of set.
func ValidateAll(cfg *config.MainConfig, set *config.ProfileSet) *Result {
	result := &Result{}
	result.add(ValidateMainConfig(cfg)...)
	for _, p := range set.All() {
		result.add(ValidateProfile(p)...)
	}
	return result
}

// ValidateMainConfig checks the global settings.
func ValidateMainConfig(cfg *config.MainConfig) []*ValidationError {
	var errs []*ValidationError
	fail := func(field, value, msg string) {
		errs = append(errs, &ValidationError{Severity: SeverityError, Field: field, Value: value, Message: msg})
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		fail("log_level", cfg.LogLevel, "must be debug, info, warn or error")
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "text", "json":
	default:
		fail("log_format", cfg.LogFormat, "must be text or json")
	}
	if cfg.MaxConcurrency < 1 {
		fail("max_concurrency", fmt.Sprint(cfg.MaxConcurrency), "must be at least 1")
	}
	if cfg.Server.MaxUploadMB < 1 {
		fail("server.max_upload_mb", fmt.Sprint(cfg.Server.MaxUploadMB), "must be at least 1")
	}
	switch cfg.Server.Mode {
	case "release", "debug", "test":
	default:
		fail("server.mode", cfg.Server.Mode, "must be release, debug or test")
	}
	if strings.ContainsAny(cfg.OutputNameFormat, `/\`) {
		fail("output_name_format", cfg.OutputNameFormat, "must be a file name, not a path")
	}
	return errs
}

// ValidateProfile checks one profile against the rules listed above.
func ValidateProfile(p *config.Profile) []*ValidationError {
	var errs []*ValidationError
	report := func(severity, field, value, msg string) {
		errs = append(errs, &ValidationError{
			Severity: severity,
			Profile:  p.Code,
			Field:    field,
			Value:    value,
			Message:  msg,
		})
	}
	fail := func(field, value, msg string) { report(SeverityError, field, value, msg) }

	c := p.Cleaning

	// =========================================================================
	// ANCHOR COLUMNS
	// =========================================================================

	if len(c.LivenessAnchors) != 2 {
		fail("cleaning.liveness_anchors", strings.Join(c.LivenessAnchors, ","), "exactly 2 columns are required")
	}
	for _, a := range c.LivenessAnchors {
		if msg := validateColumnLetter(a); msg != "" {
			fail("cleaning.liveness_anchors", a, msg)
		}
	}
	if msg := validateColumnLetter(c.FillColumn); msg != "" {
		fail("cleaning.fill_column", c.FillColumn, msg)
	}

	// =========================================================================
	// TARGET SCHEMA
	// =========================================================================

	if len(c.TargetColumns) != cleaner.TargetColumns {
		fail("cleaning.target_columns", strings.Join(c.TargetColumns, ","),
			fmt.Sprintf("exactly %d names are required, got %d", cleaner.TargetColumns, len(c.TargetColumns)))
	}
	seen := make(map[string]bool, len(c.TargetColumns))
	for i, name := range c.TargetColumns {
		if strings.TrimSpace(name) == "" {
			fail("cleaning.target_columns", name, fmt.Sprintf("name %d is empty", i+1))
			continue
		}
		if seen[name] {
			fail("cleaning.target_columns", name, "name is repeated")
		}
		seen[name] = true
	}

	if err := types.CheckSheetName(c.SheetName); err != nil {
		fail("cleaning.sheet_name", c.SheetName, err.Error())
	}

	switch cleaner.AmountPolicy(strings.ToLower(c.AmountPolicy)) {
	case cleaner.AmountFail, cleaner.AmountBlank:
	default:
		fail("cleaning.amount_policy", c.AmountPolicy, "must be fail or blank")
	}

	// =========================================================================
	// CSV SETTINGS
	// =========================================================================

	if _, err := csvparser.Decoder(p.CSVSettings.Encoding); err != nil {
		fail("csv_settings.encoding", p.CSVSettings.Encoding, "must be UTF-8, ISO-8859-1 or Windows-1252")
	}
	if msg := validateDelimiter(p.CSVSettings.Delimiter); msg != "" {
		fail("csv_settings.delimiter", p.CSVSettings.Delimiter, msg)
	}
	if p.CSVSettings.SkipRows < 0 {
		fail("csv_settings.skip_rows", fmt.Sprint(p.CSVSettings.SkipRows), "must not be negative")
	}

	// =========================================================================
	// FILE MATCHING
	// =========================================================================

	if len(p.FileMatchingPatterns) == 0 && p.Code != config.DefaultProfileCode {
		report(SeverityWarning, "file_matching_patterns", "", "no patterns: profile is only used when requested by code")
	}
	for _, pattern := range p.FileMatchingPatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			fail("file_matching_patterns", pattern, "invalid glob pattern")
		}
	}

	return errs
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// validateColumnLetter returns an error message if s is not a column name
// such as "A" or "AB".
func validateColumnLetter(s string) string {
	if s == "" {
		return "column is required"
	}
	if _, err := excelize.ColumnNameToNumber(s); err != nil {
		return "not a valid column letter"
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "column letters must be upper case"
		}
	}
	return ""
}

func validateDelimiter(s string) string {
	switch s {
	case "", "\\t", "\t", "tab", "TAB", "pipe", "PIPE", "semicolon":
		return ""
	}
	if len([]rune(s)) != 1 {
		return "must be a single character or one of tab, pipe, semicolon"
	}
	switch r := csvparser.Delimiter(s); r {
	case '"', '\r', '\n':
		return "cannot be a quote or line break"
	}
	return ""
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n\n", len(errors)))
	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}
