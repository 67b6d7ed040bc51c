// =============================================================================
// Ledger Cleaner - File Manager Utility
// =============================================================================
//
// Batch file handling shared by the process and watch commands:
//   - Input discovery (workbooks and CSV exports)
//   - Archival of processed inputs and produced outputs
//   - Output file naming
//   - Error log and processing summary reports
//
// ARCHIVE LAYOUT:
//   input_archive/[YYYY/MM/DD/]razao.xlsx            (moved)
//   output_archive/[YYYY/MM/DD/]razao_cleaned_….xlsx (copied)
//   A file that failed to clean is never archived.
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
)

// InputPatterns are the glob patterns discovered when none are given.
var InputPatterns = []string{"*.xlsx", "*.xlsm", "*.csv"}

const (
	reportTimeLayout = "2006-01-02 15:04:05"
	fileStampLayout  = "20060102_150405"
	ruler            = "================================================================================"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// Dirs names the four working directories.
type Dirs struct {
	Input         string
	Output        string
	InputArchive  string
	OutputArchive string
}

// FileManager discovers and archives files under Dirs.
type FileManager struct {
	Dirs

	// DateSubdirs files archives under YYYY/MM/DD.
	DateSubdirs bool

	// Archive enables archival. When false the Archive* methods return the
	// path unchanged.
	Archive bool

	now func() time.Time
}

// NewFileManager returns a FileManager with archival enabled.
func NewFileManager(dirs Dirs) *FileManager {
	return &FileManager{Dirs: dirs, Archive: true, now: time.Now}
}

// EnsureDirectories creates the working directories.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.Input, fm.Output, fm.InputArchive, fm.OutputArchive} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles returns the regular files of the input directory that
// match any of patterns (InputPatterns when none are given), sorted and
// without duplicates. Editor lock files are skipped.
func (fm *FileManager) DiscoverInputFiles(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = InputPatterns
	}

	found := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(fm.Input, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if IsTempFile(m) {
				continue
			}
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				found[m] = struct{}{}
			}
		}
	}

	files := make([]string, 0, len(found))
	for f := range found {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// IsTempFile reports whether path names an editor lock file ("~$razao.xlsx")
// or a LibreOffice temporary (".~lock…").
func IsTempFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~")
}

// IsSupportedInput reports whether path has an extension the converter can
// decode and is not a temporary file.
func IsSupportedInput(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".csv":
		return !IsTempFile(path)
	}
	return false
}

// =============================================================================
// ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a processed input into the input archive and
// returns its new path.
func (fm *FileManager) ArchiveInputFile(path string) (string, error) {
	return fm.archive(path, fm.InputArchive, true)
}

// ArchiveOutputFile copies an output workbook into the output archive. The
// original stays in the output directory.
func (fm *FileManager) ArchiveOutputFile(path string) (string, error) {
	return fm.archive(path, fm.OutputArchive, false)
}

func (fm *FileManager) archive(path, root string, move bool) (string, error) {
	if !fm.Archive {
		return path, nil
	}

	dest := fm.archivePath(root, path)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("cannot create archive folder for %s: %w", filepath.Base(path), err)
	}

	if move {
		if err := os.Rename(path, dest); err == nil {
			return dest, nil
		}
		// Rename fails across devices; fall back to copy and remove.
	}
	if err := copyFile(path, dest); err != nil {
		return "", fmt.Errorf("cannot copy %s to archive: %w", filepath.Base(path), err)
	}
	if move {
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("archived %s but could not remove it: %w", filepath.Base(path), err)
		}
	}
	return dest, nil
}

func (fm *FileManager) archivePath(root, path string) string {
	name := filepath.Base(path)
	if !fm.DateSubdirs {
		return filepath.Join(root, name)
	}
	now := fm.clock()
	return filepath.Join(root, now.Format("2006"), now.Format("01"), now.Format("02"), name)
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands format into an output file name.
//
// Built-in placeholders:
//
//	{uuid}      random UUID
//	{timestamp} YYYYMMDD_HHMMSS
//	{date}      YYYYMMDD
//	{time}      HHMMSS
//
// Every key of params adds a {key} placeholder, e.g. {original} and
// {profile}. Path separators in the result become underscores, and ".xlsx"
// is appended unless the name already ends with it.
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()
	pairs := []string{
		"{uuid}", uuid.NewString(),
		"{timestamp}", now.Format(fileStampLayout),
		"{date}", now.Format("20060102"),
		"{time}", now.Format("150405"),
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", params[k])
	}

	name := strings.NewReplacer(pairs...).Replace(format)
	name = strings.NewReplacer("/", "_", `\`, "_").Replace(name)
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		name += ".xlsx"
	}
	return name
}

// =============================================================================
// ERROR LOG
// =============================================================================

// ErrorLogEntry is one problem reported in the error log.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	Profile      string
	ErrorType    string
	ErrorMessage string
	Stage        string
	Column       string
	RowNumber    int
	Value        string
}

// WriteErrorLog writes entries to error_log_<timestamp>.txt in outputDir and
// returns its path. Nothing is written, and the path is empty, when entries
// is empty.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	return writeReport(outputDir, "error_log", func(w io.Writer) {
		fmt.Fprintf(w, "Ledger Cleaner - Error Log (%s)\n", time.Now().Format(reportTimeLayout))
		fmt.Fprintf(w, "Problems: %d\n%s\n\n", len(entries), ruler)

		for i, e := range entries {
			fmt.Fprintf(w, "[%d] %s\n", i+1, e.FileName)
			tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
			field(tw, "Time", e.Timestamp.Format(reportTimeLayout))
			field(tw, "Profile", e.Profile)
			field(tw, "Kind", e.ErrorType)
			field(tw, "Message", e.ErrorMessage)
			field(tw, "Stage", e.Stage)
			field(tw, "Column", e.Column)
			if e.RowNumber > 0 {
				field(tw, "Row", fmt.Sprint(e.RowNumber))
			}
			field(tw, "Value", e.Value)
			tw.Flush()
			fmt.Fprintln(w)
		}
	})
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary aggregates one batch run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	InputRows       int
	OutputRows      int
	InvalidDates    int
	AmountIssues    int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a file that was cleaned.
type ProcessedFileInfo struct {
	InputFile      string
	OutputFile     string
	ArchivePath    string
	Profile        string
	InputRows      int
	OutputRows     int
	DroppedColumns []string
	InvalidDates   int
	AmountIssues   int
	ProcessTime    time.Duration
}

// FailedFileInfo describes a file that could not be cleaned.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// Add records one file: ok for a success, failed otherwise.
func (s *ProcessingSummary) Add(ok *ProcessedFileInfo, failed *FailedFileInfo) {
	s.TotalFiles++
	if failed != nil {
		s.FailedFiles++
		s.FailedFilesList = append(s.FailedFilesList, *failed)
		return
	}
	s.SuccessfulFiles++
	s.InputRows += ok.InputRows
	s.OutputRows += ok.OutputRows
	s.InvalidDates += ok.InvalidDates
	s.AmountIssues += ok.AmountIssues
	s.ProcessedFiles = append(s.ProcessedFiles, *ok)
}

// WriteSummaryLog writes summary to processing_summary_<timestamp>.txt in
// outputDir and returns its path.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	return writeReport(outputDir, "processing_summary", func(w io.Writer) {
		fmt.Fprintf(w, "Ledger Cleaner - Run Summary\n%s\n", ruler)

		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		field(tw, "Started", summary.StartTime.Format(reportTimeLayout))
		field(tw, "Finished", summary.EndTime.Format(reportTimeLayout))
		field(tw, "Elapsed", summary.EndTime.Sub(summary.StartTime).String())
		field(tw, "Files", fmt.Sprintf("%d (%d cleaned, %d failed)",
			summary.TotalFiles, summary.SuccessfulFiles, summary.FailedFiles))
		field(tw, "Rows", fmt.Sprintf("%d -> %d", summary.InputRows, summary.OutputRows))
		field(tw, "Invalid dates", fmt.Sprint(summary.InvalidDates))
		field(tw, "Amount issues", fmt.Sprint(summary.AmountIssues))
		tw.Flush()

		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(w, "\nOK   %s\n", pf.InputFile)
			tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
			field(tw, "Output", pf.OutputFile)
			field(tw, "Profile", pf.Profile)
			field(tw, "Rows", fmt.Sprintf("%d -> %d", pf.InputRows, pf.OutputRows))
			field(tw, "Dropped", strings.Join(pf.DroppedColumns, ", "))
			field(tw, "Took", pf.ProcessTime.String())
			tw.Flush()
		}

		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(w, "\nFAIL %s\n", ff.InputFile)
			tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
			field(tw, "Kind", ff.ErrorType)
			field(tw, "Error", ff.ErrorMessage)
			tw.Flush()
		}
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// field writes an indented "Label:<tab>value" line. Empty values are skipped.
func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "  %s:\t%s\n", label, value)
}

// writeReport creates <prefix>_<timestamp>.txt in dir and fills it with body.
func writeReport(dir, prefix string, body func(io.Writer)) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", prefix, time.Now().Format(fileStampLayout)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("cannot create %s: %w", filepath.Base(path), err)
	}

	body(f)
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
