// =============================================================================
// Ledger Cleaner - CSV Export Decoder
// =============================================================================
//
// Some ledger sources deliver the same report as a delimited text file
// instead of a workbook. This module reads such a file into a single-sheet
// workbook so it can go through the same cleaning pipeline.
//
// FEATURES:
//   - Configurable delimiter (comma, semicolon, pipe, tab)
//   - Legacy encodings (ISO-8859-1, Windows-1252) decoded to UTF-8
//   - Leading records skipped before the sheet begins
//   - Ragged rows padded to the widest record
//
// Every field becomes a Text cell, or Null when empty. No record is treated
// as a header: like decoded workbooks, columns are named A, B, ...
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/ledger-cleaner/internal/config"
	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

// ErrUnknownEncoding is returned for an encoding name with no decoder.
var ErrUnknownEncoding = errors.New("unknown encoding")

// utf8BOM is stripped from the start of UTF-8 input.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the CSV file at filePath. The sheet is named after the file
// name without its extension.
func Parse(filePath string, settings config.CSVSettings) (*types.Workbook, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	return ParseReader(file, name, settings)
}

// ParseReader reads CSV data from r into a workbook with one sheet named
// after sheetName, made safe for use as a sheet label.
func ParseReader(r io.Reader, sheetName string, settings config.CSVSettings) (*types.Workbook, error) {
	dec, err := Decoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := bufio.NewReader(r)
	if dec == nil {
		if bom, _ := reader.Peek(len(utf8BOM)); bytes.Equal(bom, utf8BOM) {
			reader.Discard(len(utf8BOM))
		}
	}

	var src io.Reader = reader
	if dec != nil {
		src = transform.NewReader(reader, dec.NewDecoder())
	}

	csvReader := csv.NewReader(src)
	configureReader(csvReader, settings)

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if settings.SkipRows > 0 {
		records = records[min(settings.SkipRows, len(records)):]
	}

	table, err := toTable(records)
	if err != nil {
		return nil, err
	}

	wb := types.NewWorkbook()
	if err := wb.Add(types.SafeSheetName(sheetName), table); err != nil {
		return nil, err
	}
	return wb, nil
}

// Decoder returns the decoder for an encoding name, or nil for UTF-8.
// Names are matched case-insensitively; "latin1" and "cp1252" are accepted
// aliases.
func Decoder(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return charmap.ISO8859_1, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = Delimiter(settings.Delimiter)

	// Exports are ragged: separator rows often carry fewer fields.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// Delimiter resolves a configured delimiter, accepting common names.
func Delimiter(s string) rune {
	switch s {
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	case "":
		return ','
	default:
		return []rune(s)[0]
	}
}

func toTable(records [][]string) (*types.Table, error) {
	width := 0
	for _, rec := range records {
		width = max(width, len(rec))
	}

	rows := make([][]types.Cell, len(records))
	for i, rec := range records {
		rows[i] = make([]types.Cell, width)
		for j, field := range rec {
			if field != "" {
				rows[i][j] = types.Text(field)
			}
		}
	}
	return types.FromRows(types.PositionalNames(width), rows)
}
