// =============================================================================
// Ledger Cleaner - XLSX Workbook Decoder
// =============================================================================
//
// This module decodes an .xlsx/.xlsm workbook into the in-memory model. Every
// sheet is read, in workbook order, so the untouched sheets can be written
// back unchanged next to the cleaned one.
//
// CELL MAPPING:
//
//   | Stored cell                              | Decoded as                  |
//   |------------------------------------------|-----------------------------|
//   | shared / inline string, formula string   | Text                        |
//   | number with a date number format         | Date (1900 or 1904 system)  |
//   | number                                   | Number                      |
//   | ISO date (t="d")                         | Date                        |
//   | boolean                                  | Text "TRUE" / "FALSE"       |
//   | error (#N/A, ...)                        | Text                        |
//   | empty                                    | Null                        |
//
// Formula cells decode to their cached value. Rows are padded with Null cells
// to the widest row of the sheet, and columns are named by their letters
// (A, B, ...). No row is treated as a header.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrDecode matches every *DecodeError via errors.Is.
var ErrDecode = errors.New("cannot decode workbook")

// DecodeError reports a workbook that could not be read. Sheet is empty when
// the container itself is unreadable.
type DecodeError struct {
	Sheet string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("decode sheet %q: %v", e.Sheet, e.Err)
	}
	return fmt.Sprintf("decode workbook: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDecode) match.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// =============================================================================
// DECODER FUNCTIONS
// =============================================================================

// Decode reads a workbook from r.
func Decode(r io.Reader) (*types.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer f.Close()
	return decode(f)
}

// DecodeBytes reads a workbook held in memory, as received by an upload.
func DecodeBytes(data []byte) (*types.Workbook, error) {
	return Decode(bytes.NewReader(data))
}

// DecodeFile reads the workbook stored at path.
func DecodeFile(path string) (*types.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer f.Close()
	return decode(f)
}

func decode(f *excelize.File) (*types.Workbook, error) {
	d := &decoder{f: f, dateStyles: make(map[int]bool)}

	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}

	wb := types.NewWorkbook()
	for _, sheet := range f.GetSheetList() {
		t, err := d.sheet(sheet)
		if err != nil {
			return nil, &DecodeError{Sheet: sheet, Err: err}
		}
		if err := wb.Add(sheet, t); err != nil {
			return nil, &DecodeError{Sheet: sheet, Err: err}
		}
	}
	if wb.Len() == 0 {
		return nil, &DecodeError{Err: errors.New("workbook has no sheets")}
	}
	return wb, nil
}

// decoder carries per-workbook state: the date system and a cache of which
// style ids carry a date number format.
type decoder struct {
	f          *excelize.File
	date1904   bool
	dateStyles map[int]bool
}

func (d *decoder) sheet(sheet string) (*types.Table, error) {
	rows, err := d.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	cells := make([][]types.Cell, len(rows))
	for i, row := range rows {
		cells[i] = make([]types.Cell, width)
		for j, raw := range row {
			if raw == "" {
				continue
			}
			addr, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			c, err := d.cell(sheet, addr, raw)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", addr, err)
			}
			cells[i][j] = c
		}
	}

	return types.FromRows(types.PositionalNames(width), cells)
}

// cell types the raw value found at addr.
func (d *decoder) cell(sheet, addr, raw string) (types.Cell, error) {
	ct, err := d.f.GetCellType(sheet, addr)
	if err != nil {
		return types.Cell{}, err
	}

	switch ct {
	case excelize.CellTypeBool:
		return boolCell(raw), nil

	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			return types.Date(t), nil
		}
		return types.Text(raw), nil

	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Text(raw), nil
		}
		isDate, err := d.hasDateFormat(sheet, addr)
		if err != nil {
			return types.Cell{}, err
		}
		if isDate {
			t, err := excelize.ExcelDateToTime(v, d.date1904)
			if err == nil {
				return types.Date(t), nil
			}
		}
		return types.Number(v), nil

	default:
		return types.Text(raw), nil
	}
}

func (d *decoder) hasDateFormat(sheet, addr string) (bool, error) {
	id, err := d.f.GetCellStyle(sheet, addr)
	if err != nil {
		return false, err
	}
	if isDate, ok := d.dateStyles[id]; ok {
		return isDate, nil
	}

	style, err := d.f.GetStyle(id)
	if err != nil {
		return false, err
	}
	isDate := IsDateNumFmt(style.NumFmt)
	if style.CustomNumFmt != nil {
		isDate = IsDateFormatCode(*style.CustomNumFmt)
	}
	d.dateStyles[id] = isDate
	return isDate, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// IsDateNumFmt reports whether a built-in number format id renders a date.
func IsDateNumFmt(id int) bool {
	return (id >= 14 && id <= 22) || (id >= 45 && id <= 47)
}

// IsDateFormatCode reports whether a custom number format code renders a
// date: it holds a day or year token, or a month token next to neither an
// hour nor a second token, outside quoted literals and bracketed sections.
func IsDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		default:
			b.WriteByte(ch)
		}
	}

	s := strings.ToLower(b.String())
	if strings.ContainsAny(s, "yd") {
		return true
	}
	return strings.Contains(s, "m") && !strings.ContainsAny(s, "hs")
}

func boolCell(raw string) types.Cell {
	if b, err := strconv.ParseBool(raw); err == nil {
		if b {
			return types.Text("TRUE")
		}
		return types.Text("FALSE")
	}
	return types.Text(raw)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseISODate(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
