// =============================================================================
// Ledger Cleaner - XLSX Workbook Encoder
// =============================================================================
//
// This module encodes the in-memory workbook into .xlsx bytes. Sheets are
// written in workbook order, each through an excelize stream writer.
//
// CELL MAPPING:
//   Text   -> string cell
//   Number -> numeric cell
//   Date   -> numeric cell with the "yyyy-mm-dd" number format
//   Null   -> no value
//
// Tables whose Header flag is set get their column names as a bold first
// row; source tables, named by column letter only, are written without one
// so they read back exactly as they were decoded.
//
// =============================================================================

package xlsxwriter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

// DateFormat is the number format applied to date cells.
const DateFormat = "yyyy-mm-dd"

// ErrEncode matches every *EncodeError via errors.Is.
var ErrEncode = errors.New("cannot encode workbook")

// EncodeError reports a workbook that could not be written.
type EncodeError struct {
	Sheet string
	Err   error
}

func (e *EncodeError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("encode sheet %q: %v", e.Sheet, e.Err)
	}
	return fmt.Sprintf("encode workbook: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrEncode) match.
func (e *EncodeError) Is(target error) bool { return target == ErrEncode }

// Encode writes wb to w as an .xlsx document.
func Encode(wb *types.Workbook, w io.Writer) error {
	f, err := build(wb)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return &EncodeError{Err: err}
	}
	return nil
}

// EncodeBytes returns wb as .xlsx bytes.
func EncodeBytes(wb *types.Workbook) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(wb, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile saves wb at path.
func WriteFile(wb *types.Workbook, path string) error {
	f, err := build(wb)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return &EncodeError{Err: err}
	}
	return nil
}

// build lays every sheet of wb into a new excelize file.
func build(wb *types.Workbook) (*excelize.File, error) {
	if wb.Len() == 0 {
		return nil, &EncodeError{Err: errors.New("workbook has no sheets")}
	}

	f := excelize.NewFile()
	ok := false
	defer func() {
		if !ok {
			f.Close()
		}
	}()

	s, err := newStyles(f)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}

	// excelize resolves sheet names case-insensitively; two names that fold
	// together would be written into one sheet.
	seen := make(map[string]string, wb.Len())
	for i, sheet := range wb.Sheets() {
		if err := types.CheckSheetName(sheet.Name); err != nil {
			return nil, &EncodeError{Sheet: sheet.Name, Err: err}
		}
		key := strings.ToLower(sheet.Name)
		if prev, dup := seen[key]; dup {
			return nil, &EncodeError{Sheet: sheet.Name, Err: fmt.Errorf("sheet name clashes with %q", prev)}
		}
		seen[key] = sheet.Name
		if i == 0 {
			// Reuse the sheet every new file starts with.
			if first := f.GetSheetName(0); first != sheet.Name {
				if err := f.SetSheetName(first, sheet.Name); err != nil {
					return nil, &EncodeError{Sheet: sheet.Name, Err: err}
				}
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, &EncodeError{Sheet: sheet.Name, Err: err}
		}

		if err := writeTable(f, sheet.Name, sheet.Table, s); err != nil {
			return nil, &EncodeError{Sheet: sheet.Name, Err: err}
		}
	}
	f.SetActiveSheet(0)

	ok = true
	return f, nil
}

type styles struct {
	header int
	date   int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return styles{}, err
	}
	dateFmt := DateFormat
	date, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt})
	if err != nil {
		return styles{}, err
	}
	return styles{header: header, date: date}, nil
}

func writeTable(f *excelize.File, sheet string, t *types.Table, s styles) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	rowNum := 1
	if t.Header && t.NumCols() > 0 {
		names := t.Names()
		values := make([]interface{}, len(names))
		for j, n := range names {
			values[j] = excelize.Cell{StyleID: s.header, Value: n}
		}
		if err := setRow(sw, rowNum, values); err != nil {
			return err
		}
		rowNum++
	}

	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		values := make([]interface{}, len(row))
		for j, c := range row {
			values[j] = cellValue(c, s)
		}
		if err := setRow(sw, rowNum, values); err != nil {
			return err
		}
		rowNum++
	}

	return sw.Flush()
}

func setRow(sw *excelize.StreamWriter, rowNum int, values []interface{}) error {
	if len(values) == 0 {
		return nil
	}
	addr, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return sw.SetRow(addr, values)
}

func cellValue(c types.Cell, s styles) interface{} {
	switch c.Kind {
	case types.KindText:
		return c.Text
	case types.KindNumber:
		return c.Number
	case types.KindDate:
		return excelize.Cell{StyleID: s.date, Value: c.Date}
	default:
		return nil
	}
}
