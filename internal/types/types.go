// =============================================================================
// Ledger Cleaner - Shared Types
// =============================================================================
//
// This package contains the in-memory workbook model shared by every other
// module, kept here to avoid import cycles. Types defined here are used by:
//   - xlsxparser / csvparser (decoders produce a Workbook)
//   - cleaner (reads the first sheet, builds the cleaned Table)
//   - xlsxwriter (encodes a Workbook back to bytes)
//
// MODEL:
//   Cell     - a variant value: null, text, number or calendar date
//   Table    - ordered named columns of Cells, all of the same length
//   Workbook - ordered, uniquely named sheets, each holding a Table
//
// Tables are treated as values: every transformation returns a new Table, so
// row and column indexes are never reused across filtering steps.
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CELL
// =============================================================================

// Kind identifies which variant a Cell holds.
type Kind int

const (
	// KindNull is an absent value.
	KindNull Kind = iota

	// KindText is a string value.
	KindText

	// KindNumber is a float64 value.
	KindNumber

	// KindDate is a calendar date (time of day is ignored when rendering).
	KindDate
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MissingToken is the textual form the source exports use for a missing
// numeric value. Cells whose trimmed text equals it are blank.
const MissingToken = "nan"

// DateLayout is the textual form of a date cell.
const DateLayout = "2006-01-02"

// Cell is a single spreadsheet value.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
	Date   time.Time
}

// Null returns an absent cell.
func Null() Cell { return Cell{} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: KindText, Text: s} }

// Number returns a numeric cell.
func Number(v float64) Cell { return Cell{Kind: KindNumber, Number: v} }

// Date returns a date cell.
func Date(t time.Time) Cell { return Cell{Kind: KindDate, Date: t} }

// IsNull reports whether the cell holds no value at all.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// String returns the textual form of the cell.
func (c Cell) String() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case KindDate:
		return c.Date.Format(DateLayout)
	default:
		return ""
	}
}

// IsBlank reports whether the cell is blank under the default missing token.
func (c Cell) IsBlank() bool {
	return c.BlankWith(MissingToken)
}

// BlankWith reports whether the cell is null, or whether its trimmed textual
// form is empty or equal (case-insensitively) to token. An empty token
// disables the token comparison.
func (c Cell) BlankWith(token string) bool {
	if c.Kind == KindNull {
		return true
	}
	s := strings.TrimSpace(c.String())
	if s == "" {
		return true
	}
	return token != "" && strings.EqualFold(s, token)
}

// Equal reports whether two cells hold the same variant and value.
func (c Cell) Equal(o Cell) bool {
	if c.Kind != o.Kind {
		return false
	}
	switch c.Kind {
	case KindText:
		return c.Text == o.Text
	case KindNumber:
		return c.Number == o.Number
	case KindDate:
		return c.Date.Equal(o.Date)
	default:
		return true
	}
}

// =============================================================================
// TABLE
// =============================================================================

// ErrShape is returned when a Table would violate its shape invariants.
var ErrShape = errors.New("invalid table shape")

// Table is an ordered sequence of named columns with equal row counts.
type Table struct {
	names []string
	cols  [][]Cell
	rows  int

	// Header marks tables whose column names are part of the content and are
	// written as the first row by the encoder. Source tables, whose names are
	// positional identifiers, leave it false.
	Header bool
}

// NewTable builds a table from column-major data. Column names must be
// unique and every column must have the same length.
func NewTable(names []string, cols [][]Cell) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("%w: %d names for %d columns", ErrShape, len(names), len(cols))
	}

	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrShape, n)
		}
		seen[n] = struct{}{}
	}

	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	for i, col := range cols {
		if len(col) != rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrShape, names[i], len(col), rows)
		}
	}

	t := &Table{
		names: append([]string(nil), names...),
		cols:  make([][]Cell, len(cols)),
		rows:  rows,
	}
	for i, col := range cols {
		t.cols[i] = append([]Cell(nil), col...)
	}
	return t, nil
}

// FromRows builds a table from row-major data. Short rows are padded with
// null cells; rows longer than names are an error.
func FromRows(names []string, rows [][]Cell) (*Table, error) {
	cols := make([][]Cell, len(names))
	for j := range cols {
		cols[j] = make([]Cell, len(rows))
	}
	for i, row := range rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("%w: row %d has %d cells for %d columns", ErrShape, i, len(row), len(names))
		}
		for j, c := range row {
			cols[j][i] = c
		}
	}
	return NewTable(names, cols)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.names) }

// Names returns a copy of the column names in order.
func (t *Table) Names() []string { return append([]string(nil), t.names...) }

// Index returns the position of the named column.
func (t *Table) Index(name string) (int, bool) {
	for i, n := range t.names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]Cell, bool) {
	i, ok := t.Index(name)
	if !ok {
		return nil, false
	}
	return append([]Cell(nil), t.cols[i]...), true
}

// ColumnAt returns a copy of the cells of the column at index j.
func (t *Table) ColumnAt(j int) []Cell {
	return append([]Cell(nil), t.cols[j]...)
}

// Cell returns the cell at row i, column j.
func (t *Table) Cell(i, j int) Cell { return t.cols[j][i] }

// Row returns a copy of row i.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.cols))
	for j := range t.cols {
		row[j] = t.cols[j][i]
	}
	return row
}

// SelectRows returns a new table holding only the given rows, in the given
// order.
func (t *Table) SelectRows(keep []int) *Table {
	out := &Table{names: t.Names(), cols: make([][]Cell, len(t.cols)), rows: len(keep), Header: t.Header}
	for j, col := range t.cols {
		nc := make([]Cell, len(keep))
		for k, i := range keep {
			nc[k] = col[i]
		}
		out.cols[j] = nc
	}
	return out
}

// SelectColumns returns a new table holding only the given columns, in the
// given order.
func (t *Table) SelectColumns(keep []int) *Table {
	out := &Table{names: make([]string, len(keep)), cols: make([][]Cell, len(keep)), rows: t.rows, Header: t.Header}
	for k, j := range keep {
		out.names[k] = t.names[j]
		out.cols[k] = append([]Cell(nil), t.cols[j]...)
	}
	return out
}

// WithColumn returns a new table whose column j is replaced by cells.
func (t *Table) WithColumn(j int, cells []Cell) (*Table, error) {
	if j < 0 || j >= len(t.cols) {
		return nil, fmt.Errorf("%w: column index %d out of range", ErrShape, j)
	}
	if len(cells) != t.rows {
		return nil, fmt.Errorf("%w: replacement for %q has %d rows, expected %d", ErrShape, t.names[j], len(cells), t.rows)
	}
	out := t.Clone()
	out.cols[j] = append([]Cell(nil), cells...)
	return out, nil
}

// Renamed returns a new table with the given column names, positionally.
func (t *Table) Renamed(names []string) (*Table, error) {
	out, err := NewTable(names, t.cols)
	if err != nil {
		return nil, err
	}
	out.Header = t.Header
	return out, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{names: t.Names(), cols: make([][]Cell, len(t.cols)), rows: t.rows, Header: t.Header}
	for j, col := range t.cols {
		out.cols[j] = append([]Cell(nil), col...)
	}
	return out
}

// Equal reports whether both tables have the same names, header flag and
// cells.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.rows != o.rows || len(t.names) != len(o.names) || t.Header != o.Header {
		return false
	}
	for j := range t.names {
		if t.names[j] != o.names[j] {
			return false
		}
		for i := range t.cols[j] {
			if !t.cols[j][i].Equal(o.cols[j][i]) {
				return false
			}
		}
	}
	return true
}

// =============================================================================
// WORKBOOK
// =============================================================================

// ErrDuplicateSheet is returned when a sheet name is added twice.
var ErrDuplicateSheet = errors.New("duplicate sheet name")

// Sheet is a named table inside a workbook.
type Sheet struct {
	Name  string
	Table *Table
}

// Workbook is an ordered collection of uniquely named sheets. Names are
// compared case-sensitively.
type Workbook struct {
	sheets []Sheet
}

// NewWorkbook returns an empty workbook.
func NewWorkbook() *Workbook { return &Workbook{} }

// Add appends a sheet. Adding a name that already exists is an error.
func (wb *Workbook) Add(name string, t *Table) error {
	if _, ok := wb.Sheet(name); ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSheet, name)
	}
	wb.sheets = append(wb.sheets, Sheet{Name: name, Table: t})
	return nil
}

// Len returns the number of sheets.
func (wb *Workbook) Len() int { return len(wb.sheets) }

// Sheets returns the sheets in order. The slice is a copy; the tables are
// shared.
func (wb *Workbook) Sheets() []Sheet { return append([]Sheet(nil), wb.sheets...) }

// Names returns the sheet names in order.
func (wb *Workbook) Names() []string {
	names := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the table stored under name.
func (wb *Workbook) Sheet(name string) (*Table, bool) {
	for _, s := range wb.sheets {
		if s.Name == name {
			return s.Table, true
		}
	}
	return nil, false
}

// First returns the first sheet.
func (wb *Workbook) First() (Sheet, bool) {
	if len(wb.sheets) == 0 {
		return Sheet{}, false
	}
	return wb.sheets[0], true
}

// Clone returns a deep copy of the workbook.
func (wb *Workbook) Clone() *Workbook {
	out := &Workbook{sheets: make([]Sheet, len(wb.sheets))}
	for i, s := range wb.sheets {
		out.sheets[i] = Sheet{Name: s.Name, Table: s.Table.Clone()}
	}
	return out
}
