// =============================================================================
// Ledger Cleaner - Structural Stages
// =============================================================================
//
// The structural stages turn the ragged export into a rectangular table:
//
//   FilterRows      - drop separator rows (both liveness anchors blank)
//   PruneColumns    - drop columns that are blank from top to bottom
//   ForwardFill     - carry a group's leading value down to its members
//   StripHeaderRows - drop rows still blank in the fill column
//   RenameColumns   - give the surviving columns their canonical names
//
// Every stage returns a new Table; none modifies its input.
//
// =============================================================================

package cleaner

import (
	"fmt"

	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

// Stage names, used in errors and in the run report.
const (
	StageFilterRows      = "filter_rows"
	StagePruneColumns    = "prune_columns"
	StageForwardFill     = "forward_fill"
	StageStripHeaderRows = "strip_header_rows"
	StageRenameColumns   = "rename_columns"
	StageCoerceValues    = "coerce_values"
)

// FilterRows keeps the rows where at least one of the two anchor columns is
// non-blank.
func FilterRows(t *types.Table, first, second string) (*types.Table, error) {
	a, ok := t.Index(first)
	if !ok {
		return nil, missingColumn(StageFilterRows, first)
	}
	b, ok := t.Index(second)
	if !ok {
		return nil, missingColumn(StageFilterRows, second)
	}

	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if !t.Cell(i, a).IsBlank() || !t.Cell(i, b).IsBlank() {
			keep = append(keep, i)
		}
	}
	return t.SelectRows(keep), nil
}

// PruneColumns drops every column whose cells are all blank and returns the
// names of the dropped columns. A table with no rows loses every column.
func PruneColumns(t *types.Table) (*types.Table, []string) {
	names := t.Names()
	keep := make([]int, 0, t.NumCols())
	var dropped []string

	for j := 0; j < t.NumCols(); j++ {
		if columnBlank(t, j) {
			dropped = append(dropped, names[j])
			continue
		}
		keep = append(keep, j)
	}
	return t.SelectColumns(keep), dropped
}

func columnBlank(t *types.Table, j int) bool {
	for i := 0; i < t.NumRows(); i++ {
		if !t.Cell(i, j).IsBlank() {
			return false
		}
	}
	return true
}

// ForwardFill replaces each blank cell of the named column with the nearest
// non-blank cell above it. Blank cells before the first non-blank one are
// left as they are.
func ForwardFill(t *types.Table, column string) (*types.Table, error) {
	j, ok := t.Index(column)
	if !ok {
		return nil, missingColumn(StageForwardFill, column)
	}

	cells := t.ColumnAt(j)
	var last types.Cell
	seen := false
	for i, c := range cells {
		if !c.IsBlank() {
			last, seen = c, true
			continue
		}
		if seen {
			cells[i] = last
		}
	}
	return t.WithColumn(j, cells)
}

// StripHeaderRows drops every row whose named column is blank. After
// ForwardFill only rows above the first data row can still be blank there,
// which is where the export's banner rows sit.
func StripHeaderRows(t *types.Table, column string) (*types.Table, error) {
	j, ok := t.Index(column)
	if !ok {
		return nil, missingColumn(StageStripHeaderRows, column)
	}

	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		if !t.Cell(i, j).IsBlank() {
			keep = append(keep, i)
		}
	}
	return t.SelectRows(keep), nil
}

// RenameColumns replaces the column names positionally. The table must have
// exactly as many columns as names; it is never truncated or padded. The
// result is marked as carrying a header row.
func RenameColumns(t *types.Table, names []string) (*types.Table, error) {
	if t.NumCols() != len(names) {
		return nil, &SchemaError{
			Stage: StageRenameColumns,
			Msg:   fmt.Sprintf("expected %d columns after cleaning, found %d (%v)", len(names), t.NumCols(), t.Names()),
		}
	}

	out, err := t.Renamed(names)
	if err != nil {
		return nil, &SchemaError{Stage: StageRenameColumns, Msg: err.Error()}
	}
	out.Header = true
	return out, nil
}
