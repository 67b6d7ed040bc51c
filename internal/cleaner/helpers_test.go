package cleaner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

// cell converts a literal into a Cell: nil is null, strings are text, ints
// and floats are numbers, times are dates.
func cell(v any) types.Cell {
	switch x := v.(type) {
	case nil:
		return types.Null()
	case string:
		return types.Text(x)
	case int:
		return types.Number(float64(x))
	case float64:
		return types.Number(x)
	case time.Time:
		return types.Date(x)
	default:
		panic("unsupported literal")
	}
}

func tableOf(t *testing.T, names []string, rows [][]any) *types.Table {
	t.Helper()
	cells := make([][]types.Cell, len(rows))
	for i, row := range rows {
		cells[i] = make([]types.Cell, len(row))
		for j, v := range row {
			cells[i][j] = cell(v)
		}
	}
	tbl, err := types.FromRows(names, cells)
	require.NoError(t, err)
	return tbl
}

func columnStrings(t *testing.T, tbl *types.Table, name string) []string {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %q", name)
	out := make([]string, len(col))
	for i, c := range col {
		out[i] = c.String()
	}
	return out
}
