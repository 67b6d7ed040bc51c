package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRows_KeepsRowsWithEitherAnchor(t *testing.T) {
	tbl := tableOf(t, []string{"A", "B", "C"}, [][]any{
		{"x", nil, nil},
		{nil, "only-b", nil},
		{nil, nil, "y"},
		{"  ", "ignored", "nan"},
		{nil, nil, nil},
	})

	out, err := FilterRows(tbl, "A", "C")
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, []string{"x", ""}, columnStrings(t, out, "A"))
	assert.Equal(t, []string{"", "y"}, columnStrings(t, out, "C"))
	assert.Equal(t, 5, tbl.NumRows(), "input is not modified")
}

func TestFilterRows_MissingAnchorIsSchemaError(t *testing.T) {
	tbl := tableOf(t, []string{"A"}, [][]any{{"x"}})

	_, err := FilterRows(tbl, "A", "Z")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchema)

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Z", se.Column)
	assert.Equal(t, StageFilterRows, se.Stage)
}

func TestPruneColumns_DropsAllBlankColumns(t *testing.T) {
	tbl := tableOf(t, []string{"A", "B", "C", "D"}, [][]any{
		{"x", "", nil, 0},
		{"y", " ", "nan", nil},
	})

	out, dropped := PruneColumns(tbl)

	assert.Equal(t, []string{"A", "D"}, out.Names())
	assert.Equal(t, []string{"B", "C"}, dropped)
	assert.Equal(t, 2, out.NumRows())
}

func TestPruneColumns_IsIdempotent(t *testing.T) {
	tbl := tableOf(t, []string{"A", "B", "C"}, [][]any{
		{"x", nil, "1"},
		{nil, "", "2"},
	})

	once, _ := PruneColumns(tbl)
	twice, dropped := PruneColumns(once)

	assert.True(t, once.Equal(twice))
	assert.Empty(t, dropped)
}

func TestForwardFill(t *testing.T) {
	tbl := tableOf(t, []string{"A", "B"}, [][]any{
		{"A", 1},
		{nil, 2},
		{"", 3},
		{"B", 4},
		{nil, 5},
	})

	out, err := ForwardFill(tbl, "A")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "A", "A", "B", "B"}, columnStrings(t, out, "A"))
	assert.Equal(t, columnStrings(t, tbl, "B"), columnStrings(t, out, "B"))
	assert.Equal(t, tbl.NumRows(), out.NumRows())
}

func TestForwardFill_LeadingBlankStays(t *testing.T) {
	tbl := tableOf(t, []string{"A"}, [][]any{{nil}, {"A"}})

	out, err := ForwardFill(tbl, "A")
	require.NoError(t, err)

	assert.True(t, out.Cell(0, 0).IsNull())
	assert.Equal(t, "A", out.Cell(1, 0).String())
}

func TestForwardFill_MissingColumn(t *testing.T) {
	tbl := tableOf(t, []string{"A"}, [][]any{{"x"}})

	_, err := ForwardFill(tbl, "B")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestStripHeaderRows(t *testing.T) {
	tbl := tableOf(t, []string{"A", "B"}, [][]any{
		{nil, "REPORT TITLE"},
		{"", "page 1"},
		{"01/01/2023", "entry"},
	})

	out, err := StripHeaderRows(tbl, "A")
	require.NoError(t, err)

	assert.Equal(t, 1, out.NumRows())
	assert.Equal(t, []string{"entry"}, columnStrings(t, out, "B"))

	_, err = StripHeaderRows(tbl, "Q")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestRowCountMonotonicity(t *testing.T) {
	tbl := tableOf(t, []string{"A", "B"}, [][]any{
		{nil, nil},
		{"x", nil},
		{nil, "y"},
	})

	filtered, err := FilterRows(tbl, "A", "B")
	require.NoError(t, err)
	assert.LessOrEqual(t, filtered.NumRows(), tbl.NumRows())

	filled, err := ForwardFill(filtered, "A")
	require.NoError(t, err)
	assert.Equal(t, filtered.NumRows(), filled.NumRows())

	stripped, err := StripHeaderRows(filled, "A")
	require.NoError(t, err)
	assert.LessOrEqual(t, stripped.NumRows(), filled.NumRows())

	renamed, err := RenameColumns(stripped, []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, stripped.NumRows(), renamed.NumRows())
}

func TestRenameColumns(t *testing.T) {
	names := DefaultTargetSchema.Names()
	row := []any{"05/03/2023", "p", "o", "h", "1,00", "op", "u"}
	tbl := tableOf(t, []string{"A", "C", "D", "E", "G", "H", "I"}, [][]any{row})

	out, err := RenameColumns(tbl, names)
	require.NoError(t, err)

	assert.Equal(t, names, out.Names())
	assert.True(t, out.Header)
	assert.Equal(t, tbl.Row(0), out.Row(0))
}

func TestRenameColumns_WrongWidthFails(t *testing.T) {
	names := DefaultTargetSchema.Names()

	for _, width := range []int{6, 8} {
		cols := make([]string, width)
		row := make([]any, width)
		for i := range cols {
			cols[i] = string(rune('A' + i))
			row[i] = "v"
		}
		tbl := tableOf(t, cols, [][]any{row})

		out, err := RenameColumns(tbl, names)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, ErrSchema, "width %d", width)
	}
}
