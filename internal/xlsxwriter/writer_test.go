package xlsxwriter

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ledger-cleaner/internal/cleaner"
	"github.com/ginjaninja78/ledger-cleaner/internal/types"
	"github.com/ginjaninja78/ledger-cleaner/internal/xlsxparser"
)

func sourceTable(t *testing.T) *types.Table {
	t.Helper()
	tbl, err := types.FromRows([]string{"A", "B", "C"}, [][]types.Cell{
		{types.Text("05/03/2023"), types.Null(), types.Number(1234.56)},
		{types.Null(), types.Text("Tarifa"), types.Number(-10)},
		{types.Date(time.Date(2023, 3, 6, 0, 0, 0, 0, time.UTC)), types.Text("=SUM(A1)"), types.Text("x")},
	})
	require.NoError(t, err)
	return tbl
}

func cleanedTable(t *testing.T) *types.Table {
	t.Helper()
	tbl, err := types.FromRows([]string{"Data", "Valor"}, [][]types.Cell{
		{types.Text("2023-03-05"), types.Number(1234.56)},
		{types.Null(), types.Number(0)},
	})
	require.NoError(t, err)
	tbl.Header = true
	return tbl
}

func TestEncode_RoundTripsSourceSheets(t *testing.T) {
	wb := types.NewWorkbook()
	require.NoError(t, wb.Add("Sheet1", sourceTable(t)))
	require.NoError(t, wb.Add("Notes", sourceTable(t)))

	data, err := EncodeBytes(wb)
	require.NoError(t, err)

	got, err := xlsxparser.DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "Notes"}, got.Names())

	for _, name := range got.Names() {
		tbl, _ := got.Sheet(name)
		assert.True(t, tbl.Equal(sourceTable(t)), "sheet %s", name)
	}
}

func TestEncode_HeaderRowIsBold(t *testing.T) {
	wb := types.NewWorkbook()
	require.NoError(t, wb.Add("Dados Limpos", cleanedTable(t)))

	var buf bytes.Buffer
	require.NoError(t, Encode(wb, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Dados Limpos")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Data", "Valor"}, rows[0])
	assert.Equal(t, []string{"2023-03-05", "1234.56"}, rows[1])

	styleID, err := f.GetCellStyle("Dados Limpos", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestEncode_DatesKeepDateFormat(t *testing.T) {
	wb := types.NewWorkbook()
	require.NoError(t, wb.Add("Sheet1", sourceTable(t)))

	data, err := EncodeBytes(wb)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Sheet1", "A3")
	require.NoError(t, err)
	assert.Equal(t, "2023-03-06", v)
}

func TestWriteFile(t *testing.T) {
	wb := types.NewWorkbook()
	require.NoError(t, wb.Add("Data", sourceTable(t)))
	require.NoError(t, wb.Add("Sheet1", cleanedTable(t)))

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteFile(wb, path))

	got, err := xlsxparser.DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Data", "Sheet1"}, got.Names())
}

func TestEncode_Errors(t *testing.T) {
	_, err := EncodeBytes(types.NewWorkbook())
	assert.ErrorIs(t, err, ErrEncode)

	wb := types.NewWorkbook()
	require.NoError(t, wb.Add("a/b", sourceTable(t)))
	_, err = EncodeBytes(wb)
	require.ErrorIs(t, err, ErrEncode)

	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "a/b", ee.Sheet)
}

func TestEncode_RejectsNamesDifferingOnlyInCase(t *testing.T) {
	wb := types.NewWorkbook()
	require.NoError(t, wb.Add("Notes", sourceTable(t)))
	require.NoError(t, wb.Add("NOTES", sourceTable(t)))

	_, err := EncodeBytes(wb)
	require.ErrorIs(t, err, ErrEncode)

	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "NOTES", ee.Sheet)
}

func TestReassembleThenEncode_KeepsEveryOriginalSheet(t *testing.T) {
	keep, err := types.FromRows([]string{"A"}, [][]types.Cell{{types.Text("keep me")}})
	require.NoError(t, err)
	stale, err := types.FromRows([]string{"A"}, [][]types.Cell{{types.Text("stale")}})
	require.NoError(t, err)

	in := types.NewWorkbook()
	require.NoError(t, in.Add("Sheet1", keep))
	require.NoError(t, in.Add("dados limpos", stale))

	out, err := cleaner.Reassemble(in, cleanedTable(t), cleaner.DefaultSheetName)
	require.NoError(t, err)

	data, err := EncodeBytes(out)
	require.NoError(t, err)
	got, err := xlsxparser.DecodeBytes(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"Sheet1", cleaner.DefaultSheetName}, got.Names())
	first, _ := got.Sheet("Sheet1")
	assert.Equal(t, "keep me", first.Cell(0, 0).String())
	cleaned, _ := got.Sheet(cleaner.DefaultSheetName)
	assert.Equal(t, "Data", cleaned.Cell(0, 0).String())
	assert.Equal(t, 3, cleaned.NumRows(), "header plus two data rows")
}
