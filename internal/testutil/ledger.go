// Package testutil builds ledger export fixtures shared by package tests.
package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// LedgerRows is a ten-row ledger export laid out over columns A to I.
// Rows 2, 5 and 8 are separators; columns B and F are always empty.
// Cleaning it yields seven rows.
var LedgerRows = [][]string{
	{"05/03/2023", "", "1.1.01", "CX", "Abertura", "", "1.234,56", "C", "ana"},
	{"", "", "", "", "", "", "", "", ""},
	{"", "", "1.1.02", "CX", "Tarifa", "", "10,00", "D", "ana"},
	{"", "", "1.1.03", "BC", "Juros", "", "0,5", "C", "rui"},
	{"", "", "", "", "", "", "", "", ""},
	{"06/03/2023", "", "2.1.01", "BC", "Pagamento", "", "2.000", "D", "rui"},
	{"", "", "2.1.02", "BC", "Estorno", "", "", "C", "rui"},
	{"", "", "", "", "", "", "", "", ""},
	{"31/02/2023", "", "3.1.01", "CX", "Ajuste", "", "100,10", "D", "eva"},
	{"", "", "3.1.02", "CX", "Ajuste 2", "", "-5,25", "D", "eva"},
}

// LedgerCleanedRows is the row count of the cleaned LedgerRows.
const LedgerCleanedRows = 7

// LedgerXLSX returns a workbook whose first sheet "Razao" holds rows, plus a
// second sheet "Notas".
func LedgerXLSX(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Razao"))
	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			if v != "" {
				values[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Razao", cell, &values))
	}

	_, err := f.NewSheet("Notas")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notas", "A1", "conferido"))

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// LedgerCSV returns rows as CSV with the given delimiter.
func LedgerCSV(t *testing.T, rows [][]string, delimiter rune) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	require.NoError(t, w.WriteAll(rows))
	return buf.Bytes()
}

// WriteFile writes data to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
