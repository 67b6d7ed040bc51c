package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

var sourceColumns = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}

// ledgerExport is a first sheet of ten rows: rows 1, 4 and 7 are separator
// rows and columns B and F only ever hold empty strings.
func ledgerExport(t *testing.T) *types.Table {
	return tableOf(t, sourceColumns, [][]any{
		{"05/03/2023", "", "1.1.01", "CX", "Abertura", "", "1.234,56", "C", "ana"},
		{nil, "", nil, nil, nil, "", nil, nil, nil},
		{nil, "", "1.1.02", "CX", "Tarifa", "", "10,00", "D", "ana"},
		{nil, "", "1.1.03", "BC", "Juros", "", "0,5", "C", "rui"},
		{nil, "", nil, nil, "", "", nil, nil, nil},
		{"06/03/2023", "", "2.1.01", "BC", "Pagamento", "", "2.000", "D", "rui"},
		{nil, "", "2.1.02", "BC", "Estorno", "", "", "C", "rui"},
		{"", "", nil, nil, nil, "", nil, nil, nil},
		{"31/02/2023", "", "3.1.01", "CX", "Ajuste", "", "100,10", "D", "eva"},
		{nil, "", "3.1.02", "CX", "Ajuste 2", "", "-5,25", "D", "eva"},
	})
}

func TestPipeline_EndToEnd(t *testing.T) {
	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)

	out, rep, err := p.Clean(ledgerExport(t))
	require.NoError(t, err)

	assert.Equal(t, 7, out.NumRows())
	assert.Equal(t, DefaultTargetSchema.Names(), out.Names())
	assert.True(t, out.Header)

	assert.Equal(t, []string{
		"2023-03-05", "2023-03-05", "2023-03-05",
		"2023-03-06", "2023-03-06",
		"", "",
	}, columnStrings(t, out, "Data"))
	assert.Equal(t, []string{
		"1234.56", "10", "0.5", "2000", "0", "100.1", "-5.25",
	}, columnStrings(t, out, "Valor"))
	assert.Equal(t, []string{"ana", "ana", "rui", "rui", "rui", "eva", "eva"}, columnStrings(t, out, "Usuário"))

	assert.Equal(t, []string{"B", "F"}, rep.DroppedColumns)
	assert.Equal(t, 2, rep.InvalidDates, "the filled invalid date counts once per row")
	assert.Equal(t, 10, rep.InputRows)
	assert.Equal(t, 7, rep.OutputRows())
	require.Len(t, rep.Stages, 7)
	assert.Equal(t, StageFilterRows, rep.Stages[0].Stage)
	assert.Equal(t, StageCoerceValues, rep.Stages[6].Stage)
}

func TestPipeline_StripsBannerRowsAndPrunesAgain(t *testing.T) {
	cols := append(append([]string(nil), sourceColumns...), "J")
	tbl := tableOf(t, cols, [][]any{
		{nil, nil, nil, nil, "RELATÓRIO DE LANÇAMENTOS", nil, nil, nil, nil, "emitido em 01/04/2023"},
		{nil, nil, nil, nil, "Histórico", nil, nil, nil, nil, nil},
		{"05/03/2023", nil, "1.1.01", "CX", "Abertura", nil, "1,00", "C", "ana", nil},
		{nil, nil, "1.1.02", "CX", "Tarifa", nil, "2,00", "D", "ana", nil},
	})

	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)

	out, rep, err := p.Clean(tbl)
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, []string{"Abertura", "Tarifa"}, columnStrings(t, out, "Histórico"))
	assert.Equal(t, []string{"B", "F", "J"}, rep.DroppedColumns)
}

func TestPipeline_WrongWidthAborts(t *testing.T) {
	tbl := tableOf(t, []string{"A", "B", "C", "D", "E"}, [][]any{
		{"05/03/2023", "x", "y", "z", "w"},
	})

	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)

	out, rep, err := p.Clean(tbl)
	assert.Nil(t, out)
	assert.Nil(t, rep)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestPipeline_MissingAnchorAborts(t *testing.T) {
	tbl := tableOf(t, []string{"A", "B"}, [][]any{{"x", "y"}})

	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)

	_, _, err = p.Clean(tbl)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "E", se.Column)
}

func TestPipeline_ParseErrorAborts(t *testing.T) {
	tbl := ledgerExport(t)
	bad, err := tbl.WithColumn(6, append(tbl.ColumnAt(6)[:9:9], types.Text("dez reais")))
	require.NoError(t, err)

	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)

	_, _, err = p.Clean(bad)
	assert.ErrorIs(t, err, ErrParse)

	spec := DefaultSpec()
	spec.AmountPolicy = AmountBlank
	p, err = New(spec, nil)
	require.NoError(t, err)

	out, rep, err := p.Clean(bad)
	require.NoError(t, err)
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, 7, rep.Issues[0].Row)
	amounts, _ := out.Column("Valor")
	assert.True(t, amounts[6].IsNull())
}

func TestNew_RejectsBadSpec(t *testing.T) {
	spec := DefaultSpec()
	spec.Target[3] = spec.Target[2]
	_, err := New(spec, nil)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	spec = DefaultSpec()
	spec.AmountPolicy = "ignore"
	_, err = New(spec, nil)
	assert.Error(t, err)

	spec = DefaultSpec()
	spec.SheetName = ""
	_, err = New(spec, nil)
	assert.Error(t, err)
}

func TestCleanAndReassemble(t *testing.T) {
	notes := tableOf(t, []string{"A", "B"}, [][]any{{"nota", 1}, {nil, "x"}})

	in := types.NewWorkbook()
	require.NoError(t, in.Add("Sheet1", ledgerExport(t)))
	require.NoError(t, in.Add("Notes", notes))

	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)

	out, rep, err := p.CleanAndReassemble(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"Sheet1", "Notes", DefaultSheetName}, out.Names())
	assert.Equal(t, "Sheet1", rep.SourceSheet)

	sheet1, _ := out.Sheet("Sheet1")
	assert.True(t, sheet1.Equal(ledgerExport(t)))
	gotNotes, _ := out.Sheet("Notes")
	assert.True(t, gotNotes.Equal(notes))

	cleaned, _ := out.Sheet(DefaultSheetName)
	assert.Equal(t, 7, cleaned.NumRows())
	assert.Equal(t, 2, in.Len(), "input workbook is unchanged")
}

func TestCleanAndReassemble_ReplacesReservedSheet(t *testing.T) {
	stale := tableOf(t, []string{"A"}, [][]any{{"old"}})

	in := types.NewWorkbook()
	require.NoError(t, in.Add("Sheet1", ledgerExport(t)))
	require.NoError(t, in.Add(DefaultSheetName, stale))
	require.NoError(t, in.Add("Notes", stale))

	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)

	out, _, err := p.CleanAndReassemble(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"Sheet1", "Notes", DefaultSheetName}, out.Names())
	cleaned, _ := out.Sheet(DefaultSheetName)
	assert.Equal(t, DefaultTargetSchema.Names(), cleaned.Names())
}

func TestCleanAndReassemble_EmptyWorkbook(t *testing.T) {
	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)

	_, _, err = p.CleanAndReassemble(types.NewWorkbook())
	assert.ErrorIs(t, err, ErrSchema)
}

func TestPipeline_ConcurrentUse(t *testing.T) {
	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)

	done := make(chan int, 8)
	for i := 0; i < 8; i++ {
		go func() {
			out, _, err := p.Clean(ledgerExport(t))
			if err != nil {
				done <- -1
				return
			}
			done <- out.NumRows()
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, 7, <-done)
	}
}

func TestPipeline_TitleRowIsData(t *testing.T) {
	header := []types.Cell{
		types.Text("Data"), types.Text(""), types.Text("Plano"), types.Text("Origem"), types.Text("Histórico"),
		types.Text(""), types.Text("Valor"), types.Text("Tipo"), types.Text("Usuário"),
	}
	src := ledgerExport(t)
	rows := [][]types.Cell{header}
	for i := 0; i < src.NumRows(); i++ {
		rows = append(rows, src.Row(i))
	}
	tbl, err := types.FromRows(sourceColumns, rows)
	require.NoError(t, err)

	p, err := New(DefaultSpec(), nil)
	require.NoError(t, err)
	_, _, err = p.Clean(tbl)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Row)
	assert.Equal(t, "Valor", pe.Value)

	spec := DefaultSpec()
	spec.AmountPolicy = AmountBlank
	p, err = New(spec, nil)
	require.NoError(t, err)

	out, rep, err := p.Clean(tbl)
	require.NoError(t, err)
	assert.Equal(t, 8, out.NumRows())
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, 1, rep.Issues[0].Row)
	assert.Equal(t, 3, rep.InvalidDates)
	assert.Equal(t, []string{"", "2023-03-05"}, columnStrings(t, out, "Data")[:2])
}
