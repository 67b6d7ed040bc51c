package cleaner

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

// Reassemble builds a new workbook from every sheet of original, in order,
// followed by cleaned under sheetName. A sheet already named sheetName,
// compared case-insensitively as spreadsheet applications do, is left out so
// the cleaned table replaces it. Original tables are deep-copied.
func Reassemble(original *types.Workbook, cleaned *types.Table, sheetName string) (*types.Workbook, error) {
	out := types.NewWorkbook()
	for _, s := range original.Sheets() {
		if strings.EqualFold(s.Name, sheetName) {
			continue
		}
		if err := out.Add(s.Name, s.Table.Clone()); err != nil {
			return nil, fmt.Errorf("copy sheet %q: %w", s.Name, err)
		}
	}
	if err := out.Add(sheetName, cleaned.Clone()); err != nil {
		return nil, fmt.Errorf("add cleaned sheet: %w", err)
	}
	return out, nil
}
