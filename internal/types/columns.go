package types

import (
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// PositionalNames returns the spreadsheet column letters A, B, ..., for the
// first n columns. Decoded source tables use them as column identifiers.
func PositionalNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		// ColumnNumberToName only fails outside 1..16384, which is beyond
		// what any decoded sheet can hold.
		names[i], _ = excelize.ColumnNumberToName(i + 1)
	}
	return names
}

// CheckSheetName reports whether name can label a worksheet: non-blank, at
// most excelize.MaxSheetNameLength characters, none of : \ / ? * [ ], and not
// starting or ending with a single quote.
func CheckSheetName(name string) error {
	switch {
	case name == "":
		return excelize.ErrSheetNameBlank
	case utf8.RuneCountInString(name) > excelize.MaxSheetNameLength:
		return excelize.ErrSheetNameLength
	case strings.ContainsAny(name, invalidSheetChars):
		return excelize.ErrSheetNameInvalid
	case strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"):
		return excelize.ErrSheetNameSingleQuote
	}
	return nil
}

const invalidSheetChars = `:\/?*[]`

// SafeSheetName turns an arbitrary string, such as a file name, into a valid
// sheet name. Invalid characters become underscores and the result is
// truncated to the length limit. An unusable input yields "Sheet1".
func SafeSheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSheetChars, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.Trim(s, "'")
	if r := []rune(s); len(r) > excelize.MaxSheetNameLength {
		s = strings.TrimRight(string(r[:excelize.MaxSheetNameLength]), "'")
	}
	if s == "" {
		return "Sheet1"
	}
	return s
}
