package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/ledger-cleaner/internal/cleaner"
	"github.com/ginjaninja78/ledger-cleaner/internal/config"
	"github.com/ginjaninja78/ledger-cleaner/internal/csvparser"
	"github.com/ginjaninja78/ledger-cleaner/internal/types"
	"github.com/ginjaninja78/ledger-cleaner/internal/xlsxparser"
	"github.com/ginjaninja78/ledger-cleaner/internal/xlsxwriter"
)

// ErrUnsupportedInput is returned for a file extension with no decoder.
var ErrUnsupportedInput = errors.New("unsupported input file type")

// =============================================================================
// INPUT DECODING
// =============================================================================

// DecodeFile reads the input at path. ".csv" files are read with settings;
// ".xlsx" and ".xlsm" files are read as workbooks.
func DecodeFile(path string, settings config.CSVSettings) (*types.Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		wb, err := csvparser.Parse(path, settings)
		if err != nil {
			return nil, &xlsxparser.DecodeError{Err: err}
		}
		return wb, nil
	case ".xlsx", ".xlsm":
		return xlsxparser.DecodeFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, filepath.Base(path))
	}
}

// DecodeUpload reads an uploaded file. Uploads named "*.csv" are read as
// CSV with settings; everything else is treated as a workbook, since
// clients do not always send a file name.
func DecodeUpload(name string, r io.Reader, settings config.CSVSettings) (*types.Workbook, error) {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		sheet := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		wb, err := csvparser.ParseReader(r, sheet, settings)
		if err != nil {
			return nil, &xlsxparser.DecodeError{Err: err}
		}
		return wb, nil
	}
	return xlsxparser.Decode(r)
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// Error kinds reported by Kind.
const (
	KindDecode      = "decode"
	KindSchema      = "schema"
	KindParse       = "parse"
	KindEncode      = "encode"
	KindUnsupported = "unsupported"
	KindCancelled   = "cancelled"
	KindConfig      = "config"
	KindIO          = "io"
)

// Kind classifies err for logs and summaries.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, xlsxparser.ErrDecode):
		return KindDecode
	case errors.Is(err, cleaner.ErrSchema):
		return KindSchema
	case errors.Is(err, cleaner.ErrParse):
		return KindParse
	case errors.Is(err, xlsxwriter.ErrEncode):
		return KindEncode
	case errors.Is(err, ErrUnsupportedInput):
		return KindUnsupported
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, cleaner.ErrInvalidSpec):
		return KindConfig
	default:
		return KindIO
	}
}

// AsSchemaError unwraps a *cleaner.SchemaError from err.
func AsSchemaError(err error) (*cleaner.SchemaError, bool) {
	var se *cleaner.SchemaError
	ok := errors.As(err, &se)
	return se, ok
}

// AsParseError unwraps a *cleaner.ParseError from err.
func AsParseError(err error) (*cleaner.ParseError, bool) {
	var pe *cleaner.ParseError
	ok := errors.As(err, &pe)
	return pe, ok
}
