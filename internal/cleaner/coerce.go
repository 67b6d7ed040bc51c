// =============================================================================
// Ledger Cleaner - Value Coercion
// =============================================================================
//
// The export writes amounts and dates as locale text:
//
//   amounts: "1.234,56"   ("." groups thousands, "," marks decimals)
//   dates:   "05/03/2023" (day/month/4-digit year)
//
// Amounts become numbers and dates become ISO text ("2023-03-05").
//
// FAILURE POLICY:
//   - Blank amounts, and amounts that are empty once "." is removed, are 0.
//   - Any other amount that does not parse follows the AmountPolicy: fail
//     the whole run with a *ParseError, or leave the cell null and record
//     an Issue.
//   - A date that does not parse is never an error: the cell becomes null
//     and is counted in the report.
//
// =============================================================================

package cleaner

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

// SourceDateLayout is the day/month/year layout of the export. Day and month
// may have one or two digits; the year must have four.
const SourceDateLayout = "2/1/2006"

// errNotANumber is wrapped by amount parse failures.
var errNotANumber = errors.New("not a number")

// decimalPattern accepts what is left of an amount once the locale
// separators have been normalised.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Issue records a cell the pipeline could not coerce and left null.
type Issue struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Coercion summarises what CoerceValues changed.
type Coercion struct {
	InvalidDates int
	Issues       []Issue
}

// ParseAmount converts an amount cell to a number. Number cells are returned
// as they are; text goes through the locale normalisation.
func ParseAmount(c types.Cell) (float64, error) {
	if c.Kind == types.KindNumber {
		return c.Number, nil
	}
	if c.IsBlank() {
		return 0, nil
	}

	s := strings.TrimSpace(c.String())
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")

	if !decimalPattern.MatchString(s) {
		return 0, errNotANumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errNotANumber, err)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errNotANumber
	}
	return v, nil
}

// ParseDate converts a date cell to ISO text. It reports false when the cell
// holds something that is not a valid day/month/year date; blank cells are
// returned null and reported as parsed.
func ParseDate(c types.Cell) (types.Cell, bool) {
	switch {
	case c.Kind == types.KindDate:
		return types.Text(c.Date.Format(types.DateLayout)), true
	case c.IsBlank():
		return types.Null(), true
	}

	d, err := time.Parse(SourceDateLayout, strings.TrimSpace(c.String()))
	if err != nil {
		return types.Null(), false
	}
	return types.Text(d.Format(types.DateLayout)), true
}

// CoerceValues rewrites the amount and date columns of a renamed table.
func CoerceValues(t *types.Table, target TargetSchema, policy AmountPolicy) (*types.Table, *Coercion, error) {
	res := &Coercion{}

	amountIdx, ok := t.Index(target.Amount())
	if !ok {
		return nil, nil, missingColumn(StageCoerceValues, target.Amount())
	}
	dateIdx, ok := t.Index(target.Date())
	if !ok {
		return nil, nil, missingColumn(StageCoerceValues, target.Date())
	}

	amounts := t.ColumnAt(amountIdx)
	for i, c := range amounts {
		v, err := ParseAmount(c)
		if err == nil {
			amounts[i] = types.Number(v)
			continue
		}
		if policy == AmountFail {
			return nil, nil, &ParseError{Column: target.Amount(), Row: i + 1, Value: c.String(), Err: err}
		}
		res.Issues = append(res.Issues, Issue{
			Row:     i + 1,
			Column:  target.Amount(),
			Value:   c.String(),
			Message: err.Error(),
		})
		amounts[i] = types.Null()
	}

	dates := t.ColumnAt(dateIdx)
	for i, c := range dates {
		parsed, ok := ParseDate(c)
		if !ok {
			res.InvalidDates++
		}
		dates[i] = parsed
	}

	out, err := t.WithColumn(amountIdx, amounts)
	if err != nil {
		return nil, nil, err
	}
	out, err = out.WithColumn(dateIdx, dates)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}
