// =============================================================================
// Ledger Cleaner - Source and Target Layout
// =============================================================================
//
// The source export has no usable header row: its columns are anonymous and
// only their position carries meaning. Every positional assumption the
// cleaning stages make is collected here, in one struct passed into the
// pipeline, instead of being scattered through the stages.
//
// =============================================================================

package cleaner

import "fmt"

// AnchorColumnSpec names, by source column letter, the columns the cleaning
// stages use as structural signals rather than as business data.
type AnchorColumnSpec struct {
	// Liveness holds the two columns used by FilterRows: a row survives when
	// at least one of them is non-blank.
	Liveness [2]string

	// Fill is the column forward-filled by ForwardFill and then required to
	// be non-blank by StripHeaderRows.
	Fill string
}

// Positions of each role inside a TargetSchema.
const (
	RoleDate = iota
	RolePlan
	RoleOrigin
	RoleHistory
	RoleAmount
	RoleOperation
	RoleUser
)

// TargetColumns is the number of columns of the cleaned table.
const TargetColumns = 7

// TargetSchema is the ordered list of canonical column names of the cleaned
// table, indexed by the Role constants.
type TargetSchema [TargetColumns]string

// Date returns the name of the date column.
func (s TargetSchema) Date() string { return s[RoleDate] }

// Amount returns the name of the monetary column.
func (s TargetSchema) Amount() string { return s[RoleAmount] }

// Names returns the schema as a slice.
func (s TargetSchema) Names() []string { return append([]string(nil), s[:]...) }

// AmountPolicy decides what happens to an amount cell that cannot be parsed.
type AmountPolicy string

const (
	// AmountFail aborts the run with a *ParseError.
	AmountFail AmountPolicy = "fail"

	// AmountBlank leaves the cell null and records an Issue.
	AmountBlank AmountPolicy = "blank"
)

// DefaultTargetSchema is the canonical cleaned layout.
var DefaultTargetSchema = TargetSchema{
	"Data",
	"Plano",
	"Origem",
	"Histórico",
	"Valor",
	"Tipo Operação",
	"Usuário",
}

// DefaultSheetName is the reserved label of the cleaned sheet.
const DefaultSheetName = "Dados Limpos"

// Spec configures a Pipeline.
type Spec struct {
	Anchors      AnchorColumnSpec
	Target       TargetSchema
	SheetName    string
	AmountPolicy AmountPolicy
}

// DefaultSpec returns the layout of the standard ledger export: the entry
// date in column A, the history text in column E.
func DefaultSpec() Spec {
	return Spec{
		Anchors: AnchorColumnSpec{
			Liveness: [2]string{"A", "E"},
			Fill:     "A",
		},
		Target:       DefaultTargetSchema,
		SheetName:    DefaultSheetName,
		AmountPolicy: AmountFail,
	}
}

// check rejects specs the stages cannot run with. Richer checks (column
// letter syntax, sheet name characters) live in the validation package.
func (s Spec) check() error {
	if s.Anchors.Liveness[0] == "" || s.Anchors.Liveness[1] == "" {
		return fmt.Errorf("two liveness anchor columns are required")
	}
	if s.Anchors.Fill == "" {
		return fmt.Errorf("a fill column is required")
	}
	seen := make(map[string]bool, TargetColumns)
	for i, n := range s.Target {
		if n == "" {
			return fmt.Errorf("target column %d has no name", i+1)
		}
		if seen[n] {
			return fmt.Errorf("target column %q is repeated", n)
		}
		seen[n] = true
	}
	if s.SheetName == "" {
		return fmt.Errorf("a sheet name for the cleaned table is required")
	}
	switch s.AmountPolicy {
	case AmountFail, AmountBlank:
	default:
		return fmt.Errorf("unknown amount policy %q", s.AmountPolicy)
	}
	return nil
}
