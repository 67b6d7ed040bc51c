// =============================================================================
// Ledger Cleaner - Cleaning Pipeline
// =============================================================================
//
// This module runs the cleaning stages, in a fixed order, over the first
// sheet of a workbook and reassembles the result.
//
// PIPELINE:
//   1. FilterRows        (either liveness anchor non-blank)
//   2. PruneColumns
//   3. ForwardFill       (fill column)
//   4. StripHeaderRows   (fill column non-blank)
//   5. PruneColumns      (header rows may have held a column's only content)
//   6. RenameColumns     (exactly TargetColumns columns)
//   7. CoerceValues      (amount and date columns)
//
// Forward fill must run before header stripping: a group's members arrive
// with the fill column blank, and stripping first would drop them.
//
// A Pipeline holds only its configuration. Each call owns the tables it
// builds, so one Pipeline may serve concurrent callers.
//
// =============================================================================

package cleaner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ginjaninja78/ledger-cleaner/internal/types"
)

// =============================================================================
// REPORT
// =============================================================================

// StageStat is the table shape after one stage.
type StageStat struct {
	Stage string `json:"stage"`
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
}

// Report describes one cleaning run.
type Report struct {
	SourceSheet    string        `json:"source_sheet"`
	InputRows      int           `json:"input_rows"`
	InputCols      int           `json:"input_cols"`
	Stages         []StageStat   `json:"stages"`
	DroppedColumns []string      `json:"dropped_columns,omitempty"`
	InvalidDates   int           `json:"invalid_dates"`
	Issues         []Issue       `json:"issues,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// OutputRows returns the row count of the cleaned table.
func (r *Report) OutputRows() int {
	if len(r.Stages) == 0 {
		return r.InputRows
	}
	return r.Stages[len(r.Stages)-1].Rows
}

func (r *Report) record(stage string, t *types.Table) {
	r.Stages = append(r.Stages, StageStat{Stage: stage, Rows: t.NumRows(), Cols: t.NumCols()})
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline cleans workbooks laid out according to its Spec.
type Pipeline struct {
	spec   Spec
	logger *slog.Logger
}

// New returns a Pipeline for spec. A nil logger discards output.
func New(spec Spec, logger *slog.Logger) (*Pipeline, error) {
	if err := spec.check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{spec: spec, logger: logger}, nil
}

// Spec returns the pipeline's configuration.
func (p *Pipeline) Spec() Spec { return p.spec }

// Clean runs every stage over t and returns the cleaned table. The first
// failing stage aborts the run; no partial table is returned.
func (p *Pipeline) Clean(t *types.Table) (*types.Table, *Report, error) {
	start := time.Now()
	rep := &Report{InputRows: t.NumRows(), InputCols: t.NumCols()}
	anchors := p.spec.Anchors

	cur, err := FilterRows(t, anchors.Liveness[0], anchors.Liveness[1])
	if err != nil {
		return nil, nil, err
	}
	rep.record(StageFilterRows, cur)

	cur, dropped := PruneColumns(cur)
	rep.DroppedColumns = append(rep.DroppedColumns, dropped...)
	rep.record(StagePruneColumns, cur)

	cur, err = ForwardFill(cur, anchors.Fill)
	if err != nil {
		return nil, nil, err
	}
	rep.record(StageForwardFill, cur)

	cur, err = StripHeaderRows(cur, anchors.Fill)
	if err != nil {
		return nil, nil, err
	}
	rep.record(StageStripHeaderRows, cur)

	cur, dropped = PruneColumns(cur)
	rep.DroppedColumns = append(rep.DroppedColumns, dropped...)
	rep.record(StagePruneColumns, cur)

	cur, err = RenameColumns(cur, p.spec.Target.Names())
	if err != nil {
		return nil, nil, err
	}
	rep.record(StageRenameColumns, cur)

	cur, co, err := CoerceValues(cur, p.spec.Target, p.spec.AmountPolicy)
	if err != nil {
		return nil, nil, err
	}
	rep.InvalidDates = co.InvalidDates
	rep.Issues = co.Issues
	rep.record(StageCoerceValues, cur)

	rep.Duration = time.Since(start)
	p.logger.Debug("cleaned table",
		"input_rows", rep.InputRows,
		"input_cols", rep.InputCols,
		"output_rows", cur.NumRows(),
		"dropped_columns", rep.DroppedColumns,
		"invalid_dates", rep.InvalidDates,
		"issues", len(rep.Issues),
	)
	return cur, rep, nil
}

// CleanAndReassemble cleans the first sheet of wb and returns a new workbook
// holding every original sheet plus the cleaned table under the reserved
// sheet name. wb is not modified.
func (p *Pipeline) CleanAndReassemble(wb *types.Workbook) (*types.Workbook, *Report, error) {
	first, ok := wb.First()
	if !ok {
		return nil, nil, &SchemaError{Stage: "read_workbook", Msg: "workbook has no sheets"}
	}

	cleaned, rep, err := p.Clean(first.Table)
	if err != nil {
		return nil, nil, err
	}
	rep.SourceSheet = first.Name

	out, err := Reassemble(wb, cleaned, p.spec.SheetName)
	if err != nil {
		return nil, nil, err
	}
	return out, rep, nil
}
