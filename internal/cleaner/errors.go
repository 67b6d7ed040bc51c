package cleaner

import (
	"errors"
	"fmt"
)

// ErrSchema matches every *SchemaError via errors.Is.
var ErrSchema = errors.New("schema error")

// ErrInvalidSpec is returned by New for a Spec the stages cannot run with.
var ErrInvalidSpec = errors.New("invalid cleaning spec")

// ErrParse matches every *ParseError via errors.Is.
var ErrParse = errors.New("parse error")

// SchemaError reports that the input does not have the structure the
// cleaning stages rely on: a missing anchor column, or a cleaned table whose
// column count differs from the target schema.
type SchemaError struct {
	Stage  string
	Column string
	Msg    string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error in %s (column %q): %s", e.Stage, e.Column, e.Msg)
	}
	return fmt.Sprintf("schema error in %s: %s", e.Stage, e.Msg)
}

// Is lets errors.Is(err, ErrSchema) match.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func missingColumn(stage, column string) *SchemaError {
	return &SchemaError{Stage: stage, Column: column, Msg: "column not found"}
}

// ParseError reports a cell that could not be coerced under the hard-fail
// amount policy. Row is 1-based within the cleaned table.
type ParseError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q in column %q, row %d: %v", e.Value, e.Column, e.Row, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrParse) match.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
