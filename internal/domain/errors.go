package domain

import (
	"errors"
	"fmt"
)

// StructuralError reports a missing required input table or column. It is fatal to the stage
// that hits it.
type StructuralError struct {
	Stage  string
	Table  string
	Column string
}

func (e *StructuralError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: table %s is missing required column %q", e.Stage, e.Table, e.Column)
	}
	return fmt.Sprintf("%s: required table %s is missing", e.Stage, e.Table)
}

// MissingTable builds a StructuralError for an absent table.
func MissingTable(stage, table string) error {
	return &StructuralError{Stage: stage, Table: table}
}

// MissingColumn builds a StructuralError for an absent column.
func MissingColumn(stage, table, column string) error {
	return &StructuralError{Stage: stage, Table: table, Column: column}
}

// IsStructural reports whether err wraps a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}
