package engine

import (
	"fmt"
	"strings"
)

// SchemaError reports every required column missing from the input
// dataset, not just the first one found. It is fatal: no query can run
// against a dataset that failed validation.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("pr dataset missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ScopeError reports a scope that cannot be served with the data the
// engine holds. Callers can recover by choosing another scope or by
// supplying a team mapping.
type ScopeError struct {
	Msg string
}

func (e *ScopeError) Error() string { return e.Msg }

// MissingColumnError reports a group-by key that does not exist on the
// scoped view. This is a caller error, not a data problem.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column: %s", e.Column)
}
