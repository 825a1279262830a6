package table

import "fmt"

// InputShapeError reports a source table that lacks a required column.
type InputShapeError struct {
	Table  string
	Column string
}

func (e *InputShapeError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("input shape: missing required column %q", e.Column)
	}
	return fmt.Sprintf("input shape: table %q is missing required column %q", e.Table, e.Column)
}
