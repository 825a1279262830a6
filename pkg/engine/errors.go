package engine

import (
	"errors"
	"fmt"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// InputShapeError reports a source table missing a required column.
type InputShapeError = table.InputShapeError

var (
	// ErrIdentifierNotFound matches every IdentifierNotFoundError.
	ErrIdentifierNotFound = errors.New("identifier not found in topology")
	// ErrEmptyReport is returned when a subscriber report has no rows.
	ErrEmptyReport = errors.New("subscriber report has no rows")
	// ErrEmptyIdentifier is returned for a blank identifier.
	ErrEmptyIdentifier = errors.New("identifier must not be empty")
	// ErrInvalidIdentifierType is returned for an unknown identifier type.
	ErrInvalidIdentifierType = errors.New("identifier_type must be one of node, exchange, auto")
)

// IdentifierNotFoundError names a node identifier absent from the graph.
type IdentifierNotFoundError struct {
	Identifier string
}

func (e *IdentifierNotFoundError) Error() string {
	return fmt.Sprintf("identifier %q not found in topology", e.Identifier)
}

func (e *IdentifierNotFoundError) Is(target error) bool {
	return target == ErrIdentifierNotFound
}

// WarningKind categorises a non-fatal analysis finding.
type WarningKind string

const (
	WarningTopologyResolution WarningKind = "topology_resolution"
	WarningTraversalLimit     WarningKind = "traversal_limit"
)

// Warning is attached to a result instead of failing the run.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Row      int         `json:"row"`
	MSANCODE string      `json:"msancode"`
	Hostname string      `json:"hostname,omitempty"`
	Detail   string      `json:"detail,omitempty"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarningTopologyResolution:
		switch {
		case w.Hostname == "" && w.Detail != "":
			return fmt.Sprintf("row %d (%s): %s", w.Row, w.MSANCODE, w.Detail)
		case w.Detail != "":
			return fmt.Sprintf("row %d (%s): %s has %s", w.Row, w.MSANCODE, w.Hostname, w.Detail)
		}
		return fmt.Sprintf("row %d (%s): hostname %s not in topology", w.Row, w.MSANCODE, w.Hostname)
	case WarningTraversalLimit:
		return fmt.Sprintf("row %d (%s): traversal limit reached", w.Row, w.MSANCODE)
	}
	return fmt.Sprintf("row %d (%s): %s", w.Row, w.MSANCODE, w.Detail)
}
