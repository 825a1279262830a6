// Package reports annotates, summarises, filters and exports impact
// analysis results.
package reports

import (
	"context"
	"io"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
	ReportFormatZip  ReportFormat = "zip"
)

// ResultSet is the annotated output of one request, one table per class.
type ResultSet struct {
	Identifier string
	Tables     map[dataset.Class]*table.Table
}

// Table returns the table for a class, or nil.
func (s ResultSet) Table(c dataset.Class) *table.Table {
	return s.Tables[c]
}

type Generator interface {
	Generate(ctx context.Context, set ResultSet) (io.Reader, error)
}
