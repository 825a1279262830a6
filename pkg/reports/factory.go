package reports

import (
	"fmt"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
)

// NewReportGenerator creates a report generator based on the report format.
// class selects the table for single-table formats.
func NewReportGenerator(format ReportFormat, class dataset.Class) (Generator, error) {
	switch format {
	case ReportFormatCSV:
		return &CSVGenerator{Class: class}, nil
	case ReportFormatJSON:
		return &SummaryGenerator{}, nil
	case ReportFormatZip:
		return &ArchiveGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
}
