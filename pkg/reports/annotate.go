package reports

import (
	"strings"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Annotate returns a copy of report with an Impact column holding labels.
// An existing Impact column is replaced.
func Annotate(report *table.Table, labels []string) (*table.Table, error) {
	base := report
	if report.Has(dataset.ColImpact) {
		var keep []string
		for _, c := range report.Columns() {
			if !strings.EqualFold(c, dataset.ColImpact) {
				keep = append(keep, c)
			}
		}
		base = report.Project(keep...)
	}
	if labels == nil {
		labels = []string{}
	}
	return base.WithColumn(dataset.ColImpact, labels)
}
