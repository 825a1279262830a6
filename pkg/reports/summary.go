package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Summary describes one annotated table.
type Summary struct {
	TotalRecords         int            `json:"total_records"`
	UniqueMSANs          int            `json:"unique_msans"`
	ImpactBreakdown      map[string]int `json:"impact_breakdown"`
	StatusBreakdown      map[string]int `json:"status_breakdown,omitempty"`
	CircuitTypeBreakdown map[string]int `json:"circuit_type_breakdown,omitempty"`
}

// Summarize counts rows, distinct MSAN codes and value breakdowns. A
// breakdown is nil when its column is absent; an empty table yields a
// zero summary with an empty impact breakdown.
func Summarize(t *table.Table) Summary {
	s := Summary{ImpactBreakdown: map[string]int{}}
	if t == nil || t.Len() == 0 {
		return s
	}

	s.TotalRecords = t.Len()
	s.UniqueMSANs = distinct(t, dataset.ColMSANCode)
	s.ImpactBreakdown = breakdown(t, dataset.ColImpact)
	if s.ImpactBreakdown == nil {
		s.ImpactBreakdown = map[string]int{}
	}
	s.StatusBreakdown = breakdown(t, dataset.ColStatus)
	s.CircuitTypeBreakdown = breakdown(t, dataset.ColCircuitType)
	return s
}

func distinct(t *table.Table, column string) int {
	col, ok := t.Index(column)
	if !ok {
		return 0
	}
	seen := make(map[string]struct{})
	for r := 0; r < t.Len(); r++ {
		if v := t.Cell(r, col); v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// breakdown counts non-empty values of a column.
func breakdown(t *table.Table, column string) map[string]int {
	col, ok := t.Index(column)
	if !ok {
		return nil
	}
	out := make(map[string]int)
	for r := 0; r < t.Len(); r++ {
		if v := t.Cell(r, col); v != "" {
			out[v]++
		}
	}
	return out
}

// Combined is the cross-class summary. Only the totals are summed.
type Combined struct {
	WE               Summary `json:"we"`
	Others           Summary `json:"others"`
	TotalRecords     int     `json:"total_records"`
	TotalUniqueMSANs int     `json:"total_unique_msans"`
}

// Combine merges the per-class summaries.
func Combine(we, others Summary) Combined {
	return Combined{
		WE:               we,
		Others:           others,
		TotalRecords:     we.TotalRecords + others.TotalRecords,
		TotalUniqueMSANs: we.UniqueMSANs + others.UniqueMSANs,
	}
}

// PreviewRows is the number of rows shown in a preview.
const PreviewRows = 5

var previewColumns = []string{
	dataset.ColMSANCode,
	dataset.ColEdge,
	dataset.ColDistribution,
	dataset.ColBNG,
	dataset.ColStatus,
	dataset.ColCust,
	dataset.ColCircuitType,
	dataset.ColImpact,
}

// PreviewColumns lists the preview columns for t in order. Bitstream
// reports get BITSTREAM_HOSTNAME appended.
func PreviewColumns(t *table.Table) []string {
	cols := make([]string, 0, len(previewColumns)+1)
	for _, c := range previewColumns {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	if !t.Has(dataset.ColDistribution) && t.Has(dataset.ColBitstream) {
		cols = append(cols, dataset.ColBitstream)
	}
	return cols
}

// Preview returns the first n rows as records restricted to the preview
// columns present in t.
func Preview(t *table.Table, n int) []map[string]string {
	head := t.Project(PreviewColumns(t)...).Head(n)
	out := make([]map[string]string, head.Len())
	for i := range out {
		out[i] = head.Record(i)
	}
	return out
}

// SummaryGenerator renders the combined summary as JSON.
type SummaryGenerator struct{}

func (g *SummaryGenerator) Generate(ctx context.Context, set ResultSet) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	combined := Combine(
		Summarize(set.Table(dataset.ClassWE)),
		Summarize(set.Table(dataset.ClassOthers)),
	)
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(combined); err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return buf, nil
}
