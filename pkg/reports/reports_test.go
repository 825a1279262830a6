package reports

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

func weResults(t *testing.T) *table.Table {
	t.Helper()
	report := table.New("we", []string{"MSANCODE", "distribution_hostname", "BNG_HOSTNAME", "STATUS", "cir_type"}, [][]string{
		{"CAI-MSAN-01", "DIST1", "BNG1", "Active", "FTTH"},
		{"CAI-MSAN-01", "DIST1", "BNG1", "Inactive", "FTTH"},
		{"CAI-MSAN-02", "DIST2", "BNG1", "Active", "ADSL"},
	})
	out, err := Annotate(report, []string{"Isolated", "Isolated", "Partially Impacted"})
	require.NoError(t, err)
	return out
}

func TestAnnotate(t *testing.T) {
	out := weResults(t)
	assert.Equal(t, "Impact", out.Columns()[len(out.Columns())-1])
	assert.Equal(t, "Partially Impacted", out.Value(2, "Impact"))

	again, err := Annotate(out, []string{"Unaffected", "Unaffected", "Unaffected"})
	require.NoError(t, err)
	assert.Len(t, again.Columns(), len(out.Columns()), "existing Impact column is replaced")
	assert.Equal(t, "Unaffected", again.Value(0, "impact"))

	_, err = Annotate(out, []string{"Isolated"})
	assert.Error(t, err)

	empty, err := Annotate(out.Empty(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestSummarize(t *testing.T) {
	s := Summarize(weResults(t))
	assert.Equal(t, 3, s.TotalRecords)
	assert.Equal(t, 2, s.UniqueMSANs)
	assert.Equal(t, map[string]int{"Isolated": 2, "Partially Impacted": 1}, s.ImpactBreakdown)
	assert.Equal(t, map[string]int{"Active": 2, "Inactive": 1}, s.StatusBreakdown)
	assert.Equal(t, map[string]int{"FTTH": 2, "ADSL": 1}, s.CircuitTypeBreakdown)

	bare := table.New("others", []string{"MSANCODE", "Impact"}, [][]string{{"M1", "Isolated"}})
	s = Summarize(bare)
	assert.Nil(t, s.StatusBreakdown)
	assert.Nil(t, s.CircuitTypeBreakdown)
}

func TestSummarize_EmptyMatchesServiceShape(t *testing.T) {
	s := Summarize(weResults(t).Empty())
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_records":0,"unique_msans":0,"impact_breakdown":{}}`, string(raw))
}

func TestCombine(t *testing.T) {
	we := Summary{TotalRecords: 3, UniqueMSANs: 2, ImpactBreakdown: map[string]int{"Isolated": 3}}
	others := Summary{TotalRecords: 4, UniqueMSANs: 1, ImpactBreakdown: map[string]int{"Isolated": 4}}
	c := Combine(we, others)
	assert.Equal(t, 7, c.TotalRecords)
	assert.Equal(t, 3, c.TotalUniqueMSANs)
	assert.Equal(t, 3, c.WE.ImpactBreakdown["Isolated"], "breakdowns are not merged")
}

func TestPreview(t *testing.T) {
	rows := Preview(weResults(t), 2)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{
		"MSANCODE":              "CAI-MSAN-01",
		"distribution_hostname": "DIST1",
		"BNG_HOSTNAME":          "BNG1",
		"STATUS":                "Active",
		"cir_type":              "FTTH",
		"Impact":                "Isolated",
	}, rows[0])

	others := table.New("others", []string{"MSANCODE", "BITSTREAM_HOSTNAME", "ISP", "Impact"}, [][]string{{"M1", "BS1", "X", "Isolated"}})
	rows = Preview(others, PreviewRows)
	assert.Equal(t, map[string]string{"BITSTREAM_HOSTNAME": "BS1", "MSANCODE": "M1", "Impact": "Isolated"}, rows[0])
	assert.Equal(t, []string{"MSANCODE", "Impact", "BITSTREAM_HOSTNAME"}, PreviewColumns(others), "bitstream column comes last")
	assert.Equal(t, []string{"MSANCODE", "distribution_hostname", "BNG_HOSTNAME", "STATUS", "cir_type", "Impact"}, PreviewColumns(weResults(t)))
}

func TestFilter(t *testing.T) {
	f, err := CompileFilter(`row.Impact == "Isolated" && row.STATUS == "Active"`)
	require.NoError(t, err)
	out, err := f.Apply(weResults(t))
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "CAI-MSAN-01", out.Value(0, "MSANCODE"))

	none, err := CompileFilter("")
	require.NoError(t, err)
	assert.Nil(t, none)
	all, err := none.Apply(weResults(t))
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())

	_, err = CompileFilter(`row.Impact`)
	assert.Error(t, err, "non-boolean expressions are rejected")
	_, err = CompileFilter(`row.Impact ==`)
	assert.Error(t, err)

	missing, err := CompileFilter(`row.SERVICE == "x"`)
	require.NoError(t, err)
	_, err = missing.Apply(weResults(t))
	assert.Error(t, err, "unknown columns fail at evaluation")
}

func TestCSVGenerator_Golden(t *testing.T) {
	gen, err := NewReportGenerator(ReportFormatCSV, dataset.ClassWE)
	require.NoError(t, err)
	r, err := gen.Generate(context.Background(), ResultSet{
		Identifier: "CAI-NASR",
		Tables:     map[dataset.Class]*table.Table{dataset.ClassWE: weResults(t)},
	})
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "we_impact", data)
}

func TestArchiveGenerator(t *testing.T) {
	gen, err := NewReportGenerator(ReportFormatZip, "")
	require.NoError(t, err)
	we := weResults(t)
	others := table.New("others", []string{"MSANCODE", "BITSTREAM_HOSTNAME", "Impact"}, nil)

	r, err := gen.Generate(context.Background(), ResultSet{
		Identifier: "CAI-NASR",
		Tables:     map[dataset.Class]*table.Table{dataset.ClassWE: we, dataset.ClassOthers: others},
	})
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "we_impact_CAI-NASR.csv", zr.File[0].Name)
	assert.Equal(t, "others_impact_CAI-NASR.csv", zr.File[1].Name)

	f, err := zr.File[1].Open()
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "MSANCODE,BITSTREAM_HOSTNAME,Impact\n", string(body))
}

func TestSummaryGenerator(t *testing.T) {
	gen, err := NewReportGenerator(ReportFormatJSON, "")
	require.NoError(t, err)
	r, err := gen.Generate(context.Background(), ResultSet{
		Tables: map[dataset.Class]*table.Table{dataset.ClassWE: weResults(t)},
	})
	require.NoError(t, err)

	var c Combined
	require.NoError(t, json.NewDecoder(r).Decode(&c))
	assert.Equal(t, 3, c.TotalRecords)
	assert.Equal(t, 0, c.Others.TotalRecords)
}

func TestArchiveName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "network_impact_CAI_NASR_1_2_20240309_140507.zip", ArchiveName(`CAI.NASR/1\2`, at))
	assert.Equal(t, "network_impact_CAI_NASR_20240309_140507.json", SummaryName("CAI.NASR", at))

	_, err := NewReportGenerator("pdf", "")
	assert.Error(t, err)
}
