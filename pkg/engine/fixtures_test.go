package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Two independent regions. In Nasr City MSAN-01 is dual homed, MSAN-02 is
// single homed and MSAN-03 is listed against a distribution switch that
// the topology does not know. Smouha hangs off its own core.
func fixtureTopology() graph.Sources {
	return graph.Sources{
		OSPF: table.New("ospf", []string{"from", "to"}, [][]string{
			{"CAI-NASR-MSAN-01", "CAI-NASR-DIST-01"},
			{"CAI-NASR-MSAN-01", "CAI-NASR-DIST-02"},
			{"CAI-NASR-MSAN-02", "CAI-NASR-DIST-01"},
			{"CAI-NASR-MSAN-03", "CAI-NASR-DIST-01"},
			{"ALX-SMOUHA-MSAN-01", "ALX-SMOUHA-DIST-01"},
		}),
		WAN: table.New("wan", []string{"source", "target"}, [][]string{
			{"CAI-NASR-DIST-01", "CAI-CORE-BNG-01"},
			{"CAI-NASR-DIST-02", "CAI-CORE-BNG-02"},
			{"ALX-SMOUHA-DIST-01", "ALX-CORE-BNG-01"},
		}),
		Aggregation: table.New("agg", []string{"a_end", "b_end"}, [][]string{
			{"CAI-CORE-BNG-01", "CAI-CORE-AGG-01"},
			{"CAI-CORE-BNG-02", "CAI-CORE-AGG-01"},
		}),
	}
}

func fixtureWE() *table.Table {
	return table.New("we", []string{"MSANCODE", "EDGE", "distribution_hostname", "BNG_HOSTNAME", "STATUS", "cir_type", "EXCHANGE"}, [][]string{
		{"CAI-NASR-MSAN-01", "", "CAI-NASR-DIST-01", "CAI-CORE-BNG-01", "Active", "FTTH", "CAI.NASR"},
		{"CAI-NASR-MSAN-01", "", "CAI-NASR-DIST-02", "CAI-CORE-BNG-02", "Active", "FTTC", "CAI.NASR"},
		{"CAI-NASR-MSAN-02", "", "CAI-NASR-DIST-01", "CAI-CORE-BNG-01", "Inactive", "ADSL", "CAI.NASR"},
		{"CAI-NASR-MSAN-03", "", "CAI-GHOST-DIST-99", "CAI-CORE-BNG-01", "Active", "ADSL", "CAI.NASR"},
		{"ALX-SMOUHA-MSAN-01", "", "ALX-SMOUHA-DIST-01", "ALX-CORE-BNG-01", "Active", "FTTH", "ALX.SMOUHA"},
	})
}

func fixtureOthers() *table.Table {
	return table.New("others", []string{"MSANCODE", "BITSTREAM_HOSTNAME", "SERVICE", "ISP"}, [][]string{
		{"CAI-NASR-MSAN-02", "CAI-NASR-DIST-01", "BITSTREAM", "ISP-A"},
		{"ALX-SMOUHA-MSAN-01", "ALX-SMOUHA-DIST-01", "BITSTREAM", "ISP-B"},
	})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newAnalyzer(t *testing.T, report *table.Table, class dataset.Class, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(report, class, fixtureTopology(), append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return a
}

func labels(res *Result) []string {
	out := make([]string, res.Table.Len())
	for i := range out {
		out[i] = res.Table.Value(i, "Impact")
	}
	return out
}

// An island topology that lists every link in OSPF only. BNG-1 is a root
// only when some report names it in a BNG column; the N9 island never
// reaches a root.
func ospfOnlyTopology() graph.Sources {
	return graph.Sources{
		OSPF: table.New("ospf", []string{"from", "to"}, [][]string{
			{"N1", "D1"},
			{"N2", "D1"},
			{"D1", "BNG-1"},
			{"N9", "X9"},
			{"X9", "X10"},
		}),
		WAN:         table.New("wan", []string{"from", "to"}, nil),
		Aggregation: table.New("agg", []string{"from", "to"}, nil),
	}
}

func ospfOnlyOthers() *table.Table {
	return table.New("others", []string{"MSANCODE", "BITSTREAM_HOSTNAME"}, [][]string{
		{"N1", "D1"},
		{"N2", "D1"},
	})
}

func ospfOnlyWE() *table.Table {
	return table.New("we", []string{"MSANCODE", "distribution_hostname", "BNG_HOSTNAME"}, [][]string{
		{"N1", "D1", "BNG-1"},
	})
}

func newOSPFOnlyAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(ospfOnlyOthers(), dataset.ClassOthers, ospfOnlyTopology(), append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return a
}

func sharedHints() graph.LayerHints {
	return dataset.ReportHints(map[dataset.Class]*table.Table{
		dataset.ClassWE:     ospfOnlyWE(),
		dataset.ClassOthers: ospfOnlyOthers(),
	})
}
