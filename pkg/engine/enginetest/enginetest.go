// Package enginetest provides a small two-region network for tests of
// packages built on top of the engine.
package enginetest

import (
	"io"
	"log/slog"
	"testing"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/engine"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Topology: CAI-NASR-MSAN-01 is dual homed over DIST-01 and DIST-02,
// CAI-NASR-MSAN-02 hangs off DIST-01 only, ALX-SMOUHA-MSAN-01 is a
// separate region.
func Topology() graph.Sources {
	return graph.Sources{
		OSPF: table.New("ospf", []string{"from", "to"}, [][]string{
			{"CAI-NASR-MSAN-01", "CAI-NASR-DIST-01"},
			{"CAI-NASR-MSAN-01", "CAI-NASR-DIST-02"},
			{"CAI-NASR-MSAN-02", "CAI-NASR-DIST-01"},
			{"ALX-SMOUHA-MSAN-01", "ALX-SMOUHA-DIST-01"},
		}),
		WAN: table.New("wan", []string{"from", "to"}, [][]string{
			{"CAI-NASR-DIST-01", "CAI-CORE-BNG-01"},
			{"CAI-NASR-DIST-02", "CAI-CORE-BNG-02"},
			{"ALX-SMOUHA-DIST-01", "ALX-CORE-BNG-01"},
		}),
		Aggregation: table.New("agg", []string{"from", "to"}, nil),
	}
}

// ReportWE has four circuits; the last one names a distribution switch
// missing from the topology.
func ReportWE() *table.Table {
	return table.New("report_we", []string{"MSANCODE", "distribution_hostname", "BNG_HOSTNAME", "STATUS", "cir_type", "EXCHANGE"}, [][]string{
		{"CAI-NASR-MSAN-01", "CAI-NASR-DIST-01", "CAI-CORE-BNG-01", "Active", "FTTH", "CAI.NASR"},
		{"CAI-NASR-MSAN-02", "CAI-NASR-DIST-01", "CAI-CORE-BNG-01", "Active", "ADSL", "CAI.NASR"},
		{"ALX-SMOUHA-MSAN-01", "ALX-SMOUHA-DIST-01", "ALX-CORE-BNG-01", "Inactive", "FTTH", "ALX.SMOUHA"},
		{"ALX-SMOUHA-MSAN-01", "ALX-GHOST-DIST-09", "ALX-CORE-BNG-01", "Active", "ADSL", "ALX.SMOUHA"},
	})
}

// ReportOthers has two bitstream circuits.
func ReportOthers() *table.Table {
	return table.New("report_others", []string{"MSANCODE", "BITSTREAM_HOSTNAME", "ISP"}, [][]string{
		{"CAI-NASR-MSAN-02", "CAI-NASR-DIST-01", "ISP-A"},
		{"ALX-SMOUHA-MSAN-01", "ALX-SMOUHA-DIST-01", "ISP-B"},
	})
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// Runner builds analyzers for both classes over the fixture network.
func Runner(tb testing.TB, opts ...engine.Option) *engine.Runner {
	tb.Helper()
	hints := dataset.ReportHints(map[dataset.Class]*table.Table{
		dataset.ClassWE:     ReportWE(),
		dataset.ClassOthers: ReportOthers(),
	})
	opts = append([]engine.Option{engine.WithLogger(Logger()), engine.WithLayerHints(hints)}, opts...)
	we, err := engine.New(ReportWE(), dataset.ClassWE, Topology(), opts...)
	if err != nil {
		tb.Fatalf("build we analyzer: %v", err)
	}
	others, err := engine.New(ReportOthers(), dataset.ClassOthers, Topology(), opts...)
	if err != nil {
		tb.Fatalf("build others analyzer: %v", err)
	}
	return engine.NewRunner(we, others)
}
