package dataset

import (
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Hop is one upstream element of a circuit.
type Hop struct {
	Column   string      `json:"column"`
	Hostname string      `json:"hostname"`
	Layer    graph.Layer `json:"layer"`
}

// Circuit is one report row viewed through its schema.
type Circuit struct {
	Row         int    `json:"row"`
	MSANCode    string `json:"msancode"`
	Access      string `json:"access"`
	Upstream    []Hop  `json:"upstream"`
	Status      string `json:"status,omitempty"`
	CircuitType string `json:"cir_type,omitempty"`
	Exchange    string `json:"exchange,omitempty"`
}

// Hostnames returns the access node followed by the upstream chain.
func (c Circuit) Hostnames() []string {
	out := make([]string, 0, len(c.Upstream)+1)
	out = append(out, c.Access)
	for _, h := range c.Upstream {
		out = append(out, h.Hostname)
	}
	return out
}

// Circuits extracts every row. Empty upstream cells are skipped.
func (s *Schema) Circuits() []Circuit {
	t := s.table
	out := make([]Circuit, t.Len())
	for r := 0; r < t.Len(); r++ {
		msan := t.Value(r, ColMSANCode)
		c := Circuit{
			Row:      r,
			MSANCode: msan,
			Access:   graph.NormalizeID(msan),
		}
		for i, col := range s.chain {
			host := graph.NormalizeID(t.Cell(r, col))
			if host == "" {
				continue
			}
			c.Upstream = append(c.Upstream, Hop{Column: s.hops[i].column, Hostname: host, Layer: s.hops[i].layer})
		}
		if s.Has(CapStatus) {
			c.Status = t.Value(r, ColStatus)
		}
		if s.Has(CapCircuitType) {
			c.CircuitType = t.Value(r, ColCircuitType)
		}
		if s.Has(CapExchange) {
			c.Exchange = graph.NormalizeID(t.Value(r, ColExchange))
		}
		out[r] = c
	}
	return out
}

// LayerHints derives node layers from the report for the graph builder.
// The access layer wins over any upstream role a hostname also plays.
func LayerHints(circuits []Circuit) graph.LayerHints {
	hints := make(graph.LayerHints)
	for _, c := range circuits {
		for _, h := range c.Upstream {
			if _, ok := hints[h.Hostname]; !ok || h.Layer == graph.LayerBNG {
				hints[h.Hostname] = h.Layer
			}
		}
	}
	for _, c := range circuits {
		if c.Access != "" {
			hints[c.Access] = graph.LayerAccess
		}
	}
	return hints
}

// MergeLayerHints combines hints with the same precedence LayerHints uses:
// access beats BNG, BNG beats anything else, otherwise the first wins.
func MergeLayerHints(sets ...graph.LayerHints) graph.LayerHints {
	out := make(graph.LayerHints)
	for _, set := range sets {
		for id, l := range set {
			cur, ok := out[id]
			if !ok || hintRank(l) > hintRank(cur) {
				out[id] = l
			}
		}
	}
	return out
}

func hintRank(l graph.Layer) int {
	switch l {
	case graph.LayerAccess:
		return 2
	case graph.LayerBNG:
		return 1
	}
	return 0
}

// ReportHints derives layer hints from every report that binds to its
// class. Reports that do not bind are skipped; New reports them.
func ReportHints(reports map[Class]*table.Table) graph.LayerHints {
	var sets []graph.LayerHints
	for _, c := range Classes {
		s, err := Bind(c, reports[c])
		if err != nil {
			continue
		}
		sets = append(sets, LayerHints(s.Circuits()))
	}
	return MergeLayerHints(sets...)
}

// ExchangeIndex maps normalised exchange codes to the access nodes
// provisioned under them. It is empty when the report has no EXCHANGE column.
func ExchangeIndex(circuits []Circuit) map[string][]string {
	idx := make(map[string][]string)
	seen := make(map[string]bool)
	for _, c := range circuits {
		if c.Exchange == "" || c.Access == "" {
			continue
		}
		key := c.Exchange + "\x00" + c.Access
		if seen[key] {
			continue
		}
		seen[key] = true
		idx[c.Exchange] = append(idx[c.Exchange], c.Access)
	}
	return idx
}
