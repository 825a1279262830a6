package graph

import (
	"fmt"
	"strconv"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Accepted header names for adjacency tables, matched case-insensitively.
var (
	FromColumns     = []string{"from", "source", "a_end", "from_hostname", "hostname"}
	ToColumns       = []string{"to", "target", "b_end", "to_hostname", "neighbor", "neighbor_hostname"}
	CapacityColumns = []string{"capacity", "links", "redundancy_count"}
)

// Sources are the three adjacency tables the topology is built from.
type Sources struct {
	OSPF        *table.Table
	WAN         *table.Table
	Aggregation *table.Table
}

// LayerHints carries report-derived layers keyed by normalised hostname.
type LayerHints map[string]Layer

// BuildStats summarises one build.
type BuildStats struct {
	Nodes   int                 `json:"nodes"`
	Edges   int                 `json:"edges"`
	Rows    map[SourceTable]int `json:"rows"`
	Skipped map[SourceTable]int `json:"skipped"`
}

type buildConfig struct {
	hints LayerHints
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

// WithLayerHints assigns layers from the subscriber report. Hinted
// hostnames still only become nodes if an adjacency table mentions them.
func WithLayerHints(h LayerHints) BuildOption {
	return func(c *buildConfig) {
		c.hints = h
	}
}

type pairKey struct {
	a, b int
}

// Build constructs the topology graph. Rows with a missing endpoint or a
// self-loop are skipped and counted; a table without endpoint columns is an
// InputShapeError.
func Build(src Sources, opts ...BuildOption) (*Graph, BuildStats, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	stats := BuildStats{
		Rows:    make(map[SourceTable]int),
		Skipped: make(map[SourceTable]int),
	}

	inputs := []struct {
		source SourceTable
		name   string
		t      *table.Table
	}{
		{SourceOSPF, "ospf", src.OSPF},
		{SourceWAN, "wan", src.WAN},
		{SourceAggregation, "agg", src.Aggregation},
	}

	g := newGraph()
	for _, in := range inputs {
		if in.t == nil {
			return nil, stats, fmt.Errorf("topology table %s not supplied: %w", in.name, &table.InputShapeError{Table: in.name, Column: FromColumns[0]})
		}
		if err := g.load(in.source, in.t, cfg.hints, &stats); err != nil {
			return nil, stats, err
		}
	}
	g.seal()

	stats.Nodes = g.NodeCount()
	stats.Edges = g.EdgeCount()
	return g, stats, nil
}

func (g *Graph) load(source SourceTable, t *table.Table, hints LayerHints, stats *BuildStats) error {
	fromCol, _, ok := t.Find(FromColumns...)
	if !ok {
		return &table.InputShapeError{Table: t.Name(), Column: FromColumns[0]}
	}
	toCol, _, ok := t.Find(ToColumns...)
	if !ok {
		return &table.InputShapeError{Table: t.Name(), Column: ToColumns[0]}
	}
	capCol, _, hasCap := t.Find(CapacityColumns...)

	folded := make(map[pairKey]int)
	var order []pairKey

	for r := 0; r < t.Len(); r++ {
		stats.Rows[source]++

		from := NormalizeID(t.Cell(r, fromCol))
		to := NormalizeID(t.Cell(r, toCol))
		if from == "" || to == "" || from == to {
			stats.Skipped[source]++
			continue
		}

		a := g.ensureNode(from, layerFor(from, source, hints))
		b := g.ensureNode(to, layerFor(to, source, hints))
		if a > b {
			a, b = b, a
		}

		paths := 1
		if hasCap {
			if n, err := strconv.Atoi(t.Cell(r, capCol)); err == nil && n > 0 {
				paths = n
			}
		}

		key := pairKey{a, b}
		if _, seen := folded[key]; !seen {
			order = append(order, key)
		}
		folded[key] += paths
	}

	for _, key := range order {
		g.addEdge(key.a, key.b, source, folded[key])
	}
	return nil
}

func layerFor(id string, source SourceTable, hints LayerHints) Layer {
	if l, ok := hints[id]; ok {
		return l
	}
	return source.defaultLayer()
}
