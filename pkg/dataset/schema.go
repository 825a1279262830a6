// Package dataset declares the subscriber report variants ("WE" and
// "Others") and extracts circuits from them.
package dataset

import (
	"fmt"
	"strings"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

// Report column names.
const (
	ColMSANCode     = "MSANCODE"
	ColEdge         = "EDGE"
	ColDistribution = "distribution_hostname"
	ColBitstream    = "BITSTREAM_HOSTNAME"
	ColBNG          = "BNG_HOSTNAME"
	ColStatus       = "STATUS"
	ColCust         = "CUST"
	ColCircuitType  = "cir_type"
	ColService      = "SERVICE"
	ColISP          = "ISP"
	ColExchange     = "EXCHANGE"
	ColImpact       = "Impact"
)

// Class identifies a subscriber dataset variant.
type Class string

const (
	ClassWE     Class = "we"
	ClassOthers Class = "others"
)

// Classes lists every variant in reporting order.
var Classes = []Class{ClassWE, ClassOthers}

// ParseClass accepts "we" or "others" in any case.
func ParseClass(s string) (Class, error) {
	switch Class(strings.ToLower(strings.TrimSpace(s))) {
	case ClassWE:
		return ClassWE, nil
	case ClassOthers:
		return ClassOthers, nil
	}
	return "", fmt.Errorf("unknown dataset class: %q", s)
}

// Capability is a bit for each optional column a bound report carries.
type Capability uint16

const (
	CapEdge Capability = 1 << iota
	CapBNG
	CapStatus
	CapCust
	CapCircuitType
	CapService
	CapISP
	CapExchange
)

var capabilityColumns = map[Capability]string{
	CapEdge:        ColEdge,
	CapBNG:         ColBNG,
	CapStatus:      ColStatus,
	CapCust:        ColCust,
	CapCircuitType: ColCircuitType,
	CapService:     ColService,
	CapISP:         ColISP,
	CapExchange:    ColExchange,
}

type hop struct {
	column string
	layer  graph.Layer
}

type variant struct {
	required []string
	optional Capability
	chain    []hop
}

var variants = map[Class]variant{
	ClassWE: {
		required: []string{ColMSANCode, ColDistribution},
		optional: CapEdge | CapBNG | CapStatus | CapCust | CapCircuitType | CapExchange,
		chain: []hop{
			{ColEdge, graph.LayerDistribution},
			{ColDistribution, graph.LayerDistribution},
			{ColBNG, graph.LayerBNG},
		},
	},
	ClassOthers: {
		required: []string{ColMSANCode, ColBitstream},
		optional: CapEdge | CapStatus | CapCircuitType | CapService | CapISP | CapExchange,
		chain: []hop{
			{ColEdge, graph.LayerDistribution},
			{ColBitstream, graph.LayerDistribution},
		},
	},
}

// Schema is a report table bound to its variant. The capability set is
// computed once here so later reads never look columns up ad hoc.
type Schema struct {
	Class Class
	table *table.Table
	caps  Capability
	chain []int
	hops  []hop
}

// Bind validates a report against its variant.
func Bind(class Class, t *table.Table) (*Schema, error) {
	v, ok := variants[class]
	if !ok {
		return nil, fmt.Errorf("unknown dataset class: %q", class)
	}
	if t == nil {
		return nil, &table.InputShapeError{Table: string(class), Column: v.required[0]}
	}
	if err := t.RequireColumns(v.required...); err != nil {
		return nil, err
	}

	s := &Schema{Class: class, table: t}
	for c, col := range capabilityColumns {
		if v.optional&c != 0 && t.Has(col) {
			s.caps |= c
		}
	}
	for _, h := range v.chain {
		if i, ok := t.Index(h.column); ok {
			s.chain = append(s.chain, i)
			s.hops = append(s.hops, h)
		}
	}
	return s, nil
}

// Table returns the bound report.
func (s *Schema) Table() *table.Table { return s.table }

// Has reports whether an optional column is present.
func (s *Schema) Has(c Capability) bool { return s.caps&c != 0 }

// Capabilities returns the full capability set.
func (s *Schema) Capabilities() Capability { return s.caps }

// Detect guesses a report's class from its header.
func Detect(columns []string) (Class, bool) {
	t := table.New("", columns, nil)
	switch {
	case t.Has(ColDistribution) || t.Has(ColBNG):
		return ClassWE, true
	case t.Has(ColBitstream):
		return ClassOthers, true
	}
	return "", false
}
