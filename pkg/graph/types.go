package graph

import "strings"

// Layer is the network tier a topology node belongs to.
type Layer string

const (
	LayerAccess       Layer = "ACCESS"
	LayerDistribution Layer = "DISTRIBUTION"
	LayerBNG          Layer = "BNG"
	LayerWAN          Layer = "WAN"
	LayerAggregation  Layer = "AGGREGATION"
	LayerExchange     Layer = "EXCHANGE"
)

// IsRoot reports whether subscribers reaching a node of this layer are
// considered connected upstream.
func (l Layer) IsRoot() bool {
	switch l {
	case LayerBNG, LayerWAN, LayerAggregation:
		return true
	}
	return false
}

// SourceTable tags the adjacency table an edge was read from.
type SourceTable string

const (
	SourceOSPF        SourceTable = "OSPF"
	SourceWAN         SourceTable = "WAN"
	SourceAggregation SourceTable = "AGGREGATION"
)

// defaultLayer is the layer given to a node first seen in a table when the
// report carries no hint for it.
func (s SourceTable) defaultLayer() Layer {
	switch s {
	case SourceWAN:
		return LayerWAN
	case SourceAggregation:
		return LayerAggregation
	default:
		return LayerDistribution
	}
}

// Node is a vertex of the topology graph.
type Node struct {
	ID    string `json:"id"`
	Layer Layer  `json:"layer"`
	idx   int
}

// Edge is an undirected link. Redundancy is the number of parallel
// physical paths folded into it.
type Edge struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Source     SourceTable `json:"source"`
	Redundancy int         `json:"redundancy"`
	from, to   int
}

// NormalizeID canonicalises a hostname or exchange code for lookups.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
