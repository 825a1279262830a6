package graph

import (
	"sort"
	"strings"
)

// Graph is an undirected multigraph of topology nodes keyed by ID.
// It is immutable once Build returns and safe for concurrent reads.
type Graph struct {
	nodes  []*Node
	ids    map[string]int
	sorted []string
	edges  []Edge
	adj    [][]int
}

func newGraph() *Graph {
	return &Graph{
		ids: make(map[string]int),
	}
}

// ensureNode returns the index of id, creating the node when needed.
func (g *Graph) ensureNode(id string, layer Layer) int {
	if i, ok := g.ids[id]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, &Node{ID: id, Layer: layer, idx: i})
	g.adj = append(g.adj, nil)
	g.ids[id] = i
	return i
}

func (g *Graph) addEdge(from, to int, source SourceTable, redundancy int) {
	e := Edge{
		From:       g.nodes[from].ID,
		To:         g.nodes[to].ID,
		Source:     source,
		Redundancy: redundancy,
		from:       from,
		to:         to,
	}
	g.edges = append(g.edges, e)
	ei := len(g.edges) - 1
	g.adj[from] = append(g.adj[from], ei)
	g.adj[to] = append(g.adj[to], ei)
}

func (g *Graph) seal() {
	g.sorted = make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		g.sorted = append(g.sorted, n.ID)
	}
	sort.Strings(g.sorted)
}

// Node looks up a node by hostname or code.
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.ids[NormalizeID(id)]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Has reports whether a node exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.ids[NormalizeID(id)]
	return ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of folded edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Nodes returns all nodes ordered by ID.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.sorted))
	for _, id := range g.sorted {
		out = append(out, *g.nodes[g.ids[id]])
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgesOf returns the edges incident to a node.
func (g *Graph) EdgesOf(id string) []Edge {
	i, ok := g.ids[NormalizeID(id)]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(g.adj[i]))
	for _, ei := range g.adj[i] {
		out = append(out, g.edges[ei])
	}
	return out
}

// WithPrefix returns the IDs equal to prefix or starting with prefix
// followed by sep, in sorted order.
func (g *Graph) WithPrefix(prefix, sep string) []string {
	prefix = NormalizeID(prefix)
	if prefix == "" {
		return nil
	}
	var out []string
	if _, ok := g.ids[prefix]; ok {
		out = append(out, prefix)
	}
	full := prefix + sep
	start := sort.SearchStrings(g.sorted, full)
	for _, id := range g.sorted[start:] {
		if !strings.HasPrefix(id, full) {
			break
		}
		out = append(out, id)
	}
	return out
}
