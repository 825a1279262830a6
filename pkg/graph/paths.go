package graph

import (
	"errors"
	"fmt"
)

// ErrWalkLimit is returned when a traversal exceeds its step budget.
var ErrWalkLimit = errors.New("graph: traversal step limit exceeded")

// Mask marks nodes that traversal must not enter. The zero Mask blocks
// nothing. A Mask is owned by one caller and never shared with the graph.
type Mask struct {
	blocked []bool
	count   int
}

// NewMask builds a mask over the given IDs. Unknown IDs are ignored.
func (g *Graph) NewMask(ids []string) Mask {
	m := Mask{blocked: make([]bool, len(g.nodes))}
	for _, id := range ids {
		if i, ok := g.ids[NormalizeID(id)]; ok && !m.blocked[i] {
			m.blocked[i] = true
			m.count++
		}
	}
	return m
}

// Len returns the number of blocked nodes.
func (m Mask) Len() int { return m.count }

func (m Mask) has(i int) bool {
	return i < len(m.blocked) && m.blocked[i]
}

// Walk bounds a path search.
type Walk struct {
	// Limit stops the search once this many disjoint paths are found.
	Limit int
	// MaxSteps caps the number of edge inspections; zero means unbounded.
	MaxSteps int
}

// UpstreamPaths counts link-disjoint paths from a node to any unmasked
// root-layer node, with each edge carrying Redundancy parallel links. The
// count is capped at w.Limit. A masked or unknown start yields zero.
func (g *Graph) UpstreamPaths(from string, mask Mask, w Walk) (int, error) {
	src, ok := g.ids[NormalizeID(from)]
	if !ok || mask.has(src) || w.Limit <= 0 {
		return 0, nil
	}
	if g.nodes[src].Layer.IsRoot() {
		return w.Limit, nil
	}

	flow := make([]int, len(g.edges))
	parent := make([]int, len(g.nodes))
	steps := 0
	total := 0

	for total < w.Limit {
		for i := range parent {
			parent[i] = -1
		}
		parent[src] = -2
		sink := -1

		queue := []int{src}
	search:
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			for _, ei := range g.adj[u] {
				steps++
				if w.MaxSteps > 0 && steps > w.MaxSteps {
					return total, fmt.Errorf("%w: from %s after %d steps", ErrWalkLimit, g.nodes[src].ID, w.MaxSteps)
				}
				v, residual := g.residual(ei, u, flow)
				if residual <= 0 || parent[v] != -1 || mask.has(v) {
					continue
				}
				parent[v] = ei
				if g.nodes[v].Layer.IsRoot() {
					sink = v
					break search
				}
				queue = append(queue, v)
			}
		}
		if sink < 0 {
			break
		}

		bottleneck := w.Limit - total
		for v := sink; v != src; {
			ei := parent[v]
			u := g.other(ei, v)
			if _, r := g.residual(ei, u, flow); r < bottleneck {
				bottleneck = r
			}
			v = u
		}
		for v := sink; v != src; {
			ei := parent[v]
			u := g.other(ei, v)
			if g.edges[ei].from == u {
				flow[ei] += bottleneck
			} else {
				flow[ei] -= bottleneck
			}
			v = u
		}
		total += bottleneck
	}
	return total, nil
}

// residual returns the far endpoint of edge ei seen from u and the spare
// capacity in that direction. flow[ei] is positive along from -> to.
func (g *Graph) residual(ei, u int, flow []int) (int, int) {
	e := g.edges[ei]
	if e.from == u {
		return e.to, e.Redundancy - flow[ei]
	}
	return e.from, e.Redundancy + flow[ei]
}

func (g *Graph) other(ei, v int) int {
	e := g.edges[ei]
	if e.from == v {
		return e.to
	}
	return e.from
}
