package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
)

// IdentifierType selects how an identifier is resolved to graph nodes.
type IdentifierType string

const (
	IdentifierNode     IdentifierType = "node"
	IdentifierExchange IdentifierType = "exchange"
	IdentifierAuto     IdentifierType = "auto"
)

// Analysis types reported back to callers.
const (
	AnalysisNode     = "Node"
	AnalysisExchange = "Exchange"
)

// ParseIdentifierType accepts node, exchange or auto; empty means auto.
func ParseIdentifierType(s string) (IdentifierType, error) {
	switch t := IdentifierType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return IdentifierAuto, nil
	case IdentifierNode, IdentifierExchange, IdentifierAuto:
		return t, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidIdentifierType, s)
}

// ClassifyIdentifier applies the auto rule: exchange codes contain a dot
// or have fewer than four dash-separated parts.
func ClassifyIdentifier(identifier string) IdentifierType {
	if strings.Contains(identifier, ".") || len(strings.Split(identifier, "-")) < 4 {
		return IdentifierExchange
	}
	return IdentifierNode
}

// FailureSet is the sorted, de-duplicated set of node IDs taken out of
// service for one run.
type FailureSet struct {
	ids []string
}

// NewFailureSet normalises, sorts and de-duplicates ids.
func NewFailureSet(ids ...string) FailureSet {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = graph.NormalizeID(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return FailureSet{ids: out}
}

// Contains reports whether id is failed.
func (f FailureSet) Contains(id string) bool {
	id = graph.NormalizeID(id)
	i := sort.SearchStrings(f.ids, id)
	return i < len(f.ids) && f.ids[i] == id
}

// IDs returns a copy of the failed IDs.
func (f FailureSet) IDs() []string {
	out := make([]string, len(f.ids))
	copy(out, f.ids)
	return out
}

// Len returns the number of failed nodes.
func (f FailureSet) Len() int { return len(f.ids) }

// Union returns the combined set.
func (f FailureSet) Union(o FailureSet) FailureSet {
	return NewFailureSet(append(f.IDs(), o.ids...)...)
}

// Resolution is the outcome of resolving an identifier.
type Resolution struct {
	Identifier   string         `json:"identifier"`
	Type         IdentifierType `json:"type"`
	AnalysisType string         `json:"analysis_type"`
	Failures     FailureSet     `json:"-"`
}

// Resolver maps identifiers to failure sets against one graph.
type Resolver struct {
	graph     *graph.Graph
	exchanges map[string][]string
}

// NewResolver creates a resolver. exchanges maps exchange codes to access
// nodes provisioned under them and may be nil.
func NewResolver(g *graph.Graph, exchanges map[string][]string) *Resolver {
	return &Resolver{graph: g, exchanges: exchanges}
}

// Resolve turns an identifier into a FailureSet. A node that is not in the
// graph is an IdentifierNotFoundError; an exchange with no nodes resolves
// to an empty set.
func (r *Resolver) Resolve(identifier string, idType IdentifierType) (Resolution, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Resolution{}, ErrEmptyIdentifier
	}
	t, err := ParseIdentifierType(string(idType))
	if err != nil {
		return Resolution{}, err
	}
	if t == IdentifierAuto {
		t = ClassifyIdentifier(identifier)
	}

	res := Resolution{Identifier: identifier, Type: t}
	switch t {
	case IdentifierNode:
		res.AnalysisType = AnalysisNode
		n, ok := r.graph.Node(identifier)
		if !ok {
			return res, &IdentifierNotFoundError{Identifier: identifier}
		}
		res.Failures = NewFailureSet(n.ID)
	case IdentifierExchange:
		res.AnalysisType = AnalysisExchange
		res.Failures = NewFailureSet(r.exchangeNodes(identifier)...)
	}
	return res, nil
}

func (r *Resolver) exchangeNodes(code string) []string {
	code = graph.NormalizeID(code)
	ids := r.graph.WithPrefix(code, "-")
	for _, access := range r.exchanges[code] {
		if r.graph.Has(access) {
			ids = append(ids, access)
		}
	}
	return ids
}
