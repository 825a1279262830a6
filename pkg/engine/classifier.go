package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
)

// Impact is the label assigned to a circuit.
type Impact string

const (
	ImpactUnaffected        Impact = "Unaffected"
	ImpactPartiallyImpacted Impact = "Partially Impacted"
	ImpactIsolated          Impact = "Isolated"
)

// Impacts lists every label from least to most severe.
var Impacts = []Impact{ImpactUnaffected, ImpactPartiallyImpacted, ImpactIsolated}

// Severity orders labels: Unaffected < Partially Impacted < Isolated.
func (i Impact) Severity() int {
	switch i {
	case ImpactPartiallyImpacted:
		return 1
	case ImpactIsolated:
		return 2
	}
	return 0
}

// PathCounts holds the capped number of disjoint upstream paths of an
// access node in the healthy graph and with the failures applied.
type PathCounts struct {
	Baseline  int
	Remaining int
}

// Policy decides a label from path counts. The access-node rule and the
// unresolved-hostname rule run before a Policy is consulted.
type Policy interface {
	Label(PathCounts) Impact
}

// RedundancyPolicy isolates circuits with no remaining path and marks a
// previously redundant uplink reduced to one path as partially impacted.
// A circuit with no healthy path to a root is never blamed on a failure.
type RedundancyPolicy struct{}

func (RedundancyPolicy) Label(p PathCounts) Impact {
	switch {
	case p.Baseline == 0:
		return ImpactUnaffected
	case p.Remaining == 0:
		return ImpactIsolated
	case p.Remaining == 1 && p.Baseline >= 2:
		return ImpactPartiallyImpacted
	}
	return ImpactUnaffected
}

// DefaultMaxTraversalSteps bounds one path search.
const DefaultMaxTraversalSteps = 1_000_000

const (
	pathLimit     = 2
	ctxCheckEvery = 256
	detailNoRoot  = "no upstream root"
)

// Classifier labels circuits against one immutable graph.
type Classifier struct {
	graph    *graph.Graph
	policy   Policy
	maxSteps int
}

// NewClassifier creates a classifier. A nil policy means RedundancyPolicy.
func NewClassifier(g *graph.Graph, policy Policy, maxSteps int) *Classifier {
	if policy == nil {
		policy = RedundancyPolicy{}
	}
	return &Classifier{graph: g, policy: policy, maxSteps: maxSteps}
}

type verdict struct {
	impact   Impact
	limited  bool
	unrooted bool
}

// run holds the per-call state; nothing here outlives Classify.
type run struct {
	c        *Classifier
	failures FailureSet
	mask     graph.Mask
	walk     graph.Walk
	memo     map[string]verdict
}

// Classify labels every circuit. Only context cancellation is an error;
// resolution problems become warnings.
func (c *Classifier) Classify(ctx context.Context, circuits []dataset.Circuit, failures FailureSet) ([]Impact, []Warning, error) {
	r := &run{
		c:        c,
		failures: failures,
		mask:     c.graph.NewMask(failures.ids),
		walk:     graph.Walk{Limit: pathLimit, MaxSteps: c.maxSteps},
		memo:     make(map[string]verdict),
	}

	impacts := make([]Impact, len(circuits))
	var warnings []Warning
	for i, circuit := range circuits {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		impact, w := r.classify(circuit)
		impacts[i] = impact
		if w != nil {
			warnings = append(warnings, *w)
		}
	}
	return impacts, warnings, nil
}

func (r *run) classify(circuit dataset.Circuit) (Impact, *Warning) {
	if circuit.Access != "" && r.failures.Contains(circuit.Access) {
		return ImpactIsolated, nil
	}
	for _, host := range circuit.Hostnames() {
		if !r.c.graph.Has(host) {
			w := &Warning{
				Kind:     WarningTopologyResolution,
				Row:      circuit.Row,
				MSANCODE: circuit.MSANCode,
				Hostname: host,
			}
			if host == "" {
				w.Detail = "empty MSANCODE"
			}
			return ImpactUnaffected, w
		}
	}

	v, ok := r.memo[circuit.Access]
	if !ok {
		v = r.evaluate(circuit.Access)
		r.memo[circuit.Access] = v
	}
	if v.unrooted {
		return v.impact, &Warning{
			Kind:     WarningTopologyResolution,
			Row:      circuit.Row,
			MSANCODE: circuit.MSANCode,
			Hostname: circuit.Access,
			Detail:   detailNoRoot,
		}
	}
	if v.limited {
		return v.impact, &Warning{
			Kind:     WarningTraversalLimit,
			Row:      circuit.Row,
			MSANCODE: circuit.MSANCode,
			Hostname: circuit.Access,
			Detail:   fmt.Sprintf("more than %d steps", r.walk.MaxSteps),
		}
	}
	return v.impact, nil
}

func (r *run) evaluate(access string) verdict {
	remaining, err := r.c.graph.UpstreamPaths(access, r.mask, r.walk)
	if errors.Is(err, graph.ErrWalkLimit) {
		return verdict{impact: ImpactUnaffected, limited: true}
	}

	counts := PathCounts{Remaining: remaining, Baseline: remaining}
	if r.mask.Len() > 0 {
		counts.Baseline, err = r.c.graph.UpstreamPaths(access, graph.Mask{}, r.walk)
		if errors.Is(err, graph.ErrWalkLimit) {
			return verdict{impact: ImpactUnaffected, limited: true}
		}
	}
	if counts.Baseline == 0 {
		return verdict{impact: ImpactUnaffected, unrooted: true}
	}
	return verdict{impact: r.c.policy.Label(counts)}
}
