package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
)

// Outcome gathers the per-class results of one request.
type Outcome struct {
	Identifier   string
	AnalysisType string
	Results      map[dataset.Class]*Result
	Duration     time.Duration
}

// Result returns the result for a class, or nil when that class was not run.
func (o *Outcome) Result(c dataset.Class) *Result {
	return o.Results[c]
}

// Warnings returns the warnings of every class in class order.
func (o *Outcome) Warnings() []Warning {
	var out []Warning
	for _, c := range dataset.Classes {
		if r := o.Results[c]; r != nil {
			out = append(out, r.Warnings...)
		}
	}
	return out
}

// Runner runs one analyzer per dataset class concurrently.
type Runner struct {
	analyzers []*Analyzer
}

// NewRunner wraps the analyzers; nil entries are ignored.
func NewRunner(analyzers ...*Analyzer) *Runner {
	r := &Runner{}
	for _, a := range analyzers {
		if a != nil {
			r.analyzers = append(r.analyzers, a)
		}
	}
	return r
}

// Ready reports whether an analyzer exists for every class.
func (r *Runner) Ready() bool {
	if r == nil {
		return false
	}
	for _, c := range dataset.Classes {
		if r.Analyzer(c) == nil {
			return false
		}
	}
	return true
}

// Analyzer returns the analyzer for a class.
func (r *Runner) Analyzer(c dataset.Class) *Analyzer {
	if r == nil {
		return nil
	}
	for _, a := range r.analyzers {
		if a.class == c {
			return a
		}
	}
	return nil
}

// Analyze runs every analyzer for the identifier. The first error cancels
// the others and is returned.
func (r *Runner) Analyze(ctx context.Context, identifier string, idType IdentifierType) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{
		Identifier: identifier,
		Results:    make(map[dataset.Class]*Result, len(r.analyzers)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range r.analyzers {
		g.Go(func() error {
			res, err := a.RunCompleteAnalysis(gctx, identifier, idType)
			if err != nil {
				return err
			}
			mu.Lock()
			out.Results[a.class] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, c := range dataset.Classes {
		if res := out.Results[c]; res != nil {
			out.AnalysisType = res.AnalysisType
			break
		}
	}
	out.Duration = time.Since(start)
	return out, nil
}
