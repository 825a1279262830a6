package drill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/engine"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/reports"
)

// DefaultWorkers bounds the number of cases analysed at once.
const DefaultWorkers = 4

var validate = validator.New(validator.WithRequiredStructEnabled())

// Analyzer is satisfied by *engine.Runner.
type Analyzer interface {
	Analyze(ctx context.Context, identifier string, idType engine.IdentifierType) (*engine.Outcome, error)
}

// LoadScenario decodes a YAML scenario and validates it.
func LoadScenario(r io.Reader) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return s, fmt.Errorf("failed to decode scenario: %w", err)
	}
	return s, Validate(s)
}

// Validate checks field constraints and that every scoped invariant names
// an existing case.
func Validate(s Scenario) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	names := make(map[string]bool, len(s.Cases))
	for _, c := range s.Cases {
		if names[c.Name] {
			return fmt.Errorf("invalid scenario: duplicate case %q", c.Name)
		}
		names[c.Name] = true
	}
	for _, inv := range s.Invariants {
		if inv.Scope != "" && inv.Scope != ScopeGlobal && !names[inv.Scope] {
			return fmt.Errorf("invalid scenario: invariant scope %q names no case", inv.Scope)
		}
	}
	return nil
}

// Run analyses every case with at most s.Workers in flight and evaluates
// the invariants. Case failures are recorded in the result; the returned
// error is reserved for invalid scenarios and cancellation.
func Run(ctx context.Context, a Analyzer, s Scenario, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := Validate(s); err != nil {
		return Result{}, err
	}
	workers := s.Workers
	if workers == 0 {
		workers = DefaultWorkers
	}

	start := time.Now()
	logger.InfoContext(ctx, "drill_starting", "scenario", s.Name, "cases", len(s.Cases), "workers", workers)

	res := Result{
		ScenarioName: s.Name,
		Cases:        make([]CaseResult, len(s.Cases)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range s.Cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.Cases[i] = runCase(gctx, a, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.Invariants = evaluateInvariants(res.Cases, s.Invariants)
	res.Duration = time.Since(start)

	res.Success = true
	for _, c := range res.Cases {
		if !c.Passed {
			res.Success = false
		}
	}
	for _, inv := range res.Invariants {
		if !inv.Passed {
			res.Success = false
		}
	}

	logger.InfoContext(ctx, "drill_completed", "scenario", s.Name, "success", res.Success, "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func runCase(ctx context.Context, a Analyzer, c Case) CaseResult {
	start := time.Now()
	cr := CaseResult{Name: c.Name, Identifier: c.Identifier}

	out, err := a.Analyze(ctx, c.Identifier, engine.IdentifierType(c.IdentifierType))
	cr.Duration = time.Since(start)
	if err != nil {
		cr.Error = err.Error()
		cr.Passed = c.ExpectNotFound && errors.Is(err, engine.ErrIdentifierNotFound)
		return cr
	}
	if c.ExpectNotFound {
		cr.Error = "expected identifier to be unknown"
		return cr
	}

	cr.AnalysisType = out.AnalysisType
	cr.Metrics = make(map[dataset.Class]Metrics, len(out.Results))
	for class, r := range out.Results {
		cr.Metrics[class] = metricsOf(r)
	}
	cr.Passed = true
	return cr
}

func metricsOf(r *engine.Result) Metrics {
	counts := r.Counts()
	return Metrics{
		IsolatedRecords:          counts[engine.ImpactIsolated],
		PartiallyImpactedRecords: counts[engine.ImpactPartiallyImpacted],
		UnaffectedRecords:        counts[engine.ImpactUnaffected],
		TotalRecords:             r.Table.Len(),
		UniqueMSANs:              reports.Summarize(r.Table).UniqueMSANs,
		Warnings:                 len(r.Warnings),
	}
}

func evaluateInvariants(cases []CaseResult, invariants []Invariant) []InvariantResult {
	out := make([]InvariantResult, 0, len(invariants))
	for _, inv := range invariants {
		scope := inv.Scope
		if scope == "" {
			scope = ScopeGlobal
		}

		var m Metrics
		for _, c := range cases {
			if scope != ScopeGlobal && c.Name != scope {
				continue
			}
			for class, cm := range c.Metrics {
				if inv.Class != "" && string(class) != inv.Class {
					continue
				}
				m = m.add(cm)
			}
		}

		actual := m.value(inv.Metric)
		var passed bool
		switch inv.Condition {
		case ">":
			passed = actual > inv.Value
		case ">=":
			passed = actual >= inv.Value
		case "<":
			passed = actual < inv.Value
		case "<=":
			passed = actual <= inv.Value
		case "==":
			passed = math.Abs(actual-inv.Value) < 0.0001
		}

		out = append(out, InvariantResult{
			Metric:   inv.Metric,
			Scope:    scope,
			Class:    inv.Class,
			Expected: fmt.Sprintf("%s %g", inv.Condition, inv.Value),
			Actual:   fmt.Sprintf("%g", actual),
			Passed:   passed,
		})
	}
	return out
}
