// Package engine resolves failed network elements and classifies the
// impact on subscriber circuits.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/reports"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

type options struct {
	policy   Policy
	maxSteps int
	logger   *slog.Logger
	hints    graph.LayerHints
}

// Option configures an Analyzer.
type Option func(*options)

// WithPolicy replaces the default RedundancyPolicy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithMaxTraversalSteps bounds each path search; zero or less keeps the default.
func WithMaxTraversalSteps(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithLayerHints adds layer hints from other reports, typically the BNG
// hostnames of the WE report for the Others graph. The class's own access
// nodes still win.
func WithLayerHints(h graph.LayerHints) Option {
	return func(o *options) { o.hints = h }
}

// WithLogger sets the logger for run summaries.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Analyzer runs impact analysis for one dataset class. It is built once
// from a frozen snapshot and is safe for concurrent use.
type Analyzer struct {
	class      dataset.Class
	schema     *dataset.Schema
	circuits   []dataset.Circuit
	graph      *graph.Graph
	stats      graph.BuildStats
	resolver   *Resolver
	classifier *Classifier
	logger     *slog.Logger
}

// New validates the report, builds the topology graph and returns an
// Analyzer ready to serve runs.
func New(report *table.Table, class dataset.Class, topo graph.Sources, opts ...Option) (*Analyzer, error) {
	o := options{
		policy:   RedundancyPolicy{},
		maxSteps: DefaultMaxTraversalSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	schema, err := dataset.Bind(class, report)
	if err != nil {
		return nil, fmt.Errorf("bind %s report: %w", class, err)
	}
	if report.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", class, ErrEmptyReport)
	}

	circuits := schema.Circuits()
	hints := dataset.MergeLayerHints(dataset.LayerHints(circuits), o.hints)
	g, stats, err := graph.Build(topo, graph.WithLayerHints(hints))
	if err != nil {
		return nil, fmt.Errorf("build topology for %s: %w", class, err)
	}

	o.logger.Info("analyzer_ready",
		"class", class,
		"rows", report.Len(),
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"skipped_rows", stats.Skipped,
	)

	return &Analyzer{
		class:      class,
		schema:     schema,
		circuits:   circuits,
		graph:      g,
		stats:      stats,
		resolver:   NewResolver(g, dataset.ExchangeIndex(circuits)),
		classifier: NewClassifier(g, o.policy, o.maxSteps),
		logger:     o.logger,
	}, nil
}

// Class returns the dataset class this analyzer serves.
func (a *Analyzer) Class() dataset.Class { return a.class }

// Graph returns the immutable topology graph.
func (a *Analyzer) Graph() *graph.Graph { return a.graph }

// Stats returns the graph build statistics.
func (a *Analyzer) Stats() graph.BuildStats { return a.stats }

// Report returns the bound subscriber report.
func (a *Analyzer) Report() *table.Table { return a.schema.Table() }

// Resolve maps an identifier to its failure set without classifying.
func (a *Analyzer) Resolve(identifier string, idType IdentifierType) (Resolution, error) {
	return a.resolver.Resolve(identifier, idType)
}

// Result is the outcome of one run for one dataset class.
type Result struct {
	Class        dataset.Class `json:"class"`
	Identifier   string        `json:"identifier"`
	AnalysisType string        `json:"analysis_type"`
	FailureSet   FailureSet    `json:"-"`
	Table        *table.Table  `json:"-"`
	Impacts      []Impact      `json:"-"`
	Warnings     []Warning     `json:"warnings"`
	Duration     time.Duration `json:"duration"`
}

// Counts tallies labels in the result rows.
func (r *Result) Counts() map[Impact]int {
	out := make(map[Impact]int)
	for _, i := range r.Impacts {
		out[i]++
	}
	return out
}

// RunCompleteAnalysis resolves the identifier and labels every circuit.
// With an empty failure set the result table keeps the header and has no
// rows.
func (a *Analyzer) RunCompleteAnalysis(ctx context.Context, identifier string, idType IdentifierType) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "engine.RunCompleteAnalysis")
	defer span.End()
	span.SetAttributes(
		attribute.String("nia.class", string(a.class)),
		attribute.String("nia.identifier", identifier),
		attribute.String("nia.identifier_type", string(idType)),
	)

	res, err := a.run(ctx, identifier, idType)
	elapsed := time.Since(start)
	AnalysisDuration.WithLabelValues(string(a.class)).Observe(elapsed.Seconds())

	if err != nil {
		analysisType := ""
		if res != nil {
			analysisType = res.AnalysisType
		}
		AnalysisTotal.WithLabelValues(string(a.class), analysisType, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.WarnContext(ctx, "analysis_failed", "class", a.class, "identifier", identifier, "error", err)
		return nil, err
	}

	res.Duration = elapsed
	AnalysisTotal.WithLabelValues(string(a.class), res.AnalysisType, "ok").Inc()
	for impact, n := range res.Counts() {
		CircuitsClassified.WithLabelValues(string(a.class), string(impact)).Add(float64(n))
	}
	if len(res.Warnings) > 0 {
		ResolutionWarnings.WithLabelValues(string(a.class)).Add(float64(len(res.Warnings)))
	}
	span.SetAttributes(
		attribute.Int("nia.failed_nodes", res.FailureSet.Len()),
		attribute.Int("nia.rows", res.Table.Len()),
		attribute.Int("nia.warnings", len(res.Warnings)),
	)

	a.logger.InfoContext(ctx, "analysis_completed",
		"class", a.class,
		"identifier", identifier,
		"analysis_type", res.AnalysisType,
		"failed_nodes", res.FailureSet.Len(),
		"rows", res.Table.Len(),
		"warnings", len(res.Warnings),
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, identifier string, idType IdentifierType) (*Result, error) {
	resolution, err := a.resolver.Resolve(identifier, idType)
	if err != nil {
		return &Result{AnalysisType: resolution.AnalysisType}, err
	}

	res := &Result{
		Class:        a.class,
		Identifier:   strings.TrimSpace(identifier),
		AnalysisType: resolution.AnalysisType,
		FailureSet:   resolution.Failures,
	}

	report := a.schema.Table()
	if resolution.Failures.Len() == 0 {
		res.Table, err = reports.Annotate(report.Empty(), nil)
		return res, err
	}

	impacts, warnings, err := a.classifier.Classify(ctx, a.circuits, resolution.Failures)
	if err != nil {
		return res, fmt.Errorf("classify %s: %w", a.class, err)
	}
	labels := make([]string, len(impacts))
	for i, impact := range impacts {
		labels[i] = string(impact)
	}
	res.Table, err = reports.Annotate(report, labels)
	if err != nil {
		return res, err
	}
	res.Impacts = impacts
	res.Warnings = warnings
	return res, nil
}
