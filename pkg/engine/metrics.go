package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("nia.engine")

var (
	// AnalysisTotal counts analysis runs per class and outcome
	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nia_analysis_total",
			Help: "Total number of impact analyses run",
		},
		[]string{"class", "analysis_type", "outcome"},
	)

	// AnalysisDuration tracks how long one class takes to analyse
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nia_analysis_duration_seconds",
			Help:    "Duration of one impact analysis run",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"class"},
	)

	// CircuitsClassified counts labelled circuits
	CircuitsClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nia_circuits_classified_total",
			Help: "Total number of circuits labelled, by impact",
		},
		[]string{"class", "impact"},
	)

	// ResolutionWarnings counts circuits degraded to a warning
	ResolutionWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nia_resolution_warnings_total",
			Help: "Total number of warnings raised while classifying",
		},
		[]string{"class"},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(AnalysisTotal)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(CircuitsClassified)
	prometheus.MustRegister(ResolutionWarnings)
}
