// Package drill replays a list of planned failures against a loaded
// snapshot and checks invariants over the resulting impact counts.
package drill

import (
	"time"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
)

// Metric names accepted by invariants.
const (
	MetricIsolated          = "isolated_records"
	MetricPartiallyImpacted = "partially_impacted_records"
	MetricUnaffected        = "unaffected_records"
	MetricTotal             = "total_records"
	MetricUniqueMSANs       = "unique_msans"
	MetricWarnings          = "warnings"
)

// ScopeGlobal sums a metric over every case.
const ScopeGlobal = "global"

type Scenario struct {
	Name        string      `json:"name" yaml:"name" validate:"required"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Workers     int         `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0,lte=64"` // default 4
	Cases       []Case      `json:"cases" yaml:"cases" validate:"required,min=1,dive"`
	Invariants  []Invariant `json:"invariants,omitempty" yaml:"invariants,omitempty" validate:"dive"`
}

// Case is one planned failure.
type Case struct {
	Name           string `json:"name" yaml:"name" validate:"required"`
	Identifier     string `json:"identifier" yaml:"identifier" validate:"required"`
	IdentifierType string `json:"identifier_type,omitempty" yaml:"identifier_type,omitempty" validate:"omitempty,oneof=node exchange auto"`
	ExpectNotFound bool   `json:"expect_not_found,omitempty" yaml:"expect_not_found,omitempty"`
}

type Invariant struct {
	Metric    string  `json:"metric" yaml:"metric" validate:"required,oneof=isolated_records partially_impacted_records unaffected_records total_records unique_msans warnings"`
	Condition string  `json:"condition" yaml:"condition" validate:"required,oneof=> >= < <= =="`
	Value     float64 `json:"value" yaml:"value"`
	Scope     string  `json:"scope,omitempty" yaml:"scope,omitempty"` // "global" or a case name
	Class     string  `json:"class,omitempty" yaml:"class,omitempty" validate:"omitempty,oneof=we others"`
}

// Metrics are the counts of one class for one case.
type Metrics struct {
	IsolatedRecords          int `json:"isolated_records"`
	PartiallyImpactedRecords int `json:"partially_impacted_records"`
	UnaffectedRecords        int `json:"unaffected_records"`
	TotalRecords             int `json:"total_records"`
	UniqueMSANs              int `json:"unique_msans"`
	Warnings                 int `json:"warnings"`
}

func (m Metrics) add(o Metrics) Metrics {
	return Metrics{
		IsolatedRecords:          m.IsolatedRecords + o.IsolatedRecords,
		PartiallyImpactedRecords: m.PartiallyImpactedRecords + o.PartiallyImpactedRecords,
		UnaffectedRecords:        m.UnaffectedRecords + o.UnaffectedRecords,
		TotalRecords:             m.TotalRecords + o.TotalRecords,
		UniqueMSANs:              m.UniqueMSANs + o.UniqueMSANs,
		Warnings:                 m.Warnings + o.Warnings,
	}
}

func (m Metrics) value(metric string) float64 {
	switch metric {
	case MetricIsolated:
		return float64(m.IsolatedRecords)
	case MetricPartiallyImpacted:
		return float64(m.PartiallyImpactedRecords)
	case MetricUnaffected:
		return float64(m.UnaffectedRecords)
	case MetricTotal:
		return float64(m.TotalRecords)
	case MetricUniqueMSANs:
		return float64(m.UniqueMSANs)
	case MetricWarnings:
		return float64(m.Warnings)
	}
	return 0
}

type CaseResult struct {
	Name         string                    `json:"name"`
	Identifier   string                    `json:"identifier"`
	AnalysisType string                    `json:"analysis_type,omitempty"`
	Metrics      map[dataset.Class]Metrics `json:"metrics,omitempty"`
	Error        string                    `json:"error,omitempty"`
	Passed       bool                      `json:"passed"`
	Duration     time.Duration             `json:"duration"`
}

type InvariantResult struct {
	Metric   string `json:"metric"`
	Scope    string `json:"scope"`
	Class    string `json:"class,omitempty"`
	Expected string `json:"expected"` // e.g. "> 0"
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// Result captures the outcome of a drill for reporting.
type Result struct {
	ScenarioName string            `json:"scenario_name"`
	Duration     time.Duration     `json:"duration"`
	Cases        []CaseResult      `json:"cases"`
	Invariants   []InvariantResult `json:"invariants"`
	Success      bool              `json:"success"`
}
