package api

import (
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/engine"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/reports"
)

// AnalyzeRequest matches the POST /analyze and /analyze/csv body schema
type AnalyzeRequest struct {
	Identifier     string `json:"identifier" validate:"required,max=256"`
	IdentifierType string `json:"identifier_type,omitempty" validate:"omitempty,oneof=node exchange auto"` // defaults to auto
	Filter         string `json:"filter,omitempty" validate:"max=2048"`                                    // CEL over `row`
}

// ResultsPreview holds the first rows of each class
type ResultsPreview struct {
	WE     []map[string]string `json:"we"`
	Others []map[string]string `json:"others"`
}

// AnalyzeResponse matches the response for POST /analyze
type AnalyzeResponse struct {
	Status               string           `json:"status"`
	Message              string           `json:"message"`
	TotalRecords         int              `json:"total_records"`
	UniqueMSANs          int              `json:"unique_msans"`
	AnalysisType         string           `json:"analysis_type"`
	ExecutionTimeSeconds float64          `json:"execution_time_seconds"`
	ResultsPreview       ResultsPreview   `json:"results_preview"`
	ImpactSummary        reports.Combined `json:"impact_summary"`
	Warnings             []engine.Warning `json:"warnings,omitempty"`
}

// HealthResponse matches the response for GET /health
type HealthResponse struct {
	Status              string `json:"status"`
	WEAnalyzerReady     bool   `json:"we_analyzer_ready"`
	OthersAnalyzerReady bool   `json:"others_analyzer_ready"`
}

// InfoResponse matches the response for GET /
type InfoResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// TopologyResponse matches the response for GET /topology
type TopologyResponse struct {
	WE     *ClassTopology `json:"we,omitempty"`
	Others *ClassTopology `json:"others,omitempty"`
}

// ClassTopology describes the graph one analyzer was built with
type ClassTopology struct {
	Nodes         int            `json:"nodes"`
	Edges         int            `json:"edges"`
	Rows          map[string]int `json:"rows"`
	Skipped       map[string]int `json:"skipped"`
	Reports       int            `json:"report_rows"`
	Layers        map[string]int `json:"layers"`
	EdgesBySource map[string]int `json:"edges_by_source"`
	// Node is set when /topology?node= names a node of this graph
	Node *NodeLinks `json:"node,omitempty"`
}

// NodeLinks is one node with the edges incident to it
type NodeLinks struct {
	ID    string       `json:"id"`
	Layer graph.Layer  `json:"layer"`
	Links []graph.Edge `json:"links"`
}
