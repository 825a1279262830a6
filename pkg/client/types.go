package client

import (
	"errors"
	"fmt"
	"time"
)

// Request asks the daemon to analyse the failure of a node or exchange.
type Request struct {
	// Identifier is the required node hostname or exchange code.
	Identifier string `json:"identifier"`
	// IdentifierType is "node", "exchange" or "auto" (default: "auto").
	IdentifierType string `json:"identifier_type,omitempty"`
	// Filter is an optional CEL expression over `row`, e.g. row.Impact == "Isolated".
	Filter string `json:"filter,omitempty"`
}

// Summary describes the annotated rows of one dataset.
type Summary struct {
	TotalRecords         int            `json:"total_records"`
	UniqueMSANs          int            `json:"unique_msans"`
	ImpactBreakdown      map[string]int `json:"impact_breakdown"`
	StatusBreakdown      map[string]int `json:"status_breakdown,omitempty"`
	CircuitTypeBreakdown map[string]int `json:"circuit_type_breakdown,omitempty"`
}

// ImpactSummary combines both datasets.
type ImpactSummary struct {
	WE               Summary `json:"we"`
	Others           Summary `json:"others"`
	TotalRecords     int     `json:"total_records"`
	TotalUniqueMSANs int     `json:"total_unique_msans"`
}

// Warning is a non-fatal finding attached to a result row.
type Warning struct {
	Kind     string `json:"kind"`
	Row      int    `json:"row"`
	MSANCODE string `json:"msancode"`
	Hostname string `json:"hostname,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Response is the result of Analyze.
type Response struct {
	Status               string  `json:"status"`
	Message              string  `json:"message"`
	TotalRecords         int     `json:"total_records"`
	UniqueMSANs          int     `json:"unique_msans"`
	AnalysisType         string  `json:"analysis_type"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	ResultsPreview       struct {
		WE     []map[string]string `json:"we"`
		Others []map[string]string `json:"others"`
	} `json:"results_preview"`
	ImpactSummary ImpactSummary `json:"impact_summary"`
	Warnings      []Warning     `json:"warnings,omitempty"`
}

// Download is a file returned by AnalyzeCSV or AnalyzeSummary.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Health represents the health check response.
type Health struct {
	Status              string `json:"status"`
	WEAnalyzerReady     bool   `json:"we_analyzer_ready"`
	OthersAnalyzerReady bool   `json:"others_analyzer_ready"`
}

var (
	// ErrNotFound matches an APIError for an unknown identifier.
	ErrNotFound = errors.New("identifier not found")
	// ErrUnavailable matches an APIError for a daemon that is not ready or is rate limiting.
	ErrUnavailable = errors.New("service unavailable")
)

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	// RetryAfter is the wait the daemon asked for, zero when it named none.
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Detail)
	}
	return fmt.Sprintf("api error %d (%s)", e.StatusCode, e.Code)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == 404
	case ErrUnavailable:
		return e.StatusCode == 503 || e.StatusCode == 429
	}
	return false
}

// ClassTopology describes the graph one dataset analyzer was built with.
type ClassTopology struct {
	Nodes         int            `json:"nodes"`
	Edges         int            `json:"edges"`
	Rows          map[string]int `json:"rows"`
	Skipped       map[string]int `json:"skipped"`
	ReportRows    int            `json:"report_rows"`
	Layers        map[string]int `json:"layers"`
	EdgesBySource map[string]int `json:"edges_by_source"`
	Node          *NodeLinks     `json:"node,omitempty"`
}

// Edge is an undirected topology link.
type Edge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Source     string `json:"source"`
	Redundancy int    `json:"redundancy"`
}

// NodeLinks is a node with its incident edges, as returned by NodeLinks.
type NodeLinks struct {
	ID    string `json:"id"`
	Layer string `json:"layer"`
	Links []Edge `json:"links"`
}

// Topology is the response of GET /topology.
type Topology struct {
	WE     *ClassTopology `json:"we,omitempty"`
	Others *ClassTopology `json:"others,omitempty"`
}
