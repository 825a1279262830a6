package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/drill"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/engine"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/graph"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/reports"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/table"
)

const maxBodyBytes = 1 << 20

func (s *Server) ready() bool {
	return s.runner != nil && s.runner.Ready()
}

// handleRoot describes the service
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	s.writeJSON(w, r, http.StatusOK, InfoResponse{
		Message: "Network Impact Analysis API",
		Version: Version,
		Endpoints: map[string]string{
			"/analyze":     "POST - Analyze network impact for both WE and Others",
			"/analyze/csv": "POST - Analyze and download results as a zip of CSVs",
			"/topology":    "GET - Topology graph statistics per dataset",
			"/drill":       "POST - Run a resilience drill scenario",
			"/health":      "GET - Health check",
			"/metrics":     "GET - Prometheus metrics",
		},
	})
}

// handleHealth reports analyzer readiness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	resp := HealthResponse{Status: "healthy"}
	if s.runner != nil {
		resp.WEAnalyzerReady = s.runner.Analyzer(dataset.ClassWE) != nil
		resp.OthersAnalyzerReady = s.runner.Analyzer(dataset.ClassOthers) != nil
	}
	if !s.ready() {
		resp.Status = "not_ready"
		s.writeJSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

// handleTopology returns the graph build statistics of each analyzer.
// ?node=<id> adds the edges incident to that node.
func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "service_not_ready", "analyzers not initialized")
		return
	}
	node := r.URL.Query().Get("node")
	found := false
	describe := func(c dataset.Class) *ClassTopology {
		a := s.runner.Analyzer(c)
		if a == nil {
			return nil
		}
		st := a.Stats()
		g := a.Graph()
		out := &ClassTopology{
			Nodes:         st.Nodes,
			Edges:         st.Edges,
			Rows:          sourceCounts(st.Rows),
			Skipped:       sourceCounts(st.Skipped),
			Reports:       a.Report().Len(),
			Layers:        make(map[string]int),
			EdgesBySource: make(map[string]int),
		}
		for _, n := range g.Nodes() {
			out.Layers[string(n.Layer)]++
		}
		for _, e := range g.Edges() {
			out.EdgesBySource[string(e.Source)]++
		}
		if node != "" {
			if n, ok := g.Node(node); ok {
				found = true
				out.Node = &NodeLinks{ID: n.ID, Layer: n.Layer, Links: g.EdgesOf(n.ID)}
			}
		}
		return out
	}
	resp := TopologyResponse{
		WE:     describe(dataset.ClassWE),
		Others: describe(dataset.ClassOthers),
	}
	if node != "" && !found {
		writeError(w, http.StatusNotFound, "node_not_found", node)
		return
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func sourceCounts(in map[graph.SourceTable]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}

// decodeAnalyzeRequest reads, validates and prepares a request. It writes
// the error response itself and returns ok=false on failure.
func (s *Server) decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (req AnalyzeRequest, idType engine.IdentifierType, filter *reports.Filter, ok bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	if !s.ready() {
		writeError(w, http.StatusServiceUnavailable, "service_not_ready", "analyzers not initialized")
		return
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json_body", err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	idType, err := engine.ParseIdentifierType(req.IdentifierType)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	filter, err = reports.CompileFilter(req.Filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}
	return req, idType, filter, true
}

// analyze runs the request and applies the filter to each class table.
func (s *Server) analyze(ctx context.Context, req AnalyzeRequest, idType engine.IdentifierType, filter *reports.Filter) (*engine.Outcome, reports.ResultSet, error) {
	s.logger.InfoContext(ctx, "analysis_requested",
		"trace_id", getTraceID(ctx),
		"identifier", req.Identifier,
		"identifier_type", idType,
		"filter", filter.String(),
	)
	out, err := s.runner.Analyze(ctx, req.Identifier, idType)
	if err != nil {
		return nil, reports.ResultSet{}, err
	}
	set := reports.ResultSet{
		Identifier: out.Identifier,
		Tables:     make(map[dataset.Class]*table.Table, len(out.Results)),
	}
	for c, res := range out.Results {
		t, err := filter.Apply(res.Table)
		if err != nil {
			return nil, set, &filterError{err: err}
		}
		set.Tables[c] = t
	}
	return out, set, nil
}

type filterError struct{ err error }

func (e *filterError) Error() string { return e.err.Error() }
func (e *filterError) Unwrap() error { return e.err }

func (s *Server) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *filterError
	switch {
	case errors.Is(err, engine.ErrIdentifierNotFound):
		writeError(w, http.StatusNotFound, "identifier_not_found", err.Error())
		return
	case errors.Is(err, engine.ErrEmptyIdentifier), errors.Is(err, engine.ErrInvalidIdentifierType):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, "filter_failed", err.Error())
		return
	}
	s.logger.ErrorContext(r.Context(), "analysis_failed", "trace_id", getTraceID(r.Context()), "error", err)
	writeError(w, http.StatusInternalServerError, "analysis_failed", err.Error())
}

// handleAnalyze runs both analyzers and returns summaries and previews
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, idType, filter, ok := s.decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	out, set, err := s.analyze(r.Context(), req, idType, filter)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}
	elapsed := time.Since(start)

	we, others := set.Table(dataset.ClassWE), set.Table(dataset.ClassOthers)
	combined := reports.Combine(reports.Summarize(we), reports.Summarize(others))

	s.writeJSON(w, r, http.StatusOK, AnalyzeResponse{
		Status:               "success",
		Message:              fmt.Sprintf("Analysis completed successfully for %s", out.Identifier),
		TotalRecords:         combined.TotalRecords,
		UniqueMSANs:          combined.TotalUniqueMSANs,
		AnalysisType:         out.AnalysisType,
		ExecutionTimeSeconds: math.Round(elapsed.Seconds()*1000) / 1000,
		ResultsPreview: ResultsPreview{
			WE:     preview(we),
			Others: preview(others),
		},
		ImpactSummary: combined,
		Warnings:      out.Warnings(),
	})
}

func preview(t *table.Table) []map[string]string {
	if t == nil {
		return []map[string]string{}
	}
	return reports.Preview(t, reports.PreviewRows)
}

// handleAnalyzeCSV returns the annotated tables as a zip archive, a single
// CSV when ?class=we|others is given, or the JSON summary with ?format=json
func (s *Server) handleAnalyzeCSV(w http.ResponseWriter, r *http.Request) {
	var class dataset.Class
	if q := r.URL.Query().Get("class"); q != "" {
		c, err := dataset.ParseClass(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_class", err.Error())
			return
		}
		class = c
	}
	format := reports.ReportFormat(r.URL.Query().Get("format"))
	switch {
	case format == "" && class != "":
		format = reports.ReportFormatCSV
	case format == "":
		format = reports.ReportFormatZip
	case format == reports.ReportFormatCSV && class == "":
		writeError(w, http.StatusBadRequest, "invalid_format", "format csv requires class")
		return
	case format != reports.ReportFormatCSV && format != reports.ReportFormatZip && format != reports.ReportFormatJSON:
		writeError(w, http.StatusBadRequest, "invalid_format", "format must be one of zip, csv, json")
		return
	}

	req, idType, filter, ok := s.decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}
	out, set, err := s.analyze(r.Context(), req, idType, filter)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	var filename, contentType string
	switch format {
	case reports.ReportFormatCSV:
		filename, contentType = reports.EntryName(class, out.Identifier), "text/csv"
	case reports.ReportFormatJSON:
		filename, contentType = reports.SummaryName(out.Identifier, time.Now()), "application/json"
	default:
		filename, contentType = reports.ArchiveName(out.Identifier, time.Now()), "application/zip"
	}
	gen, err := reports.NewReportGenerator(format, class)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}
	body, err := gen.Generate(r.Context(), set)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.ErrorContext(r.Context(), "failed_to_stream_report", "trace_id", getTraceID(r.Context()), "error", err)
	}
}

// handleDrill executes a drill scenario against the loaded snapshot.
func (s *Server) handleDrill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	if !s.ready() {
		writeError(w, http.StatusServiceUnavailable, "service_not_ready", "analyzers not initialized")
		return
	}

	var scenario drill.Scenario
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&scenario); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json_body", err.Error())
		return
	}
	if err := drill.Validate(scenario); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := drill.Run(r.Context(), s.runner, scenario, s.logger)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, result)
}
