package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/drill"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/engine/enginetest"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/reports"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(enginetest.Runner(t), "")
	s.SetLogger(enginetest.Logger())
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	return e
}

func TestSecureHeaders(t *testing.T) {
	// Create a handler that just returns 200 OK
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrap it with our middleware
	secureHandler := withSecureHeaders(handler)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	secureHandler.ServeHTTP(w, req)

	expectedHeaders := map[string]string{
		"Content-Security-Policy":   "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:;",
		"Strict-Transport-Security": "max-age=63072000; includeSubDomains",
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Referrer-Policy":           "no-referrer",
		"X-XSS-Protection":          "1; mode=block",
	}

	for key, expected := range expectedHeaders {
		got := w.Header().Get(key)
		if got != expected {
			t.Errorf("Header %s: expected %q, got %q", key, expected, got)
		}
	}
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info InfoResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, "Network Impact Analysis API", info.Message)
	assert.Contains(t, info.Endpoints, "/analyze")

	w = do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","we_analyzer_ready":true,"others_analyzer_ready":true}`, w.Body.String())

	s := NewServer(nil, "")
	s.SetLogger(enginetest.Logger())
	w = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, s, http.MethodPost, "/analyze", `{"identifier":"CAI-NASR-DIST-01"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAnalyze_Node(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/analyze", `{"identifier":"CAI-NASR-DIST-01","identifier_type":"node"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	var resp AnalyzeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Analysis completed successfully for CAI-NASR-DIST-01", resp.Message)
	assert.Equal(t, "Node", resp.AnalysisType)
	assert.Equal(t, 6, resp.TotalRecords)
	assert.Equal(t, 5, resp.UniqueMSANs)
	assert.Equal(t, map[string]int{"Partially Impacted": 1, "Isolated": 1, "Unaffected": 2}, resp.ImpactSummary.WE.ImpactBreakdown)
	assert.Equal(t, map[string]int{"Isolated": 1, "Unaffected": 1}, resp.ImpactSummary.Others.ImpactBreakdown)
	assert.Len(t, resp.ResultsPreview.WE, 4)
	assert.Equal(t, "Isolated", resp.ResultsPreview.Others[0]["Impact"])
	assert.Equal(t, "CAI-NASR-DIST-01", resp.ResultsPreview.Others[0]["BITSTREAM_HOSTNAME"])
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "ALX-GHOST-DIST-09", resp.Warnings[0].Hostname)
}

func TestAnalyze_Exchange(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/analyze", `{"identifier":"CAI-NASR"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp AnalyzeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Exchange", resp.AnalysisType)
	assert.Equal(t, 2, resp.ImpactSummary.WE.ImpactBreakdown["Isolated"])
	assert.Equal(t, 1, resp.ImpactSummary.Others.ImpactBreakdown["Isolated"])

	w = do(t, s, http.MethodPost, "/analyze", `{"identifier":"GIZ.NOWHERE","identifier_type":"exchange"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp = AnalyzeResponse{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 0, resp.TotalRecords)
	assert.Empty(t, resp.ImpactSummary.WE.ImpactBreakdown)
	assert.NotNil(t, resp.ResultsPreview.WE)
	assert.Empty(t, resp.Warnings)
}

func TestAnalyze_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
		err  string
	}{
		{"unknown node", `{"identifier":"CAI-NASR-DIST-77","identifier_type":"node"}`, http.StatusNotFound, "identifier_not_found"},
		{"missing identifier", `{}`, http.StatusBadRequest, "validation_failed"},
		{"blank identifier", `{"identifier":"   "}`, http.StatusBadRequest, "validation_failed"},
		{"bad type", `{"identifier":"X","identifier_type":"site"}`, http.StatusBadRequest, "validation_failed"},
		{"bad json", `{"identifier":`, http.StatusBadRequest, "invalid_json_body"},
		{"bad filter", `{"identifier":"CAI-NASR-DIST-01","filter":"row.Impact =="}`, http.StatusBadRequest, "invalid_filter"},
		{"non bool filter", `{"identifier":"CAI-NASR-DIST-01","filter":"row.Impact"}`, http.StatusBadRequest, "invalid_filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/analyze", tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.err, decodeError(t, w).Error)
		})
	}

	w := do(t, s, http.MethodGet, "/analyze", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAnalyze_Filter(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/analyze", `{"identifier":"CAI-NASR-DIST-01","filter":"row.Impact == \"Isolated\""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp AnalyzeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.TotalRecords)
	assert.Equal(t, map[string]int{"Isolated": 1}, resp.ImpactSummary.WE.ImpactBreakdown)
	for _, row := range resp.ResultsPreview.WE {
		assert.Equal(t, "Isolated", row["Impact"])
	}
}

func TestAnalyzeCSV(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/analyze/csv", `{"identifier":"CAI-NASR-DIST-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment; filename=network_impact_CAI-NASR-DIST-01_"))
	assert.Equal(t, "Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))

	body := w.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	entries := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		entries[f.Name] = string(b)
	}
	require.Contains(t, entries, "we_impact_CAI-NASR-DIST-01.csv")
	require.Contains(t, entries, "others_impact_CAI-NASR-DIST-01.csv")
	assert.True(t, strings.HasPrefix(entries["we_impact_CAI-NASR-DIST-01.csv"], "MSANCODE,distribution_hostname,BNG_HOSTNAME,STATUS,cir_type,EXCHANGE,Impact\n"))
	assert.Contains(t, entries["others_impact_CAI-NASR-DIST-01.csv"], "CAI-NASR-MSAN-02,CAI-NASR-DIST-01,ISP-A,Isolated")
}

func TestAnalyzeCSV_SingleClass(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/analyze/csv?class=others", `{"identifier":"ALX.SMOUHA"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=others_impact_ALX.SMOUHA.csv", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "MSANCODE,BITSTREAM_HOSTNAME,ISP,Impact\n", w.Body.String())

	w = do(t, s, http.MethodPost, "/analyze/csv?class=isp", `{"identifier":"ALX.SMOUHA"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeCSV_SummaryFormat(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodPost, "/analyze/csv?format=json", `{"identifier":"CAI-NASR-DIST-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	disposition := w.Header().Get("Content-Disposition")
	assert.True(t, strings.HasPrefix(disposition, "attachment; filename=network_impact_CAI-NASR-DIST-01_"))
	assert.True(t, strings.HasSuffix(disposition, ".json"))

	var combined reports.Combined
	require.NoError(t, json.NewDecoder(w.Body).Decode(&combined))
	assert.Equal(t, combined.WE.TotalRecords+combined.Others.TotalRecords, combined.TotalRecords)
	assert.Positive(t, combined.Others.ImpactBreakdown["Isolated"])
}

func TestAnalyzeCSV_RejectsBadFormat(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/analyze/csv?format=xml", "/analyze/csv?format=csv"} {
		w := do(t, s, http.MethodPost, path, `{"identifier":"CAI-NASR-DIST-01"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, w.Body.String(), "invalid_format", path)
	}

	w := do(t, s, http.MethodPost, "/analyze/csv?format=csv&class=we", `{"identifier":"CAI-NASR-DIST-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestTopology(t *testing.T) {
	w := do(t, newTestServer(t), http.MethodGet, "/topology", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp TopologyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.WE)
	assert.Equal(t, 9, resp.WE.Nodes)
	assert.Equal(t, 7, resp.WE.Edges)
	assert.Equal(t, 4, resp.WE.Rows["OSPF"])
	assert.Equal(t, 4, resp.WE.Reports)
	require.NotNil(t, resp.Others)
	assert.Equal(t, 2, resp.Others.Reports)

	assert.Equal(t, map[string]int{"OSPF": 4, "WAN": 3}, resp.WE.EdgesBySource)
	assert.Equal(t, 3, resp.WE.Layers["ACCESS"])
	total := 0
	for _, n := range resp.WE.Layers {
		total += n
	}
	assert.Equal(t, resp.WE.Nodes, total)
	assert.Nil(t, resp.WE.Node)
}

func TestTopology_NodeLinks(t *testing.T) {
	s := newTestServer(t)
	w := do(t, s, http.MethodGet, "/topology?node=cai-nasr-dist-01", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TopologyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.WE.Node)
	assert.Equal(t, "CAI-NASR-DIST-01", resp.WE.Node.ID)
	require.Len(t, resp.WE.Node.Links, 3)
	sources := map[string]int{}
	for _, e := range resp.WE.Node.Links {
		sources[string(e.Source)]++
		assert.True(t, e.From == "CAI-NASR-DIST-01" || e.To == "CAI-NASR-DIST-01", "%+v", e)
	}
	assert.Equal(t, map[string]int{"OSPF": 2, "WAN": 1}, sources)
	require.NotNil(t, resp.Others.Node)
	assert.Len(t, resp.Others.Node.Links, 3)

	w = do(t, s, http.MethodGet, "/topology?node=NOPE-01", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "node_not_found")
}

func TestDrill(t *testing.T) {
	s := newTestServer(t)
	scenario := drill.Scenario{
		Name: "alx",
		Cases: []drill.Case{
			{Name: "alx-dist", Identifier: "ALX-SMOUHA-DIST-01", IdentifierType: "node"},
		},
		Invariants: []drill.Invariant{
			{Metric: drill.MetricIsolated, Condition: "==", Value: 2},
		},
	}
	body, err := json.Marshal(scenario)
	require.NoError(t, err)

	w := do(t, s, http.MethodPost, "/drill", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res drill.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.True(t, res.Success)

	w = do(t, s, http.MethodPost, "/drill", `{"name":"empty","cases":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.SetRateLimit(1, 1)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/", "").Code)
	w := do(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code, "health is never limited")
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/analyze", `{"identifier":"ALX-SMOUHA-DIST-01"}`).Code)

	w := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nia_analysis_total")
}

func TestRecovery(t *testing.T) {
	s := newTestServer(t)
	h := s.withRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTraceIDPropagation(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "trace-123", w.Header().Get("X-Trace-ID"))
}
