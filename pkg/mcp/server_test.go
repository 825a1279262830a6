package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/api"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/engine/enginetest"
)

func newMCP(t *testing.T) *Server {
	t.Helper()
	daemon := api.NewServer(enginetest.Runner(t), "")
	daemon.SetLogger(enginetest.Logger())
	ts := httptest.NewServer(daemon.Handler())
	t.Cleanup(ts.Close)
	return NewServer(ts.URL)
}

func TestMCPServer_AnalyzeImpact(t *testing.T) {
	s := newMCP(t)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "analyze_impact",
			Arguments: map[string]interface{}{
				"identifier":      "CAI-NASR-DIST-01",
				"identifier_type": "node",
			},
		},
	}
	result, err := s.handleAnalyzeImpact(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Node analysis for CAI-NASR-DIST-01")
	assert.Contains(t, text.Text, "WE: 4 records, Isolated 1, Partially Impacted 1, Unaffected 2")
	assert.Contains(t, text.Text, "Warnings: 1")
}

func TestMCPServer_AnalyzeImpactErrors(t *testing.T) {
	s := newMCP(t)

	result, err := s.handleAnalyzeImpact(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "analyze_impact", Arguments: map[string]interface{}{}},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleAnalyzeImpact(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "analyze_impact",
			Arguments: map[string]interface{}{"identifier": "CAI-NASR-DIST-77", "identifier_type": "node"},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPServer_NodeLinks(t *testing.T) {
	s := newMCP(t)

	result, err := s.handleNodeLinks(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "node_links",
			Arguments: map[string]interface{}{"node": "CAI-NASR-DIST-01"},
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "WE: CAI-NASR-DIST-01 (")
	assert.Contains(t, text.Text, "3 links")
	assert.Contains(t, text.Text, "CAI-NASR-DIST-01 -- CAI-CORE-BNG-01 [WAN x1]")

	result, err = s.handleNodeLinks(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "node_links", Arguments: map[string]interface{}{"node": "NOPE-01"}},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPServer_ReadTopology(t *testing.T) {
	s := newMCP(t)

	result, err := s.handleReadTopology(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "nia://topology"},
	})
	require.NoError(t, err)
	require.Len(t, result, 1)

	content, ok := result[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", content.MIMEType)

	var topo map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(content.Text), &topo))
	assert.EqualValues(t, 9, topo["we"]["nodes"])
}

func TestMCPServer_ReadHealth(t *testing.T) {
	s := newMCP(t)
	result, err := s.handleReadHealth(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "nia://health"},
	})
	require.NoError(t, err)
	content := result[0].(mcp.TextResourceContents)
	assert.Contains(t, content.Text, `"status": "healthy"`)
}

func TestMCPServer_Prompt(t *testing.T) {
	s := newMCP(t)

	req := mcp.GetPromptRequest{}
	req.Params.Name = promptName
	res, err := s.handleGetPrompt(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text, ok := res.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	assert.True(t, strings.Contains(text.Text, "analyze_impact"))

	req.Params.Name = "ratelimit-aware"
	_, err = s.handleGetPrompt(context.Background(), req)
	assert.Error(t, err)
}
