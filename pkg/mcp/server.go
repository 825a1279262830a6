// Package mcp exposes the impact analyzer to agents over the Model Context
// Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/client"
)

const promptName = "network-impact-aware"

// Server adapts nia-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"network-impact-analyzer",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		"nia://health",
		"Analyzer Readiness",
		mcp.WithResourceDescription("Whether the WE and Others analyzers are loaded"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadHealth)

	s.mcpServer.AddResource(mcp.NewResource(
		"nia://topology",
		"Topology Graph Statistics",
		mcp.WithResourceDescription("Node, edge and row counts of the topology graph per dataset"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadTopology)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"analyze_impact",
		mcp.WithDescription("Estimate which subscriber circuits are Isolated, Partially Impacted or Unaffected if a network node or exchange fails."),
		mcp.WithString("identifier", mcp.Required(), mcp.Description("Node hostname (e.g. 'CAI-NASR-DIST-01') or exchange code (e.g. 'CAI.NASR')")),
		mcp.WithString("identifier_type", mcp.Description("One of 'node', 'exchange', 'auto' (default 'auto')"), mcp.Enum("node", "exchange", "auto")),
		mcp.WithString("filter", mcp.Description("Optional CEL expression over row, e.g. row.Impact == \"Isolated\"")),
	), s.handleAnalyzeImpact)

	s.mcpServer.AddTool(mcp.NewTool(
		"node_links",
		mcp.WithDescription("List the topology links of a node in each dataset graph, with the table each link came from."),
		mcp.WithString("node", mcp.Required(), mcp.Description("Node hostname, e.g. 'CAI-NASR-DIST-01'")),
	), s.handleNodeLinks)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		promptName,
		mcp.WithPromptDescription("Explains failure analysis concepts (layers, redundancy, impact labels)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReadHealth(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	h, err := s.apiClient.Health(ctx)
	if err != nil && h.Status == "" {
		return nil, fmt.Errorf("failed to fetch health: %w", err)
	}
	return jsonResource(request.Params.URI, h)
}

func (s *Server) handleReadTopology(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	t, err := s.apiClient.Topology(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch topology: %w", err)
	}
	return jsonResource(request.Params.URI, t)
}

func (s *Server) handleAnalyzeImpact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := client.Request{
		Identifier:     mcp.ParseString(request, "identifier", ""),
		IdentifierType: mcp.ParseString(request, "identifier_type", "auto"),
		Filter:         mcp.ParseString(request, "filter", ""),
	}
	if strings.TrimSpace(req.Identifier) == "" {
		return mcp.NewToolResultError("identifier is required"), nil
	}

	resp, err := s.apiClient.Analyze(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(formatResponse(req.Identifier, resp)), nil
}

func (s *Server) handleNodeLinks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node := strings.TrimSpace(mcp.ParseString(request, "node", ""))
	if node == "" {
		return mcp.NewToolResultError("node is required"), nil
	}
	t, err := s.apiClient.NodeLinks(ctx, node)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	var b strings.Builder
	for _, part := range []struct {
		name string
		topo *client.ClassTopology
	}{{"WE", t.WE}, {"Others", t.Others}} {
		if part.topo == nil || part.topo.Node == nil {
			continue
		}
		n := part.topo.Node
		fmt.Fprintf(&b, "%s: %s (%s), %d links\n", part.name, n.ID, n.Layer, len(n.Links))
		for _, e := range n.Links {
			fmt.Fprintf(&b, "  %s -- %s [%s x%d]\n", e.From, e.To, e.Source, e.Redundancy)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func formatResponse(identifier string, resp client.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s analysis for %s\n", resp.AnalysisType, identifier)
	fmt.Fprintf(&b, "Total records: %d (unique MSANs: %d)\n", resp.TotalRecords, resp.UniqueMSANs)
	for _, part := range []struct {
		name string
		sum  client.Summary
	}{
		{"WE", resp.ImpactSummary.WE},
		{"Others", resp.ImpactSummary.Others},
	} {
		fmt.Fprintf(&b, "%s: %d records, Isolated %d, Partially Impacted %d, Unaffected %d\n",
			part.name,
			part.sum.TotalRecords,
			part.sum.ImpactBreakdown["Isolated"],
			part.sum.ImpactBreakdown["Partially Impacted"],
			part.sum.ImpactBreakdown["Unaffected"],
		)
	}
	if n := len(resp.Warnings); n > 0 {
		fmt.Fprintf(&b, "Warnings: %d rows reference hostnames outside the topology or hit the traversal limit\n", n)
	}
	return b.String()
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != promptName {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are helping a network operations engineer assess the blast radius of planned or unplanned outages.

Concepts:
- Node: a device hostname such as 'CAI-NASR-DIST-01'. Layers run ACCESS (MSAN) -> DISTRIBUTION -> BNG -> WAN/AGGREGATION.
- Exchange: a site code such as 'CAI.NASR' or 'CAI-NASR'. Failing an exchange fails every node in it.
- Isolated: the circuit has no remaining upstream path, or its MSAN itself failed.
- Partially Impacted: the circuit lost redundancy but still has one upstream path.
- Unaffected: the circuit keeps its redundancy, or its path could not be resolved (see warnings).

Use the 'analyze_impact' tool before approving maintenance on a node or exchange.
Report Isolated counts first; treat warnings as data quality issues, not as safe circuits.
`

	return mcp.NewGetPromptResult(
		promptName,
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
