package main

import (
	"github.com/spf13/cobra"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/mcp"
)

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analyzer to MCP clients over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcp.NewServer(c.v.GetString("api-url")).Serve()
		},
	}
}
