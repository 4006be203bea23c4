package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query the
guideline index.

Tools:
  retrieve          Ranked chunks for a query, with topic, tier and hybrid options
  score_confidence  Confidence label and score for a query
  ask               Cited answer, gated on confidence

Resources:
  medrag://stats    Report of the latest index build
  medrag://queries  Recently answered questions

By default, the server communicates over stdio using JSON-RPC.
Use --port to serve streamable HTTP instead, for the MCP Inspector or
remote access.

Examples:
  # Stdio mode (default)
  medrag mcp serve

  # HTTP mode
  medrag mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "medrag": {
        "command": "/path/to/medrag",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Annotations: requires("retrieval"),
	RunE:        runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Retriever: retrieverService,
		Scorer:    confidenceScorer,
		Answer:    answerService,
		Index:     indexService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
