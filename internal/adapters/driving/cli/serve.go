package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/medrag/internal/adapters/driving/mcp"
	"github.com/custodia-labs/medrag/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the question answering API under /api/v1.

Endpoints:
  GET  /                      Service info
  GET  /api/v1/health         Index and model health
  POST /api/v1/token          Exchange server.users credentials for a JWT
  POST /api/v1/query          Answer a question (bearer token)
  POST /api/v1/query/stream   Answer as server-sent events (bearer token)
  POST /api/v1/retrieve       Retrieve chunks only (bearer token)
  POST /mcp                   MCP over streamable HTTP (bearer token)

server.jwt_secret must be set. Requests are rate limited per client IP
(server.rate_limit, server.rate_burst).`,
	Args:        cobra.NoArgs,
	Annotations: requires("retrieval"),
	RunE:        runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cfg := httpapi.ConfigFromSettings(&settings.Server)
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	ports := &httpapi.Ports{
		Answer:    answerService,
		Retriever: retrieverService,
		Scorer:    confidenceScorer,
	}
	mcpServer, err := mcp.NewServer(&mcp.Ports{
		Retriever: retrieverService,
		Scorer:    confidenceScorer,
		Answer:    answerService,
		Index:     indexService,
	})
	if err != nil {
		logger.Warn("MCP endpoint disabled: %v", err)
	} else {
		ports.MCP = mcpServer.Handler()
	}

	server, err := httpapi.NewServer(ports, cfg)
	if err != nil {
		return err
	}

	logger.SetTimestamps(true)
	cmd.Printf("API listening on http://localhost%s\n", cfg.Addr)
	return server.Run(cmd.Context())
}
