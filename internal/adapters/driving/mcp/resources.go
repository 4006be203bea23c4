package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for medrag resources.
	uriScheme = "medrag://"

	// recentQueriesLimit bounds the queries resource.
	recentQueriesLimit = 20
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Report of the latest index build: documents, chunks and tag distributions",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "queries",
		Name:        "queries",
		Description: "Most recent answered queries with their confidence",
		MIMEType:    "application/json",
	}, s.handleQueriesResource)
}

// handleStatsResource returns the latest build report.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	report, err := s.ports.Index.Stats(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return jsonResource(req.Params.URI, struct {
			Status string `json:"status"`
		}{Status: "not built"})
	}
	if err != nil {
		return nil, fmt.Errorf("loading build stats: %w", err)
	}

	return jsonResource(req.Params.URI, report)
}

// handleQueriesResource returns recent audit entries.
func (s *Server) handleQueriesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Answer == nil {
		return jsonResource(req.Params.URI, []domain.QueryLogEntry{})
	}

	entries, err := s.ports.Answer.RecentQueries(ctx, recentQueriesLimit)
	if err != nil {
		return nil, fmt.Errorf("listing queries: %w", err)
	}
	if entries == nil {
		entries = []domain.QueryLogEntry{}
	}

	return jsonResource(req.Params.URI, entries)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
