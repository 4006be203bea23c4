package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleStatsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil index service returns not found", func(t *testing.T) {
		server := newTestServer(&Ports{})

		_, err := server.handleStatsResource(ctx, makeReadResourceRequest("medrag://stats"))

		require.Error(t, err)
	})

	t.Run("returns latest build report", func(t *testing.T) {
		index := &mockIndexService{report: &domain.BuildReport{
			ID:          "build-1",
			Collection:  "medical_kb",
			Documents:   12,
			Chunks:      340,
			TopicCounts: map[string]int{"kidney_transplant": 120},
		}}
		server := newTestServer(&Ports{Index: index})

		result, err := server.handleStatsResource(ctx, makeReadResourceRequest("medrag://stats"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"n_chunks": 340`)
		assert.Contains(t, result.Contents[0].Text, "kidney_transplant")
	})

	t.Run("never built", func(t *testing.T) {
		server := newTestServer(&Ports{Index: &mockIndexService{err: domain.ErrNotFound}})

		result, err := server.handleStatsResource(ctx, makeReadResourceRequest("medrag://stats"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, "not built")
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server := newTestServer(&Ports{Index: &mockIndexService{err: errors.New("database error")}})

		_, err := server.handleStatsResource(ctx, makeReadResourceRequest("medrag://stats"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading build stats")
	})
}

func TestServer_handleQueriesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil answer service returns empty list", func(t *testing.T) {
		server := newTestServer(&Ports{})

		result, err := server.handleQueriesResource(ctx, makeReadResourceRequest("medrag://queries"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns recent queries", func(t *testing.T) {
		answers := &mockAnswerService{queries: []domain.QueryLogEntry{
			{ID: "q-1", Query: "tacrolimus targets", Confidence: domain.ConfidenceMedium},
		}}
		server := newTestServer(&Ports{Answer: answers})

		result, err := server.handleQueriesResource(ctx, makeReadResourceRequest("medrag://queries"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, "tacrolimus targets")
		assert.Contains(t, result.Contents[0].Text, "Medium")
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server := newTestServer(&Ports{Answer: &mockAnswerService{err: errors.New("database error")}})

		_, err := server.handleQueriesResource(ctx, makeReadResourceRequest("medrag://queries"))

		assert.ErrorContains(t, err, "listing queries")
	})
}
