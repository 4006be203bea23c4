package mcp

import (
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever finds relevant chunks.
	Retriever driving.RetrieverService

	// Scorer computes confidence over retrieved chunks.
	Scorer driving.ConfidenceScorer

	// Answer generates grounded answers. Optional: without it the ask tool fails.
	Answer driving.AnswerService

	// Index reports build statistics. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	if p.Scorer == nil {
		return ErrMissingScorer
	}
	return nil
}
