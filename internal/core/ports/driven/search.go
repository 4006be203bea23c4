package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// KeywordSearcher scores chunks against a query by term statistics.
// It indexes the corpus it is given, so callers control filtering.
type KeywordSearcher interface {
	// Search ranks corpus against query and returns at most limit hits
	// with a positive score, best first.
	Search(ctx context.Context, query string, corpus []domain.Chunk, limit int) ([]SearchHit, error)
}

// SearchHit represents a keyword search result.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the relevance score (e.g., BM25).
	Score float64
}
