package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// PostProcessor is one stage of the build pipeline. The first stage (the
// chunker) receives nil chunks and creates them; later stages annotate the
// chunks they are given and return them.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns one normalised document into its final chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
