package driving

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// IndexService builds and inspects the vector index.
type IndexService interface {
	// Build rebuilds the index from the corpus as a new generation and
	// promotes it. The previous generation stays live until promotion.
	Build(ctx context.Context) (*domain.BuildReport, error)

	// Validate checks the live index and runs a sample retrieval.
	Validate(ctx context.Context) (*domain.ValidationReport, error)

	// Stats returns the latest build report.
	Stats(ctx context.Context) (*domain.BuildReport, error)
}

// EvaluationService measures retrieval quality against labelled questions.
type EvaluationService interface {
	// Evaluate retrieves each case at depth k and scores the retrieved documents.
	Evaluate(ctx context.Context, cases []domain.EvalCase, k int) (*domain.EvalReport, error)
}
