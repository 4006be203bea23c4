package driving

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// RetrieverService finds the chunks most relevant to a query.
type RetrieverService interface {
	// Retrieve returns ranked, deduplicated, budget-bounded chunks.
	// A blank query or an index that was never built yields an empty result.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error)
}

// ConfidenceScorer turns retrieved chunks into a calibrated confidence.
type ConfidenceScorer interface {
	// ScoreConfidence computes confidence from chunk similarities.
	ScoreConfidence(chunks []domain.RetrievedChunk) domain.Confidence

	// Gate reports whether the confidence is too low to generate an answer.
	Gate(conf domain.Confidence) bool

	// GateAt is Gate with an explicit threshold.
	GateAt(conf domain.Confidence, threshold float64) bool

	// Threshold returns the configured gate threshold.
	Threshold() float64
}
