package driving

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// AnswerService answers questions from the indexed corpus.
type AnswerService interface {
	// Answer runs the full pipeline and returns the complete answer.
	// Low-evidence questions return a gated answer, not an error.
	Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error)

	// AnswerStream runs validation, retrieval and gating synchronously, then
	// streams the answer. The channel carries one metadata event, zero or more
	// token events and exactly one terminal event before it is closed.
	AnswerStream(ctx context.Context, req domain.AnswerRequest) (<-chan domain.AnswerEvent, error)

	// Health reports readiness of the index and the LLM.
	Health(ctx context.Context) domain.HealthStatus

	// RecentQueries returns up to limit audit entries, newest first.
	RecentQueries(ctx context.Context, limit int) ([]domain.QueryLogEntry, error)
}
