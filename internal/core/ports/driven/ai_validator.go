package driven

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// AIConfigValidator checks provider settings against the live provider
// before they are relied on. Nil or unconfigured settings pass.
type AIConfigValidator interface {
	ValidateEmbedding(ctx context.Context, cfg *domain.EmbeddingSettings) error
	ValidateLLM(ctx context.Context, cfg *domain.LLMSettings) error
}
