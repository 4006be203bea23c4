package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator builds a throwaway client for the settings and pings it.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator returns a validator that waits pingTimeout per check.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding pings the embedding provider cfg describes.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, cfg *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(cfg)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(ctx, v.timeout, svc)
}

// ValidateLLM pings the LLM provider cfg describes. For Ollama this also
// checks the model is pulled.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, cfg *domain.LLMSettings) error {
	svc, err := CreateLLMService(cfg)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(ctx, v.timeout, svc)
}
