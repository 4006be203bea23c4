package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func TestConfigValidator_NothingToCheck(t *testing.T) {
	v := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateEmbedding(ctx, nil))
	assert.NoError(t, v.ValidateLLM(ctx, nil))
	assert.NoError(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Model: "test-model"}))
	assert.NoError(t, v.ValidateLLM(ctx, &domain.LLMSettings{Model: "test-model"}))
}

func TestConfigValidator_Ollama(t *testing.T) {
	server := newOllamaServer(t, "nomic-embed-text:latest", "gemma3:1b")
	v := NewConfigValidator()
	ctx := context.Background()

	tests := []struct {
		name    string
		check   func() error
		wantErr bool
	}{
		{"embedding model pulled", func() error {
			return v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama, BaseURL: server.URL, Model: "nomic-embed-text",
			})
		}, false},
		{"embedding model missing", func() error {
			return v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama, BaseURL: server.URL, Model: "mxbai-embed-large",
			})
		}, true},
		{"llm model pulled", func() error {
			return v.ValidateLLM(ctx, &domain.LLMSettings{
				Provider: domain.AIProviderOllama, BaseURL: server.URL, Model: "gemma3:1b",
			})
		}, false},
		{"llm model missing", func() error {
			return v.ValidateLLM(ctx, &domain.LLMSettings{
				Provider: domain.AIProviderOllama, BaseURL: server.URL, Model: "mistral",
			})
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigValidator_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	v := &ConfigValidator{timeout: 50 * time.Millisecond}
	err := v.ValidateLLM(context.Background(), &domain.LLMSettings{
		Provider: domain.AIProviderOllama, BaseURL: server.URL, Model: "gemma3:1b",
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
