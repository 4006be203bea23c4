// Package ai builds the embedding and LLM clients from settings. The clients
// are created once at startup and shared until InitResult.Close.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/medrag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/medrag/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/medrag/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/medrag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/logger"
)

// pingTimeout bounds each connectivity check.
const pingTimeout = 5 * time.Second

// settingsHint is appended to configuration errors.
const settingsHint = "Run 'medrag settings' to fix"

// ErrUnsupportedProvider is returned for providers without an adapter.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// InitResult holds the clients for one run.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService

	// Warnings lists problems that disabled a component without failing
	// Init, such as an unreachable LLM.
	Warnings []string
}

// Close closes every client Init created.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		closeClient("embedding", r.EmbeddingService)
	}
	if r.LLMService != nil {
		closeClient("llm", r.LLMService)
	}
}

func closeClient(name string, svc service) {
	if err := svc.Close(); err != nil {
		logger.Debug("Closing %s client: %v", name, err)
	}
}

// Options controls which services Init requires.
type Options struct {
	// RequireLLM makes an unavailable LLM fatal. Otherwise it becomes a
	// warning and only retrieval works.
	RequireLLM bool

	// SkipPing creates clients without checking connectivity.
	SkipPing bool
}

// Init creates the clients settings describe. The embedding service is
// always required because both building and retrieval embed text.
func Init(ctx context.Context, settings *domain.AppSettings, opts Options) (*InitResult, error) {
	embedder, err := open(ctx, opts.SkipPing, domain.ErrEmbeddingUnavailable, func() (driven.EmbeddingService, error) {
		return CreateEmbeddingService(&settings.Embedding)
	})
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider is not configured. %s",
			domain.ErrEmbeddingUnavailable, settingsHint)
	}
	result := &InitResult{EmbeddingService: embedder}

	llm, err := open(ctx, opts.SkipPing, domain.ErrLLMUnavailable, func() (driven.LLMService, error) {
		return CreateLLMService(&settings.LLM)
	})
	switch {
	case err != nil && opts.RequireLLM:
		result.Close()
		return nil, err
	case err != nil:
		logger.Warn("LLM unavailable, answers disabled: %v", err)
		result.Warnings = append(result.Warnings, err.Error())
	case llm == nil && opts.RequireLLM:
		result.Close()
		return nil, fmt.Errorf("%w: LLM provider is not configured. %s", domain.ErrLLMUnavailable, settingsHint)
	case llm != nil:
		result.LLMService = llm
	}
	return result, nil
}

type service interface {
	Ping(ctx context.Context) error
	Close() error
}

// open creates a client and, unless skipPing, checks it answers. Both
// failures are wrapped with unavailable. An unconfigured provider yields a
// nil client and no error.
func open[S service](ctx context.Context, skipPing bool, unavailable error, create func() (S, error)) (S, error) {
	var none S
	svc, err := create()
	if err != nil {
		return none, fmt.Errorf("%w: %w. %s", unavailable, err, settingsHint)
	}
	if any(svc) == nil || skipPing {
		return svc, nil
	}
	if err := ping(ctx, pingTimeout, svc); err != nil {
		_ = svc.Close()
		return none, fmt.Errorf("%w: service unreachable (%w). %s", unavailable, err, settingsHint)
	}
	return svc, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func ping(ctx context.Context, timeout time.Duration, svc pinger) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService returns the client for settings, or nil when no
// provider is configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			BatchSize:  settings.BatchSize,
			Dimensions: domain.EmbeddingDimensions()[settings.Model],
		}), nil
	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:    settings.APIKey,
			BaseURL:   settings.BaseURL,
			Model:     settings.Model,
			BatchSize: settings.BatchSize,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, settings.Provider)
	}
}

// CreateLLMService returns the client for settings, or nil when no provider
// is configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil
	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, settings.Provider)
	}
}
