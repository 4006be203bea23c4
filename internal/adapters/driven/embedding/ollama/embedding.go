// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/medrag/internal/adapters/driven/ollamaapi"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL   = ollamaapi.DefaultBaseURL
	DefaultModel     = "nomic-embed-text"
	DefaultTimeout   = 60 * time.Second
	DefaultBatchSize = 64
)

// Config configures the embedding service. Zero values take the defaults.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// BatchSize caps the inputs sent in one /api/embed request.
	BatchSize int

	// Dimensions is the vector size. Zero means look it up by model name,
	// or learn it from the first response.
	Dimensions int
}

// EmbeddingService calls /api/embed.
type EmbeddingService struct {
	api       *ollamaapi.Client
	model     string
	batchSize int

	mu         sync.RWMutex
	dimensions int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewEmbeddingService returns a service for cfg.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}

	return &EmbeddingService{
		api:        ollamaapi.New(cfg.BaseURL, cfg.Timeout, domain.ErrEmbeddingUnavailable),
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		dimensions: cfg.Dimensions,
	}
}

// Embed returns the vector for one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in order, sending at most
// BatchSize texts per request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		batch := texts[start:min(start+s.batchSize, len(texts))]

		var resp embedResponse
		if err := s.api.Post(ctx, "/api/embed", embedRequest{Model: s.model, Input: batch}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(batch))
		}
		for _, vec := range resp.Embeddings {
			out = append(out, toFloat32(vec))
		}
	}

	if len(out) > 0 {
		s.learnDimensions(len(out[0]))
	}
	return out, nil
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

func (s *EmbeddingService) learnDimensions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions == 0 {
		s.dimensions = n
	}
}

// Dimensions returns the vector size, or 0 before the first call when the
// model is unknown.
func (s *EmbeddingService) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the server answers and has the model pulled.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.RequireModel(ctx, s.model)
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
