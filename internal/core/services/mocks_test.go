package services

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Texts listed in vectors get that vector; anything else gets fallback.
type mockEmbeddingService struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	fallback   []float32
	embedErr   error
	batchErr   error
	batchSizes []int
	embedded   []string
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return append([]float32(nil), v...)
	}
	if m.fallback != nil {
		return append([]float32(nil), m.fallback...)
	}
	return []float32{1, 0, 0}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	m.batchSizes = append(m.batchSizes, len(texts))
	m.embedded = append(m.embedded, texts...)
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.vectorFor(""))
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu       sync.Mutex
	response string
	tokens   []string
	chatErr  error
	// streamErr is returned after all tokens are emitted.
	streamErr error
	pingErr   error
	calls     int
	messages  []driven.ChatMessage
}

func (m *mockLLMService) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return m.response, m.chatErr
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.messages = messages
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.response, nil
}

func (m *mockLLMService) ChatStream(
	ctx context.Context, messages []driven.ChatMessage, _ driven.ChatOptions, onToken func(string) error,
) error {
	m.mu.Lock()
	m.calls++
	m.messages = messages
	m.mu.Unlock()

	for _, tok := range m.tokens {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onToken(tok); err != nil {
			return err
		}
	}
	return m.streamErr
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockRetriever implements driving.RetrieverService for testing.
type mockRetriever struct {
	result  *domain.RetrievalResult
	results map[string]*domain.RetrievalResult
	err     error
	errFor  map[string]error
	calls   []domain.RetrieveOptions
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error) {
	m.calls = append(m.calls, opts)
	if err, ok := m.errFor[query]; ok {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.results[query]; ok {
		return r, nil
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.RetrievalResult{Query: query}, nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", domain.ErrNotFound
}

func (m *mockPromptStore) Reload() {}

// retrieved builds a ranked chunk for answer and scoring tests.
func retrieved(id, title, section, text string, similarity float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{
			ID:           id,
			DocID:        id,
			DocTitle:     title,
			SectionTitle: section,
			Text:         text,
			TokenCount:   len(strings.Fields(text)),
		},
		Similarity: similarity,
		Score:      similarity,
	}
}
