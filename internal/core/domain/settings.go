package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API (or a compatible server).
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// PathSettings locates the corpus and persisted state.
type PathSettings struct {
	// CorpusDir holds the raw markdown documents.
	CorpusDir string

	// DataDir holds the index database.
	DataDir string

	// ArtifactsDir receives build artifacts when set.
	ArtifactsDir string
}

// ChunkingSettings bound the section-aware chunker.
type ChunkingSettings struct {
	// TargetTokens is the soft goal, informational only.
	TargetTokens int

	// MinTokens is the smallest chunk the chunker emits.
	MinTokens int

	// MaxTokens is the hard upper bound on chunk size.
	MaxTokens int

	// OverlapTokens is converted to a sentence count when seeding the next chunk.
	OverlapTokens int

	// RespectSections splits on headings when true.
	RespectSections bool
}

// Validate enforces min < target < max and overlap < min.
func (c ChunkingSettings) Validate() error {
	if c.MinTokens <= 0 {
		return fmt.Errorf("%w: chunking.min_tokens must be positive, got %d", ErrInvalidConfig, c.MinTokens)
	}
	if !(c.MinTokens < c.TargetTokens && c.TargetTokens < c.MaxTokens) {
		return fmt.Errorf("%w: chunking requires min_tokens < target_tokens < max_tokens, got %d/%d/%d",
			ErrInvalidConfig, c.MinTokens, c.TargetTokens, c.MaxTokens)
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.MinTokens {
		return fmt.Errorf("%w: chunking requires 0 <= overlap_tokens < min_tokens, got %d",
			ErrInvalidConfig, c.OverlapTokens)
	}
	return nil
}

// EmbeddingSettings holds embedding provider and batching configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is the number of chunks embedded per request.
	BatchSize int

	// MaxSeqLength truncates inputs to this many words before embedding.
	MaxSeqLength int

	// Normalize L2-normalises vectors before persisting.
	Normalize bool

	// ReclaimEvery triggers memory reclamation after this many batches.
	ReclaimEvery int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings names the collection alias readers resolve.
type IndexSettings struct {
	Collection string
}

// RetrievalSettings configures the hybrid retriever.
type RetrievalSettings struct {
	// TopK is the default number of candidates kept after fusion.
	TopK int

	// ContextBudget caps the summed token count of returned chunks.
	ContextBudget int

	// DedupThreshold is the Jaccard overlap above which a candidate is a near-duplicate.
	DedupThreshold float64

	// Hybrid enables keyword + vector fusion. Vector-only when false.
	Hybrid bool

	// VectorWeight and KeywordWeight scale each ranking's RRF contribution.
	VectorWeight  float64
	KeywordWeight float64

	// RRFK is the reciprocal rank fusion constant.
	RRFK int
}

// ScoringSettings configures confidence gating.
type ScoringSettings struct {
	// ConfidenceThreshold is the minimum confidence to proceed to generation.
	ConfidenceThreshold float64
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// MaxTokens caps generated tokens.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// AnswerSettings holds defaults for the answer pipeline.
type AnswerSettings struct {
	TopK int
	Mode AnswerMode
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr      string
	JWTSecret string

	// Users are "username:password:role" entries allowed to request tokens.
	Users []string

	TokenTTL  time.Duration
	RateLimit float64
	RateBurst int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Paths     PathSettings
	Chunking  ChunkingSettings
	Embedding EmbeddingSettings
	Index     IndexSettings
	Retrieval RetrievalSettings
	Scoring   ScoringSettings
	LLM       LLMSettings
	Answer    AnswerSettings
	Server    ServerSettings
}

// Validate checks every documented bound.
func (s *AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if s.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding.batch_size must be positive", ErrInvalidConfig)
	}
	if s.Index.Collection == "" {
		return fmt.Errorf("%w: index.collection must be set", ErrInvalidConfig)
	}
	if s.Retrieval.TopK <= 0 || s.Retrieval.ContextBudget <= 0 {
		return fmt.Errorf("%w: retrieval.top_k and retrieval.context_budget must be positive", ErrInvalidConfig)
	}
	if s.Retrieval.DedupThreshold <= 0 || s.Retrieval.DedupThreshold > 1 {
		return fmt.Errorf("%w: retrieval.dedup_threshold must be in (0, 1]", ErrInvalidConfig)
	}
	if s.Retrieval.VectorWeight < 0 || s.Retrieval.KeywordWeight < 0 || s.Retrieval.RRFK <= 0 {
		return fmt.Errorf("%w: retrieval weights must be non-negative and rrf_k positive", ErrInvalidConfig)
	}
	if s.Scoring.ConfidenceThreshold < 0 || s.Scoring.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: scoring.confidence_threshold must be in [0, 1]", ErrInvalidConfig)
	}
	if !s.Answer.Mode.IsValid() {
		return fmt.Errorf("%w: unknown answer.mode %q", ErrInvalidConfig, s.Answer.Mode)
	}
	return nil
}

// DefaultAppSettings returns settings with the documented defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Paths: PathSettings{
			CorpusDir: "./data/raw_docs",
		},
		Chunking: ChunkingSettings{
			TargetTokens:    350,
			MinTokens:       100,
			MaxTokens:       500,
			OverlapTokens:   60,
			RespectSections: true,
		},
		Embedding: EmbeddingSettings{
			Provider:     AIProviderOllama,
			Model:        "nomic-embed-text",
			BatchSize:    16,
			MaxSeqLength: 384,
			Normalize:    true,
			ReclaimEvery: 10,
		},
		Index: IndexSettings{
			Collection: "medical_kb",
		},
		Retrieval: RetrievalSettings{
			TopK:           8,
			ContextBudget:  2500,
			DedupThreshold: 0.85,
			Hybrid:         false,
			VectorWeight:   1.0,
			KeywordWeight:  0.3,
			RRFK:           60,
		},
		Scoring: ScoringSettings{
			ConfidenceThreshold: 0.50,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       "gemma3:1b",
			MaxTokens:   512,
			Temperature: 0.1,
		},
		Answer: AnswerSettings{
			TopK: 5,
			Mode: AnswerModeClinical,
		},
		Server: ServerSettings{
			Addr:      ":8000",
			TokenTTL:  time.Hour,
			RateLimit: 5,
			RateBurst: 10,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "gemma3:1b",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
