package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCorpusDir    = "paths.corpus_dir"
	keyDataDir      = "paths.data_dir"
	keyArtifactsDir = "paths.artifacts_dir"

	keyChunkTarget   = "chunking.target_tokens"
	keyChunkMin      = "chunking.min_tokens"
	keyChunkMax      = "chunking.max_tokens"
	keyChunkOverlap  = "chunking.overlap_tokens"
	keyChunkSections = "chunking.respect_sections"

	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedBatch     = "embedding.batch_size"
	keyEmbedMaxSeq    = "embedding.max_seq_length"
	keyEmbedNormalize = "embedding.normalize"
	keyEmbedReclaim   = "embedding.reclaim_every"

	keyCollection = "index.collection"

	keyTopK           = "retrieval.top_k"
	keyContextBudget  = "retrieval.context_budget"
	keyDedupThreshold = "retrieval.dedup_threshold"
	keyHybrid         = "retrieval.hybrid"
	keyKeywordWeight  = "retrieval.keyword_weight"
	keyVectorWeight   = "retrieval.vector_weight"
	keyRRFK           = "retrieval.rrf_k"

	keyConfidenceThreshold = "scoring.confidence_threshold"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMMaxTokens   = "llm.max_tokens"
	keyLLMTemperature = "llm.temperature"

	keyAnswerTopK = "answer.top_k"
	keyAnswerMode = "answer.mode"

	keyServerAddr      = "server.addr"
	keyServerJWTSecret = "server.jwt_secret"
	keyServerUsers     = "server.users"
	keyServerTokenTTL  = "server.token_ttl"
	keyServerRateLimit = "server.rate_limit"
	keyServerRateBurst = "server.rate_burst"
)

// Environment overrides for deployment.
//
//nolint:gosec // G101: environment variable names, not credentials.
const (
	EnvOllamaBaseURL = "MEDRAG_OLLAMA_BASE_URL"
	EnvOpenAIAPIKey  = "MEDRAG_OPENAI_API_KEY"
)

const defaultOllamaBaseURL = "http://localhost:11434"

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindStrings
)

// settingKinds lists every recognised key and how its string form is parsed.
var settingKinds = map[string]settingKind{
	keyCorpusDir:           kindString,
	keyDataDir:             kindString,
	keyArtifactsDir:        kindString,
	keyChunkTarget:         kindInt,
	keyChunkMin:            kindInt,
	keyChunkMax:            kindInt,
	keyChunkOverlap:        kindInt,
	keyChunkSections:       kindBool,
	keyEmbedProvider:       kindString,
	keyEmbedModel:          kindString,
	keyEmbedBaseURL:        kindString,
	keyEmbedAPIKey:         kindString,
	keyEmbedBatch:          kindInt,
	keyEmbedMaxSeq:         kindInt,
	keyEmbedNormalize:      kindBool,
	keyEmbedReclaim:        kindInt,
	keyCollection:          kindString,
	keyTopK:                kindInt,
	keyContextBudget:       kindInt,
	keyDedupThreshold:      kindFloat,
	keyHybrid:              kindBool,
	keyKeywordWeight:       kindFloat,
	keyVectorWeight:        kindFloat,
	keyRRFK:                kindInt,
	keyConfidenceThreshold: kindFloat,
	keyLLMProvider:         kindString,
	keyLLMModel:            kindString,
	keyLLMBaseURL:          kindString,
	keyLLMAPIKey:           kindString,
	keyLLMMaxTokens:        kindInt,
	keyLLMTemperature:      kindFloat,
	keyAnswerTopK:          kindInt,
	keyAnswerMode:          kindString,
	keyServerAddr:          kindString,
	keyServerJWTSecret:     kindString,
	keyServerUsers:         kindStrings,
	keyServerTokenTTL:      kindInt,
	keyServerRateLimit:     kindFloat,
	keyServerRateBurst:     kindInt,
}

// configReader is the read half of driven.ConfigStore.
type configReader interface {
	Get(key string) (any, bool)
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// The aiValidator parameter is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// Keys absent from the config store take their documented defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	return s.settingsFrom(s.configStore), nil
}

func (s *SettingsService) settingsFrom(cfg configReader) *domain.AppSettings {
	d := domain.DefaultAppSettings()
	r := reader{cfg}

	settings := &domain.AppSettings{
		Paths: domain.PathSettings{
			CorpusDir:    r.getString(keyCorpusDir, d.Paths.CorpusDir),
			DataDir:      r.getString(keyDataDir, d.Paths.DataDir),
			ArtifactsDir: r.getString(keyArtifactsDir, d.Paths.ArtifactsDir),
		},
		Chunking: domain.ChunkingSettings{
			TargetTokens:    r.getInt(keyChunkTarget, d.Chunking.TargetTokens),
			MinTokens:       r.getInt(keyChunkMin, d.Chunking.MinTokens),
			MaxTokens:       r.getInt(keyChunkMax, d.Chunking.MaxTokens),
			OverlapTokens:   r.getInt(keyChunkOverlap, d.Chunking.OverlapTokens),
			RespectSections: r.getBool(keyChunkSections, d.Chunking.RespectSections),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:     r.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:        r.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:      r.getString(keyEmbedBaseURL, ""),
			APIKey:       r.getString(keyEmbedAPIKey, ""),
			BatchSize:    r.getInt(keyEmbedBatch, d.Embedding.BatchSize),
			MaxSeqLength: r.getInt(keyEmbedMaxSeq, d.Embedding.MaxSeqLength),
			Normalize:    r.getBool(keyEmbedNormalize, d.Embedding.Normalize),
			ReclaimEvery: r.getInt(keyEmbedReclaim, d.Embedding.ReclaimEvery),
		},
		Index: domain.IndexSettings{
			Collection: r.getString(keyCollection, d.Index.Collection),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:           r.getInt(keyTopK, d.Retrieval.TopK),
			ContextBudget:  r.getInt(keyContextBudget, d.Retrieval.ContextBudget),
			DedupThreshold: r.getFloat(keyDedupThreshold, d.Retrieval.DedupThreshold),
			Hybrid:         r.getBool(keyHybrid, d.Retrieval.Hybrid),
			VectorWeight:   r.getFloat(keyVectorWeight, d.Retrieval.VectorWeight),
			KeywordWeight:  r.getFloat(keyKeywordWeight, d.Retrieval.KeywordWeight),
			RRFK:           r.getInt(keyRRFK, d.Retrieval.RRFK),
		},
		Scoring: domain.ScoringSettings{
			ConfidenceThreshold: r.getFloat(keyConfidenceThreshold, d.Scoring.ConfidenceThreshold),
		},
		LLM: domain.LLMSettings{
			Provider:    r.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:       r.getString(keyLLMModel, d.LLM.Model),
			BaseURL:     r.getString(keyLLMBaseURL, ""),
			APIKey:      r.getString(keyLLMAPIKey, ""),
			MaxTokens:   r.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
			Temperature: r.getFloat(keyLLMTemperature, d.LLM.Temperature),
		},
		Answer: domain.AnswerSettings{
			TopK: r.getInt(keyAnswerTopK, d.Answer.TopK),
			Mode: domain.AnswerMode(r.getString(keyAnswerMode, d.Answer.Mode.String())),
		},
		Server: domain.ServerSettings{
			Addr:      r.getString(keyServerAddr, d.Server.Addr),
			JWTSecret: r.getString(keyServerJWTSecret, ""),
			Users:     r.getStrings(keyServerUsers),
			TokenTTL:  time.Duration(r.getInt(keyServerTokenTTL, int(d.Server.TokenTTL/time.Second))) * time.Second,
			RateLimit: r.getFloat(keyServerRateLimit, d.Server.RateLimit),
			RateBurst: r.getInt(keyServerRateBurst, d.Server.RateBurst),
		},
	}

	s.applyEnv(settings)
	return settings
}

// applyEnv fills provider endpoints and keys from the environment.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if s.getenv == nil {
		return
	}
	ollamaURL := s.getenv(EnvOllamaBaseURL)
	openaiKey := s.getenv(EnvOpenAIAPIKey)

	if settings.Embedding.Provider == domain.AIProviderOllama {
		if ollamaURL != "" {
			settings.Embedding.BaseURL = ollamaURL
		} else if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaBaseURL
		}
	}
	if settings.LLM.Provider == domain.AIProviderOllama {
		if ollamaURL != "" {
			settings.LLM.BaseURL = ollamaURL
		} else if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaBaseURL
		}
	}
	if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = openaiKey
	}
	if settings.LLM.Provider == domain.AIProviderOpenAI && settings.LLM.APIKey == "" {
		settings.LLM.APIKey = openaiKey
	}
}

// Set parses value for key, checks the resulting settings are valid and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}

	candidate := s.settingsFrom(overlay{base: s.configStore, key: key, value: parsed})
	if err := candidate.Validate(); err != nil {
		return err
	}
	if err := validateProviders(candidate); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func parseSetting(kind settingKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	case kindStrings:
		if strings.TrimSpace(value) == "" {
			return []string{}, nil
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return value, nil
	}
}

func validateProviders(settings *domain.AppSettings) error {
	if !settings.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidConfig, settings.Embedding.Provider)
	}
	if !settings.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidConfig, settings.LLM.Provider)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(EnvOpenAIAPIKey) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	// Set model - use provided or default
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	if err := s.configStore.Set(keyEmbedProvider, provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if !provider.IsLocal() {
		// Cloud providers don't need a custom base URL
		if err := s.configStore.Set(keyEmbedBaseURL, ""); err != nil {
			return fmt.Errorf("save embedding base_url: %w", err)
		}
	}
	if apiKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, apiKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(EnvOpenAIAPIKey) == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}

	if err := s.configStore.Set(keyLLMProvider, provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if !provider.IsLocal() {
		if err := s.configStore.Set(keyLLMBaseURL, ""); err != nil {
			return fmt.Errorf("save llm base_url: %w", err)
		}
	}
	if apiKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, apiKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	return nil
}

// Validate checks that current settings are within documented bounds.
func (s *SettingsService) Validate() error {
	_, err := s.Load()
	return err
}

// Load returns the current settings only if they are within bounds. Commands
// that build, retrieve or answer start from Load so a hand-edited config
// fails before any pipeline runs.
func (s *SettingsService) Load() (*domain.AppSettings, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w. Run 'medrag settings' to fix", err)
	}
	if err := validateProviders(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Keys returns every recognised setting key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateEmbeddingConfig pings the configured embedding provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig pings the configured LLM provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// reader reads typed values with defaults. Stores hand back whatever their
// format decoded: TOML integers arrive as int64 and arrays as []any.
// A value of the wrong type reads as the default.
type reader struct {
	cfg configReader
}

func (r reader) getString(key, defaultVal string) string {
	if v, ok := r.cfg.Get(key); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultVal
}

func (r reader) getInt(key string, defaultVal int) int {
	v, _ := r.cfg.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	}
	return defaultVal
}

// getFloat accepts integers too: TOML writes 1.0 back as 1.
func (r reader) getFloat(key string, defaultVal float64) float64 {
	v, _ := r.cfg.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return defaultVal
}

func (r reader) getBool(key string, defaultVal bool) bool {
	if v, ok := r.cfg.Get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

func (r reader) getStrings(key string) []string {
	v, _ := r.cfg.Get(key)
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (r reader) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	return domain.AIProvider(r.getString(key, defaultVal.String()))
}

// overlay reads one pending key in front of a base store.
type overlay struct {
	base  configReader
	key   string
	value any
}

func (o overlay) Get(key string) (any, bool) {
	if key == o.key {
		return o.value, true
	}
	return o.base.Get(key)
}
