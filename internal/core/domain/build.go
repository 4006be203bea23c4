package domain

import "time"

// BuildReport summarises one index rebuild.
type BuildReport struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`

	Documents   int `json:"n_documents"`
	Chunks      int `json:"n_chunks"`
	TotalTokens int `json:"total_tokens"`

	AvgChunkTokens    float64 `json:"avg_chunk_tokens"`
	MedianChunkTokens float64 `json:"median_chunk_tokens"`
	MinChunkTokens    int     `json:"min_chunk_tokens"`
	MaxChunkTokens    int     `json:"max_chunk_tokens"`

	// TopicCounts and TierCounts are chunk distributions by tag.
	TopicCounts map[string]int `json:"topic_counts"`
	TierCounts  map[string]int `json:"tier_counts"`

	TotalWords int `json:"total_words"`

	// ConfigHash fingerprints the chunking and embedding settings used.
	ConfigHash string `json:"config_hash"`

	StartedAt time.Time     `json:"build_timestamp"`
	Elapsed   time.Duration `json:"elapsed"`
}

// ValidationReport is the outcome of checking a built index.
type ValidationReport struct {
	Collection    string       `json:"collection"`
	Chunks        int          `json:"chunks"`
	SampleQuery   string       `json:"sample_query"`
	SampleHits    int          `json:"sample_hits"`
	SamplePreview string       `json:"sample_preview,omitempty"`
	LastBuild     *BuildReport `json:"last_build,omitempty"`
}

// HealthStatus reports the readiness of the answer pipeline.
type HealthStatus struct {
	Status         string `json:"status"`
	StoreConnected bool   `json:"chroma_connected"`
	ModelAvailable bool   `json:"model_available"`
	ChunksIndexed  int    `json:"chunks_indexed"`
	Error          string `json:"error,omitempty"`
}

// Health status values.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// QueryLogEntry is the audit record of one answered query.
type QueryLogEntry struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Query      string          `json:"query"`
	Confidence ConfidenceLabel `json:"confidence"`
	Score      float64         `json:"confidence_score"`
	ChunksUsed int             `json:"chunks_used"`
	TotalTime  time.Duration   `json:"total_time"`
	Model      string          `json:"model"`
	Gated      bool            `json:"gated"`
	Streamed   bool            `json:"streamed"`
	Error      string          `json:"error,omitempty"`
}
