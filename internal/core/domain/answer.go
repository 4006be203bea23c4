package domain

import "time"

// AnswerMode selects the style of generated answers.
type AnswerMode string

// Available answer modes.
const (
	// AnswerModeBrief asks for a concise two to three sentence answer.
	AnswerModeBrief AnswerMode = "brief"

	// AnswerModeClinical asks for a clinical answer with bullet points.
	AnswerModeClinical AnswerMode = "clinical"

	// AnswerModeDetailed asks for a comprehensive structured answer.
	AnswerModeDetailed AnswerMode = "detailed"
)

// IsValid returns true if the answer mode is recognised.
func (m AnswerMode) IsValid() bool {
	switch m {
	case AnswerModeBrief, AnswerModeClinical, AnswerModeDetailed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m AnswerMode) String() string {
	return string(m)
}

// AllAnswerModes returns all available answer modes.
func AllAnswerModes() []AnswerMode {
	return []AnswerMode{AnswerModeBrief, AnswerModeClinical, AnswerModeDetailed}
}

// AnswerRequest configures a question to the answer pipeline.
// Zero values fall back to configured defaults.
type AnswerRequest struct {
	Query       string
	TopK        int
	MaxTokens   int
	Temperature *float64
	Mode        AnswerMode
	Filters     Filters

	// Threshold overrides the configured confidence gate when non-nil.
	Threshold *float64

	// Hybrid overrides the configured retrieval mode when non-nil.
	Hybrid *bool
}

// Source is a citation attached to an answer.
type Source struct {
	Document    string  `json:"document"`
	Section     string  `json:"section"`
	Topic       string  `json:"topic"`
	Similarity  float64 `json:"similarity_score"`
	TokenCount  int     `json:"token_count"`
	TextPreview string  `json:"text_preview,omitempty"`
}

// Answer is the outcome of the answer pipeline.
type Answer struct {
	Query      string          `json:"query"`
	Text       string          `json:"answer"`
	Confidence ConfidenceLabel `json:"confidence"`
	Score      float64         `json:"confidence_score"`
	Sources    []Source        `json:"sources"`

	// Gated marks an insufficient-evidence outcome: no generation call was made.
	Gated bool `json:"gated"`

	ChunksUsed     int           `json:"chunks_used"`
	TotalTokens    int           `json:"total_tokens"`
	Model          string        `json:"model"`
	RetrievalTime  time.Duration `json:"retrieval_time"`
	GenerationTime time.Duration `json:"generation_time"`
	TotalTime      time.Duration `json:"total_time"`
}

// AnswerEventType identifies a streaming answer event.
type AnswerEventType string

// Stream event types, in the order a stream emits them.
const (
	// AnswerEventMetadata carries confidence and sources before any token.
	AnswerEventMetadata AnswerEventType = "metadata"

	// AnswerEventToken carries one generated token.
	AnswerEventToken AnswerEventType = "token"

	// AnswerEventDone is the successful terminal event.
	AnswerEventDone AnswerEventType = "done"

	// AnswerEventError is the failed terminal event.
	// Tokens already emitted are not retracted.
	AnswerEventError AnswerEventType = "error"
)

// IsTerminal reports whether no events follow this one.
func (t AnswerEventType) IsTerminal() bool {
	return t == AnswerEventDone || t == AnswerEventError
}

// AnswerEvent is one element of an ordered answer stream.
type AnswerEvent struct {
	Type AnswerEventType `json:"type"`

	// Content is the token text for token events.
	Content string `json:"content,omitempty"`

	// Message describes the failure for error events, or the gated answer text.
	Message string `json:"message,omitempty"`

	// Answer carries metadata for metadata events and the totals for done events.
	// Text is empty in streamed metadata.
	Answer *Answer `json:"answer,omitempty"`

	Done bool `json:"done"`
}
