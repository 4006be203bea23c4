package driven

import "context"

// LLMService generates answer text. It is optional: without one, retrieval
// and confidence scoring still work and answering reports ErrLLMUnavailable.
type LLMService interface {
	// Generate completes a single prompt without a conversation.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat returns the complete reply to messages.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream hands the reply to onToken in generation order. It stops at
	// the first onToken error, which it returns, or when ctx is done.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, onToken func(token string) error) error

	ModelName() string

	// Ping fails when the provider is unreachable or the model is missing.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions tunes Generate. Zero values leave the provider default.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions tunes Chat and ChatStream. Zero values leave the provider default.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
