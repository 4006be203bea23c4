// Package ollama writes answers with a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/medrag/internal/adapters/driven/ollamaapi"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = ollamaapi.DefaultBaseURL
	DefaultLLMModel   = "gemma3:1b"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the service. Zero values take the defaults.
type LLMConfig struct {
	BaseURL string
	Model   string

	// Timeout bounds a whole request, streamed body included.
	Timeout time.Duration
}

// LLMService calls /api/chat and /api/generate.
type LLMService struct {
	api   *ollamaapi.Client
	model string
}

type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

// chatResponse is a whole reply, or one line of a streamed one.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

func (r chatResponse) err() error {
	if r.Error != "" {
		return fmt.Errorf("ollama error: %s", r.Error)
	}
	return nil
}

// NewLLMService returns a service for cfg.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		api:   ollamaapi.New(cfg.BaseURL, cfg.Timeout, domain.ErrLLMUnavailable),
		model: cfg.Model,
	}
}

// Generate completes a single prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Options: &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		},
	}
	var resp generateResponse
	if err := s.api.Post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Chat returns the whole reply to messages.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var resp chatResponse
	if err := s.api.Post(ctx, "/api/chat", s.chatRequest(messages, opts, false), &resp); err != nil {
		return "", err
	}
	if err := resp.err(); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// ChatStream hands each token to onToken as Ollama produces it. A stream
// that closes without a done line is an error.
func (s *LLMService) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	onToken func(token string) error,
) error {
	return s.api.Stream(ctx, "/api/chat", s.chatRequest(messages, opts, true), func(line []byte) (bool, error) {
		var part chatResponse
		if err := json.Unmarshal(line, &part); err != nil {
			return false, fmt.Errorf("decode stream: %w", err)
		}
		if err := part.err(); err != nil {
			return false, err
		}
		if part.Message.Content != "" {
			if err := onToken(part.Message.Content); err != nil {
				return false, err
			}
		}
		return part.Done, nil
	})
}

func (s *LLMService) chatRequest(messages []driven.ChatMessage, opts driven.ChatOptions, stream bool) chatRequest {
	out := make([]chatMessage, len(messages))
	for i, m := range messages {
		out[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	return chatRequest{
		Model:    s.model,
		Messages: out,
		Stream:   stream,
		Options: &options{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
		},
	}
}

// ModelName returns the model answers are written with.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the server answers and has the model pulled.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.RequireModel(ctx, s.model)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
