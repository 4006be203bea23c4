package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

const defaultTopK = 5

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query  string `json:"query" jsonschema:"the clinical question to find evidence for"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"number of chunks to return (default 5)"`
	Topic  string `json:"topic,omitempty" jsonschema:"only return chunks with this topic, e.g. kidney_transplant"`
	Tier   string `json:"tier,omitempty" jsonschema:"only return chunks from this tier, e.g. tier1_core"`
	Hybrid *bool  `json:"hybrid,omitempty" jsonschema:"fuse keyword and vector ranking (default from settings)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks      []ChunkOutput `json:"chunks"`
	Count       int           `json:"count"`
	TotalTokens int           `json:"total_tokens"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	ID         string  `json:"id"`
	Document   string  `json:"document"`
	Section    string  `json:"section"`
	Topic      string  `json:"topic"`
	Tier       string  `json:"tier"`
	Rank       int     `json:"rank"`
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// ScoreInput is the input schema for the score_confidence tool.
type ScoreInput struct {
	Query string `json:"query" jsonschema:"the clinical question to score evidence for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to score (default 5)"`
}

// ScoreOutput is the output schema for the score_confidence tool.
type ScoreOutput struct {
	Confidence string   `json:"confidence"`
	Score      float64  `json:"score"`
	Threshold  float64  `json:"threshold"`
	Gated      bool     `json:"gated"`
	Chunks     int      `json:"chunks"`
	Citations  []string `json:"citations"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"the clinical question to answer"`
	Mode  string `json:"mode,omitempty" jsonschema:"answer style: brief, clinical or detailed"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string          `json:"answer"`
	Confidence string          `json:"confidence"`
	Score      float64         `json:"confidence_score"`
	Gated      bool            `json:"gated"`
	Sources    []domain.Source `json:"sources"`
	Model      string          `json:"model,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the most relevant chunks from the medical knowledge base",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "score_confidence",
		Description: "Retrieve evidence for a question and report how confident an answer would be",
	}, s.handleScore)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a clinical question from the knowledge base with citations",
	}, s.handleAsk)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	opts := domain.RetrieveOptions{
		TopK:    topK(input.TopK),
		Filters: domain.Filters{Topic: input.Topic, Tier: input.Tier},
		Hybrid:  input.Hybrid,
	}

	result, err := s.ports.Retriever.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks:      make([]ChunkOutput, len(result.Chunks)),
		Count:       len(result.Chunks),
		TotalTokens: result.TotalTokens,
	}
	for i := range result.Chunks {
		c := &result.Chunks[i]
		output.Chunks[i] = ChunkOutput{
			ID:         c.ID,
			Document:   c.DocTitle,
			Section:    c.SectionTitle,
			Topic:      c.Topic,
			Tier:       c.Tier,
			Rank:       c.Rank,
			Similarity: c.Similarity,
			Score:      c.Score,
			Text:       c.Text,
		}
	}

	return nil, output, nil
}

// handleScore handles the score_confidence tool invocation.
func (s *Server) handleScore(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ScoreInput,
) (*mcp.CallToolResult, ScoreOutput, error) {
	result, err := s.ports.Retriever.Retrieve(ctx, input.Query, domain.RetrieveOptions{TopK: topK(input.TopK)})
	if err != nil {
		return nil, ScoreOutput{}, err
	}

	conf := s.ports.Scorer.ScoreConfidence(result.Chunks)
	return nil, ScoreOutput{
		Confidence: conf.Label.String(),
		Score:      conf.Score,
		Threshold:  s.ports.Scorer.Threshold(),
		Gated:      s.ports.Scorer.Gate(conf),
		Chunks:     len(result.Chunks),
		Citations:  result.Citations(),
	}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answer == nil {
		return nil, AskOutput{}, ErrAnswersDisabled
	}

	mode := domain.AnswerMode(input.Mode)
	if mode != "" && !mode.IsValid() {
		return nil, AskOutput{}, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, input.Mode)
	}

	answer, err := s.ports.Answer.Answer(ctx, domain.AnswerRequest{Query: input.Query, Mode: mode})
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return nil, AskOutput{
		Answer:     answer.Text,
		Confidence: answer.Confidence.String(),
		Score:      answer.Score,
		Gated:      answer.Gated,
		Sources:    sources,
		Model:      answer.Model,
	}, nil
}

func topK(n int) int {
	if n <= 0 {
		return defaultTopK
	}
	return n
}
