package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

const maxBodyBytes = 64 << 10

// Request bounds enforced at the API boundary.
const (
	maxTopK      = 10
	minMaxTokens = 128
	maxMaxTokens = 2048
)

// TokenRequest is the login payload.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// QueryRequest is the payload for query, query/stream and retrieve.
// Zero values use configured defaults.
type QueryRequest struct {
	Query               string   `json:"query"`
	TopK                int      `json:"top_k,omitempty"`
	MaxTokens           int      `json:"max_tokens,omitempty"`
	Temperature         *float64 `json:"temperature,omitempty"`
	AnswerMode          string   `json:"answer_mode,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	Topic               string   `json:"topic,omitempty"`
	Tier                string   `json:"tier,omitempty"`
	Hybrid              *bool    `json:"hybrid,omitempty"`
}

// validate checks numeric bounds. Query text is validated by the pipeline.
func (q *QueryRequest) validate() error {
	switch {
	case q.TopK < 0 || q.TopK > maxTopK:
		return fmt.Errorf("%w: top_k must be between 1 and %d", domain.ErrInvalidInput, maxTopK)
	case q.MaxTokens != 0 && (q.MaxTokens < minMaxTokens || q.MaxTokens > maxMaxTokens):
		return fmt.Errorf("%w: max_tokens must be between %d and %d", domain.ErrInvalidInput, minMaxTokens, maxMaxTokens)
	case q.Temperature != nil && (*q.Temperature < 0 || *q.Temperature > 1):
		return fmt.Errorf("%w: temperature must be between 0 and 1", domain.ErrInvalidInput)
	case q.ConfidenceThreshold != nil && (*q.ConfidenceThreshold < 0 || *q.ConfidenceThreshold > 1):
		return fmt.Errorf("%w: confidence_threshold must be between 0 and 1", domain.ErrInvalidInput)
	case q.AnswerMode != "" && !domain.AnswerMode(q.AnswerMode).IsValid():
		return fmt.Errorf("%w: answer_mode must be brief, clinical or detailed", domain.ErrInvalidInput)
	}
	return nil
}

func (q *QueryRequest) answerRequest() domain.AnswerRequest {
	return domain.AnswerRequest{
		Query:       q.Query,
		TopK:        q.TopK,
		MaxTokens:   q.MaxTokens,
		Temperature: q.Temperature,
		Mode:        domain.AnswerMode(q.AnswerMode),
		Filters:     domain.Filters{Topic: q.Topic, Tier: q.Tier},
		Threshold:   q.ConfidenceThreshold,
		Hybrid:      q.Hybrid,
	}
}

// QueryResponse is a complete answer. Times are in seconds.
type QueryResponse struct {
	Query           string          `json:"query"`
	Answer          string          `json:"answer"`
	Confidence      string          `json:"confidence"`
	ConfidenceScore float64         `json:"confidence_score"`
	Gated           bool            `json:"gated"`
	Sources         []domain.Source `json:"sources"`
	RetrievalTime   float64         `json:"retrieval_time"`
	GenerationTime  float64         `json:"generation_time"`
	TotalTime       float64         `json:"total_time"`
	ChunksUsed      int             `json:"chunks_used"`
	TotalTokens     int             `json:"total_tokens"`
	Model           string          `json:"model"`
	User            string          `json:"user,omitempty"`
}

func newQueryResponse(a *domain.Answer, user string) QueryResponse {
	sources := a.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return QueryResponse{
		Query:           a.Query,
		Answer:          a.Text,
		Confidence:      a.Confidence.String(),
		ConfidenceScore: a.Score,
		Gated:           a.Gated,
		Sources:         sources,
		RetrievalTime:   seconds(a.RetrievalTime),
		GenerationTime:  seconds(a.GenerationTime),
		TotalTime:       seconds(a.TotalTime),
		ChunksUsed:      a.ChunksUsed,
		TotalTokens:     a.TotalTokens,
		Model:           a.Model,
		User:            user,
	}
}

// StreamEvent is one server-sent event of a streamed answer.
type StreamEvent struct {
	Type            string          `json:"type"`
	Content         string          `json:"content,omitempty"`
	Message         string          `json:"message,omitempty"`
	Query           string          `json:"query,omitempty"`
	Confidence      string          `json:"confidence,omitempty"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	Gated           bool            `json:"gated,omitempty"`
	Sources         []domain.Source `json:"sources,omitempty"`
	RetrievalTime   float64         `json:"retrieval_time,omitempty"`
	GenerationTime  float64         `json:"generation_time,omitempty"`
	TotalTime       float64         `json:"total_time,omitempty"`
	ChunksUsed      int             `json:"chunks_used,omitempty"`
	TotalTokens     int             `json:"total_tokens,omitempty"`
	Model           string          `json:"model,omitempty"`
	Done            bool            `json:"done"`
}

func newStreamEvent(ev domain.AnswerEvent) StreamEvent {
	out := StreamEvent{
		Type:    string(ev.Type),
		Content: ev.Content,
		Message: ev.Message,
		Done:    ev.Done,
	}
	a := ev.Answer
	if a == nil {
		return out
	}
	switch ev.Type {
	case domain.AnswerEventMetadata:
		score := a.Score
		out.Query = a.Query
		out.Confidence = a.Confidence.String()
		out.ConfidenceScore = &score
		out.Gated = a.Gated
		out.Sources = a.Sources
		out.RetrievalTime = seconds(a.RetrievalTime)
		out.ChunksUsed = a.ChunksUsed
		out.Model = a.Model
	case domain.AnswerEventDone:
		out.Gated = a.Gated
		out.GenerationTime = seconds(a.GenerationTime)
		out.TotalTime = seconds(a.TotalTime)
		out.TotalTokens = a.TotalTokens
	}
	return out
}

// RetrieveResponse lists retrieved chunks with their confidence.
type RetrieveResponse struct {
	Query           string           `json:"query"`
	Chunks          []RetrievedChunk `json:"chunks"`
	TotalTokens     int              `json:"total_tokens"`
	Confidence      string           `json:"confidence,omitempty"`
	ConfidenceScore float64          `json:"confidence_score"`
	RetrievalTime   float64          `json:"retrieval_time"`
}

// RetrievedChunk is a chunk in a retrieve response.
type RetrievedChunk struct {
	ID          string  `json:"id"`
	Document    string  `json:"document"`
	Section     string  `json:"section"`
	Topic       string  `json:"topic"`
	Tier        string  `json:"tier"`
	Rank        int     `json:"rank"`
	Similarity  float64 `json:"similarity_score"`
	FusionScore float64 `json:"fusion_score,omitempty"`
	TokenCount  int     `json:"token_count"`
	Text        string  `json:"text"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Medical Transplant RAG API",
		"version": Version,
		"health":  "/api/v1/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ports.Answer.Health(r.Context()))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.auth.TTL().Seconds()),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	answer, err := s.ports.Answer.Answer(r.Context(), req.answerRequest())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newQueryResponse(answer, subject(r)))
}

// handleQueryStream writes the answer as server-sent events.
// Errors before the first event use a normal JSON error response.
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readQuery(w, r)
	if !ok {
		return
	}

	events, err := s.ports.Answer.AnswerStream(r.Context(), req.answerRequest())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for ev := range events {
		data, err := json.Marshal(newStreamEvent(ev))
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		rc.Flush() //nolint:errcheck // best effort, unbuffered writers need no flush
	}
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readQuery(w, r)
	if !ok {
		return
	}
	query, err := domain.ValidateQuery(req.Query)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := s.ports.Retriever.Retrieve(r.Context(), query, domain.RetrieveOptions{
		TopK:    req.TopK,
		Filters: domain.Filters{Topic: req.Topic, Tier: req.Tier},
		Hybrid:  req.Hybrid,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := RetrieveResponse{
		Query:         query,
		Chunks:        make([]RetrievedChunk, len(result.Chunks)),
		TotalTokens:   result.TotalTokens,
		RetrievalTime: seconds(result.Elapsed),
	}
	for i := range result.Chunks {
		c := &result.Chunks[i]
		resp.Chunks[i] = RetrievedChunk{
			ID:          c.ID,
			Document:    c.DocTitle,
			Section:     c.SectionTitle,
			Topic:       c.Topic,
			Tier:        c.Tier,
			Rank:        c.Rank,
			Similarity:  c.Similarity,
			FusionScore: c.FusionScore,
			TokenCount:  c.TokenCount,
			Text:        c.Text,
		}
	}
	if s.ports.Scorer != nil {
		conf := s.ports.Scorer.ScoreConfidence(result.Chunks)
		resp.Confidence = conf.Label.String()
		resp.ConfidenceScore = conf.Score
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) readQuery(w http.ResponseWriter, r *http.Request) (*QueryRequest, bool) {
	var req QueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return nil, false
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return nil, false
	}
	return &req, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid JSON body: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

func subject(r *http.Request) string {
	if claims, ok := ClaimsFrom(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

func seconds(d time.Duration) float64 {
	return float64(d.Round(time.Millisecond)) / float64(time.Second)
}
