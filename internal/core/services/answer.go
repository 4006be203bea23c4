package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/logger"
)

// Ensure AnswerService implements the interfaces.
var (
	_ driving.AnswerService   = (*AnswerService)(nil)
	_ driven.PromptStoreAware = (*AnswerService)(nil)
)

// User-facing outcomes that are not errors.
const (
	NoResultsMessage = "No relevant information found in the knowledge base."

	insufficientEvidenceFormat = "Insufficient evidence in knowledge base (confidence: %.2f < %.2f). " +
		"Please consult medical documentation or a specialist for this specific query."
)

const (
	maxSources     = 3
	previewRunes   = 200
	healthPingWait = 5 * time.Second
)

// Default prompts, used when no prompt store is set or a prompt fails to load.
const (
	defaultSystemPrompt = "You are a medical transplant expert assistant. " +
		"Answer the question based ONLY on the provided medical context."

	defaultAnswerPrompt = `Context from Medical Transplant Knowledge Base:

%s

---

Question: %s

Instructions:
- %s
- Include inline citations in format: (Source: [Document Name] - [Section])
- Be precise but recognize that practices may vary across institutions`
)

var defaultModeInstructions = map[domain.AnswerMode]string{
	domain.AnswerModeBrief: "Provide a concise 2-3 sentence answer focusing on the most critical information.",
	domain.AnswerModeClinical: "Provide a clear, clinical answer with bullet points for clarity. " +
		"Include key criteria, typical ranges, and acknowledge institutional variability when appropriate.",
	domain.AnswerModeDetailed: "Provide a comprehensive answer covering mechanisms, clinical implications, " +
		"variations, and relevant context. Use structured formatting.",
}

var modePromptNames = map[domain.AnswerMode]string{
	domain.AnswerModeBrief:    driven.PromptModeBrief,
	domain.AnswerModeClinical: driven.PromptModeClinical,
	domain.AnswerModeDetailed: driven.PromptModeDetailed,
}

// AnswerConfig holds defaults applied to zero-valued request fields.
type AnswerConfig struct {
	TopK        int
	Mode        domain.AnswerMode
	MaxTokens   int
	Temperature float64
}

// AnswerConfigFromSettings extracts answer defaults from application settings.
func AnswerConfigFromSettings(s *domain.AppSettings) AnswerConfig {
	return AnswerConfig{
		TopK:        s.Answer.TopK,
		Mode:        s.Answer.Mode,
		MaxTokens:   s.LLM.MaxTokens,
		Temperature: s.LLM.Temperature,
	}
}

// AnswerService retrieves evidence, gates on confidence and generates answers.
type AnswerService struct {
	retriever driving.RetrieverService
	scorer    driving.ConfidenceScorer
	llm       driven.LLMService
	cfg       AnswerConfig

	store       driven.VectorStore
	collection  string
	queryLog    driven.QueryLog
	promptStore driven.PromptStore

	now   func() time.Time
	newID func() string
}

// NewAnswerService creates an answer service.
// The LLM is optional: without it gated answers still work and other
// questions fail with ErrLLMUnavailable.
func NewAnswerService(
	retriever driving.RetrieverService,
	scorer driving.ConfidenceScorer,
	llm driven.LLMService,
	cfg AnswerConfig,
) *AnswerService {
	return &AnswerService{
		retriever: retriever,
		scorer:    scorer,
		llm:       llm,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetVectorStore enables index statistics in Health.
func (s *AnswerService) SetVectorStore(store driven.VectorStore, collection string) {
	s.store = store
	s.collection = collection
}

// SetQueryLog enables the per-query audit trail.
func (s *AnswerService) SetQueryLog(log driven.QueryLog) {
	s.queryLog = log
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the service uses hardcoded default prompts.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// prepared is the outcome of the synchronous steps shared by both answer paths.
type prepared struct {
	query     string
	mode      domain.AnswerMode
	opts      driven.ChatOptions
	result    *domain.RetrievalResult
	conf      domain.Confidence
	threshold float64
	gated     bool
	message   string
	retrieval time.Duration
}

// prepare validates, retrieves, scores and gates.
func (s *AnswerService) prepare(ctx context.Context, req domain.AnswerRequest) (*prepared, error) {
	query, err := domain.ValidateQuery(req.Query)
	if err != nil {
		return nil, err
	}
	if s.retriever == nil || s.scorer == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	p := &prepared{
		query:     query,
		mode:      s.cfg.Mode,
		threshold: s.scorer.Threshold(),
		opts: driven.ChatOptions{
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: s.cfg.Temperature,
		},
	}
	if req.Mode != "" {
		if !req.Mode.IsValid() {
			return nil, fmt.Errorf("%w: unknown answer mode %q", domain.ErrInvalidInput, req.Mode)
		}
		p.mode = req.Mode
	}
	if req.Threshold != nil {
		p.threshold = *req.Threshold
	}
	if req.MaxTokens > 0 {
		p.opts.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		p.opts.Temperature = *req.Temperature
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	logger.Section("Answer")
	logger.Debug("Query: %q, mode=%s, top_k=%d, threshold=%.2f", query, p.mode, topK, p.threshold)

	retrievalStart := s.now()
	p.result, err = s.retriever.Retrieve(ctx, query, domain.RetrieveOptions{TopK: topK, Filters: req.Filters, Hybrid: req.Hybrid})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	p.retrieval = s.now().Sub(retrievalStart)

	if p.result.IsEmpty() {
		p.conf = domain.Confidence{Label: domain.ConfidenceLow}
		p.gated = true
		p.message = NoResultsMessage
		logger.Info("No chunks retrieved, returning insufficient evidence")
		return p, nil
	}

	p.conf = s.scorer.ScoreConfidence(p.result.Chunks)
	if s.scorer.GateAt(p.conf, p.threshold) {
		p.gated = true
		p.message = fmt.Sprintf(insufficientEvidenceFormat, p.conf.Score, p.threshold)
		logger.Info("Confidence %.3f below threshold %.2f, skipping generation", p.conf.Score, p.threshold)
	}
	return p, nil
}

// answer builds the response skeleton from prepared state.
// Gated answers carry no sources.
func (s *AnswerService) answer(p *prepared) *domain.Answer {
	a := &domain.Answer{
		Query:         p.query,
		Confidence:    p.conf.Label,
		Score:         p.conf.Score,
		Gated:         p.gated,
		ChunksUsed:    len(p.result.Chunks),
		TotalTokens:   p.result.TotalTokens,
		Model:         s.modelName(),
		RetrievalTime: p.retrieval,
		Sources:       []domain.Source{},
	}
	if !p.gated {
		a.Sources = Sources(p.result.Chunks)
	}
	return a
}

// Answer runs the full pipeline and returns the complete answer.
func (s *AnswerService) Answer(ctx context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	start := s.now()

	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	a := s.answer(p)
	if p.gated {
		a.Text = p.message
		a.TotalTime = s.now().Sub(start)
		s.audit(ctx, a, false, "")
		return a, nil
	}

	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	genStart := s.now()
	text, err := s.llm.Chat(ctx, s.buildMessages(p), p.opts)
	if err != nil {
		a.TotalTime = s.now().Sub(start)
		s.audit(ctx, a, false, err.Error())
		return nil, fmt.Errorf("generate answer: %w: %w", domain.ErrLLMUnavailable, err)
	}

	a.Text = strings.TrimSpace(text)
	a.GenerationTime = s.now().Sub(genStart)
	a.TotalTime = s.now().Sub(start)
	logger.Info("Answered with %s confidence (%.3f) in %s", a.Confidence, a.Score, a.TotalTime)

	s.audit(ctx, a, false, "")
	return a, nil
}

// AnswerStream runs validation, retrieval and gating before returning, then
// streams metadata, tokens and one terminal event from a single goroutine.
// Cancelling ctx closes the channel without a terminal event.
func (s *AnswerService) AnswerStream(ctx context.Context, req domain.AnswerRequest) (<-chan domain.AnswerEvent, error) {
	start := s.now()

	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if !p.gated && s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	events := make(chan domain.AnswerEvent)
	go s.stream(ctx, p, start, events)
	return events, nil
}

func (s *AnswerService) stream(ctx context.Context, p *prepared, start time.Time, events chan<- domain.AnswerEvent) {
	defer close(events)

	send := func(ev domain.AnswerEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	meta := s.answer(p)
	if !send(domain.AnswerEvent{Type: domain.AnswerEventMetadata, Answer: meta}) {
		return
	}

	if p.gated {
		done := *meta
		done.Text = p.message
		done.TotalTime = s.now().Sub(start)
		ev := domain.AnswerEvent{Type: domain.AnswerEventDone, Message: p.message, Answer: &done, Done: true}
		if send(ev) {
			s.audit(ctx, &done, true, "")
		}
		return
	}

	genStart := s.now()
	var text strings.Builder
	err := s.llm.ChatStream(ctx, s.buildMessages(p), p.opts, func(token string) error {
		if !send(domain.AnswerEvent{Type: domain.AnswerEventToken, Content: token}) {
			return ctx.Err()
		}
		text.WriteString(token)
		return nil
	})

	done := *meta
	done.Text = text.String()
	done.GenerationTime = s.now().Sub(genStart)
	done.TotalTime = s.now().Sub(start)

	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("Stream cancelled by caller: %v", ctx.Err())
			return
		}
		logger.Warn("Streaming generation failed: %v", err)
		ev := domain.AnswerEvent{Type: domain.AnswerEventError, Message: err.Error(), Done: true}
		if send(ev) {
			s.audit(ctx, &done, true, err.Error())
		}
		return
	}

	if send(domain.AnswerEvent{Type: domain.AnswerEventDone, Answer: &done, Done: true}) {
		s.audit(ctx, &done, true, "")
	}
}

// Health reports readiness of the index and the LLM.
func (s *AnswerService) Health(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{Status: domain.HealthUnhealthy}

	reachable := false
	if s.store != nil {
		n, err := s.indexedChunks(ctx)
		if err != nil {
			status.Error = err.Error()
		} else {
			reachable = true
			status.ChunksIndexed = n
			status.StoreConnected = n > 0
		}
	} else {
		status.Error = domain.ErrVectorStoreUnavailable.Error()
	}

	if s.llm != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthPingWait)
		status.ModelAvailable = s.llm.Ping(pingCtx) == nil
		cancel()
	}

	switch {
	case !reachable:
		status.Status = domain.HealthUnhealthy
	case status.StoreConnected && status.ModelAvailable:
		status.Status = domain.HealthHealthy
	default:
		status.Status = domain.HealthDegraded
	}
	return status
}

func (s *AnswerService) indexedChunks(ctx context.Context) (int, error) {
	collection, err := s.store.Resolve(ctx, s.collection)
	if errors.Is(err, domain.ErrCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.store.Count(ctx, collection)
}

// RecentQueries returns up to limit audit entries, newest first.
func (s *AnswerService) RecentQueries(ctx context.Context, limit int) ([]domain.QueryLogEntry, error) {
	if s.queryLog == nil {
		return []domain.QueryLogEntry{}, nil
	}
	return s.queryLog.Recent(ctx, limit)
}

// buildMessages renders the system and user prompts for a prepared query.
func (s *AnswerService) buildMessages(p *prepared) []driven.ChatMessage {
	instruction := s.loadPrompt(modePromptNames[p.mode], defaultModeInstructions[p.mode])
	template := s.loadPrompt(driven.PromptAnswer, defaultAnswerPrompt)

	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: s.loadPrompt(driven.PromptSystem, defaultSystemPrompt)},
		{Role: driven.RoleUser, Content: fmt.Sprintf(template, p.result.FormatContext(), p.query, instruction)},
	}
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (s *AnswerService) loadPrompt(name, fallback string) string {
	if s.promptStore == nil {
		return fallback
	}
	prompt, err := s.promptStore.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}

func (s *AnswerService) modelName() string {
	if s.llm == nil {
		return ""
	}
	return s.llm.ModelName()
}

// audit records the outcome. Failures are logged, never returned.
func (s *AnswerService) audit(ctx context.Context, a *domain.Answer, streamed bool, errMsg string) {
	if s.queryLog == nil {
		return
	}
	entry := &domain.QueryLogEntry{
		ID:         s.newID(),
		Timestamp:  s.now().UTC(),
		Query:      a.Query,
		Confidence: a.Confidence,
		Score:      a.Score,
		ChunksUsed: a.ChunksUsed,
		TotalTime:  a.TotalTime,
		Model:      a.Model,
		Gated:      a.Gated,
		Streamed:   streamed,
		Error:      errMsg,
	}
	if err := s.queryLog.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("Failed to record query audit: %v", err)
	}
}

// Sources returns citations for the top chunks with a short text preview.
func Sources(chunks []domain.RetrievedChunk) []domain.Source {
	n := len(chunks)
	if n > maxSources {
		n = maxSources
	}
	sources := make([]domain.Source, n)
	for i := 0; i < n; i++ {
		c := &chunks[i]
		sources[i] = domain.Source{
			Document:    c.DocTitle,
			Section:     c.SectionTitle,
			Topic:       c.Topic,
			Similarity:  c.Similarity,
			TokenCount:  c.TokenCount,
			TextPreview: Preview(c.Text, previewRunes),
		}
	}
	return sources
}

// Preview truncates text to n runes, marking the cut with "...".
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
