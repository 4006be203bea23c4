package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// MockSettingsService implements driving.SettingsService for CLI tests.
type MockSettingsService struct {
	Settings    *domain.AppSettings
	GetErr      error
	SetErr      error
	ValidateErr error
	PingErr     error

	Sets      map[string]string
	Embedding []string
	LLM       []string
}

func newMockSettingsService() *MockSettingsService {
	s := domain.DefaultAppSettings()
	return &MockSettingsService{Settings: &s, Sets: make(map[string]string)}
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Settings, nil
}

func (m *MockSettingsService) Set(key, value string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Sets[key] = value
	return nil
}

func (m *MockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.Embedding = []string{provider.String(), model, apiKey}
	return nil
}

func (m *MockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.LLM = []string{provider.String(), model, apiKey}
	return nil
}

func (m *MockSettingsService) Validate() error {
	return m.ValidateErr
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *MockSettingsService) Keys() []string {
	return []string{"answer.mode", "retrieval.hybrid"}
}

func (m *MockSettingsService) ValidateEmbeddingConfig(context.Context) error {
	return m.PingErr
}

func (m *MockSettingsService) ValidateLLMConfig(context.Context) error {
	return m.PingErr
}

// MockRetrieverService implements driving.RetrieverService.
type MockRetrieverService struct {
	Result *domain.RetrievalResult
	Err    error

	GotQuery string
	GotOpts  domain.RetrieveOptions
}

func (m *MockRetrieverService) Retrieve(
	_ context.Context, query string, opts domain.RetrieveOptions,
) (*domain.RetrievalResult, error) {
	m.GotQuery = query
	m.GotOpts = opts
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &domain.RetrievalResult{Query: query, Chunks: testChunks(), TotalTokens: 420, Elapsed: 35 * time.Millisecond}, nil
}

// MockConfidenceScorer implements driving.ConfidenceScorer with a fixed result.
type MockConfidenceScorer struct {
	Conf domain.Confidence
}

func (m *MockConfidenceScorer) ScoreConfidence(_ []domain.RetrievedChunk) domain.Confidence {
	return m.Conf
}

func (m *MockConfidenceScorer) Gate(conf domain.Confidence) bool {
	return m.GateAt(conf, m.Threshold())
}

func (m *MockConfidenceScorer) GateAt(conf domain.Confidence, threshold float64) bool {
	return conf.Score < threshold
}

func (m *MockConfidenceScorer) Threshold() float64 {
	return 0.5
}

// MockAnswerService implements driving.AnswerService.
type MockAnswerService struct {
	Result    *domain.Answer
	Err       error
	Events    []domain.AnswerEvent
	StreamErr error
	Entries   []domain.QueryLogEntry
	Status    domain.HealthStatus

	GotReq   domain.AnswerRequest
	GotLimit int
}

func (m *MockAnswerService) Answer(_ context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	m.GotReq = req
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return testAnswer(), nil
}

func (m *MockAnswerService) AnswerStream(_ context.Context, req domain.AnswerRequest) (<-chan domain.AnswerEvent, error) {
	m.GotReq = req
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	ch := make(chan domain.AnswerEvent, len(m.Events))
	for _, ev := range m.Events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *MockAnswerService) Health(_ context.Context) domain.HealthStatus {
	return m.Status
}

func (m *MockAnswerService) RecentQueries(_ context.Context, limit int) ([]domain.QueryLogEntry, error) {
	m.GotLimit = limit
	return m.Entries, m.Err
}

// MockIndexService implements driving.IndexService.
type MockIndexService struct {
	Report      *domain.BuildReport
	BuildErr    error
	Validation  *domain.ValidationReport
	ValidateErr error
	StatsErr    error

	// FailFrom makes BuildErr apply from this build on (1-based). Zero fails every build.
	FailFrom int

	Builds    int
	Validated int
}

func (m *MockIndexService) Build(_ context.Context) (*domain.BuildReport, error) {
	m.Builds++
	if m.BuildErr != nil && m.Builds >= m.FailFrom {
		return nil, m.BuildErr
	}
	return m.report(), nil
}

func (m *MockIndexService) Validate(_ context.Context) (*domain.ValidationReport, error) {
	m.Validated++
	if m.ValidateErr != nil {
		return nil, m.ValidateErr
	}
	if m.Validation != nil {
		return m.Validation, nil
	}
	return &domain.ValidationReport{
		Collection:    "medical_kb__gen1",
		Chunks:        120,
		SampleQuery:   "What are the immunosuppressive drugs?",
		SampleHits:    3,
		SamplePreview: "Tacrolimus is the backbone of maintenance therapy...",
	}, nil
}

func (m *MockIndexService) Stats(_ context.Context) (*domain.BuildReport, error) {
	if m.StatsErr != nil {
		return nil, m.StatsErr
	}
	return m.report(), nil
}

func (m *MockIndexService) report() *domain.BuildReport {
	if m.Report != nil {
		return m.Report
	}
	return &domain.BuildReport{
		ID:                "build-1",
		Collection:        "medical_kb",
		Documents:         4,
		Chunks:            120,
		TotalTokens:       36000,
		AvgChunkTokens:    300,
		MedianChunkTokens: 310,
		MinChunkTokens:    100,
		MaxChunkTokens:    498,
		TopicCounts:       map[string]int{"immunosuppression": 70, "infection": 50},
		TierCounts:        map[string]int{"tier_1": 120},
		TotalWords:        27000,
		StartedAt:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Elapsed:           2 * time.Second,
	}
}

// MockEvaluationService implements driving.EvaluationService.
type MockEvaluationService struct {
	Report *domain.EvalReport
	Err    error

	GotCases []domain.EvalCase
	GotK     int
}

func (m *MockEvaluationService) Evaluate(_ context.Context, cases []domain.EvalCase, k int) (*domain.EvalReport, error) {
	m.GotCases = cases
	m.GotK = k
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Report != nil {
		return m.Report, nil
	}
	return &domain.EvalReport{
		K: k,
		Results: []domain.EvalCaseResult{
			{Case: cases[0], PrecisionAtK: 0.4, RecallAtK: 1, MRR: 1, Latency: 40 * time.Millisecond},
		},
		MeanPrecisionAtK: 0.4,
		MeanRecallAtK:    1,
		MeanMRR:          1,
		LatencyP50:       40 * time.Millisecond,
		LatencyP95:       40 * time.Millisecond,
		ByCategory:       map[string]float64{"immunosuppression": 1},
	}, nil
}

// MockEvalSetLoader implements driven.EvalSetLoader.
type MockEvalSetLoader struct {
	Cases []domain.EvalCase
	Err   error

	GotPath string
}

func (m *MockEvalSetLoader) Load(path string) ([]domain.EvalCase, error) {
	m.GotPath = path
	return m.Cases, m.Err
}

// MockExporter implements driven.AnswerExporter.
type MockExporter struct{}

func (m *MockExporter) Export(w io.Writer, answer *domain.Answer) error {
	_, err := fmt.Fprintf(w, "<html>%s</html>", answer.Text)
	return err
}

func (m *MockExporter) Extension() string {
	return ".html"
}

// MockCorpusWatcher implements driven.CorpusWatcher with a fixed set of changes.
type MockCorpusWatcher struct {
	Changes []domain.CorpusChange
	Err     error
}

func (m *MockCorpusWatcher) Watch(_ context.Context) (<-chan domain.CorpusChange, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	ch := make(chan domain.CorpusChange, len(m.Changes))
	for _, c := range m.Changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func testChunks() []domain.RetrievedChunk {
	return []domain.RetrievedChunk{
		{
			Chunk: domain.Chunk{
				ID:           "kidney:chunk_000",
				Text:         "Tacrolimus trough targets are 5-10 ng/mL in the first year.",
				DocID:        "kidney",
				DocTitle:     "Kidney Transplant Guidelines",
				SectionTitle: "Immunosuppression",
				TokenCount:   240,
				Topic:        "immunosuppression",
				Tier:         "tier_1",
			},
			Similarity: 0.82,
			Rank:       1,
		},
		{
			Chunk: domain.Chunk{
				ID:           "liver:chunk_004",
				Text:         "CMV prophylaxis with valganciclovir for high risk recipients.",
				DocID:        "liver",
				DocTitle:     "Liver Transplant Guidelines",
				SectionTitle: "Infection Prophylaxis",
				TokenCount:   180,
			},
			Similarity: 0.71,
			Rank:       2,
		},
	}
}

func testAnswer() *domain.Answer {
	return &domain.Answer{
		Query:      "What is the tacrolimus trough target?",
		Text:       "Target 5-10 ng/mL in the first year (Source: Kidney Transplant Guidelines - Immunosuppression).",
		Confidence: domain.ConfidenceHigh,
		Score:      0.82,
		Sources: []domain.Source{
			{Document: "Kidney Transplant Guidelines", Section: "Immunosuppression", Similarity: 0.82},
		},
		ChunksUsed:     2,
		Model:          "gemma3:1b",
		RetrievalTime:  40 * time.Millisecond,
		GenerationTime: 1200 * time.Millisecond,
		TotalTime:      1240 * time.Millisecond,
	}
}
