package mcp

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// mockRetriever is a mock implementation of driving.RetrieverService.
type mockRetriever struct {
	result *domain.RetrievalResult
	err    error

	gotQuery string
	gotOpts  domain.RetrieveOptions
}

func (m *mockRetriever) Retrieve(
	_ context.Context,
	query string,
	opts domain.RetrieveOptions,
) (*domain.RetrievalResult, error) {
	m.gotQuery = query
	m.gotOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.RetrievalResult{Query: query}, nil
	}
	return m.result, nil
}

// mockScorer is a mock implementation of driving.ConfidenceScorer.
type mockScorer struct {
	conf      domain.Confidence
	threshold float64
}

func (m *mockScorer) ScoreConfidence(_ []domain.RetrievedChunk) domain.Confidence {
	return m.conf
}

func (m *mockScorer) Gate(conf domain.Confidence) bool {
	return m.GateAt(conf, m.threshold)
}

func (m *mockScorer) GateAt(conf domain.Confidence, threshold float64) bool {
	return conf.Score < threshold
}

func (m *mockScorer) Threshold() float64 {
	return m.threshold
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer  *domain.Answer
	queries []domain.QueryLogEntry
	err     error

	gotReq domain.AnswerRequest
}

func (m *mockAnswerService) Answer(_ context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	m.gotReq = req
	return m.answer, m.err
}

func (m *mockAnswerService) AnswerStream(_ context.Context, _ domain.AnswerRequest) (<-chan domain.AnswerEvent, error) {
	return nil, m.err
}

func (m *mockAnswerService) Health(_ context.Context) domain.HealthStatus {
	return domain.HealthStatus{Status: domain.HealthHealthy}
}

func (m *mockAnswerService) RecentQueries(_ context.Context, _ int) ([]domain.QueryLogEntry, error) {
	return m.queries, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	report *domain.BuildReport
	err    error
}

func (m *mockIndexService) Build(_ context.Context) (*domain.BuildReport, error) {
	return m.report, m.err
}

func (m *mockIndexService) Validate(_ context.Context) (*domain.ValidationReport, error) {
	return nil, m.err
}

func (m *mockIndexService) Stats(_ context.Context) (*domain.BuildReport, error) {
	return m.report, m.err
}

func newTestServer(ports *Ports) *Server {
	if ports.Retriever == nil {
		ports.Retriever = &mockRetriever{}
	}
	if ports.Scorer == nil {
		ports.Scorer = &mockScorer{threshold: 0.5}
	}
	server, err := NewServer(ports)
	if err != nil {
		panic(err)
	}
	return server
}

func sampleResult() *domain.RetrievalResult {
	return &domain.RetrievalResult{
		Query: "tacrolimus trough levels",
		Chunks: []domain.RetrievedChunk{
			{
				Chunk: domain.Chunk{
					ID:           "07_kidney:chunk_003",
					Text:         "Tacrolimus trough targets are 8-12 ng/mL early after transplant.",
					DocID:        "07_kidney",
					DocTitle:     "Kidney Transplant",
					SectionTitle: "Immunosuppression",
					Topic:        "kidney_transplant",
					Tier:         "tier1_core",
					TokenCount:   10,
				},
				Similarity: 0.82,
				Score:      0.82,
				Rank:       1,
			},
		},
		TotalTokens: 10,
	}
}
