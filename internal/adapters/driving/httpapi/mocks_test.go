package httpapi

import (
	"context"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

type mockAnswerService struct {
	answer *domain.Answer
	events []domain.AnswerEvent
	health domain.HealthStatus
	err    error

	gotReq domain.AnswerRequest
}

func (m *mockAnswerService) Answer(_ context.Context, req domain.AnswerRequest) (*domain.Answer, error) {
	m.gotReq = req
	return m.answer, m.err
}

func (m *mockAnswerService) AnswerStream(_ context.Context, req domain.AnswerRequest) (<-chan domain.AnswerEvent, error) {
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan domain.AnswerEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *mockAnswerService) Health(_ context.Context) domain.HealthStatus {
	return m.health
}

func (m *mockAnswerService) RecentQueries(_ context.Context, _ int) ([]domain.QueryLogEntry, error) {
	return nil, m.err
}

type mockRetriever struct {
	result *domain.RetrievalResult
	err    error

	gotOpts domain.RetrieveOptions
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, opts domain.RetrieveOptions) (*domain.RetrievalResult, error) {
	m.gotOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.RetrievalResult{Query: query}, nil
	}
	return m.result, nil
}

type mockScorer struct {
	conf domain.Confidence
}

func (m *mockScorer) ScoreConfidence(_ []domain.RetrievedChunk) domain.Confidence { return m.conf }
func (m *mockScorer) Gate(conf domain.Confidence) bool { return conf.Score < 0.5 }
func (m *mockScorer) GateAt(conf domain.Confidence, t float64) bool { return conf.Score < t }
func (m *mockScorer) Threshold() float64 { return 0.5 }
