package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func resultWithDocs(docs ...[2]string) *domain.RetrievalResult {
	r := &domain.RetrievalResult{}
	for i, d := range docs {
		r.Chunks = append(r.Chunks, domain.RetrievedChunk{
			Chunk: domain.Chunk{ID: d[0] + ":chunk", DocID: d[0], DocTitle: d[1]},
			Rank:  i + 1,
		})
	}
	return r
}

func TestEvaluationService_Evaluate(t *testing.T) {
	retriever := &mockRetriever{
		results: map[string]*domain.RetrievalResult{
			"What is acute rejection?": resultWithDocs(
				[2]string{"01_immunology", "Organ Transplantation Immunology"},
				[2]string{"02_acute_rejection", "Acute Rejection"},
				[2]string{"02_acute_rejection", "Acute Rejection"},
				[2]string{"13_kidney_rejection", "Kidney Transplant - Acute Rejection"},
			),
			"How does tacrolimus work?": resultWithDocs(
				[2]string{"04_immunosuppressive_drugs", "Immunosuppressive Drugs"},
			),
		},
		errFor: map[string]error{"What is a crossmatch?": errors.New("timeout")},
	}
	svc := NewEvaluationService(retriever)

	cases := []domain.EvalCase{
		{
			Question:     "What is acute rejection?",
			RelevantDocs: []string{"02_acute_rejection", "Kidney Transplant - Acute Rejection"},
			Category:     "rejection",
		},
		{
			Question:     "How does tacrolimus work?",
			RelevantDocs: []string{"04_immunosuppressive_drugs"},
			Category:     "immunosuppression",
		},
		{
			Question:     "What is a crossmatch?",
			RelevantDocs: []string{"01_immunology"},
			Category:     "immunology",
		},
	}

	report, err := svc.Evaluate(context.Background(), cases, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, report.K)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 1, report.Failed)

	rejection := report.Results[0]
	assert.Equal(t, []string{"01_immunology", "02_acute_rejection", "13_kidney_rejection"}, rejection.RetrievedDocs)
	assert.InDelta(t, 2.0/3, rejection.PrecisionAtK, 1e-9)
	assert.InDelta(t, 1.0, rejection.RecallAtK, 1e-9)
	assert.InDelta(t, 0.5, rejection.MRR, 1e-9)

	tacrolimus := report.Results[1]
	assert.InDelta(t, 1.0, tacrolimus.PrecisionAtK, 1e-9)
	assert.InDelta(t, 1.0, tacrolimus.RecallAtK, 1e-9)
	assert.InDelta(t, 1.0, tacrolimus.MRR, 1e-9)

	assert.Equal(t, "timeout", report.Results[2].Error)

	assert.InDelta(t, (2.0/3+1)/2, report.MeanPrecisionAtK, 1e-9)
	assert.InDelta(t, 1.0, report.MeanRecallAtK, 1e-9)
	assert.InDelta(t, 0.75, report.MeanMRR, 1e-9)
	assert.Equal(t, map[string]float64{"rejection": 0.5, "immunosuppression": 1}, report.ByCategory)

	for _, call := range retriever.calls {
		assert.Equal(t, 3, call.TopK)
	}
}

func TestEvaluationService_Evaluate_Defaults(t *testing.T) {
	retriever := &mockRetriever{}
	svc := NewEvaluationService(retriever)

	_, err := svc.Evaluate(context.Background(), nil, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	report, err := svc.Evaluate(context.Background(), []domain.EvalCase{{Question: "Anything relevant?"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultEvalK, report.K)
	assert.Zero(t, report.Results[0].PrecisionAtK)
	assert.Zero(t, report.Results[0].RecallAtK)
}

func TestEvaluationService_Evaluate_Cancelled(t *testing.T) {
	svc := NewEvaluationService(&mockRetriever{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Evaluate(ctx, []domain.EvalCase{{Question: "q"}}, 3)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrievalMetrics(t *testing.T) {
	matched := []bool{false, true, false, true}

	assert.InDelta(t, 1.0/3, PrecisionAtK(matched, 3), 1e-9)
	assert.InDelta(t, 0.5, PrecisionAtK(matched, 10), 1e-9)
	assert.Zero(t, PrecisionAtK(nil, 3))

	assert.InDelta(t, 0.5, RecallAtK(matched, 2, 2), 1e-9)
	assert.InDelta(t, 1.0, RecallAtK(matched, 2, 4), 1e-9)
	assert.Zero(t, RecallAtK(matched, 0, 4))

	assert.InDelta(t, 0.5, ReciprocalRank(matched), 1e-9)
	assert.Zero(t, ReciprocalRank([]bool{false, false}))
}

func TestPercentile(t *testing.T) {
	ms := time.Millisecond
	sorted := []time.Duration{10 * ms, 20 * ms, 30 * ms, 40 * ms}

	assert.Equal(t, 25*ms, Percentile(sorted, 50))
	assert.Equal(t, 10*ms, Percentile(sorted, 0))
	assert.Equal(t, 40*ms, Percentile(sorted, 100))
	assert.InDelta(t, float64(38500*time.Microsecond), float64(Percentile(sorted, 95)), float64(time.Microsecond))
	assert.Equal(t, 7*ms, Percentile([]time.Duration{7 * ms}, 95))
	assert.Zero(t, Percentile(nil, 50))
}
