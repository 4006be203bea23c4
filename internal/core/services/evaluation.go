package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/logger"
)

// Ensure EvaluationService implements the interface.
var _ driving.EvaluationService = (*EvaluationService)(nil)

// DefaultEvalK is the cutoff used when none is given.
const DefaultEvalK = 3

// EvaluationService measures retrieval quality against labelled questions.
type EvaluationService struct {
	retriever driving.RetrieverService
	now       func() time.Time
}

// NewEvaluationService creates an evaluation service.
func NewEvaluationService(retriever driving.RetrieverService) *EvaluationService {
	return &EvaluationService{
		retriever: retriever,
		now:       time.Now,
	}
}

// Evaluate runs every case through the retriever and scores the retrieved
// documents. A case whose retrieval fails is reported and excluded from the
// aggregates.
func (s *EvaluationService) Evaluate(ctx context.Context, cases []domain.EvalCase, k int) (*domain.EvalReport, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: evaluation set is empty", domain.ErrInvalidInput)
	}
	if s.retriever == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	if k <= 0 {
		k = DefaultEvalK
	}

	logger.Section("Evaluation")
	report := &domain.EvalReport{
		K:          k,
		Results:    make([]domain.EvalCaseResult, 0, len(cases)),
		ByCategory: make(map[string]float64),
	}

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := s.now()
		result, err := s.retriever.Retrieve(ctx, c.Question, domain.RetrieveOptions{TopK: k})
		latency := s.now().Sub(start)
		if err != nil {
			logger.Warn("Evaluation query failed: %q: %v", c.Question, err)
			report.Results = append(report.Results, domain.EvalCaseResult{Case: c, Latency: latency, Error: err.Error()})
			report.Failed++
			continue
		}

		retrieved, matched := retrievedDocs(result, c.RelevantDocs)
		r := domain.EvalCaseResult{
			Case:          c,
			RetrievedDocs: retrieved,
			PrecisionAtK:  PrecisionAtK(matched, k),
			RecallAtK:     RecallAtK(matched, len(uniqueFold(c.RelevantDocs)), k),
			MRR:           ReciprocalRank(matched),
			Latency:       latency,
		}
		logger.Debug("P@%d=%.3f R@%d=%.3f MRR=%.3f %q", k, r.PrecisionAtK, k, r.RecallAtK, r.MRR, c.Question)
		report.Results = append(report.Results, r)
	}

	aggregate(report)
	return report, nil
}

// retrievedDocs lists distinct documents in rank order and whether each is
// relevant. A relevant entry matches a document by ID or title, ignoring case.
func retrievedDocs(result *domain.RetrievalResult, relevant []string) ([]string, []bool) {
	want := uniqueFold(relevant)
	seen := make(map[string]bool, len(result.Chunks))
	var ids []string
	var matched []bool
	for i := range result.Chunks {
		c := &result.Chunks[i]
		if seen[c.DocID] {
			continue
		}
		seen[c.DocID] = true
		ids = append(ids, c.DocID)
		matched = append(matched, want[strings.ToLower(c.DocID)] || want[strings.ToLower(c.DocTitle)])
	}
	return ids, matched
}

func uniqueFold(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}

// PrecisionAtK is the fraction of the top k retrieved documents that are relevant.
func PrecisionAtK(matched []bool, k int) float64 {
	if len(matched) == 0 || k <= 0 {
		return 0
	}
	top := matched[:min(k, len(matched))]
	return float64(countTrue(top)) / float64(len(top))
}

// RecallAtK is the fraction of relevant documents found in the top k.
func RecallAtK(matched []bool, relevant, k int) float64 {
	if relevant == 0 || k <= 0 {
		return 0
	}
	top := matched[:min(k, len(matched))]
	return float64(countTrue(top)) / float64(relevant)
}

// ReciprocalRank is 1/rank of the first relevant document, or 0.
func ReciprocalRank(matched []bool) float64 {
	for i, m := range matched {
		if m {
			return 1 / float64(i+1)
		}
	}
	return 0
}

func countTrue(values []bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}

// aggregate fills means, latency percentiles and per-category MRR.
func aggregate(report *domain.EvalReport) {
	var latencies []time.Duration
	categorySum := make(map[string]float64)
	categoryN := make(map[string]int)

	for _, r := range report.Results {
		if r.Error != "" {
			continue
		}
		report.MeanPrecisionAtK += r.PrecisionAtK
		report.MeanRecallAtK += r.RecallAtK
		report.MeanMRR += r.MRR
		latencies = append(latencies, r.Latency)
		if r.Case.Category != "" {
			categorySum[r.Case.Category] += r.MRR
			categoryN[r.Case.Category]++
		}
	}

	n := len(latencies)
	if n == 0 {
		return
	}
	report.MeanPrecisionAtK /= float64(n)
	report.MeanRecallAtK /= float64(n)
	report.MeanMRR /= float64(n)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	report.LatencyP50 = Percentile(latencies, 50)
	report.LatencyP95 = Percentile(latencies, 95)

	for cat, sum := range categorySum {
		report.ByCategory[cat] = sum / float64(categoryN[cat])
	}
}

// Percentile interpolates linearly between the closest ranks of sorted.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + time.Duration(frac*float64(sorted[hi]-sorted[lo]))
}
