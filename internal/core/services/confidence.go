package services

import (
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// Ensure ConfidenceScorer implements the interface.
var _ driving.ConfidenceScorer = (*ConfidenceScorer)(nil)

// Confidence formula weights and label cut-offs.
const (
	weightAvg    = 0.6
	weightTop    = 0.3
	weightSpread = 0.1

	highScoreCutoff   = 0.70
	highTopCutoff     = 0.75
	mediumScoreCutoff = 0.50
)

// ConfidenceScorer computes answer confidence from retrieval similarities.
type ConfidenceScorer struct {
	threshold float64
}

// NewConfidenceScorer creates a scorer gating at threshold.
func NewConfidenceScorer(threshold float64) *ConfidenceScorer {
	return &ConfidenceScorer{threshold: threshold}
}

// ScoreConfidence returns 0.6*avg + 0.3*top + 0.1*(1-spread) over chunk
// similarities, where top is the rank-1 similarity and spread is max-min.
func (s *ConfidenceScorer) ScoreConfidence(chunks []domain.RetrievedChunk) domain.Confidence {
	if len(chunks) == 0 {
		return domain.Confidence{Label: domain.ConfidenceLow, Score: 0}
	}

	top := chunks[0].Similarity
	minSim, maxSim, sum := top, top, 0.0
	for i := range chunks {
		sim := chunks[i].Similarity
		sum += sim
		if sim < minSim {
			minSim = sim
		}
		if sim > maxSim {
			maxSim = sim
		}
	}
	avg := sum / float64(len(chunks))

	spread := 0.0
	if len(chunks) >= 2 {
		spread = maxSim - minSim
	}

	score := weightAvg*avg + weightTop*top + weightSpread*(1-spread)
	return domain.Confidence{Label: label(score, top), Score: score}
}

func label(score, top float64) domain.ConfidenceLabel {
	switch {
	case score > highScoreCutoff && top > highTopCutoff:
		return domain.ConfidenceHigh
	case score > mediumScoreCutoff:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// Gate reports whether conf is below the configured threshold.
func (s *ConfidenceScorer) Gate(conf domain.Confidence) bool {
	return s.GateAt(conf, s.threshold)
}

// GateAt reports whether conf is below threshold.
func (s *ConfidenceScorer) GateAt(conf domain.Confidence, threshold float64) bool {
	return conf.Score < threshold
}

// Threshold returns the configured gate threshold.
func (s *ConfidenceScorer) Threshold() float64 {
	return s.threshold
}
