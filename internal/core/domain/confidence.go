package domain

// ConfidenceLabel is the discrete answer-confidence bucket.
type ConfidenceLabel string

// Confidence labels.
const (
	ConfidenceLow    ConfidenceLabel = "Low"
	ConfidenceMedium ConfidenceLabel = "Medium"
	ConfidenceHigh   ConfidenceLabel = "High"
)

// String returns the string representation.
func (l ConfidenceLabel) String() string {
	return string(l)
}

// Confidence is the calibrated signal derived from a ranked chunk set.
type Confidence struct {
	// Label is the discrete bucket.
	Label ConfidenceLabel

	// Score is in [0, 1].
	Score float64
}
