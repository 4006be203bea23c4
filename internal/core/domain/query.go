package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Query length bounds, in characters after trimming.
const (
	MinQueryLength = 5
	MaxQueryLength = 500
)

// prohibitedPhrases flag requests for personal medical advice.
var prohibitedPhrases = []string{
	"diagnose me",
	"prescribe",
	"what dose",
	"how much drug",
	"should i take",
	"medical advice",
	"replace my doctor",
}

// ValidateQuery trims a question and checks it is answerable.
// It returns the trimmed query.
func ValidateQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	n := utf8.RuneCountInString(q)
	if n < MinQueryLength {
		return "", fmt.Errorf("%w: query must be at least %d characters", ErrInvalidInput, MinQueryLength)
	}
	if n > MaxQueryLength {
		return "", fmt.Errorf("%w: query must be at most %d characters", ErrInvalidInput, MaxQueryLength)
	}

	lower := strings.ToLower(q)
	for _, phrase := range prohibitedPhrases {
		if strings.Contains(lower, phrase) {
			return "", ErrProhibitedQuery
		}
	}
	return q, nil
}
