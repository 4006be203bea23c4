package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Tag defaults when no lookup entry matches.
const (
	DefaultTopic = "general"
	DefaultTier  = "unknown"
)

// topicKeywords maps a topic to title keywords. Order matters: the first match wins.
var topicKeywords = []struct {
	topic    string
	keywords []string
}{
	{"kidney", []string{"kidney", "renal"}},
	{"liver", []string{"liver", "hepat"}},
	{"heart", []string{"heart", "cardiac"}},
	{"lung", []string{"lung", "pulmonary"}},
	{"pancreas", []string{"pancreas", "islet"}},
	{"intestine", []string{"intestine", "bowel"}},
}

// tierRanges maps document numbers to tiers. Numbers above the last range are emerging topics.
var tierRanges = []struct {
	low, high int
	tier      string
}{
	{1, 10, "Tier 1: Foundational"},
	{11, 18, "Tier 2: Kidney"},
	{19, 26, "Tier 3: Liver"},
	{27, 35, "Tier 4: Heart/Lung"},
	{36, 42, "Tier 5: Pancreas/Intestine"},
}

const tierEmerging = "Tier 6: Emerging"

var firstNumber = regexp.MustCompile(`\d+`)

// TopicForTitle infers a topic category from keywords in a document title.
func TopicForTitle(title string) string {
	lower := strings.ToLower(title)
	for _, entry := range topicKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.topic
			}
		}
	}
	return DefaultTopic
}

// TierForID infers a priority tier from the first number embedded in a document ID.
func TierForID(docID string) string {
	match := firstNumber.FindString(docID)
	if match == "" {
		return DefaultTier
	}
	n, err := strconv.Atoi(match)
	if err != nil || n <= 0 {
		return DefaultTier
	}
	for _, r := range tierRanges {
		if n >= r.low && n <= r.high {
			return r.tier
		}
	}
	return tierEmerging
}

// AllTopics returns every topic the lookup can produce, including the default.
func AllTopics() []string {
	topics := make([]string, 0, len(topicKeywords)+1)
	for _, entry := range topicKeywords {
		topics = append(topics, entry.topic)
	}
	return append(topics, DefaultTopic)
}
