package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicForTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Kidney Transplantation Overview", "kidney"},
		{"Renal Graft Function", "kidney"},
		{"Hepatitis B in Liver Recipients", "liver"},
		{"Cardiac Allograft Vasculopathy", "heart"},
		{"Pulmonary Rejection", "lung"},
		{"Islet Cell Transplantation", "pancreas"},
		{"Small Bowel Transplant", "intestine"},
		{"Immunosuppression Basics", "general"},
		{"", "general"},
		// first entry in lookup order wins
		{"Combined Liver-Kidney Transplant", "kidney"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, TopicForTitle(tt.title))
		})
	}
}

func TestTierForID(t *testing.T) {
	tests := []struct {
		id       string
		expected string
	}{
		{"01_intro", "Tier 1: Foundational"},
		{"10_hla", "Tier 1: Foundational"},
		{"11_kidney", "Tier 2: Kidney"},
		{"18_kidney", "Tier 2: Kidney"},
		{"19_liver", "Tier 3: Liver"},
		{"26_liver", "Tier 3: Liver"},
		{"27_heart", "Tier 4: Heart/Lung"},
		{"35_lung", "Tier 4: Heart/Lung"},
		{"36_pancreas", "Tier 5: Pancreas/Intestine"},
		{"42_bowel", "Tier 5: Pancreas/Intestine"},
		{"43_xeno", "Tier 6: Emerging"},
		{"doc_7_part_20", "Tier 1: Foundational"},
		{"no_number", "unknown"},
		{"00_zero", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.expected, TierForID(tt.id))
		})
	}
}

func TestAllTopics(t *testing.T) {
	topics := AllTopics()
	assert.Contains(t, topics, "kidney")
	assert.Contains(t, topics, DefaultTopic)
	assert.Equal(t, DefaultTopic, topics[len(topics)-1])
}
