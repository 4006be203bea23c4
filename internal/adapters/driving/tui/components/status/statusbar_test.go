package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
)

func TestNewBar(t *testing.T) {
	bar := NewBar(styles.DefaultStyles(), keymap.DefaultKeyMap())

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.SourceCount())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_InitUpdate(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Nil(t, bar.Init())
	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_SetAnswer(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetAnswer(&domain.Answer{
		Confidence: domain.ConfidenceHigh,
		Score:      0.81,
		Sources:    []domain.Source{{Document: "a"}, {Document: "b"}},
	})

	label, score := bar.Confidence()
	assert.Equal(t, domain.ConfidenceHigh, label)
	assert.InDelta(t, 0.81, score, 1e-9)
	assert.Equal(t, 2, bar.SourceCount())

	bar.SetAnswer(nil)
	assert.Equal(t, 2, bar.SourceCount(), "nil answer is ignored")
}

func TestStatusBar_View(t *testing.T) {
	answer := &domain.Answer{
		Confidence: domain.ConfidenceMedium,
		Score:      0.55,
		Sources:    []domain.Source{{Document: "a"}},
	}

	tests := []struct {
		name    string
		state   State
		message string
		want    []string
	}{
		{"ready", StateReady, "", []string{"Ready", "enter: ask"}},
		{"ready with message", StateReady, "12 chunks indexed", []string{"12 chunks indexed"}},
		{"retrieving", StateRetrieval, "", []string{"Retrieving...", "esc: back"}},
		{"streaming", StateStreaming, "", []string{"Medium 0.55", "Generating..."}},
		{"answered", StateAnswered, "", []string{"Medium 0.55", "1 source"}},
		{"gated", StateGated, "", []string{"insufficient evidence"}},
		{"error", StateError, "LLM unavailable", []string{"Error: LLM unavailable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(120)
			bar.SetMode(domain.AnswerModeClinical)
			bar.SetAnswer(answer)
			bar.SetState(tt.state)
			bar.SetMessage(tt.message)

			view := bar.View()

			assert.Contains(t, view, "[clinical]")
			for _, want := range tt.want {
				assert.Contains(t, view, want)
			}
		})
	}
}

func TestStatusBar_Hints(t *testing.T) {
	km := keymap.DefaultKeyMap()
	bar := NewBar(nil, km)

	assert.Len(t, bar.Hints(), len(km.ShortHelp()))

	bar.SetState(StateStreaming)
	assert.Len(t, bar.Hints(), len(km.StreamingHelp()))
}

func TestStatusBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetMode(domain.AnswerModeBrief)
	bar.SetState(StateError)
	bar.SetMessage("boom")
	bar.SetAnswer(&domain.Answer{Confidence: domain.ConfidenceLow, Sources: []domain.Source{{}}})

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.SourceCount())
	assert.Contains(t, bar.View(), "[brief]")
}

func TestStatusBar_Width(t *testing.T) {
	bar := NewBar(nil, nil)

	bar.SetWidth(42)

	assert.Equal(t, 42, bar.Width())
}
