package list

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func sources(n int) []domain.Source {
	out := make([]domain.Source, n)
	for i := range n {
		out[i] = domain.Source{
			Document:   fmt.Sprintf("guideline_%d.txt", i),
			Section:    "Dosing",
			Similarity: 0.9 - float64(i)*0.1,
		}
	}
	return out
}

func TestNewSourceList(t *testing.T) {
	l := NewSourceList(nil)

	require.NotNil(t, l)
	assert.NotNil(t, l.styles)
	assert.True(t, l.IsEmpty())
	assert.Equal(t, 80, l.Width())
	assert.Equal(t, 10, l.Height())
}

func TestSourceList_InitUpdate(t *testing.T) {
	l := NewSourceList(nil)

	assert.Nil(t, l.Init())
	updated, cmd := l.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, l, updated)
	assert.Nil(t, cmd)
}

func TestSourceList_ViewEmpty(t *testing.T) {
	assert.Contains(t, NewSourceList(nil).View(), "No sources")
}

func TestSourceList_View(t *testing.T) {
	l := NewSourceList(nil)
	l.SetSources(sources(2))

	view := l.View()

	assert.Contains(t, view, "Sources (2)")
	assert.Contains(t, view, "[1] guideline_0.txt › Dosing")
	assert.Contains(t, view, "0.90")
	assert.Contains(t, view, "[2] guideline_1.txt")
}

func TestSourceList_ViewOverflow(t *testing.T) {
	l := NewSourceList(nil)
	l.SetDimensions(80, 4)
	l.SetSources(sources(5))

	view := l.View()

	assert.Contains(t, view, "[2]")
	assert.NotContains(t, view, "[3]")
	assert.Contains(t, view, "3 more")
}

func TestSourceList_Scroll(t *testing.T) {
	l := NewSourceList(nil)
	l.SetDimensions(80, 4) // two visible rows
	l.SetSources(sources(3))

	l.ScrollUp()
	assert.Equal(t, 0, l.Offset())

	l.ScrollDown()
	assert.Equal(t, 1, l.Offset())

	l.ScrollDown()
	assert.Equal(t, 1, l.Offset(), "last source is already visible")

	l.SetSources(sources(3))
	assert.Equal(t, 0, l.Offset())
}

func TestSourceList_Count(t *testing.T) {
	l := NewSourceList(nil)
	l.SetSources(sources(3))

	assert.Equal(t, 3, l.Count())
	assert.Len(t, l.Sources(), 3)
	assert.False(t, l.IsEmpty())
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated", 5, "trun…"},
		{"ciclosporin", 1, "c"},
		{"héparine", 4, "hép…"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}
