// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
)

// SourceList displays the citations attached to an answer.
type SourceList struct {
	sources []domain.Source
	offset  int
	styles  *styles.Styles
	width   int
	height  int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the source list.
func (l *SourceList) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the chat view scrolls the list explicitly.
func (l *SourceList) Update(_ tea.Msg) (*SourceList, tea.Cmd) {
	return l, nil
}

// View renders the source list.
func (l *SourceList) View() string {
	if len(l.sources) == 0 {
		return l.styles.Muted.Render("No sources")
	}

	lines := make([]string, 0, len(l.sources)+1)
	lines = append(lines, l.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(l.sources))))

	end := min(l.offset+l.visible(), len(l.sources))
	for i := l.offset; i < end; i++ {
		lines = append(lines, l.renderSource(i, &l.sources[i]))
	}
	if end < len(l.sources) {
		lines = append(lines, l.styles.Muted.Render(fmt.Sprintf("  … %d more", len(l.sources)-end)))
	}

	return strings.Join(lines, "\n")
}

// visible is the number of rows that fit; each source takes one line.
func (l *SourceList) visible() int {
	return max(l.height-2, 1)
}

func (l *SourceList) renderSource(index int, src *domain.Source) string {
	label := src.Document
	if src.Section != "" {
		label += " › " + src.Section
	}
	label = Truncate(label, max(l.width-16, 10))

	return l.styles.Normal.Render(fmt.Sprintf("  [%d] %s ", index+1, label)) +
		l.styles.Muted.Render(fmt.Sprintf("%.2f", src.Similarity))
}

// SetSources replaces the list and scrolls back to the top.
func (l *SourceList) SetSources(sources []domain.Source) {
	l.sources = sources
	l.offset = 0
}

// Sources returns the current sources.
func (l *SourceList) Sources() []domain.Source {
	return l.sources
}

// ScrollUp moves the window up by one source.
func (l *SourceList) ScrollUp() {
	if l.offset > 0 {
		l.offset--
	}
}

// ScrollDown moves the window down by one source.
func (l *SourceList) ScrollDown() {
	if l.offset+l.visible() < len(l.sources) {
		l.offset++
	}
}

// Offset returns the index of the first visible source.
func (l *SourceList) Offset() int {
	return l.offset
}

// SetDimensions sets the component dimensions.
func (l *SourceList) SetDimensions(width, height int) {
	l.width = width
	l.height = height
}

// Width returns the current width.
func (l *SourceList) Width() int {
	return l.width
}

// Height returns the current height.
func (l *SourceList) Height() int {
	return l.height
}

// Count returns the number of sources.
func (l *SourceList) Count() int {
	return len(l.sources)
}

// IsEmpty returns whether the list is empty.
func (l *SourceList) IsEmpty() bool {
	return len(l.sources) == 0
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
