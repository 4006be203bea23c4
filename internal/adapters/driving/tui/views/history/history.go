// Package history provides the recent questions view for the TUI.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// DefaultLimit is how many audit entries the view loads.
const DefaultLimit = 50

// View lists recently answered questions from the query log.
type View struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	answerService driving.AnswerService
	ctx           context.Context

	entries      []domain.QueryLogEntry
	selected     int
	scrollOffset int
	width        int
	height       int
	ready        bool
	loading      bool
	err          error
}

// NewView creates a new history view.
func NewView(s *styles.Styles, km *keymap.KeyMap, answerService driving.AnswerService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:        s,
		keymap:        km,
		answerService: answerService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
	}
}

// WithContext sets the context for loading entries.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the query log.
func (v *View) Init() tea.Cmd {
	return v.load()
}

func (v *View) load() tea.Cmd {
	v.loading = true
	svc := v.answerService
	ctx := v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.QueriesLoaded{Err: fmt.Errorf("answer service not available")}
		}
		entries, err := svc.RecentQueries(ctx, DefaultLimit)
		return messages.QueriesLoaded{Entries: entries, Err: err}
	}
}

// Update handles messages for the history view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueriesLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.entries = msg.Entries
		v.selected = 0
		v.scrollOffset = 0
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			if v.selected < v.scrollOffset {
				v.scrollOffset = v.selected
			}
		}
		return v, nil

	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.entries)-1 {
			v.selected++
			if v.selected >= v.scrollOffset+v.visible() {
				v.scrollOffset = v.selected - v.visible() + 1
			}
		}
		return v, nil

	case keymap.Matches(k, v.keymap.Refresh):
		return v, v.load()

	case keymap.Matches(k, v.keymap.Select):
		entry := v.SelectedEntry()
		if entry == nil {
			return v, nil
		}
		query := entry.Query
		return v, func() tea.Msg {
			return messages.QuestionSelected{Query: query}
		}
	}

	return v, nil
}

// visible is the number of entries that fit; each entry takes two lines.
func (v *View) visible() int {
	return max((v.height-6)/2, 1)
}

// View renders the history view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Recent questions"))
	b.WriteString("\n\n")

	switch {
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n")
	case v.loading && len(v.entries) == 0:
		b.WriteString(v.styles.Muted.Render("Loading..."))
		b.WriteString("\n")
	case len(v.entries) == 0:
		b.WriteString(v.styles.Muted.Render("No questions yet."))
		b.WriteString("\n")
	default:
		end := min(v.scrollOffset+v.visible(), len(v.entries))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.renderEntry(i, &v.entries[i]))
			b.WriteString("\n")
		}
		if len(v.entries) > v.visible() {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %d-%d of %d", v.scrollOffset+1, end, len(v.entries))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Ask again  [r] Refresh  [Esc] Back"))

	return b.String()
}

func (v *View) renderEntry(index int, e *domain.QueryLogEntry) string {
	cursor := "  "
	queryStyle := v.styles.Normal
	if index == v.selected {
		cursor = "> "
		queryStyle = v.styles.Selected
	}

	query := cursor + list.Truncate(e.Query, max(v.width-4, 10))

	detail := fmt.Sprintf("%s  %s %.2f  %d chunks  %s",
		e.Timestamp.Local().Format("2006-01-02 15:04"),
		e.Confidence, e.Score, e.ChunksUsed, e.TotalTime.Round(time.Millisecond))
	line := v.styles.Muted.Render(detail)
	switch {
	case e.Error != "":
		line += "  " + v.styles.Error.Render("error: "+e.Error)
	case e.Gated:
		line += "  " + v.styles.Gated.Render("gated")
	}

	return queryStyle.Render(query) + "\n    " + line
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Entries returns the loaded entries, newest first.
func (v *View) Entries() []domain.QueryLogEntry {
	return v.entries
}

// Selected returns the selected index.
func (v *View) Selected() int {
	return v.selected
}

// SelectedEntry returns the selected entry, or nil when the list is empty.
func (v *View) SelectedEntry() *domain.QueryLogEntry {
	if v.selected < 0 || v.selected >= len(v.entries) {
		return nil
	}
	return &v.entries[v.selected]
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
