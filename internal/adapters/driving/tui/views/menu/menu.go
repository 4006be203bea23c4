// Package menu is the start screen: index health and where to go next.
package menu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
)

// Item is one menu entry. An item with Quit set exits instead of switching view.
type Item struct {
	Label string
	View  messages.ViewType
	Quit  bool
}

var defaultItems = []Item{
	{Label: "Ask a question", View: messages.ViewChat},
	{Label: "Recent questions", View: messages.ViewHistory},
	{Label: "Help", View: messages.ViewHelp},
	{Label: "Quit", Quit: true},
}

// quit leaves from the menu only; elsewhere q is typed into the question.
var quit = key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit"))

// View is the menu screen.
type View struct {
	styles *styles.Styles
	keys   *keymap.KeyMap
	items  []Item

	selected int
	width    int
	height   int
	ready    bool

	// health stays nil until the first readiness check returns.
	health *domain.HealthStatus
}

// NewView returns the menu. Nil styles or keys take the defaults.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keys:   km,
		items:  defaultItems,
		width:  80,
		height: 24,
	}
}

// Init implements the bubbletea model contract.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles navigation. Digits jump straight to an item.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)

	case messages.HealthLoaded:
		status := msg.Status
		v.health = &status

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Up):
			v.selected = max(v.selected-1, 0)
		case key.Matches(msg, v.keys.Down):
			v.selected = min(v.selected+1, len(v.items)-1)
		case key.Matches(msg, v.keys.Select):
			return v, v.choose(v.selected)
		case key.Matches(msg, quit):
			return v, tea.Quit
		default:
			if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(v.items) {
				v.selected = n - 1
				return v, v.choose(v.selected)
			}
		}
	}
	return v, nil
}

func (v *View) choose(i int) tea.Cmd {
	item := v.items[i]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg { return messages.ViewChanged{View: item.View} }
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("medrag"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render("Transplant guideline assistant"))
	b.WriteString("\n")
	b.WriteString(v.renderHealth())
	b.WriteString("\n\n")

	for i, item := range v.items {
		label := fmt.Sprintf("%d. %s", i+1, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Selected.Render(label))
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [1-4] Jump  [Enter] Select  [q] Quit"))
	return b.String()
}

func (v *View) renderHealth() string {
	if v.health == nil {
		return v.styles.Muted.Render("Checking index...")
	}

	h := v.health
	line := fmt.Sprintf("Index: %d chunks", h.ChunksIndexed)
	if !h.ModelAvailable {
		line += " | model unavailable"
	}

	switch h.Status {
	case domain.HealthHealthy:
		return v.styles.Confidence(domain.ConfidenceHigh).Render(line)
	case domain.HealthDegraded:
		return v.styles.Confidence(domain.ConfidenceMedium).Render(line)
	default:
		if h.Error != "" {
			line += " | " + h.Error
		}
		return v.styles.Error.Render(line)
	}
}

// SetDimensions records the terminal size; the menu renders once it is known.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the highlighted index.
func (v *View) Selected() int {
	return v.selected
}

// Health returns the last readiness check, or nil before the first one.
func (v *View) Health() *domain.HealthStatus {
	return v.health
}
