// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
)

// State represents the current chat state for display.
type State string

const (
	StateReady     State = "ready"
	StateRetrieval State = "retrieving"
	StateStreaming State = "streaming"
	StateAnswered  State = "answered"
	StateGated     State = "gated"
	StateError     State = "error"
)

// Bar displays answer confidence, source count and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	mode    domain.AnswerMode
	width   int

	confidence  domain.ConfidenceLabel
	score       float64
	sourceCount int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init initialises the status bar.
func (b *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (b *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return b, nil
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)

	return b.styles.StatusBar.Width(b.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (b *Bar) renderLeft() string {
	var parts []string
	if b.mode != "" {
		parts = append(parts, b.styles.Muted.Render("["+b.mode.String()+"]"))
	}

	switch b.state {
	case StateRetrieval:
		parts = append(parts, b.styles.Muted.Render("Retrieving..."))
	case StateStreaming:
		parts = append(parts, b.renderConfidence(), b.styles.Muted.Render("Generating..."))
	case StateAnswered:
		parts = append(parts, b.renderConfidence(), b.renderSources())
	case StateGated:
		parts = append(parts, b.renderConfidence(), b.styles.Muted.Render("insufficient evidence"))
	case StateError:
		msg := "Error"
		if b.message != "" {
			msg = "Error: " + b.message
		}
		parts = append(parts, b.styles.Error.Render(msg))
	case StateReady:
		msg := "Ready"
		if b.message != "" {
			msg = b.message
		}
		parts = append(parts, b.styles.Muted.Render(msg))
	}

	return strings.Join(parts, " ")
}

func (b *Bar) renderConfidence() string {
	text := fmt.Sprintf("%s %.2f", b.confidence, b.score)
	return b.styles.Confidence(b.confidence).Render(text)
}

func (b *Bar) renderSources() string {
	if b.sourceCount == 1 {
		return b.styles.Normal.Render("1 source")
	}
	return b.styles.Normal.Render(fmt.Sprintf("%d sources", b.sourceCount))
}

func (b *Bar) renderRight() string {
	bindings := b.Hints()
	hints := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (b *Bar) SetState(state State) {
	b.state = state
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// SetMessage sets the text shown in the ready and error states.
func (b *Bar) SetMessage(message string) {
	b.message = message
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// SetMode sets the displayed answer mode.
func (b *Bar) SetMode(mode domain.AnswerMode) {
	b.mode = mode
}

// SetAnswer records the confidence and source count of an answer.
func (b *Bar) SetAnswer(answer *domain.Answer) {
	if answer == nil {
		return
	}
	b.confidence = answer.Confidence
	b.score = answer.Score
	b.sourceCount = len(answer.Sources)
}

// Confidence returns the displayed confidence label and score.
func (b *Bar) Confidence() (domain.ConfidenceLabel, float64) {
	return b.confidence, b.score
}

// SourceCount returns the displayed number of sources.
func (b *Bar) SourceCount() int {
	return b.sourceCount
}

// SetWidth sets the status bar width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the current width.
func (b *Bar) Width() int {
	return b.width
}

// Clear resets the status bar to the ready state. The mode is kept.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.confidence = ""
	b.score = 0
	b.sourceCount = 0
}

// Hints returns the bindings currently advertised on the right.
func (b *Bar) Hints() []key.Binding {
	if b.state == StateStreaming || b.state == StateRetrieval {
		return b.keymap.StreamingHelp()
	}
	return b.keymap.ShortHelp()
}
