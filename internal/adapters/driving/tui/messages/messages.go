// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/medrag/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the question and streaming answer view.
	ViewChat
	// ViewHistory lists recently answered questions.
	ViewHistory
	// ViewHelp is the keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewHistory:
		return "history"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// StreamOpened is sent once AnswerStream has accepted a question.
// Err is set when the question was rejected before streaming began.
type StreamOpened struct {
	// Turn is the transcript index of the question being answered.
	Turn   int
	Query  string
	Events <-chan domain.AnswerEvent
	Err    error
}

// AnswerEventReceived carries one event read from an open stream.
// Closed is set when the channel was drained without a terminal event.
type AnswerEventReceived struct {
	Event  domain.AnswerEvent
	Events <-chan domain.AnswerEvent
	Closed bool
}

// QueriesLoaded carries the audit log for the history view.
type QueriesLoaded struct {
	Entries []domain.QueryLogEntry
	Err     error
}

// QuestionSelected asks the chat view to ask a question again.
type QuestionSelected struct {
	Query string
}

// HealthLoaded carries the pipeline readiness shown on the menu.
type HealthLoaded struct {
	Status domain.HealthStatus
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
