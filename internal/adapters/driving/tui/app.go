package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/views/history"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/medrag/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	menuView    *menu.View
	chatView    *chat.View
	historyView *history.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		menuView:    menu.NewView(s, km),
		chatView:    chat.NewView(s, km, ports.Answer, defaultMode(ports)),
		historyView: history.NewView(s, km, ports.Answer),
		currentView: messages.ViewMenu,
	}, nil
}

// defaultMode reads answer.mode from settings, falling back to clinical.
func defaultMode(ports *Ports) domain.AnswerMode {
	if ports.Settings == nil {
		return domain.AnswerModeClinical
	}
	settings, err := ports.Settings.Get()
	if err != nil || settings == nil {
		return domain.AnswerModeClinical
	}
	return settings.Answer.Mode
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.historyView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("medrag"),
		a.checkHealth(),
	)
}

func (a *App) checkHealth() tea.Cmd {
	svc := a.ports.Answer
	ctx := a.ctx
	return func() tea.Msg {
		return messages.HealthLoaded{Status: svc.Health(ctx)}
	}
}

// Update implements tea.Model.
// It handles messages and updates the model state.
//
//nolint:gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if keymap.Matches(msg.String(), a.keymap.Quit) {
			a.chatView.Cancel()
			return a, tea.Quit
		}
		return a.updateKey(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewChat:
			return a, a.chatView.Focus()
		case messages.ViewHistory:
			return a, a.historyView.Init()
		case messages.ViewMenu:
			return a, a.checkHealth()
		case messages.ViewHelp:
		}
		return a, nil

	case messages.QuestionSelected:
		a.currentView = messages.ViewChat
		a.chatView, cmd = a.chatView.Update(msg)
		return a, tea.Batch(a.chatView.Focus(), cmd)

	case messages.StreamOpened, messages.AnswerEventReceived:
		// Streams belong to the chat view whatever view is showing.
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.QueriesLoaded:
		a.historyView, cmd = a.historyView.Update(msg)
		return a, cmd

	case messages.HealthLoaded:
		a.menuView, cmd = a.menuView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		switch a.currentView {
		case messages.ViewChat:
			a.chatView, cmd = a.chatView.Update(msg)
		case messages.ViewHistory:
			a.historyView, cmd = a.historyView.Update(msg)
		case messages.ViewMenu, messages.ViewHelp:
			// Shown only through Err
		}
		return a, cmd

	case messages.Quit:
		a.chatView.Cancel()
		return a, tea.Quit
	}

	// Forward other messages (cursor blink) to the chat input.
	if a.currentView == messages.ViewChat {
		a.chatView, cmd = a.chatView.Update(msg)
	}
	return a, cmd
}

func (a *App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch a.currentView {
	case messages.ViewMenu:
		if keymap.Matches(msg.String(), a.keymap.Help) {
			a.currentView = messages.ViewHelp
			return a, nil
		}
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewHistory:
		a.historyView, cmd = a.historyView.Update(msg)
	case messages.ViewHelp:
		if keymap.Matches(msg.String(), a.keymap.Back) {
			a.currentView = messages.ViewMenu
		}
	}
	return a, cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewHistory:
		return a.historyView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewMenu:
		return a.menuView.View()
	default:
		return a.menuView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Navigation:
  esc         Back to Menu
  ctrl+c      Quit

Menu:
  j/k, ↑/↓    Navigate options
  enter       Select option
  ?           Help

Ask:
  (type)      Enter a question
  enter       Ask
  ↑/↓         Recall earlier questions
  tab         Cycle answer mode (brief, clinical, detailed)
  ctrl+s      Show or hide sources
  pgup/pgdn   Scroll sources
  esc         Cancel a running answer, then back to Menu

Recent questions:
  j/k, ↑/↓    Navigate
  enter       Ask again
  r           Refresh

[esc] back to menu`
}

// Run starts the TUI application. Cancelling the app context stops it.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Chat returns the chat view.
func (a *App) Chat() *chat.View {
	return a.chatView
}

// History returns the history view.
func (a *App) History() *history.View {
	return a.historyView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.historyView.SetDimensions(width, height)
}
