// Package chat provides the question and streaming answer view for the TUI.
package chat

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
)

// Turn is one question and its answer in the transcript.
type Turn struct {
	Question string
	Text     string
	Answer   *domain.Answer
	Err      error
}

// Gated reports whether the turn ended without generation.
func (t *Turn) Gated() bool {
	return t.Answer != nil && t.Answer.Gated
}

// View is the chat view: a transcript, a question input, the sources of the
// latest answer and a status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QuestionInput
	sources   *list.SourceList
	statusbar *status.Bar

	answerService driving.AnswerService
	ctx           context.Context

	mode  domain.AnswerMode
	turns []Turn

	// events is the stream being read; events from any other channel are stale.
	events <-chan domain.AnswerEvent
	cancel context.CancelFunc

	showSources bool
	width       int
	height      int
	ready       bool
}

// NewView creates a new chat view. An invalid mode falls back to clinical.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	answerService driving.AnswerService,
	mode domain.AnswerMode,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	if !mode.IsValid() {
		mode = domain.AnswerModeClinical
	}

	bar := status.NewBar(s, km)
	bar.SetMode(mode)

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewQuestionInput(s),
		sources:       list.NewSourceList(s),
		statusbar:     bar,
		answerService: answerService,
		ctx:           context.Background(),
		mode:          mode,
		showSources:   true,
		width:         80,
		height:        24,
	}
}

// WithContext sets the context that answer streams derive from.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QuestionSelected:
		if v.Streaming() {
			return v, nil
		}
		return v, v.ask(msg.Query)

	case messages.StreamOpened:
		return v, v.handleStreamOpened(msg)

	case messages.AnswerEventReceived:
		return v, v.handleEvent(msg)

	case messages.ErrorOccurred:
		v.fail(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()

	if keymap.Matches(k, v.keymap.Back) {
		if v.Streaming() {
			v.Cancel()
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	switch {
	case keymap.Matches(k, v.keymap.ToggleSources):
		v.showSources = !v.showSources
		return v, nil
	case k == "pgup":
		v.sources.ScrollUp()
		return v, nil
	case k == "pgdown":
		v.sources.ScrollDown()
		return v, nil
	}

	// The input is read-only while an answer streams.
	if v.Streaming() {
		return v, nil
	}

	switch {
	case keymap.Matches(k, v.keymap.Ask):
		return v, v.ask(v.input.Value())
	case keymap.Matches(k, v.keymap.Mode):
		v.CycleMode()
		return v, nil
	case keymap.Matches(k, v.keymap.PrevQuestion):
		v.input.Prev()
		return v, nil
	case keymap.Matches(k, v.keymap.NextQuestion):
		v.input.Next()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// ask starts a new turn and returns the command that opens the stream.
// Retrieval and gating run inside AnswerStream, off the UI goroutine.
func (v *View) ask(question string) tea.Cmd {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}

	v.input.Remember(question)
	v.input.Reset()
	v.turns = append(v.turns, Turn{Question: question})
	v.sources.SetSources(nil)
	v.statusbar.Clear()
	v.statusbar.SetState(status.StateRetrieval)

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel
	// Marks the view busy until StreamOpened replaces it with the real channel.
	v.events = make(chan domain.AnswerEvent)

	svc := v.answerService
	turn := len(v.turns) - 1
	req := domain.AnswerRequest{Query: question, Mode: v.mode}
	return func() tea.Msg {
		if svc == nil {
			return messages.StreamOpened{Turn: turn, Query: question, Err: ErrNoAnswerService}
		}
		events, err := svc.AnswerStream(ctx, req)
		return messages.StreamOpened{Turn: turn, Query: question, Events: events, Err: err}
	}
}

func (v *View) handleStreamOpened(msg messages.StreamOpened) tea.Cmd {
	if v.events == nil || msg.Turn != len(v.turns)-1 {
		// Cancelled while retrieving, or superseded by a newer question.
		return nil
	}
	if msg.Err != nil {
		v.fail(msg.Err)
		return nil
	}
	v.events = msg.Events
	return WaitForEvent(msg.Events)
}

func (v *View) handleEvent(msg messages.AnswerEventReceived) tea.Cmd {
	if v.events == nil || msg.Events != v.events {
		return nil
	}
	if msg.Closed {
		v.fail(ErrStreamClosed)
		return nil
	}

	turn := v.current()
	ev := msg.Event
	switch ev.Type {
	case domain.AnswerEventMetadata:
		turn.Answer = ev.Answer
		if ev.Answer != nil {
			v.sources.SetSources(ev.Answer.Sources)
		}
		v.statusbar.SetAnswer(ev.Answer)
		v.statusbar.SetState(status.StateStreaming)

	case domain.AnswerEventToken:
		turn.Text += ev.Content

	case domain.AnswerEventDone:
		if ev.Answer != nil {
			turn.Answer = ev.Answer
			if turn.Text == "" {
				turn.Text = ev.Answer.Text
			}
		}
		if turn.Text == "" {
			turn.Text = ev.Message
		}
		v.statusbar.SetAnswer(turn.Answer)
		if turn.Gated() {
			v.statusbar.SetState(status.StateGated)
		} else {
			v.statusbar.SetState(status.StateAnswered)
		}
		v.finish()
		return nil

	case domain.AnswerEventError:
		v.fail(errors.New(ev.Message))
		return nil
	}

	return WaitForEvent(msg.Events)
}

// WaitForEvent reads the next event from an answer stream.
func WaitForEvent(events <-chan domain.AnswerEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.AnswerEventReceived{Events: events, Closed: true}
		}
		return messages.AnswerEventReceived{Event: ev, Events: events}
	}
}

func (v *View) current() *Turn {
	if len(v.turns) == 0 {
		v.turns = append(v.turns, Turn{})
	}
	return &v.turns[len(v.turns)-1]
}

func (v *View) fail(err error) {
	if err == nil {
		return
	}
	if len(v.turns) > 0 {
		v.current().Err = err
	}
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
	v.finish()
}

func (v *View) finish() {
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.events = nil
}

// Cancel stops the running answer. Tokens already shown are kept.
func (v *View) Cancel() {
	if !v.Streaming() {
		return
	}
	v.finish()
	v.statusbar.SetState(status.StateReady)
	v.statusbar.SetMessage("Cancelled")
}

// CycleMode switches to the next answer mode.
func (v *View) CycleMode() {
	modes := domain.AllAnswerModes()
	for i, m := range modes {
		if m == v.mode {
			v.SetMode(modes[(i+1)%len(modes)])
			return
		}
	}
	v.SetMode(modes[0])
}

// SetMode sets the mode used for the next question.
func (v *View) SetMode(mode domain.AnswerMode) {
	v.mode = mode
	v.statusbar.SetMode(mode)
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("medrag") + " " + v.styles.Muted.Render("ask")
	inputView := v.input.View()
	statusView := v.statusbar.View()

	var sourcesView string
	if v.showSources && !v.sources.IsEmpty() {
		sourcesView = v.sources.View()
	}

	used := lipgloss.Height(header) + lipgloss.Height(inputView) + lipgloss.Height(statusView) + 3
	if sourcesView != "" {
		used += lipgloss.Height(sourcesView) + 1
	}

	sections := []string{header, "", v.renderTranscript(max(v.height-used, 3)), "", inputView}
	if sourcesView != "" {
		sections = append(sections, "", sourcesView)
	}
	sections = append(sections, "", statusView)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTranscript renders all turns and keeps the last height lines.
func (v *View) renderTranscript(height int) string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask a question about the indexed guidelines.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))
	blocks := make([]string, 0, len(v.turns)*2)
	for i := range v.turns {
		t := &v.turns[i]
		blocks = append(blocks, v.styles.Question.Render("> "+t.Question))

		var body string
		switch {
		case t.Gated():
			body = v.styles.Gated.Render(wrap.Render(t.Text))
		case t.Text != "":
			body = v.styles.Answer.Render(wrap.Render(t.Text))
		case t.Err == nil:
			body = v.styles.Muted.Render("...")
		}
		if t.Err != nil {
			if body != "" {
				body += "\n"
			}
			body += v.styles.Error.Render("Error: " + t.Err.Error())
		}
		blocks = append(blocks, body, "")
	}

	lines := strings.Split(strings.TrimRight(strings.Join(blocks, "\n"), "\n"), "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.sources.SetDimensions(width, max(height/4, 3))
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Streaming reports whether a question is being answered.
func (v *View) Streaming() bool {
	return v.events != nil
}

// Mode returns the mode used for the next question.
func (v *View) Mode() domain.AnswerMode {
	return v.mode
}

// Turns returns the transcript, oldest first.
func (v *View) Turns() []Turn {
	return v.turns
}

// Sources returns the sources of the latest answer.
func (v *View) Sources() []domain.Source {
	return v.sources.Sources()
}

// SourcesVisible reports whether the sources pane is shown.
func (v *View) SourcesVisible() bool {
	return v.showSources
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}

// Question returns the text in the input.
func (v *View) Question() string {
	return v.input.Value()
}

// SetQuestion sets the text in the input.
func (v *View) SetQuestion(q string) {
	v.input.SetValue(q)
}

// Focus focuses the question input.
func (v *View) Focus() tea.Cmd {
	return v.input.Focus()
}
