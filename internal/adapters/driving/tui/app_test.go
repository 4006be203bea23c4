package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medrag/internal/core/domain"
)

func newTestApp(t *testing.T, answer *MockAnswerService) *App {
	t.Helper()
	if answer == nil {
		answer = &MockAnswerService{}
	}
	app, err := NewApp(&Ports{Answer: answer})
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	return app
}

// run feeds cmd's messages back into the app until none are left.
// Batches are expanded. Commands that block, like cursor blinks, are dropped.
func run(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for i := 0; len(queue) > 0; i++ {
		require.Less(t, i, 100, "commands did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := execute(next)
		if !ok || msg == nil {
			continue
		}
		if batch, isBatch := msg.(tea.BatchMsg); isBatch {
			queue = append(queue, batch...)
			continue
		}
		_, c := app.Update(msg)
		queue = append(queue, c)
	}
}

func execute(cmd tea.Cmd) (tea.Msg, bool) {
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg, true
	case <-time.After(100 * time.Millisecond):
		return nil, false
	}
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(&Ports{Answer: &MockAnswerService{}})

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.Equal(t, domain.AnswerModeClinical, app.Chat().Mode())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingAnswerService)
	assert.Nil(t, app)
}

func TestNewApp_ModeFromSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings *MockSettingsService
		want     domain.AnswerMode
	}{
		{
			name:     "configured mode",
			settings: &MockSettingsService{Settings: &domain.AppSettings{Answer: domain.AnswerSettings{Mode: domain.AnswerModeBrief}}},
			want:     domain.AnswerModeBrief,
		},
		{
			name:     "settings error",
			settings: &MockSettingsService{Err: errors.New("unreadable")},
			want:     domain.AnswerModeClinical,
		},
		{
			name:     "invalid mode",
			settings: &MockSettingsService{Settings: &domain.AppSettings{Answer: domain.AnswerSettings{Mode: "verbose"}}},
			want:     domain.AnswerModeClinical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := NewApp(NewPorts(&MockAnswerService{}, tt.settings))

			require.NoError(t, err)
			assert.Equal(t, tt.want, app.Chat().Mode())
		})
	}
}

func TestApp_WithContext(t *testing.T) {
	answer := &MockAnswerService{Events: []domain.AnswerEvent{
		{Type: domain.AnswerEventDone, Answer: &domain.Answer{}, Done: true},
	}}
	app := newTestApp(t, answer)
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))

	run(t, app, func() tea.Msg { return messages.QuestionSelected{Query: "q"} })
	require.NotNil(t, answer.gotCtx)
	assert.Equal(t, "value", answer.gotCtx.Value(contextKey("key")))
}

func TestApp_Init_ChecksHealth(t *testing.T) {
	answer := &MockAnswerService{Status: domain.HealthStatus{Status: domain.HealthHealthy, ChunksIndexed: 42}}
	app := newTestApp(t, answer)

	run(t, app, app.Init())

	assert.Contains(t, app.View(), "Index: 42 chunks")
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Answer: &MockAnswerService{}})
	require.NoError(t, err)
	assert.Equal(t, "Initialising...", app.View())

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Equal(t, 80, app.Chat().Width())
}

func TestApp_CtrlC_Quits(t *testing.T) {
	app := newTestApp(t, nil)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app := newTestApp(t, nil)

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_MenuToChat(t *testing.T) {
	app := newTestApp(t, nil)

	// Menu starts on "Ask a question"
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, app, cmd)

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.Contains(t, app.View(), "Ask")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	run(t, app, cmd)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_AskStreamsInChat(t *testing.T) {
	done := &domain.Answer{Confidence: domain.ConfidenceHigh, Score: 0.9, Text: "Yes."}
	answer := &MockAnswerService{Events: []domain.AnswerEvent{
		{Type: domain.AnswerEventMetadata, Answer: &domain.Answer{Confidence: domain.ConfidenceHigh, Score: 0.9}},
		{Type: domain.AnswerEventToken, Content: "Yes."},
		{Type: domain.AnswerEventDone, Answer: done, Done: true},
	}}
	app := newTestApp(t, answer)
	app.Update(messages.ViewChanged{View: messages.ViewChat})

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Is CMV prophylaxis needed?")})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, app, cmd)

	turns := app.Chat().Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "Yes.", turns[0].Text)
	assert.False(t, app.Chat().Streaming())
	assert.Contains(t, app.View(), "High 0.90")
}

func TestApp_HistoryAskAgain(t *testing.T) {
	answer := &MockAnswerService{
		Entries: []domain.QueryLogEntry{{ID: "1", Query: "tacrolimus trough", Confidence: domain.ConfidenceHigh}},
		Events:  []domain.AnswerEvent{{Type: domain.AnswerEventDone, Answer: &domain.Answer{Text: "5-10"}, Done: true}},
	}
	app := newTestApp(t, answer)

	run(t, app, func() tea.Msg { return messages.ViewChanged{View: messages.ViewHistory} })
	require.Equal(t, messages.ViewHistory, app.CurrentView())
	require.Len(t, app.History().Entries(), 1)
	assert.Contains(t, app.View(), "tacrolimus trough")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, app, cmd)

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	require.Len(t, app.Chat().Turns(), 1)
	assert.Equal(t, "tacrolimus trough", app.Chat().Turns()[0].Question)
	assert.Equal(t, "5-10", app.Chat().Turns()[0].Text)
}

func TestApp_Help(t *testing.T) {
	app := newTestApp(t, nil)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "Cycle answer mode")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t, nil)
	app.Update(messages.ViewChanged{View: messages.ViewChat})
	err := errors.New("something broke")

	app.Update(messages.ErrorOccurred{Err: err})

	assert.Equal(t, err, app.Err())
	assert.Contains(t, app.View(), "something broke")
}
