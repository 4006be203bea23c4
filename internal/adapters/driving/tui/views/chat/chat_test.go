package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/medrag/internal/core/domain"
)

// MockAnswerService implements driving.AnswerService for testing.
type MockAnswerService struct {
	Events []domain.AnswerEvent
	Err    error

	gotReq domain.AnswerRequest
	gotCtx context.Context
}

func (m *MockAnswerService) Answer(_ context.Context, _ domain.AnswerRequest) (*domain.Answer, error) {
	return nil, errors.New("not used")
}

func (m *MockAnswerService) AnswerStream(ctx context.Context, req domain.AnswerRequest) (<-chan domain.AnswerEvent, error) {
	m.gotReq = req
	m.gotCtx = ctx
	if m.Err != nil {
		return nil, m.Err
	}
	ch := make(chan domain.AnswerEvent, len(m.Events))
	for _, ev := range m.Events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *MockAnswerService) Health(_ context.Context) domain.HealthStatus {
	return domain.HealthStatus{Status: domain.HealthHealthy}
}

func (m *MockAnswerService) RecentQueries(_ context.Context, _ int) ([]domain.QueryLogEntry, error) {
	return nil, nil
}

func streamedAnswer() []domain.AnswerEvent {
	meta := &domain.Answer{
		Confidence: domain.ConfidenceHigh,
		Score:      0.82,
		Sources: []domain.Source{
			{Document: "immunosuppression.txt", Section: "Tacrolimus", Similarity: 0.84},
			{Document: "monitoring.txt", Section: "Trough levels", Similarity: 0.79},
		},
	}
	done := *meta
	done.Text = "Target trough is 5-10 ng/mL."
	return []domain.AnswerEvent{
		{Type: domain.AnswerEventMetadata, Answer: meta},
		{Type: domain.AnswerEventToken, Content: "Target trough "},
		{Type: domain.AnswerEventToken, Content: "is 5-10 ng/mL."},
		{Type: domain.AnswerEventDone, Answer: &done, Done: true},
	}
}

// drive runs cmd and feeds every resulting message back into the view
// until no command is left.
func drive(t *testing.T, v *View, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 50, "stream did not terminate")
		v, cmd = v.Update(cmd())
	}
}

func typeText(v *View, text string) {
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func newReadyView(svc *MockAnswerService) *View {
	v := NewView(nil, nil, svc, domain.AnswerModeClinical)
	v.SetDimensions(100, 40)
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(styles.DefaultStyles(), keymap.DefaultKeyMap(), &MockAnswerService{}, domain.AnswerModeBrief)

	require.NotNil(t, v)
	assert.False(t, v.Ready())
	assert.False(t, v.Streaming())
	assert.Equal(t, domain.AnswerModeBrief, v.Mode())
	assert.True(t, v.SourcesVisible())
	assert.Empty(t, v.Turns())
}

func TestNewView_Defaults(t *testing.T) {
	v := NewView(nil, nil, nil, "")

	assert.NotNil(t, v.styles)
	assert.NotNil(t, v.keymap)
	assert.Equal(t, domain.AnswerModeClinical, v.Mode())
}

func TestView_WithContext(t *testing.T) {
	v := NewView(nil, nil, nil, "")
	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, v, v.WithContext(ctx))
	assert.Equal(t, ctx, v.ctx)
}

func TestView_Init(t *testing.T) {
	assert.NotNil(t, NewView(nil, nil, nil, "").Init())
}

func TestView_Update_WindowSize(t *testing.T) {
	v := NewView(nil, nil, nil, "")

	v.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	assert.True(t, v.Ready())
	assert.Equal(t, 120, v.Width())
	assert.Equal(t, 30, v.Height())
}

func TestView_Ask_StreamsAnswer(t *testing.T) {
	svc := &MockAnswerService{Events: streamedAnswer()}
	v := newReadyView(svc)
	typeText(v, "  What is the tacrolimus target?  ")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, v.Streaming())
	assert.Equal(t, status.StateRetrieval, v.Status())
	assert.Equal(t, "", v.Question(), "input is cleared on submit")

	drive(t, v, cmd)

	assert.False(t, v.Streaming())
	assert.Equal(t, "What is the tacrolimus target?", svc.gotReq.Query)
	assert.Equal(t, domain.AnswerModeClinical, svc.gotReq.Mode)
	require.Len(t, v.Turns(), 1)
	turn := v.Turns()[0]
	assert.Equal(t, "Target trough is 5-10 ng/mL.", turn.Text)
	assert.NoError(t, turn.Err)
	assert.Len(t, v.Sources(), 2)
	assert.Equal(t, status.StateAnswered, v.Status())
	assert.ErrorIs(t, svc.gotCtx.Err(), context.Canceled, "stream context is released")

	out := v.View()
	assert.Contains(t, out, "> What is the tacrolimus target?")
	assert.Contains(t, out, "Target trough is 5-10 ng/mL.")
	assert.Contains(t, out, "immunosuppression.txt › Tacrolimus")
	assert.Contains(t, out, "High 0.82")
}

func TestView_Ask_Gated(t *testing.T) {
	msg := "I don't have sufficient information in the guidelines to answer this question."
	meta := &domain.Answer{Confidence: domain.ConfidenceLow, Score: 0.2, Gated: true}
	done := *meta
	done.Text = msg
	svc := &MockAnswerService{Events: []domain.AnswerEvent{
		{Type: domain.AnswerEventMetadata, Answer: meta},
		{Type: domain.AnswerEventDone, Message: msg, Answer: &done, Done: true},
	}}
	v := newReadyView(svc)
	typeText(v, "Best pizza topping?")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drive(t, v, cmd)

	require.Len(t, v.Turns(), 1)
	assert.True(t, v.Turns()[0].Gated())
	assert.Equal(t, msg, v.Turns()[0].Text)
	assert.Empty(t, v.Sources())
	assert.Equal(t, status.StateGated, v.Status())
	assert.Contains(t, v.View(), "insufficient evidence")
}

func TestView_Ask_Errors(t *testing.T) {
	tests := []struct {
		name    string
		svc     *MockAnswerService
		wantErr string
	}{
		{
			name:    "rejected before streaming",
			svc:     &MockAnswerService{Err: domain.ErrLLMUnavailable},
			wantErr: domain.ErrLLMUnavailable.Error(),
		},
		{
			name: "error event keeps partial text",
			svc: &MockAnswerService{Events: []domain.AnswerEvent{
				{Type: domain.AnswerEventMetadata, Answer: &domain.Answer{Confidence: domain.ConfidenceMedium}},
				{Type: domain.AnswerEventToken, Content: "Partial"},
				{Type: domain.AnswerEventError, Message: "model crashed", Done: true},
			}},
			wantErr: "model crashed",
		},
		{
			name: "stream closed without terminal event",
			svc: &MockAnswerService{Events: []domain.AnswerEvent{
				{Type: domain.AnswerEventMetadata, Answer: &domain.Answer{}},
			}},
			wantErr: ErrStreamClosed.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newReadyView(tt.svc)
			typeText(v, "question")

			_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
			drive(t, v, cmd)

			assert.False(t, v.Streaming())
			assert.Equal(t, status.StateError, v.Status())
			require.Len(t, v.Turns(), 1)
			require.Error(t, v.Turns()[0].Err)
			assert.Contains(t, v.Turns()[0].Err.Error(), tt.wantErr)
			assert.Contains(t, v.View(), tt.wantErr)
		})
	}

	t.Run("partial text survives", func(t *testing.T) {
		v := newReadyView(tests[1].svc)
		typeText(v, "question")
		_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
		drive(t, v, cmd)

		assert.Equal(t, "Partial", v.Turns()[0].Text)
	})
}

func TestView_Ask_NoService(t *testing.T) {
	v := NewView(nil, nil, nil, "")
	v.SetDimensions(80, 24)
	typeText(v, "question")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drive(t, v, cmd)

	require.Len(t, v.Turns(), 1)
	assert.ErrorIs(t, v.Turns()[0].Err, ErrNoAnswerService)
}

func TestView_Ask_BlankIgnored(t *testing.T) {
	v := newReadyView(&MockAnswerService{})
	typeText(v, "   ")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, v.Turns())
	assert.False(t, v.Streaming())
}

func TestView_Esc(t *testing.T) {
	t.Run("goes back when idle", func(t *testing.T) {
		v := newReadyView(&MockAnswerService{})

		_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

		require.NotNil(t, cmd)
		assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
	})

	t.Run("cancels a running answer", func(t *testing.T) {
		svc := &MockAnswerService{Events: streamedAnswer()}
		v := newReadyView(svc)
		typeText(v, "question")
		_, open := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
		opened := open()

		_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
		assert.Nil(t, cmd)
		assert.False(t, v.Streaming())
		assert.Equal(t, status.StateReady, v.Status())

		// The late StreamOpened is ignored.
		_, cmd = v.Update(opened)
		assert.Nil(t, cmd)
		assert.ErrorIs(t, svc.gotCtx.Err(), context.Canceled)
	})
}

func TestView_StaleEventsIgnored(t *testing.T) {
	v := newReadyView(&MockAnswerService{})
	stale := make(chan domain.AnswerEvent)

	_, cmd := v.Update(messages.AnswerEventReceived{
		Event:  domain.AnswerEvent{Type: domain.AnswerEventToken, Content: "x"},
		Events: stale,
	})

	assert.Nil(t, cmd)
	assert.Empty(t, v.Turns())
}

func TestView_InputLockedWhileStreaming(t *testing.T) {
	v := newReadyView(&MockAnswerService{Events: streamedAnswer()})
	typeText(v, "question")
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	typeText(v, "more")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "", v.Question())
	assert.Nil(t, cmd)
	assert.Len(t, v.Turns(), 1)
}

func TestView_CycleMode(t *testing.T) {
	v := newReadyView(&MockAnswerService{})

	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, domain.AnswerModeDetailed, v.Mode())

	v.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, domain.AnswerModeBrief, v.Mode())
	assert.Contains(t, v.View(), "[brief]")
}

func TestView_QuestionRecall(t *testing.T) {
	svc := &MockAnswerService{Events: streamedAnswer()}
	v := newReadyView(svc)
	for _, q := range []string{"first", "second"} {
		typeText(v, q)
		_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
		drive(t, v, cmd)
	}

	v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "second", v.Question())

	v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first", v.Question())

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "second", v.Question())
}

func TestView_QuestionSelected(t *testing.T) {
	svc := &MockAnswerService{Events: streamedAnswer()}
	v := newReadyView(svc)

	_, cmd := v.Update(messages.QuestionSelected{Query: "rerun this"})
	drive(t, v, cmd)

	assert.Equal(t, "rerun this", svc.gotReq.Query)
	require.Len(t, v.Turns(), 1)
}

func TestView_ToggleSources(t *testing.T) {
	v := newReadyView(&MockAnswerService{Events: streamedAnswer()})
	typeText(v, "question")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drive(t, v, cmd)
	require.Contains(t, v.View(), "Sources (2)")

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.False(t, v.SourcesVisible())
	assert.NotContains(t, v.View(), "Sources (2)")
}

func TestView_ErrorOccurred(t *testing.T) {
	v := newReadyView(&MockAnswerService{})

	v.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.Equal(t, status.StateError, v.Status())
}

func TestView_View(t *testing.T) {
	v := NewView(nil, nil, nil, "")
	assert.Equal(t, "Initialising...", v.View())

	v.SetDimensions(80, 24)
	out := v.View()

	assert.Contains(t, out, "medrag")
	assert.Contains(t, out, "Ask a question about the indexed guidelines.")
	assert.Contains(t, out, "Ask")
}

func TestView_TranscriptKeepsLatestLines(t *testing.T) {
	v := newReadyView(&MockAnswerService{})
	for i := range 30 {
		v.turns = append(v.turns, Turn{Question: string(rune('a' + i%26)), Text: "answer"})
	}
	v.turns[len(v.turns)-1].Question = "latest question"

	out := v.renderTranscript(5)

	assert.Contains(t, out, "latest question")
	assert.LessOrEqual(t, len(strings.Split(out, "\n")), 5)
}
