package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/qwant1k/rag/internal/core/domain"
	"github.com/qwant1k/rag/internal/core/ports/driving"
)

// ErrNoChatService is returned when the app is built without a chat service.
var ErrNoChatService = errors.New("chat service not configured")

// streamOpened carries the event channel of a freshly started answer stream.
type streamOpened struct {
	events <-chan domain.StreamEvent
}

// streamEvent carries one event plus the channel to await the next one on.
type streamEvent struct {
	event  domain.StreamEvent
	events <-chan domain.StreamEvent
}

// streamClosed signals that the answer stream has been drained.
type streamClosed struct{}

// streamFailed signals that the stream could not be started.
type streamFailed struct {
	err error
}

// turn is one question/answer exchange in the transcript.
type turn struct {
	question string
	answer   string
	sources  []domain.Source
	failed   string
}

// App is the chat TUI model following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	chat   driving.ChatService
	ctx    context.Context
	styles *Styles

	input    textinput.Model
	viewport viewport.Model

	// history holds the completed turns in chat-message form, the shape
	// the chat service expects for follow-up questions.
	history []domain.ChatMessage

	// turns is the rendered transcript, newest last.
	turns []turn

	streaming bool
	err       error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat TUI bound to the given chat service.
func NewApp(chat driving.ChatService) (*App, error) {
	if chat == nil {
		return nil, ErrNoChatService
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a question about your documents..."
	ti.Focus()
	ti.CharLimit = 512

	vp := viewport.New(80, 20)

	return &App{
		chat:     chat,
		ctx:      context.Background(),
		styles:   DefaultStyles(),
		input:    ti,
		viewport: vp,
		width:    80,
		height:   24,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.SetWindowTitle("rag - document chat"),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.layout()
		a.refresh()
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case streamOpened:
		return a, awaitEvent(msg.events)

	case streamEvent:
		a.handleStreamEvent(msg.event)
		a.refresh()
		return a, awaitEvent(msg.events)

	case streamClosed:
		a.finishStream()
		a.refresh()
		return a, nil

	case streamFailed:
		a.streaming = false
		a.err = msg.err
		if current := a.currentTurn(); current != nil {
			current.failed = msg.err.Error()
		}
		a.refresh()
		return a, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	a.viewport, cmd = a.viewport.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return a, tea.Quit

	case tea.KeyEnter:
		if a.streaming {
			return a, nil
		}
		question := strings.TrimSpace(a.input.Value())
		if question == "" {
			return a, nil
		}
		return a, a.submit(question)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	a.viewport, cmd = a.viewport.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// submit opens a new transcript turn and starts the answer stream.
// The history passed to the service excludes the question being asked.
func (a *App) submit(question string) tea.Cmd {
	prior := append([]domain.ChatMessage(nil), a.history...)

	a.turns = append(a.turns, turn{question: question})
	a.history = append(a.history, domain.ChatMessage{Role: domain.RoleUser, Content: question})
	a.streaming = true
	a.err = nil
	a.input.Reset()
	a.refresh()

	return func() tea.Msg {
		events, err := a.chat.AnswerStream(a.ctx, question, prior)
		if err != nil {
			return streamFailed{err: err}
		}
		return streamOpened{events: events}
	}
}

// awaitEvent blocks on the stream until the next event or close.
func awaitEvent(events <-chan domain.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return streamClosed{}
		}
		return streamEvent{event: event, events: events}
	}
}

// handleStreamEvent folds one stream event into the current turn.
func (a *App) handleStreamEvent(event domain.StreamEvent) {
	current := a.currentTurn()
	if current == nil {
		return
	}

	switch event.Type {
	case domain.StreamToken:
		current.answer += event.Token
	case domain.StreamSources:
		current.sources = event.Sources
	case domain.StreamError:
		current.failed = event.Token
	case domain.StreamDone:
	}
}

// finishStream records the completed answer in the chat history.
func (a *App) finishStream() {
	a.streaming = false
	current := a.currentTurn()
	if current == nil || current.answer == "" {
		return
	}
	a.history = append(a.history, domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Content: current.answer,
	})
}

func (a *App) currentTurn() *turn {
	if len(a.turns) == 0 {
		return nil
	}
	return &a.turns[len(a.turns)-1]
}

// layout recomputes component dimensions from the terminal size.
func (a *App) layout() {
	a.input.Width = a.width - 8
	if a.input.Width < 20 {
		a.input.Width = 20
	}

	// Title, input border (3 lines) and status bar surround the viewport.
	viewportHeight := a.height - 6
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	a.viewport.Width = a.width
	a.viewport.Height = viewportHeight
}

// refresh re-renders the transcript and scrolls to the newest content.
func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

// renderTranscript renders all turns, newest last.
func (a *App) renderTranscript() string {
	if len(a.turns) == 0 {
		return a.styles.Muted.Render("Type a question and press Enter.")
	}

	var b strings.Builder
	for i := range a.turns {
		t := &a.turns[i]
		b.WriteString(a.styles.Question.Render("You: " + t.question))
		b.WriteString("\n")

		switch {
		case t.failed != "":
			if t.answer != "" {
				b.WriteString(a.styles.Answer.Render(t.answer))
				b.WriteString("\n")
			}
			b.WriteString(a.styles.Error.Render("Error: " + t.failed))
		case t.answer == "" && a.streaming && i == len(a.turns)-1:
			b.WriteString(a.styles.Muted.Render("Thinking..."))
		default:
			b.WriteString(a.styles.Answer.Render(t.answer))
		}
		b.WriteString("\n")

		if len(t.sources) > 0 {
			b.WriteString(a.styles.Citation.Render("Sources: " + formatSources(t.sources)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatSources renders citations as "file.pdf p.3; other.txt p.1".
func formatSources(sources []domain.Source) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, fmt.Sprintf("%s p.%d", s.Filename, s.Page))
	}
	return strings.Join(parts, "; ")
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	title := a.styles.Title.Render("rag chat")

	status := "Enter to send, Esc to quit"
	if a.streaming {
		status = "Generating..."
	}
	if a.err != nil {
		status = a.err.Error()
	}

	return strings.Join([]string{
		title,
		a.viewport.View(),
		a.styles.InputField.Width(a.width - 2).Render(a.input.View()),
		a.styles.StatusBar.Render(status),
	}, "\n")
}
