package tui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/diogo/sydney/internal/chat"
	"github.com/diogo/sydney/internal/config"
	"github.com/diogo/sydney/internal/history"
	"github.com/diogo/sydney/internal/models"
	"github.com/diogo/sydney/internal/render"
	"github.com/diogo/sydney/internal/transcript"
)

// Animation tick message
type animationTickMsg time.Time

// Messages from the streamer goroutine
type (
	busyMsg              bool
	transcriptChangedMsg struct{}
	errMsg               struct {
		err error
	}
	exchangeDoneMsg struct {
		accepted bool
	}
)

// observerBridge forwards streamer notifications into the bubbletea loop.
// Transcript change notices are dropped when the loop is behind, since
// every render reads the whole transcript.
type observerBridge struct {
	events chan<- tea.Msg
	done   <-chan struct{}
}

func (o observerBridge) BusyChanged(busy bool) { o.send(busyMsg(busy)) }

func (o observerBridge) TranscriptChanged() {
	select {
	case o.events <- transcriptChangedMsg{}:
	default:
	}
}

func (o observerBridge) Error(err error) { o.send(errMsg{err: err}) }

func (o observerBridge) send(msg tea.Msg) {
	select {
	case o.events <- msg:
	case <-o.done:
	}
}

// waitForEvent delivers the next streamer or watcher event
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// Options configures the chat model
type Options struct {
	Dialer chat.Dialer
	// Transcript to continue; nil starts from the persona's instructions
	Transcript *transcript.Transcript
	Config     config.Config
	// Store receives autosaved chats that are not bound to a file
	Store *history.Store
	// Path binds an explicit file. ChatID binds a history entry. Path wins.
	Path     string
	ChatID   string
	Persona  *config.Persona
	Personas PersonaStore
	Logger   *log.Logger
	// Clipboard replaces the system clipboard, for tests
	Clipboard func(text string) error
}

// Model represents the TUI state
type Model struct {
	streamer *chat.Streamer
	binding  *binding
	store    *history.Store
	personas PersonaStore
	persona  *config.Persona
	cfg      config.Config
	logger   *log.Logger
	keys     keyMap
	trigger  chat.SendTrigger
	copyText func(string) error

	events chan tea.Msg
	ctx    context.Context
	cancel context.CancelFunc

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	busy           bool
	ready          bool
	err            error
	notice         string
	overlay        string // help or history listing shown over the messages
	animationFrame int
	renderedAt     uint64 // transcript version shown in the viewport
	renderedWidth  int

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model
func NewChatModel(opts Options) (Model, error) {
	if opts.Dialer == nil {
		return Model{}, fmt.Errorf("chat model needs a dialer")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg := opts.Config

	trigger, err := chat.ParseSendTrigger(cfg.SendTrigger)
	if err != nil {
		logger.Warn("invalid send_trigger, using enter", "err", err)
		trigger = chat.SendOnEnter
	}
	mode, err := chat.ParseContextMode(cfg.ContextMode)
	if err != nil {
		logger.Warn("invalid context_mode, using transcript", "err", err)
		mode = chat.ContextTranscript
	}
	styleName := cfg.Style
	if opts.Persona != nil && opts.Persona.Style != "" {
		styleName = opts.Persona.Style
	}

	t := opts.Transcript
	if t == nil {
		t = transcript.New(transcript.ContextFor(InstructionsFor(opts.Persona)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan tea.Msg, 64)

	b := newBinding(opts.Store, events, ctx.Done(), logger)
	switch {
	case opts.Path != "":
		b.bindPath(opts.Path)
	case opts.ChatID != "" && opts.Store != nil:
		b.bindID(opts.ChatID)
	}

	streamer := chat.NewStreamer(t, opts.Dialer,
		chat.WithObserver(observerBridge{events: events, done: ctx.Done()}),
		chat.WithLogger(logger),
		chat.WithStyle(models.StyleFromName(styleName)),
		chat.WithContextMode(mode),
		chat.WithAfterExchange(autosave(b, cfg.Autosave)),
	)

	copyText := opts.Clipboard
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	// Create textarea for input
	ta := textarea.New()
	ta.Placeholder = "Ask Sydney anything... (/help for commands)"
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		streamer: streamer,
		binding:  b,
		store:    opts.Store,
		personas: opts.Personas,
		persona:  opts.Persona,
		cfg:      cfg,
		logger:   logger,
		keys:     defaultKeyMap(),
		trigger:  trigger,
		copyText: copyText,
		events:   events,
		ctx:      ctx,
		cancel:   cancel,
		textarea: ta,
		spinner:  s,
	}, nil
}

// InstructionsFor returns the system instructions a persona opens a
// transcript with. A nil persona means the Sydney instructions; a persona
// with empty instructions opens an empty transcript.
func InstructionsFor(p *config.Persona) string {
	if p == nil {
		return transcript.SydneyInstructions
	}
	return p.Instructions
}

// autosave saves the transcript to the bound file after every exchange
func autosave(b *binding, enabled bool) func(*transcript.Transcript) error {
	return func(t *transcript.Transcript) error {
		if !enabled {
			return nil
		}
		if _, err := b.save(t); err != nil {
			return err
		}
		b.rewatch()
		return nil
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		waitForEvent(m.events),
	)
}

// animationTick returns a command that sends animation tick messages
func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshViewport(true)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case busyMsg:
		m.busy = bool(msg)
		if !m.busy {
			m.textarea.Focus()
		}
		m.refreshViewport(true)
		return m, waitForEvent(m.events)

	case transcriptChangedMsg:
		m.refreshViewport(true)
		return m, waitForEvent(m.events)

	case errMsg:
		m.err = msg.err
		return m, waitForEvent(m.events)

	case externalEditMsg:
		m.applyExternalEdit(msg)
		return m, waitForEvent(m.events)

	case exchangeDoneMsg:
		if !msg.accepted {
			m.notice = "An answer is still streaming; input dropped"
		} else if m.cfg.CopyToClipboard && m.err == nil {
			m.copyLastAnswer()
		}

	case spinner.TickMsg:
		if m.busy {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.busy {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}

	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// layout sizes the components for the current window
func (m *Model) layout() {
	headerHeight := 3 // Header panel with border
	inputHeight := 6  // Label, textarea and border
	statusHeight := 1 // Status bar
	footerHeight := 2 // Error or notice line
	border := 2

	vpHeight := m.height - headerHeight - inputHeight - statusHeight - footerHeight - border
	if vpHeight < 5 {
		vpHeight = 5
	}
	contentWidth := max(m.width-4, 20)

	if !m.ready {
		m.viewport = viewport.New(contentWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(contentWidth - 4)
}

// handleKey routes a key press. While an answer streams the input box is
// disabled; quitting, scrolling and copying still work.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay != "" {
		m.overlay = ""
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.ToggleTrigger):
		m.trigger = m.trigger.Toggle()
		m.notice = "Send with " + m.trigger.Label()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		m.copyLastAnswer()
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.PageUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.PageDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil
	}

	if idx := quickReplyIndex(msg); idx >= 0 {
		return m.quickReply(idx)
	}

	if m.busy {
		return m, nil
	}

	switch classifyInputKey(m.trigger, msg.String()) {
	case inputSend:
		return m.send()
	case inputNewline:
		m.textarea.InsertString("\n")
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// send submits the input box, or runs it as a command
func (m Model) send() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}
	m.textarea.Reset()

	switch {
	case strings.HasPrefix(input, "//"):
		// escaped slash: send the text starting with a single "/"
		input = input[1:]
	case strings.HasPrefix(input, "/"), input == "exit", input == "quit":
		return m.runCommand(input)
	}

	return m.startExchange(input)
}

// quickReply sends the idx-th suggestion of the last answer
func (m Model) quickReply(idx int) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	replies := m.streamer.Transcript().Suggestions()
	if idx >= len(replies) {
		m.notice = "No suggestion " + fmt.Sprint(idx+1)
		return m, nil
	}
	return m.startExchange(replies[idx])
}

// startExchange runs one exchange on a goroutine
func (m Model) startExchange(text string) (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = nil
	m.notice = ""
	m.animationFrame = 0
	m.textarea.Blur()

	streamer, ctx := m.streamer, m.ctx
	submit := func() tea.Msg {
		accepted, _ := streamer.Submit(ctx, text)
		return exchangeDoneMsg{accepted: accepted}
	}

	return m, tea.Batch(
		submit,
		m.spinner.Tick,
		animationTick(),
	)
}

// applyExternalEdit reloads the transcript after another program saved
// the bound file. Edits arriving mid-answer are ignored; the autosave that
// follows the answer wins.
func (m *Model) applyExternalEdit(msg externalEditMsg) {
	path, _ := m.binding.get()
	if msg.path == "" || path == "" || m.busy {
		return
	}
	if abs, err := filepath.Abs(path); err != nil || abs != msg.path {
		return
	}
	t := m.streamer.Transcript()
	if msg.text == t.String() {
		return
	}
	t.Load(msg.text)
	m.notice = "Reloaded " + filepath.Base(path)
	m.refreshViewport(true)
}

// copyLastAnswer puts the last assistant message on the clipboard
func (m *Model) copyLastAnswer() {
	answer := lastAnswer(m.streamer.Transcript().Turns())
	if answer == "" {
		m.notice = "No answer to copy"
		return
	}
	if err := m.copyText(answer); err != nil {
		m.err = fmt.Errorf("copy to clipboard: %w", err)
		return
	}
	m.notice = fmt.Sprintf("Copied answer (%d chars)", len([]rune(answer)))
}

// lastAnswer returns the body of the last assistant message turn
func lastAnswer(turns []transcript.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Role == transcript.RoleAssistant && t.Kind == transcript.KindMessage {
			return t.Body
		}
	}
	return ""
}

// shutdown stops the watcher and unblocks the streamer goroutine
func (m Model) shutdown() {
	m.binding.close()
	m.cancel()
}

// refreshViewport re-renders the transcript when it changed since the last
// render, or when the width changed
func (m *Model) refreshViewport(follow bool) {
	if !m.ready {
		return
	}
	t := m.streamer.Transcript()
	version := t.Version()
	if version == m.renderedAt && m.viewport.Width == m.renderedWidth && m.renderedAt != 0 {
		return
	}

	atBottom := m.viewport.AtBottom()
	opts := render.OptionsFromConfig(m.cfg, m.viewport.Width-10)
	m.viewport.SetContent(renderTurns(t.Turns(), m.viewport.Width-6, m.cfg.RenderMarkdown, opts))
	m.renderedAt = version
	m.renderedWidth = m.viewport.Width

	if follow && (atBottom || m.busy) {
		m.viewport.GotoBottom()
	}
}

// maxSearchLines bounds how much of a search results turn is shown
const maxSearchLines = 4

// renderTurns lays out the transcript turns as chat bubbles
func renderTurns(turns []transcript.Turn, width int, markdown bool, opts render.Options) string {
	if width < 10 {
		width = 10
	}

	var content strings.Builder
	for i, turn := range turns {
		if i > 0 {
			content.WriteString("\n")
		}

		switch {
		case turn.Role == transcript.RoleUser && turn.Kind == transcript.KindMessage:
			label := userLabelStyle.Render("● You")
			bubble := userBubbleStyle.Width(width).Render(turn.Body)
			content.WriteString(label + "\n" + bubble)

		case turn.Role == transcript.RoleAssistant && turn.Kind == transcript.KindMessage:
			label := assistantLabelStyle.Render("✦ Sydney")
			body := turn.Body
			if markdown {
				body = render.Answer(body, opts)
			}
			bubble := assistantBubbleStyle.Width(width).Render(body)
			content.WriteString(label + "\n" + bubble)

		case turn.Kind == transcript.KindSearchQuery:
			content.WriteString(searchStyle.Width(width - 2).Render("🔎 Searching: " + strings.TrimSpace(turn.Body)))

		case turn.Kind == transcript.KindSearchResults:
			content.WriteString(searchStyle.Width(width - 2).Render("📚 " + clipLines(turn.Body, maxSearchLines)))

		case turn.Kind == transcript.KindSuggestions:
			content.WriteString(renderSuggestions(transcript.ParseSuggestions(turn.Body)))

		case turn.Role == transcript.RoleSystem, turn.Role == "":
			content.WriteString(systemStyle.Width(width - 2).Render(clipLines(turn.Body, maxSearchLines)))

		default:
			tag := transcript.Tag(turn.Role, turn.Kind)
			content.WriteString(hintStyle.Render(tag) + "\n" + turn.Body)
		}
		content.WriteString("\n")
	}
	return content.String()
}

// renderSuggestions lists quick replies with their keys
func renderSuggestions(replies []string) string {
	if len(replies) == 0 {
		return ""
	}
	lines := make([]string, 0, len(replies))
	for i, r := range replies {
		k := "      "
		if i < 9 {
			k = fmt.Sprintf("Alt+%d ", i+1)
		}
		lines = append(lines, suggestionKey.Render(k)+suggestionStyle.Render(r))
	}
	return strings.Join(lines, "\n")
}

// clipLines keeps the first n lines of s
func clipLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n… %d more lines", len(lines)-n)
}

// Transcript returns the transcript the model displays
func (m Model) Transcript() *transcript.Transcript {
	return m.streamer.Transcript()
}

// RunChat starts the chat TUI and blocks until the user quits
func RunChat(opts Options) error {
	m, err := NewChatModel(opts)
	if err != nil {
		return err
	}
	defer m.shutdown()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
