package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/sydney/internal/chat"
	"github.com/diogo/sydney/internal/config"
	apierrors "github.com/diogo/sydney/internal/errors"
	"github.com/diogo/sydney/internal/models"
	"github.com/diogo/sydney/internal/render"
	"github.com/diogo/sydney/internal/transcript"
	"github.com/diogo/sydney/internal/tui"
)

var (
	askTranscriptFlag string
	askPersonaFlag    string
	askFileFlag       string
	askOutputFlag     string
	askCopyFlag       bool
	askRawFlag        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask a single question and print the answer",
	Long: `Ask Sydney a single question. The answer streams to stdout; on a terminal
it is rendered as markdown once complete.

The prompt comes from the argument, --file, or stdin. With --transcript the
file is sent as context and the exchange is appended to it, so repeated
calls continue the same conversation.

Examples:
  sydney ask "What is Go?"
  sydney ask -t notes.txt "Summarize what we said"
  git diff | sydney ask --raw "Review this diff"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd, args)
	},
}

func init() {
	addAskFlags(askCmd)
}

// addAskFlags registers the ask flags; the root command takes them too
func addAskFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&askTranscriptFlag, "transcript", "t", "", "Transcript file sent as context and saved back")
	cmd.Flags().StringVarP(&askPersonaFlag, "persona", "p", "", "Persona whose instructions start a new transcript")
	cmd.Flags().StringVarP(&askFileFlag, "file", "f", "", "Read the prompt from a file")
	cmd.Flags().StringVarP(&askOutputFlag, "output", "o", "", "Save the answer to a file")
	cmd.Flags().BoolVarP(&askCopyFlag, "copy", "c", false, "Copy the answer to the clipboard")
	cmd.Flags().BoolVar(&askRawFlag, "raw", false, "Stream plain text even on a terminal")
}

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"), // Red
	lipgloss.Color("#feca57"), // Yellow
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#ff9ff3"), // Pink
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#5f27cd"), // Purple
	lipgloss.Color("#00d2d3"), // Teal
	lipgloss.Color("#1dd1a1"), // Green
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorPrimary  = lipgloss.Color("#7aa2f7")
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginBottom(1)

	searchLineStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Italic(true)

	suggestionLineStyle = lipgloss.NewStyle().
				Foreground(colorTextDim)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
)

// spinner handles the animated loading indicator
type spinner struct {
	w       io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool // Flag to prevent double-close
}

// newSpinner creates a new animated spinner drawing on w
func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		_, _ = fmt.Fprint(s.w, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				_, _ = fmt.Fprint(s.w, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	spinIdx := s.frame % len(chars)
	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[spinIdx])

	barWidth := 16
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + s.frame) % len(gradientColors)
		charIdx := (i + s.frame/2) % len(barChars)
		style := lipgloss.NewStyle().Foreground(gradientColors[colorIdx])
		bar.WriteString(style.Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)

	_, _ = fmt.Fprintf(s.w, "\r\033[K%s %s %s %s", spinnerChar, bar.String(), msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows success message
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	checkmark := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	_, _ = fmt.Fprintf(s.w, "%s %s\n", checkmark, successStyle.Render(message))
}

// stopWithError stops the spinner and shows error
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// streamPrinter writes the assistant text of the current exchange to w as
// it grows. It observes the streamer.
type streamPrinter struct {
	w     io.Writer
	t     *transcript.Transcript
	mark  int // turns before the exchange
	turn  int // index of the turn being printed, -1 before the first
	wrote string
}

func newStreamPrinter(w io.Writer, t *transcript.Transcript) *streamPrinter {
	return &streamPrinter{w: w, t: t, mark: len(t.Turns()), turn: -1}
}

func (p *streamPrinter) BusyChanged(bool) {}
func (p *streamPrinter) Error(error)      {}

func (p *streamPrinter) TranscriptChanged() {
	turns := p.t.Turns()
	for i := max(p.mark, p.turn); i < len(turns); i++ {
		turn := turns[i]
		if turn.Role != transcript.RoleAssistant || turn.Kind != transcript.KindMessage {
			continue
		}
		if i != p.turn {
			if p.turn >= 0 {
				_, _ = fmt.Fprint(p.w, "\n\n")
			}
			p.turn = i
			p.wrote = ""
		}
		if rest, ok := strings.CutPrefix(turn.Body, p.wrote); ok {
			_, _ = fmt.Fprint(p.w, rest)
			p.wrote = turn.Body
		}
	}
}

// finish ends the streamed output with a line break
func (p *streamPrinter) finish() {
	if p.turn >= 0 {
		_, _ = fmt.Fprintln(p.w)
	}
}

// exchangeResult is what one exchange added to the transcript
type exchangeResult struct {
	answer      string
	searches    []string
	suggestions []string
}

// resultSince collects the turns appended after mark
func resultSince(turns []transcript.Turn, mark int) exchangeResult {
	var r exchangeResult
	if mark > len(turns) {
		return r
	}
	for _, t := range turns[mark:] {
		if t.Role != transcript.RoleAssistant {
			continue
		}
		switch t.Kind {
		case transcript.KindMessage:
			r.answer = t.Body
		case transcript.KindSearchQuery:
			r.searches = append(r.searches, t.Body)
		case transcript.KindSuggestions:
			r.suggestions = transcript.ParseSuggestions(t.Body)
		}
	}
	return r
}

// readPrompt takes the prompt from --file, the argument, or piped stdin
func readPrompt(in io.Reader, args []string, piped bool) (string, error) {
	var prompt string
	switch {
	case askFileFlag != "":
		data, err := os.ReadFile(askFileFlag)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		prompt = string(data)
	case len(args) > 0:
		prompt = args[0]
	case piped:
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		prompt = string(data)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	return prompt, nil
}

// runAsk executes a single exchange and outputs the answer
func runAsk(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(cmd.InOrStdin(), args, stdinIsPiped())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	persona, err := resolvePersona(askPersonaFlag, cfg)
	if err != nil {
		return err
	}
	t, err := openTranscript(askTranscriptFlag, persona)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	dialer, release, err := deps.NewDialer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer release()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	decorated := !askRawFlag && askOutputFlag == "" && isTerminal(out)

	styleName := cfg.Style
	if styleFlag == "" && persona != nil && persona.Style != "" {
		styleName = persona.Style
	}
	mode, err := chat.ParseContextMode(cfg.ContextMode)
	if err != nil {
		logger.Warn("invalid context_mode, using transcript", "err", err)
		mode = chat.ContextTranscript
	}

	opts := []chat.Option{
		chat.WithLogger(logger),
		chat.WithStyle(models.StyleFromName(styleName)),
		chat.WithContextMode(mode),
	}
	var printer *streamPrinter
	if !decorated && askOutputFlag == "" {
		printer = newStreamPrinter(out, t)
		opts = append(opts, chat.WithObserver(printer))
	}
	if path := askTranscriptFlag; path != "" {
		opts = append(opts, chat.WithAfterExchange(func(t *transcript.Transcript) error {
			return t.SaveFile(path)
		}))
	}

	streamer := chat.NewStreamer(t, dialer, opts...)
	mark := len(t.Turns())

	var spin *spinner
	if decorated {
		spin = newSpinner(errOut, "Asking Sydney")
		spin.start()
	}

	_, submitErr := streamer.Submit(ctx, prompt)
	result := resultSince(t.Turns(), mark)

	if spin != nil {
		if submitErr != nil && result.answer == "" {
			spin.stopWithError()
		} else {
			spin.stopWithSuccess("Done")
		}
	}
	if printer != nil {
		printer.finish()
	}

	if result.answer == "" {
		if submitErr != nil {
			return fmt.Errorf("ask failed: %w", submitErr)
		}
		return apierrors.NewEmptyResponseError("no answer text")
	}

	if askCopyFlag || cfg.CopyToClipboard {
		if err := deps.Clipboard(result.answer); err != nil {
			logger.Warn("failed to copy to clipboard", "err", err)
		} else if decorated {
			_, _ = fmt.Fprintln(errOut, successStyle.Render("✓ Copied to clipboard"))
		}
	}

	switch {
	case askOutputFlag != "":
		if err := os.WriteFile(askOutputFlag, []byte(result.answer+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		_, _ = fmt.Fprintln(errOut, successStyle.Render(fmt.Sprintf("✓ Answer saved to %s", askOutputFlag)))
	case decorated:
		printDecorated(out, cfg, result)
	}

	// A revoked answer keeps what was written, so it only warns
	if submitErr != nil {
		if apierrors.IsWarning(submitErr) {
			_, _ = fmt.Fprintln(errOut, formatErrorMessage(submitErr, "Answer cut short"))
			return nil
		}
		return fmt.Errorf("ask failed: %w", submitErr)
	}
	return nil
}

// printDecorated renders the answer like the chat TUI does
func printDecorated(w io.Writer, cfg config.Config, r exchangeResult) {
	termWidth := getTerminalWidth()
	bubbleWidth := min(max(termWidth-4, 40), 120)
	contentWidth := bubbleWidth - 4

	for _, q := range r.searches {
		_, _ = fmt.Fprintln(w, searchLineStyle.Render("🔎 Searching: "+q))
	}

	_, _ = fmt.Fprintln(w, assistantLabelStyle.Render("✦ Sydney"))

	text := r.answer
	if cfg.RenderMarkdown {
		text = render.Answer(text, render.OptionsFromConfig(cfg, contentWidth))
	}
	text = strings.TrimRight(text, "\n")
	_, _ = fmt.Fprintln(w, assistantBubbleStyle.Width(bubbleWidth).Render(text))

	for i, s := range r.suggestions {
		_, _ = fmt.Fprintln(w, suggestionLineStyle.Render(fmt.Sprintf("  %d. %s", i+1, s)))
	}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // default width
	}
	return width
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// formatErrorMessage formats an error with the hints the chat TUI shows
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}
	return tui.FormatError(fmt.Errorf("%s: %w", context, err))
}
