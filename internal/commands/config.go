package commands

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/sydney/internal/browser"
	"github.com/diogo/sydney/internal/chat"
	"github.com/diogo/sydney/internal/config"
	"github.com/diogo/sydney/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open configuration menu",
	Long: `Interactive form to configure sydney settings.

Settings are saved to ~/.sydney/config.json, or to ~/.sydney/config.toml
when that file exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig(cmd)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

// configForm holds the form fields as the widgets edit them
type configForm struct {
	Style           string
	SendTrigger     string
	ContextMode     string
	Persona         string
	Proxy           string
	BrowserRefresh  string
	Autosave        bool
	RenderMarkdown  bool
	MarkdownStyle   string
	CopyToClipboard bool
	RequestTimeout  string
	HistoryDir      string
}

func newConfigForm(cfg config.Config) *configForm {
	return &configForm{
		Style:           cfg.Style,
		SendTrigger:     cfg.SendTrigger,
		ContextMode:     cfg.ContextMode,
		Persona:         cfg.Persona,
		Proxy:           cfg.Proxy,
		BrowserRefresh:  cfg.BrowserRefresh,
		Autosave:        cfg.Autosave,
		RenderMarkdown:  cfg.RenderMarkdown,
		MarkdownStyle:   cfg.MarkdownStyle,
		CopyToClipboard: cfg.CopyToClipboard,
		RequestTimeout:  strconv.Itoa(cfg.RequestTimeout),
		HistoryDir:      cfg.HistoryDir,
	}
}

// apply copies the edited fields onto base
func (f *configForm) apply(base config.Config) (config.Config, error) {
	timeout, err := parseTimeout(f.RequestTimeout)
	if err != nil {
		return base, err
	}
	if err := validateProxy(f.Proxy); err != nil {
		return base, err
	}

	base.Style = f.Style
	base.SendTrigger = f.SendTrigger
	base.ContextMode = f.ContextMode
	base.Persona = f.Persona
	base.Proxy = strings.TrimSpace(f.Proxy)
	base.BrowserRefresh = f.BrowserRefresh
	base.Autosave = f.Autosave
	base.RenderMarkdown = f.RenderMarkdown
	base.MarkdownStyle = f.MarkdownStyle
	base.CopyToClipboard = f.CopyToClipboard
	base.RequestTimeout = timeout
	base.HistoryDir = strings.TrimSpace(f.HistoryDir)
	return base, nil
}

func parseTimeout(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("request timeout must be a positive number of seconds")
	}
	return n, nil
}

func validateProxy(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid proxy URL %q", s)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
		return nil
	}
	return fmt.Errorf("unsupported proxy scheme %q (use http, https or socks5)", u.Scheme)
}

func stringOptions(values ...string) []huh.Option[string] {
	opts := make([]huh.Option[string], len(values))
	for i, v := range values {
		opts[i] = huh.NewOption(v, v)
	}
	return opts
}

// runConfigForm is a test hook for replacing the interactive form
var runConfigForm = defaultRunConfigForm

func defaultRunConfigForm(in io.Reader, out io.Writer, f *configForm) error {
	personas, err := config.ListPersonaNames()
	if err != nil || len(personas) == 0 {
		personas = []string{config.DefaultPersonaName}
	}

	browserOpts := []huh.Option[string]{huh.NewOption("off", "")}
	browserOpts = append(browserOpts, huh.NewOption("auto", string(browser.BrowserAuto)))
	for _, b := range browser.AllSupportedBrowsers() {
		browserOpts = append(browserOpts, huh.NewOption(string(b), string(b)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Conversation style").
				Options(stringOptions(config.AvailableStyles()...)...).
				Value(&f.Style),
			huh.NewSelect[string]().
				Title("Persona").
				Description("Instructions a new chat starts with").
				Options(stringOptions(personas...)...).
				Value(&f.Persona),
			huh.NewSelect[string]().
				Title("Send with").
				Options(
					huh.NewOption("Enter", string(chat.SendOnEnter)),
					huh.NewOption("Ctrl+Enter", string(chat.SendOnCtrlEnter)),
				).
				Value(&f.SendTrigger),
			huh.NewSelect[string]().
				Title("Context").
				Description("Send the whole transcript with every prompt, or only the prompt").
				Options(
					huh.NewOption("transcript", string(chat.ContextTranscript)),
					huh.NewOption("none", string(chat.ContextNone)),
				).
				Value(&f.ContextMode),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Autosave chats").
				Value(&f.Autosave),
			huh.NewConfirm().
				Title("Render markdown").
				Value(&f.RenderMarkdown),
			huh.NewSelect[string]().
				Title("Markdown style").
				Options(stringOptions(render.ThemeNames()...)...).
				Value(&f.MarkdownStyle),
			huh.NewConfirm().
				Title("Copy answers to the clipboard").
				Value(&f.CopyToClipboard),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Proxy").
				Description(config.ProxyEnv+" overrides this").
				Placeholder("socks5://127.0.0.1:1080").
				Value(&f.Proxy).
				Validate(validateProxy),
			huh.NewSelect[string]().
				Title("Refresh cookies from browser").
				Description("Used when the service rejects the saved cookies").
				Options(browserOpts...).
				Value(&f.BrowserRefresh),
			huh.NewInput().
				Title("Request timeout (seconds)").
				Value(&f.RequestTimeout).
				Validate(func(s string) error {
					_, err := parseTimeout(s)
					return err
				}),
			huh.NewInput().
				Title("History directory").
				Description("Empty means ~/.sydney/history").
				Value(&f.HistoryDir),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if file, ok := in.(*os.File); !ok || !term.IsTerminal(int(file.Fd())) {
		form = form.WithAccessible(true)
	}

	return form.Run()
}

func runConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	form := newConfigForm(cfg)
	if err := runConfigForm(cmd.InOrStdin(), cmd.OutOrStdout(), form); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration unchanged.")
			return nil
		}
		return fmt.Errorf("config form failed: %w", err)
	}

	updated, err := form.apply(cfg)
	if err != nil {
		return err
	}
	if err := config.SaveConfig(updated); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration saved.")
	return nil
}

func runConfigShow(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path, _ := config.GetConfigPath()
	if tomlPath, err := config.GetTOMLConfigPath(); err == nil {
		if _, err := os.Stat(tomlPath); err == nil {
			path = tomlPath
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "# %s\n", path)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"style", cfg.Style},
		{"persona", cfg.Persona},
		{"send_trigger", cfg.SendTrigger},
		{"context_mode", cfg.ContextMode},
		{"proxy", cfg.EffectiveProxy()},
		{"browser_refresh", cfg.BrowserRefresh},
		{"autosave", strconv.FormatBool(cfg.Autosave)},
		{"render_markdown", strconv.FormatBool(cfg.RenderMarkdown)},
		{"markdown_style", cfg.MarkdownStyle},
		{"copy_to_clipboard", strconv.FormatBool(cfg.CopyToClipboard)},
		{"request_timeout", strconv.Itoa(cfg.RequestTimeout)},
		{"history_dir", cfg.HistoryDir},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", r[0], r[1])
	}
	return w.Flush()
}
