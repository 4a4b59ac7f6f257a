package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/diogo/sydney/internal/api"
	"github.com/diogo/sydney/internal/browser"
	"github.com/diogo/sydney/internal/chat"
	"github.com/diogo/sydney/internal/config"
	"github.com/diogo/sydney/internal/models"
	"github.com/diogo/sydney/internal/tui"
)

func helloEvents() []models.Event {
	return []models.Event{
		models.SearchQuery{Text: "greetings"},
		models.MessageContinuation{Text: "Hel"},
		models.MessageContinuation{Text: "Hello!"},
		models.Suggestions{Replies: []string{"Tell me more", "Thanks"}},
	}
}

// setupHome points the config directory at a temporary HOME and resets
// the package flags
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.ProxyEnv, "")
	resetFlags(t)
	return home
}

func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		logFlag = "error"
		styleFlag = ""
		proxyFlag = ""
		browserRefreshFlag = ""

		askTranscriptFlag = ""
		askPersonaFlag = ""
		askFileFlag = ""
		askOutputFlag = ""
		askCopyFlag = false
		askRawFlag = false

		chatPersonaFlag = ""
		chatResumeFlag = ""
		chatFileFlag = ""

		historyFavoritesFlag = false
		historyRawFlag = false
		historyForceFlag = false
		historyContentFlag = false
		exportFormatFlag = "markdown"
		exportOutputFlag = ""
		exportSystemFlag = false
		exportNoSearchesFlag = false

		personaDescFlag = ""
		personaInstructionsFlag = ""
		personaInstrFileFlag = ""
		personaStyleFlag = ""
	}
	reset()
	t.Cleanup(reset)
}

// fakeDeps records what the commands hand to their dependencies
type fakeDeps struct {
	dialer     *api.MockDialer
	dialCalls  int
	dialConfig config.Config
	released   bool
	dialErr    error

	chatOpts  *tui.Options
	selection tui.HistorySelectorResult
	selectErr error

	extractResult *browser.ExtractResult
	extractErr    error
	extracted     []browser.SupportedBrowser

	copied []string
}

// withFakeDeps swaps deps for the duration of the test
func withFakeDeps(t *testing.T, f *fakeDeps) {
	t.Helper()
	if f.dialer == nil {
		f.dialer = &api.MockDialer{Events: helloEvents()}
	}

	old := deps
	deps = &Dependencies{
		NewDialer: func(ctx context.Context, cfg config.Config, logger *log.Logger) (chat.Dialer, func(), error) {
			f.dialCalls++
			f.dialConfig = cfg
			if f.dialErr != nil {
				return nil, nil, f.dialErr
			}
			return chat.Dial(f.dialer.Open), func() { f.released = true }, nil
		},
		RunChat: func(opts tui.Options) error {
			f.chatOpts = &opts
			return nil
		},
		RunHistorySelector: func(store tui.HistoryStore) (tui.HistorySelectorResult, error) {
			return f.selection, f.selectErr
		},
		ExtractCookies: func(ctx context.Context, b browser.SupportedBrowser) (*browser.ExtractResult, error) {
			f.extracted = append(f.extracted, b)
			if f.extractErr != nil {
				return nil, f.extractErr
			}
			if f.extractResult == nil {
				return nil, errors.New("no browser")
			}
			return f.extractResult, nil
		},
		Clipboard: func(text string) error {
			f.copied = append(f.copied, text)
			return nil
		},
	}
	t.Cleanup(func() { deps = old })
}

// newTestCmd returns a command whose streams are buffers
func newTestCmd(stdin string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "test"}
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetContext(context.Background())
	return cmd, &out, &errOut
}

// personaTestCmd returns a test command with fresh persona field flags,
// so Changed only reports what the test sets
func personaTestCmd(stdin string) (*cobra.Command, *bytes.Buffer) {
	cmd, out, _ := newTestCmd(stdin)
	addPersonaFieldFlags(cmd)
	return cmd, out
}

func saveTestCookies(t *testing.T) {
	t.Helper()
	cookies := config.NewCookies(map[string]string{config.RequiredCookie: "token", "MUID": "m"})
	if err := config.SaveCookies(cookies); err != nil {
		t.Fatalf("SaveCookies() error = %v", err)
	}
}
