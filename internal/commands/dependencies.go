package commands

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"

	"github.com/diogo/sydney/internal/api"
	"github.com/diogo/sydney/internal/browser"
	"github.com/diogo/sydney/internal/chat"
	"github.com/diogo/sydney/internal/config"
	"github.com/diogo/sydney/internal/models"
	"github.com/diogo/sydney/internal/tui"
)

// DialerFactory builds the dialer the chat streamer opens sessions with.
// The returned func releases the underlying client.
type DialerFactory func(ctx context.Context, cfg config.Config, logger *log.Logger) (chat.Dialer, func(), error)

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// NewDialer connects to the chat service.
	NewDialer DialerFactory

	// RunChat runs the chat TUI.
	RunChat func(opts tui.Options) error

	// RunHistorySelector lets the user pick a saved chat.
	RunHistorySelector func(store tui.HistoryStore) (tui.HistorySelectorResult, error)

	// ExtractCookies reads the bing.com cookie jar from a browser.
	ExtractCookies func(ctx context.Context, b browser.SupportedBrowser) (*browser.ExtractResult, error)

	// Clipboard copies text to the system clipboard.
	Clipboard func(text string) error
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		NewDialer:          newClientDialer,
		RunChat:            tui.RunChat,
		RunHistorySelector: tui.RunHistorySelector,
		ExtractCookies:     browser.ExtractBingCookies,
		Clipboard:          clipboard.WriteAll,
	}
}

// deps is swapped by tests. It is assigned in init because the default
// dialer reads deps.ExtractCookies, which a package-level initializer
// would turn into an initialization cycle.
var deps *Dependencies

func init() {
	deps = NewDependencies()
}

// newClientDialer builds an api.Client from the configuration
func newClientDialer(ctx context.Context, cfg config.Config, logger *log.Logger) (chat.Dialer, func(), error) {
	browserType, refresh := getBrowserRefresh(cfg)

	cookies, err := loadCookies(ctx, browserType, refresh, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []api.ClientOption{
		api.WithStyle(models.StyleFromName(cfg.Style)),
		api.WithTimeout(cfg.Timeout()),
		api.WithLogger(logger),
	}
	if proxy := cfg.EffectiveProxy(); proxy != "" {
		opts = append(opts, api.WithProxy(proxy))
	}
	if refresh {
		opts = append(opts, api.WithBrowserRefresh(browserType))
	}

	client, err := api.NewClient(cookies, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return chat.Dial(client.Open), client.Close, nil
}

// loadCookies reads the saved jar, falling back to the browser when
// refresh is enabled and nothing usable is saved
func loadCookies(ctx context.Context, b browser.SupportedBrowser, refresh bool, logger *log.Logger) (*config.Cookies, error) {
	cookies, err := config.LoadCookies()
	if err == nil {
		if err = config.ValidateCookies(cookies); err == nil {
			return cookies, nil
		}
	}
	if !refresh {
		return nil, err
	}

	logger.Info("no usable saved cookies, reading them from the browser", "browser", b)
	result, extractErr := deps.ExtractCookies(ctx, b)
	if extractErr != nil {
		return nil, fmt.Errorf("failed to extract cookies from browser: %w", extractErr)
	}
	if err := config.ValidateCookies(result.Cookies); err != nil {
		return nil, fmt.Errorf("browser cookies are invalid: %w", err)
	}
	if err := config.SaveCookies(result.Cookies); err != nil {
		logger.Warn("could not save browser cookies", "err", err)
	}
	return result.Cookies, nil
}
