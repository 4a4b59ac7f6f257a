// Package api implements the Bing chat service client: conversation
// creation over a browser-fingerprinted HTTP client and the ChatHub
// WebSocket stream.
package api

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/diogo/sydney/internal/browser"
	"github.com/diogo/sydney/internal/config"
	apierrors "github.com/diogo/sydney/internal/errors"
	"github.com/diogo/sydney/internal/models"
)

// CookieExtractor reads a fresh cookie jar from a local browser
type CookieExtractor func(ctx context.Context, b browser.SupportedBrowser) (*browser.ExtractResult, error)

// Client opens sessions with the chat service
type Client struct {
	httpClient tls_client.HttpClient
	cookies    *config.Cookies
	style      models.Style
	proxy      string
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *log.Logger

	createURL  string
	chatHubURL string

	// Browser-based cookie refresh
	browserRefresh        bool
	browserRefreshType    browser.SupportedBrowser
	lastBrowserRefresh    time.Time
	browserRefreshMinWait time.Duration
	extractCookies        CookieExtractor
	saveCookies           func(*config.Cookies) error

	mu     sync.RWMutex
	closed bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithStyle sets the default conversation style
func WithStyle(style models.Style) ClientOption {
	return func(c *Client) {
		c.style = style
	}
}

// WithProxy routes both the HTTP and the WebSocket traffic through proxyURL
// (http, https or socks5)
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxy = proxyURL
	}
}

// WithTimeout bounds conversation creation and the WebSocket handshake
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit limits how often conversations are created
func WithRateLimit(every time.Duration, burst int) ClientOption {
	return func(c *Client) {
		if every <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBrowserRefresh enables automatic cookie refresh from browser when auth fails
// browserType can be "auto", "chrome", "firefox", "edge", "chromium", "opera"
func WithBrowserRefresh(browserType browser.SupportedBrowser) ClientOption {
	return func(c *Client) {
		c.browserRefresh = true
		c.browserRefreshType = browserType
	}
}

// WithHTTPClient replaces the tls-client used for conversation creation
func WithHTTPClient(hc tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithEndpoints overrides the conversation create and ChatHub URLs
func WithEndpoints(createURL, chatHubURL string) ClientOption {
	return func(c *Client) {
		if createURL != "" {
			c.createURL = createURL
		}
		if chatHubURL != "" {
			c.chatHubURL = chatHubURL
		}
	}
}

// NewClient creates a new Client
func NewClient(cookies *config.Cookies, opts ...ClientOption) (*Client, error) {
	// Validate cookies
	if err := config.ValidateCookies(cookies); err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrNoCookies, err)
	}

	client := &Client{
		cookies:               cookies,
		style:                 models.DefaultStyle,
		timeout:               300 * time.Second,
		limiter:               rate.NewLimiter(rate.Every(2*time.Second), 3),
		logger:                log.New(io.Discard),
		createURL:             models.EndpointCreate,
		chatHubURL:            models.EndpointChatHub,
		browserRefreshMinWait: 30 * time.Second, // Minimum wait between browser refreshes
		extractCookies:        browser.ExtractBingCookies,
		saveCookies:           config.SaveCookies,
	}

	// Apply options
	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		// Create TLS client with Chrome profile for browser emulation
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(int(client.timeout / time.Second)),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}
		if client.proxy != "" {
			options = append(options, tls_client.WithProxyUrl(client.proxy))
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// Open creates a conversation and connects its ChatHub stream. The caller
// owns the returned session and must Close it.
func (c *Client) Open(ctx context.Context) (*Session, error) {
	if c.IsClosed() {
		return nil, apierrors.NewSessionError("open session", "", "client is closed")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apierrors.NewNetworkError("open session", c.createURL, err)
		}
	}

	conv, err := c.createWithRefresh(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("conversation created", "id", conv.ID, "encrypted", conv.EncryptedSignature != "")

	ws, err := c.dialChatHub(ctx, conv)
	if err != nil {
		return nil, err
	}

	return newSession(c, conv, ws), nil
}

// createWithRefresh creates a conversation, re-reading cookies from the
// browser once if the service rejects them
func (c *Client) createWithRefresh(ctx context.Context) (models.Conversation, error) {
	conv, err := c.CreateConversation(ctx)
	if err == nil || !c.IsBrowserRefreshEnabled() || !apierrors.IsAuthError(err) {
		return conv, err
	}

	c.logger.Info("cookies rejected, refreshing from browser", "browser", c.browserRefreshType)
	refreshed, refreshErr := c.RefreshFromBrowser(ctx)
	if refreshErr != nil || !refreshed {
		c.logger.Warn("browser refresh failed", "err", refreshErr)
		return conv, err
	}
	return c.CreateConversation(ctx)
}

// Close shuts down the client
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// GetCookies returns the current cookies
func (c *Client) GetCookies() *config.Cookies {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cookies
}

// GetStyle returns the default style
func (c *Client) GetStyle() models.Style {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.style
}

// SetStyle sets the default style
func (c *Client) SetStyle(style models.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.style = style
}

// IsBrowserRefreshEnabled returns whether browser refresh is enabled
func (c *Client) IsBrowserRefreshEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.browserRefresh
}

// RefreshFromBrowser attempts to refresh cookies by extracting them from the browser
// Returns true if cookies were successfully refreshed
func (c *Client) RefreshFromBrowser(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.browserRefresh {
		return false, fmt.Errorf("browser refresh is not enabled")
	}

	// Rate limit browser refresh attempts
	if wait := c.browserRefreshMinWait - time.Since(c.lastBrowserRefresh); wait > 0 {
		return false, fmt.Errorf("browser refresh attempted too recently, wait %v", wait.Round(time.Second))
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c.lastBrowserRefresh = time.Now()
	result, err := c.extractCookies(ctx, c.browserRefreshType)
	if err != nil {
		return false, fmt.Errorf("failed to extract cookies from browser: %w", err)
	}

	c.cookies.Replace(result.Cookies)
	c.logger.Info("cookies refreshed", "browser", result.BrowserName)

	// Save updated cookies to disk
	if err := c.saveCookies(c.cookies); err != nil {
		// cookies are updated in memory
		c.logger.Warn("failed to save refreshed cookies to disk", "err", err)
	}

	return true, nil
}
