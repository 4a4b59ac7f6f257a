// Package browser reads the bing.com session cookies out of locally
// installed browsers.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/chrome"
	_ "github.com/browserutils/kooky/browser/chromium"
	_ "github.com/browserutils/kooky/browser/edge"
	_ "github.com/browserutils/kooky/browser/firefox"
	_ "github.com/browserutils/kooky/browser/opera"

	"github.com/diogo/sydney/internal/config"
)

// SupportedBrowser names a browser whose cookie store can be read
type SupportedBrowser string

const (
	BrowserAuto     SupportedBrowser = "auto"
	BrowserChrome   SupportedBrowser = "chrome"
	BrowserChromium SupportedBrowser = "chromium"
	BrowserFirefox  SupportedBrowser = "firefox"
	BrowserEdge     SupportedBrowser = "edge"
	BrowserOpera    SupportedBrowser = "opera"
)

// bingDomain is the cookie domain preferred over www.bing.com and
// regional hosts when a name appears more than once
const bingDomain = ".bing.com"

// autoOrder is the order browsers are tried in when none is named
var autoOrder = []SupportedBrowser{
	BrowserChrome,
	BrowserFirefox,
	BrowserEdge,
	BrowserChromium,
	BrowserOpera,
}

var aliases = map[string]SupportedBrowser{
	"":                BrowserAuto,
	"auto":            BrowserAuto,
	"chrome":          BrowserChrome,
	"google-chrome":   BrowserChrome,
	"chromium":        BrowserChromium,
	"firefox":         BrowserFirefox,
	"mozilla":         BrowserFirefox,
	"mozilla-firefox": BrowserFirefox,
	"edge":            BrowserEdge,
	"microsoft-edge":  BrowserEdge,
	"msedge":          BrowserEdge,
	"opera":           BrowserOpera,
}

// AllSupportedBrowsers lists the browsers that can be named explicitly
func AllSupportedBrowsers() []SupportedBrowser {
	return []SupportedBrowser{
		BrowserChrome,
		BrowserChromium,
		BrowserFirefox,
		BrowserEdge,
		BrowserOpera,
	}
}

func (b SupportedBrowser) String() string {
	return string(b)
}

// ParseBrowser accepts a browser name or one of its common aliases
func ParseBrowser(s string) (SupportedBrowser, error) {
	if b, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return b, nil
	}
	return "", fmt.Errorf("unsupported browser: %s. Supported: chrome, chromium, firefox, edge, opera", s)
}

// ExtractResult is a bing.com cookie jar and where it came from
type ExtractResult struct {
	Cookies     *config.Cookies
	BrowserName string
}

// ExtractBingCookies reads the bing.com jar from browser, or from the first
// browser that has a signed-in profile when browser is BrowserAuto.
func ExtractBingCookies(ctx context.Context, browser SupportedBrowser) (*ExtractResult, error) {
	if browser != BrowserAuto {
		return extractFromBrowser(ctx, browser)
	}
	return extractFromAllBrowsers(ctx)
}

func extractFromAllBrowsers(ctx context.Context) (*ExtractResult, error) {
	var lastErr error
	for _, b := range autoOrder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := extractFromBrowser(ctx, b)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("could not find Bing cookies in any browser: %w", lastErr)
}

// extractFromBrowser walks every profile of browser and returns the first
// jar holding the session cookie. All stores are closed before returning.
func extractFromBrowser(ctx context.Context, browser SupportedBrowser) (*ExtractResult, error) {
	var stores []kooky.CookieStore
	for _, store := range kooky.FindAllCookieStores(ctx) {
		if matchesBrowser(store.Browser(), browser) {
			stores = append(stores, store)
		} else {
			_ = store.Close()
		}
	}
	defer func() {
		for _, store := range stores {
			_ = store.Close()
		}
	}()

	if len(stores) == 0 {
		return nil, fmt.Errorf("browser %s not found or no cookie store available", browser)
	}

	var lastErr error
	for _, store := range stores {
		result, err := extractCookiesFromStore(ctx, store)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// matchesBrowser reports whether a kooky browser name belongs to target.
// Chrome excludes Chromium since both names contain "chrom".
func matchesBrowser(browserName string, target SupportedBrowser) bool {
	name := strings.ToLower(browserName)
	switch target {
	case BrowserChrome:
		return strings.Contains(name, "chrome") && !strings.Contains(name, "chromium")
	case BrowserChromium, BrowserFirefox, BrowserEdge, BrowserOpera:
		return strings.Contains(name, string(target))
	}
	return false
}

func extractCookiesFromStore(ctx context.Context, store kooky.CookieStore) (*ExtractResult, error) {
	name := store.Browser()
	if profile := store.Profile(); profile != "" {
		name = fmt.Sprintf("%s (profile: %s)", name, profile)
	}

	seq := store.TraverseCookies(kooky.Valid, kooky.DomainContains("bing.com")).OnlyCookies()
	values, err := collectJar(ctx, seq)
	if err != nil {
		return nil, err
	}
	if values[config.RequiredCookie] == "" {
		return nil, fmt.Errorf("cookie %s not found in %s. Please ensure you are logged into bing.com", config.RequiredCookie, name)
	}
	return &ExtractResult{Cookies: config.NewCookies(values), BrowserName: name}, nil
}

// collectJar flattens cookies into name/value pairs. A name set on
// .bing.com keeps that value over any host-specific copy. Cookies the
// store failed to decode are skipped.
func collectJar(ctx context.Context, cookies kooky.CookieSeq) (map[string]string, error) {
	values := make(map[string]string)
	fromRoot := make(map[string]bool)
	for c, err := range cookies {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil || c == nil || fromRoot[c.Name] {
			continue
		}
		values[c.Name] = c.Value
		fromRoot[c.Name] = c.Domain == bingDomain
	}
	return values, nil
}

// ListAvailableBrowsers names the browsers that have a cookie store on
// this machine, once each.
func ListAvailableBrowsers() []string {
	var names []string
	seen := make(map[string]bool)
	for _, store := range kooky.FindAllCookieStores(context.Background()) {
		if name := store.Browser(); !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		_ = store.Close()
	}
	return names
}
