package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// RequiredCookie is the Bing login cookie every request needs
const RequiredCookie = "_U"

// Cookies is the jar of bing.com cookies sent with every request
type Cookies struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewCookies builds a jar from name/value pairs
func NewCookies(values map[string]string) *Cookies {
	c := &Cookies{values: make(map[string]string, len(values))}
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Get returns a cookie value in a thread-safe manner
func (c *Cookies) Get(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[name]
}

// Set updates one cookie
func (c *Cookies) Set(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]string)
	}
	c.values[name] = value
}

// Replace swaps the whole jar atomically, as after a browser refresh
func (c *Cookies) Replace(other *Cookies) {
	snapshot := other.ToMap()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = snapshot
}

// Len returns the number of cookies
func (c *Cookies) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// ToMap returns a copy of the jar (for serialization or HTTP requests)
func (c *Cookies) ToMap() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := make(map[string]string, len(c.values))
	for k, v := range c.values {
		m[k] = v
	}
	return m
}

// Names returns the cookie names sorted
func (c *Cookies) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Header renders the jar as a Cookie header value, names sorted
func (c *Cookies) Header() string {
	m := c.ToMap()
	parts := make([]string, 0, len(m))
	for _, name := range c.Names() {
		parts = append(parts, name+"="+m[name])
	}
	return strings.Join(parts, "; ")
}

// CookieListItem represents a cookie in browser export format
type CookieListItem struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
}

// LoadCookies loads cookies from the cookies file
func LoadCookies() (*Cookies, error) {
	cookiesPath, err := GetCookiesPath()
	if err != nil {
		return nil, err
	}
	return LoadCookiesFrom(cookiesPath)
}

// LoadCookiesFrom loads cookies from an explicit path
func LoadCookiesFrom(path string) (*Cookies, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no cookies found. Please import cookies first:\n  sydney import-cookies <path-to-cookies.json>\nor extract them from your browser:\n  sydney auto-login")
		}
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	return parseCookies(data)
}

// parseCookies parses cookies from JSON data
// Supports both list format [{name, value, domain}] and dict format {name: value}
func parseCookies(data []byte) (*Cookies, error) {
	// Try dict format first
	var dictFormat map[string]string
	if err := json.Unmarshal(data, &dictFormat); err == nil {
		cookies := NewCookies(dictFormat)
		if err := ValidateCookies(cookies); err != nil {
			return nil, err
		}
		return cookies, nil
	}

	// Try list format (browser export)
	var listFormat []CookieListItem
	if err := json.Unmarshal(data, &listFormat); err == nil {
		cookies := NewCookies(nil)
		for _, item := range listFormat {
			if item.Name == "" {
				continue
			}
			// Exports from a whole profile carry other sites too
			if item.Domain != "" && !strings.Contains(item.Domain, "bing.com") {
				continue
			}
			cookies.values[item.Name] = item.Value
		}

		if err := ValidateCookies(cookies); err != nil {
			return nil, err
		}
		return cookies, nil
	}

	return nil, fmt.Errorf("invalid cookies format: expected list [{name, value}] or dict {name: value}")
}

// SaveCookies saves cookies to the cookies file
func SaveCookies(cookies *Cookies) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	return saveCookiesTo(filepath.Join(configDir, "cookies.json"), cookies)
}

func saveCookiesTo(path string, cookies *Cookies) error {
	values := cookies.ToMap()

	// Save in list format for compatibility with browser exports
	listFormat := make([]CookieListItem, 0, len(values))
	for _, name := range cookies.Names() {
		listFormat = append(listFormat, CookieListItem{Name: name, Value: values[name]})
	}

	data, err := json.MarshalIndent(listFormat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	// Save with restrictive permissions (owner read/write only)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}

	return nil
}

// ImportCookies imports cookies from a source file
func ImportCookies(sourcePath string) (*Cookies, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("source file not found: %s", sourcePath)
		}
		return nil, fmt.Errorf("could not read file: %w", err)
	}

	cookies, err := parseCookies(data)
	if err != nil {
		return nil, err
	}

	return cookies, SaveCookies(cookies)
}

// ValidateCookies checks if cookies are valid
func ValidateCookies(cookies *Cookies) error {
	if cookies == nil {
		return fmt.Errorf("cookies are nil")
	}
	if cookies.Get(RequiredCookie) == "" {
		return fmt.Errorf("missing required cookie: %s (log in to bing.com and export its cookies)", RequiredCookie)
	}
	return nil
}
