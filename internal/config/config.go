// Package config handles configuration and cookie management for sydney.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the user configuration
type Config struct {
	// Style is the conversation style: creative, balanced or precise
	Style string `json:"style" toml:"style"`
	// SendTrigger is "enter" or "ctrl+enter"
	SendTrigger string `json:"send_trigger" toml:"send_trigger"`
	// ContextMode is "transcript" to send the whole transcript with every
	// prompt, or "none"
	ContextMode string `json:"context_mode" toml:"context_mode"`
	Persona     string `json:"persona,omitempty" toml:"persona"`
	// Proxy is an http://, https:// or socks5:// URL. SYDNEY_PROXY overrides it.
	Proxy string `json:"proxy,omitempty" toml:"proxy"`
	// Autosave writes the transcript to its bound file after every exchange
	Autosave        bool   `json:"autosave" toml:"autosave"`
	RenderMarkdown  bool   `json:"render_markdown" toml:"render_markdown"`
	MarkdownStyle   string `json:"markdown_style" toml:"markdown_style"` // "dark", "light", "notty", ...
	CopyToClipboard bool   `json:"copy_to_clipboard" toml:"copy_to_clipboard"`
	// RequestTimeout is in seconds
	RequestTimeout int `json:"request_timeout" toml:"request_timeout"`
	// BrowserRefresh names the browser to re-read cookies from when the
	// service rejects them; empty disables it
	BrowserRefresh string `json:"browser_refresh,omitempty" toml:"browser_refresh"`
	HistoryDir     string `json:"history_dir,omitempty" toml:"history_dir"`
}

// ProxyEnv overrides Config.Proxy when set
const ProxyEnv = "SYDNEY_PROXY"

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Style:           "balanced",
		SendTrigger:     "enter",
		ContextMode:     "transcript",
		Persona:         "sydney",
		Autosave:        true,
		RenderMarkdown:  true,
		MarkdownStyle:   "dark",
		CopyToClipboard: false,
		RequestTimeout:  300,
	}
}

// Timeout returns RequestTimeout as a duration, falling back to the default
func (c Config) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return time.Duration(DefaultConfig().RequestTimeout) * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// EffectiveProxy returns the proxy from the environment or the config
func (c Config) EffectiveProxy() string {
	if p := os.Getenv(ProxyEnv); p != "" {
		return p
	}
	return c.Proxy
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sydney")
	return configDir, nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// Use 0o700 for sensitive directories (contains cookies and config)
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the JSON config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetTOMLConfigPath returns the path to the TOML config file, which takes
// precedence over the JSON one when present
func GetTOMLConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// GetCookiesPath returns the path to the cookies file
func GetCookiesPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "cookies.json"), nil
}

// GetLogPath returns the log file used while the chat UI owns the terminal
func GetLogPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "sydney.log"), nil
}

// GetHistoryDir returns the transcript history directory, creating it if
// necessary
func GetHistoryDir(cfg Config) (string, error) {
	dir := cfg.HistoryDir
	if dir == "" {
		configDir, err := GetConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(configDir, "history")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create history directory: %w", err)
	}

	return dir, nil
}

// LoadConfig loads the configuration from disk. config.toml wins over
// config.json; missing files yield defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	tomlPath, err := GetTOMLConfigPath()
	if err != nil {
		return cfg, err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		if _, err := toml.DecodeFile(tomlPath, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("failed to parse config file %s: %w", tomlPath, err)
		}
		return cfg, nil
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults if config doesn't exist
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk, in TOML when a config.toml
// already exists and JSON otherwise
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	tomlPath := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		f, err := os.OpenFile(tomlPath, os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open config file: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		return nil
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Use 0o600 for sensitive files (config may contain a proxy with credentials)
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// AvailableStyles returns the conversation style names
func AvailableStyles() []string {
	return []string{
		"creative",
		"balanced",
		"precise",
	}
}
