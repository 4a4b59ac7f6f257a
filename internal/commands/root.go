// Package commands provides CLI commands for sydney.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/diogo/sydney/internal/browser"
	"github.com/diogo/sydney/internal/config"
	"github.com/diogo/sydney/internal/logging"
)

var (
	// Global flags
	logFlag            string
	styleFlag          string
	proxyFlag          string
	browserRefreshFlag string

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sydney [prompt]",
	Short: "Terminal chat client for Bing's Sydney",
	Long: `sydney is a terminal chat client for the Bing chat service. It keeps the
conversation as a plain text transcript that is sent back as context with
every prompt, so the transcript can be edited, saved and resumed.

Examples:
  sydney                                Start interactive chat
  sydney chat --resume @last            Resume the most recent chat
  sydney "What is Go?"                  Ask a single question
  cat notes.md | sydney                 Read the prompt from stdin
  sydney ask -t notes.txt "and then?"   Continue a transcript file
  sydney auto-login                     Read cookies from your browser
  sydney config                         Configure settings`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sydney %s (built %s)\n", Version, BuildTime)
			return nil
		}

		// A prompt or piped input means a one-shot question
		if len(args) > 0 || stdinIsPiped() {
			return runAsk(cmd, args)
		}

		return runChat(cmd)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, formatErrorMessage(err, "sydney"))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFlag, "log", logging.DefaultLevel,
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&styleFlag, "style", "s", "",
		"Conversation style (creative, balanced, precise)")
	rootCmd.PersistentFlags().StringVar(&proxyFlag, "proxy", "",
		"Proxy URL (http, https or socks5); overrides the config and "+config.ProxyEnv)
	rootCmd.PersistentFlags().StringVar(&browserRefreshFlag, "browser-refresh", "",
		"Re-read cookies from this browser when they are rejected ("+SupportedBrowsersHelp()+", auto)")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	addAskFlags(rootCmd)

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(importCookiesCmd)
	rootCmd.AddCommand(autoLoginCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(personaCmd)
}

// loadConfig loads the configuration and applies the global flags
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	if styleFlag != "" {
		cfg.Style = styleFlag
	}
	if proxyFlag != "" {
		cfg.Proxy = proxyFlag
	}
	if browserRefreshFlag != "" {
		cfg.BrowserRefresh = browserRefreshFlag
	}
	return cfg, nil
}

// newLogger returns the stderr logger used by non-interactive commands
func newLogger(w io.Writer) (*log.Logger, error) {
	return logging.New(w, logging.Options{Level: logFlag, Prefix: "sydney"})
}

// getBrowserRefresh returns the browser type for auto-refresh, or false if disabled
func getBrowserRefresh(cfg config.Config) (browser.SupportedBrowser, bool) {
	if cfg.BrowserRefresh == "" {
		return "", false
	}

	browserType, err := browser.ParseBrowser(cfg.BrowserRefresh)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid browser-refresh value '%s', disabling browser refresh\n", cfg.BrowserRefresh)
		return "", false
	}

	return browserType, true
}

// stdinIsPiped reports whether stdin carries data rather than a terminal
func stdinIsPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
