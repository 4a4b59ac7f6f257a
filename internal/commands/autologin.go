package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/sydney/internal/browser"
	"github.com/diogo/sydney/internal/config"
)

var (
	autoLoginBrowser string
	autoLoginList    bool
)

var autoLoginCmd = &cobra.Command{
	Use:   "auto-login",
	Short: "Extract authentication cookies from browser",
	Long: `Automatically extract Bing authentication cookies from your browser.

This command reads cookies directly from your browser's cookie store,
eliminating the need to manually export and import cookies.

Supported browsers: ` + SupportedBrowsersHelp() + `

IMPORTANT:
- Close the browser before running this command to avoid database locks
- You must be logged into bing.com in the browser
- On macOS, you may be prompted for keychain access (Chrome uses Keychain to encrypt cookies)

Examples:
  sydney auto-login              # Auto-detect browser
  sydney auto-login -b chrome    # Extract from Chrome
  sydney auto-login -b firefox   # Extract from Firefox
  sydney auto-login --list       # List available browsers`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if autoLoginList {
			return runListBrowsers(cmd)
		}
		return runAutoLogin(cmd, autoLoginBrowser)
	},
}

func init() {
	autoLoginCmd.Flags().StringVarP(&autoLoginBrowser, "browser", "b", "auto",
		"Browser to extract cookies from ("+SupportedBrowsersHelp()+", auto)")
	autoLoginCmd.Flags().BoolVarP(&autoLoginList, "list", "l", false,
		"List available browsers with cookie stores")
}

func runAutoLogin(cmd *cobra.Command, browserName string) error {
	targetBrowser, err := browser.ParseBrowser(browserName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "Extracting cookies from browser...")
	_, _ = fmt.Fprintln(out, "Note: If the browser is open, you may encounter database lock errors.")
	_, _ = fmt.Fprintln(out)

	ctx, cancel := context.WithTimeout(commandContext(cmd), 30*time.Second)
	defer cancel()

	result, err := deps.ExtractCookies(ctx, targetBrowser)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := config.ValidateCookies(result.Cookies); err != nil {
		return fmt.Errorf("extracted cookies are invalid: %w", err)
	}

	if err := config.SaveCookies(result.Cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	cookiesPath, _ := config.GetCookiesPath()

	_, _ = fmt.Fprintf(out, "Successfully extracted %d cookies from %s\n", result.Cookies.Len(), result.BrowserName)
	_, _ = fmt.Fprintf(out, "Cookies saved to: %s\n", cookiesPath)
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "  %-8s %s...\n", config.RequiredCookie+":", truncateValue(result.Cookies.Get(config.RequiredCookie), 20))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "You can now run sydney to chat!")

	return nil
}

func runListBrowsers(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	browsers := browser.ListAvailableBrowsers()

	if len(browsers) == 0 {
		_, _ = fmt.Fprintln(out, "No browsers with cookie stores found.")
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "Supported browsers:")
		for _, b := range browser.AllSupportedBrowsers() {
			_, _ = fmt.Fprintf(out, "  - %s\n", b)
		}
		return nil
	}

	_, _ = fmt.Fprintln(out, "Available browsers with cookie stores:")
	for _, b := range browsers {
		_, _ = fmt.Fprintf(out, "  - %s\n", b)
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Use 'sydney auto-login -b <browser>' to extract cookies from a specific browser.")

	return nil
}

func truncateValue(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// SupportedBrowsersHelp returns a help string listing supported browsers
func SupportedBrowsersHelp() string {
	browsers := browser.AllSupportedBrowsers()
	names := make([]string, len(browsers))
	for i, b := range browsers {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}
