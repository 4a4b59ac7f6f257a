package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/sydney/internal/config"
)

var importCookiesCmd = &cobra.Command{
	Use:   "import-cookies <path>",
	Short: "Import cookies from a file",
	Long: `Import bing.com authentication cookies from a JSON file.

The cookies file should contain either:
1. A browser export list: [{"name": "_U", "value": "...", "domain": ".bing.com"}]
2. A simple dictionary: {"_U": "...", "MUID": "..."}

Required cookie: ` + config.RequiredCookie + `
All other bing.com cookies are kept and sent as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImportCookies(cmd, args[0])
	},
}

func runImportCookies(cmd *cobra.Command, sourcePath string) error {
	cookies, err := config.ImportCookies(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}

	cookiesPath, _ := config.GetCookiesPath()
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Imported %d cookies to %s\n", cookies.Len(), cookiesPath)
	_, _ = fmt.Fprintf(out, "  %s\n", strings.Join(cookies.Names(), ", "))
	return nil
}
