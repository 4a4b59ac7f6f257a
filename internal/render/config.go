package render

import (
	"os"

	"github.com/diogo/sydney/internal/config"
)

// StyleEnv overrides the configured markdown style, as glamour itself does
const StyleEnv = "GLAMOUR_STYLE"

// OptionsFromConfig builds render options from the user configuration.
// GLAMOUR_STYLE takes precedence over markdown_style. Unknown styles fall
// back to the dark theme.
func OptionsFromConfig(cfg config.Config, width int) Options {
	opts := DefaultOptions()
	if width > 0 {
		opts.Width = width
	}
	if cfg.MarkdownStyle != "" {
		opts.Style = cfg.MarkdownStyle
	}
	if style := os.Getenv(StyleEnv); style != "" {
		opts.Style = style
	}
	if !ValidStyle(opts.Style) {
		opts.Style = StyleDark
	}
	return opts
}
