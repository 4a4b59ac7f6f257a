package render

import (
	"os"

	"github.com/charmbracelet/glamour/styles"
)

// Glamour built-in style names
const (
	StyleAuto       = styles.AutoStyle
	StyleDark       = styles.DarkStyle
	StyleLight      = styles.LightStyle
	StyleDracula    = styles.DraculaStyle
	StyleTokyoNight = styles.TokyoNightStyle
	StylePink       = styles.PinkStyle
	StyleASCII      = styles.AsciiStyle
	StyleNoTTY      = styles.NoTTYStyle
)

// ThemeInfo describes a markdown style for display
type ThemeInfo struct {
	Name        string
	Description string
}

// AvailableThemes lists the built-in markdown styles
func AvailableThemes() []ThemeInfo {
	return []ThemeInfo{
		{Name: StyleDark, Description: "Dark theme (default)"},
		{Name: StyleLight, Description: "Light theme for bright terminals"},
		{Name: StyleAuto, Description: "Dark or light, from the terminal background"},
		{Name: StyleDracula, Description: "Dracula color scheme"},
		{Name: StyleTokyoNight, Description: "Tokyo Night color scheme"},
		{Name: StylePink, Description: "Pink accents"},
		{Name: StyleASCII, Description: "ASCII-only output"},
		{Name: StyleNoTTY, Description: "Plain text (no styling)"},
	}
}

// ThemeNames returns just the theme names for selection.
func ThemeNames() []string {
	themes := AvailableThemes()
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}

// IsBuiltinStyle reports whether style names a glamour built-in style
func IsBuiltinStyle(style string) bool {
	if style == StyleAuto {
		return true
	}
	_, ok := styles.DefaultStyles[style]
	return ok
}

// ValidStyle reports whether style is a built-in style or a readable style
// file
func ValidStyle(style string) bool {
	if IsBuiltinStyle(style) {
		return true
	}
	info, err := os.Stat(style)
	return err == nil && !info.IsDir()
}
