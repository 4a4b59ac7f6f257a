package render

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// TUITheme is the color scheme of the chat UI. Each one pairs with the
// markdown style of the same name so answers and chrome match.
type TUITheme struct {
	Name string

	Surface lipgloss.Color
	Border  lipgloss.Color

	Primary   lipgloss.Color // assistant
	Secondary lipgloss.Color // user
	Accent    lipgloss.Color // searches and suggestions
	Warning   lipgloss.Color
	Error     lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color
}

// Built-in TUI themes
var (
	DarkTheme = TUITheme{
		Name:      StyleDark,
		Surface:   lipgloss.Color("#1f2430"),
		Border:    lipgloss.Color("#3e4452"),
		Primary:   lipgloss.Color("#2dd4bf"),
		Secondary: lipgloss.Color("#60a5fa"),
		Accent:    lipgloss.Color("#c084fc"),
		Warning:   lipgloss.Color("#fbbf24"),
		Error:     lipgloss.Color("#f87171"),
		Text:      lipgloss.Color("#e5e7eb"),
		TextDim:   lipgloss.Color("#9ca3af"),
		TextMute:  lipgloss.Color("#4b5563"),
	}

	LightTheme = TUITheme{
		Name:      StyleLight,
		Surface:   lipgloss.Color("#f3f4f6"),
		Border:    lipgloss.Color("#d1d5db"),
		Primary:   lipgloss.Color("#0f766e"),
		Secondary: lipgloss.Color("#1d4ed8"),
		Accent:    lipgloss.Color("#7e22ce"),
		Warning:   lipgloss.Color("#b45309"),
		Error:     lipgloss.Color("#b91c1c"),
		Text:      lipgloss.Color("#111827"),
		TextDim:   lipgloss.Color("#4b5563"),
		TextMute:  lipgloss.Color("#9ca3af"),
	}

	TokyoNightTheme = TUITheme{
		Name:      StyleTokyoNight,
		Surface:   lipgloss.Color("#24283b"),
		Border:    lipgloss.Color("#414868"),
		Primary:   lipgloss.Color("#7aa2f7"),
		Secondary: lipgloss.Color("#9ece6a"),
		Accent:    lipgloss.Color("#bb9af7"),
		Warning:   lipgloss.Color("#e0af68"),
		Error:     lipgloss.Color("#f7768e"),
		Text:      lipgloss.Color("#c0caf5"),
		TextDim:   lipgloss.Color("#565f89"),
		TextMute:  lipgloss.Color("#3b4261"),
	}

	DraculaTheme = TUITheme{
		Name:      StyleDracula,
		Surface:   lipgloss.Color("#44475a"),
		Border:    lipgloss.Color("#6272a4"),
		Primary:   lipgloss.Color("#8be9fd"),
		Secondary: lipgloss.Color("#50fa7b"),
		Accent:    lipgloss.Color("#ff79c6"),
		Warning:   lipgloss.Color("#f1fa8c"),
		Error:     lipgloss.Color("#ff5555"),
		Text:      lipgloss.Color("#f8f8f2"),
		TextDim:   lipgloss.Color("#6272a4"),
		TextMute:  lipgloss.Color("#44475a"),
	}
)

var (
	themeMu         sync.RWMutex
	currentTUITheme = DarkTheme
)

// GetTUITheme returns the currently active TUI theme
func GetTUITheme() TUITheme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTUITheme
}

// SetTUITheme activates the theme matching a markdown style. Styles
// without a dedicated theme fall back to dark; it reports whether an exact
// match was found.
func SetTUITheme(style string) bool {
	theme, ok := TUIThemeFor(style)
	themeMu.Lock()
	currentTUITheme = theme
	themeMu.Unlock()
	return ok
}

// TUIThemeFor returns the theme paired with a markdown style
func TUIThemeFor(style string) (TUITheme, bool) {
	for _, t := range AvailableTUIThemes() {
		if t.Name == style {
			return t, true
		}
	}
	return DarkTheme, false
}

// AvailableTUIThemes returns the built-in TUI themes
func AvailableTUIThemes() []TUITheme {
	return []TUITheme{
		DarkTheme,
		LightTheme,
		TokyoNightTheme,
		DraculaTheme,
	}
}
