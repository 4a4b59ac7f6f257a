// Package tui provides the terminal chat interface for sydney.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/sydney/internal/errors"
	"github.com/diogo/sydney/internal/render"
)

// Color variables (updated from theme)
var (
	colorSurface lipgloss.Color
	colorBorder  lipgloss.Color

	colorPrimary   lipgloss.Color
	colorSecondary lipgloss.Color
	colorAccent    lipgloss.Color
	colorWarning   lipgloss.Color
	colorError     lipgloss.Color

	colorText     lipgloss.Color
	colorTextDim  lipgloss.Color
	colorTextMute lipgloss.Color
)

// Style variables (rebuilt when theme changes)
var (
	headerStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	subtitleStyle lipgloss.Style
	hintStyle     lipgloss.Style

	messagesAreaStyle lipgloss.Style

	userBubbleStyle      lipgloss.Style
	userLabelStyle       lipgloss.Style
	assistantBubbleStyle lipgloss.Style
	assistantLabelStyle  lipgloss.Style

	// System instructions, search queries and search results are shown
	// dimmed next to the conversation
	systemStyle     lipgloss.Style
	searchStyle     lipgloss.Style
	suggestionStyle lipgloss.Style
	suggestionKey   lipgloss.Style

	inputPanelStyle lipgloss.Style
	inputLabelStyle lipgloss.Style
	loadingStyle    lipgloss.Style

	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style
	noticeStyle     lipgloss.Style

	errorStyle   lipgloss.Style
	warningStyle lipgloss.Style

	welcomeStyle      lipgloss.Style
	welcomeTitleStyle lipgloss.Style
	welcomeIconStyle  lipgloss.Style

	// History list styles
	listHeaderStyle   lipgloss.Style
	listTitleStyle    lipgloss.Style
	listPanelStyle    lipgloss.Style
	listSectionStyle  lipgloss.Style
	listItemStyle     lipgloss.Style
	listSelectedStyle lipgloss.Style
	listCursorStyle   lipgloss.Style
	listFavoriteStyle lipgloss.Style
	listTimeStyle     lipgloss.Style
	listStatusStyle   lipgloss.Style
)

// Gradient colors for the loading animation (fixed colors)
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"),
	lipgloss.Color("#feca57"),
	lipgloss.Color("#48dbfb"),
	lipgloss.Color("#ff9ff3"),
	lipgloss.Color("#54a0ff"),
	lipgloss.Color("#5f27cd"),
	lipgloss.Color("#00d2d3"),
	lipgloss.Color("#1dd1a1"),
}

func init() {
	UpdateTheme()
}

// UpdateTheme refreshes all styles based on the current TUI theme
func UpdateTheme() {
	theme := render.GetTUITheme()

	colorSurface = theme.Surface
	colorBorder = theme.Border
	colorPrimary = theme.Primary
	colorSecondary = theme.Secondary
	colorAccent = theme.Accent
	colorWarning = theme.Warning
	colorError = theme.Error
	colorText = theme.Text
	colorTextDim = theme.TextDim
	colorTextMute = theme.TextMute

	rebuildStyles()
}

// ApplyMarkdownStyle selects the TUI theme matching a glamour style name and
// rebuilds the styles. Unknown names fall back to the dark theme.
func ApplyMarkdownStyle(style string) {
	render.SetTUITheme(style)
	UpdateTheme()
}

func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)

	subtitleStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	hintStyle = lipgloss.NewStyle().
		Foreground(colorTextMute).
		Italic(true)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	userBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorSecondary).
		Padding(0, 1).
		MarginLeft(4)

	userLabelStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Bold(true).
		MarginLeft(4)

	assistantBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Foreground(colorText).
		Padding(0, 1).
		MarginRight(4)

	assistantLabelStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)

	systemStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorTextMute).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		Foreground(colorTextMute).
		PaddingLeft(1).
		Italic(true)

	searchStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorTextDim).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		Foreground(colorTextDim).
		PaddingLeft(1).
		MarginLeft(1)

	suggestionStyle = lipgloss.NewStyle().
		Foreground(colorAccent)

	suggestionKey = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Bold(true)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	inputLabelStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		MarginRight(1)

	loadingStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextMute)

	statusKeyStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Bold(true)

	statusDescStyle = lipgloss.NewStyle().
		Foreground(colorTextMute)

	noticeStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Italic(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
		Foreground(colorWarning).
		Bold(true)

	welcomeStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Align(lipgloss.Center)

	welcomeTitleStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		Align(lipgloss.Center)

	welcomeIconStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Align(lipgloss.Center)

	listHeaderStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		MarginBottom(1)

	listTitleStyle = lipgloss.NewStyle().
		Foreground(colorText).
		Bold(true).
		PaddingLeft(1)

	listPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(1, 2)

	listSectionStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Bold(true)

	listItemStyle = lipgloss.NewStyle().
		Foreground(colorText)

	listSelectedStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	listCursorStyle = lipgloss.NewStyle().
		Foreground(colorAccent)

	listFavoriteStyle = lipgloss.NewStyle().
		Foreground(colorWarning)

	listTimeStyle = lipgloss.NewStyle().
		Foreground(colorTextMute)

	listStatusStyle = lipgloss.NewStyle().
		Foreground(colorTextMute).
		MarginTop(1).
		Align(lipgloss.Center)
}

// FormatError returns a styled error message with a hint for the errors a
// user can act on. Revoked answers render as warnings because the partial
// text stays in the transcript.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	if errors.IsWarning(err) {
		sb.WriteString(warningStyle.Render(fmt.Sprintf("! %v", err)))
	} else {
		sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %v", err)))
	}

	if status := errors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if hint := errorHint(err); hint != "" {
		sb.WriteString(dimStyle.Render("\n  Hint: " + hint))
	}

	return sb.String()
}

// errorHint suggests what to do about err, or returns ""
func errorHint(err error) string {
	switch {
	case errors.IsAuthError(err):
		return "Cookies were rejected. Run 'sydney auto-login' or 'sydney import-cookies FILE'"
	case errors.IsThrottled(err):
		return "The service is throttling requests. Wait a while before asking again"
	case errors.IsRevoked(err):
		return "The answer was withdrawn by the service. Try rephrasing the question"
	case errors.IsEmptyResponse(err):
		return "No answer was produced. Try rephrasing or /reset the context"
	case errors.IsIOError(err):
		return "Check that the transcript path exists and is writable"
	case errors.IsNetworkError(err):
		return "Check your internet connection and the proxy setting (SYDNEY_PROXY)"
	case errors.IsSessionError(err):
		return "The chat service could not be reached. Try again later"
	}
	return ""
}
