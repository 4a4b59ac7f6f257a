package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/sydney/internal/transcript"
)

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.viewport.Width

	// ─── header ───
	sections = append(sections, headerStyle.Width(contentWidth).Render(m.renderHeader()))

	// ─── messages ───
	var messagesContent string
	switch {
	case m.overlay != "":
		messagesContent = m.overlay + "\n\n" + hintStyle.Render("Press any key to return")
	case !hasConversation(m.streamer.Transcript().Turns()):
		messagesContent = m.renderWelcome()
	default:
		messagesContent = m.viewport.View()
	}
	messagesPanel := messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		MaxHeight(m.viewport.Height + 2).
		Render(messagesContent)
	sections = append(sections, messagesPanel)

	// ─── input ───
	var inputContent string
	if m.busy {
		inputContent = m.renderLoadingAnimation()
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	// ─── status bar ───
	sections = append(sections, m.renderStatusBar(contentWidth))

	// ─── error or notice ───
	switch {
	case m.err != nil:
		sections = append(sections, FormatError(m.err))
	case m.notice != "":
		sections = append(sections, noticeStyle.Render("  "+m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// hasConversation reports whether any turn besides system instructions
// exists
func hasConversation(turns []transcript.Turn) bool {
	for _, t := range turns {
		if t.Role == transcript.RoleUser || t.Role == transcript.RoleAssistant {
			return true
		}
	}
	return false
}

// renderHeader shows the conversation settings and the bound file
func (m Model) renderHeader() string {
	sep := hintStyle.Render("  •  ")
	parts := []string{
		titleStyle.Render("✦ Sydney"),
		sep,
		subtitleStyle.Render(m.streamer.Style().Name),
		sep,
		subtitleStyle.Render("context: " + string(m.streamer.ContextMode())),
	}
	if m.persona != nil && m.persona.Name != "" {
		parts = append(parts, sep, subtitleStyle.Render("persona: "+m.persona.Name))
	}

	path, id := m.binding.get()
	switch {
	case id != "":
		parts = append(parts, sep, hintStyle.Render(id))
	case path != "":
		parts = append(parts, sep, hintStyle.Render(filepath.Base(path)))
	default:
		parts = append(parts, sep, hintStyle.Render("unsaved"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

// renderWelcome renders the welcome screen when no messages exist
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	icon := welcomeIconStyle.Width(width).Render("✦")
	title := welcomeTitleStyle.Width(width).Render("Chat with Sydney")
	subtitle := welcomeStyle.Width(width).Render(
		fmt.Sprintf("Type a message and press %s. /help lists the commands.", m.trigger.Label()))

	content := lipgloss.JoinVertical(lipgloss.Center, "", icon, "", title, "", subtitle, "")

	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

// renderLoadingAnimation renders a colorful animated loading indicator
func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame

	spinIdx := frame % len(chars)
	spinColor := gradientColors[frame%len(gradientColors)]
	spin := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[spinIdx])

	barWidth := 20
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + frame) % len(gradientColors)
		charIdx := (i + frame/2) % len(barChars)
		bar.WriteString(lipgloss.NewStyle().Foreground(gradientColors[colorIdx]).Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dots.WriteString(lipgloss.NewStyle().Foreground(gradientColors[(frame+i)%len(gradientColors)]).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	text := lipgloss.NewStyle().Foreground(colorText).Render(" Sydney is answering ")

	return fmt.Sprintf("%s %s %s %s", spin, bar.String(), text, dots.String())
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{m.trigger.Label(), "Send"},
		{m.trigger.Toggle().Label(), "Newline"},
		{m.keys.ToggleTrigger.Help().Key, m.keys.ToggleTrigger.Help().Desc},
		{m.keys.QuickReply.Help().Key, m.keys.QuickReply.Help().Desc},
		{m.keys.Copy.Help().Key, m.keys.Copy.Help().Desc},
		{"/help", "Commands"},
		{m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc},
	}

	var items []string
	for _, s := range shortcuts {
		item := lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		)
		items = append(items, item)
	}

	bar := strings.Join(items, statusDescStyle.Render("  │  "))
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}
