package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/sydney/internal/chat"
)

// Terminals report Ctrl+Enter as ctrl+j (a bare line feed), so that is the
// key bound for the Ctrl+Enter send trigger. Alt+Enter also inserts a
// newline in Enter mode for terminals that swallow ctrl+j.
const (
	keyEnter     = "enter"
	keyCtrlEnter = "ctrl+j"
	keyAltEnter  = "alt+enter"
)

// keyMap holds the chat bindings other than send/newline, which depend on
// the send trigger
type keyMap struct {
	Quit          key.Binding
	ToggleTrigger key.Binding
	Copy          key.Binding
	QuickReply    key.Binding
	ScrollUp      key.Binding
	ScrollDown    key.Binding
	Top           key.Binding
	Bottom        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("Esc", "Quit"),
		),
		ToggleTrigger: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("Ctrl+T", "Send key"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("Ctrl+Y", "Copy"),
		),
		QuickReply: key.NewBinding(
			key.WithKeys("alt+1", "alt+2", "alt+3"),
			key.WithHelp("Alt+1-3", "Reply"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "Scroll"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "Scroll"),
		),
		Top: key.NewBinding(
			key.WithKeys("ctrl+home"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("ctrl+end"),
		),
	}
}

// inputAction is what a key does to the input box
type inputAction int

const (
	inputPass inputAction = iota
	inputSend
	inputNewline
)

// classifyInputKey maps a key to send, newline or pass-through according
// to the send trigger. Under Enter, Ctrl+Enter inserts a newline; under
// Ctrl+Enter, Enter does.
func classifyInputKey(trigger chat.SendTrigger, k string) inputAction {
	switch trigger {
	case chat.SendOnCtrlEnter:
		switch k {
		case keyCtrlEnter:
			return inputSend
		case keyEnter, keyAltEnter:
			return inputNewline
		}
	default:
		switch k {
		case keyEnter:
			return inputSend
		case keyCtrlEnter, keyAltEnter:
			return inputNewline
		}
	}
	return inputPass
}

// quickReplyIndex returns the zero-based suggestion index for alt+1..alt+9,
// or -1
func quickReplyIndex(msg tea.KeyMsg) int {
	if !msg.Alt || msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		return -1
	}
	r := msg.Runes[0]
	if r < '1' || r > '9' {
		return -1
	}
	return int(r - '1')
}
