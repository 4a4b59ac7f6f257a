package tui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/sydney/internal/chat"
	"github.com/diogo/sydney/internal/history"
	"github.com/diogo/sydney/internal/models"
)

// slashCommand is one entry of /help
type slashCommand struct {
	name string
	args string
	desc string
}

var slashCommands = []slashCommand{
	{"/reset", "[persona]", "Start over from the persona's instructions"},
	{"/load", "PATH|REF", "Load a transcript file or a saved chat (@last, 1, title)"},
	{"/save", "[PATH]", "Save the transcript and bind it for autosave"},
	{"/mode", "[enter|ctrl+enter]", "Set or toggle the send key"},
	{"/style", "[creative|balanced|precise]", "Set the conversation style"},
	{"/context", "[transcript|none]", "Send the transcript as context, or only the prompt"},
	{"/copy", "", "Copy the last answer"},
	{"/history", "", "List saved chats"},
	{"/help", "", "Show this help"},
	{"/quit", "", "Leave"},
}

// runCommand executes a slash command typed in the input box
func (m Model) runCommand(input string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	m.err = nil
	m.notice = ""

	switch strings.ToLower(name) {
	case "/quit", "/exit", "quit", "exit":
		m.shutdown()
		return m, tea.Quit

	case "/reset":
		m.err = m.reset(arg)

	case "/load":
		m.err = m.load(arg)

	case "/save":
		m.err = m.save(arg)

	case "/mode":
		if arg == "" {
			m.trigger = m.trigger.Toggle()
		} else if trigger, err := chat.ParseSendTrigger(arg); err != nil {
			m.err = err
		} else {
			m.trigger = trigger
		}
		if m.err == nil {
			m.notice = "Send with " + m.trigger.Label()
		}

	case "/style":
		m.err = m.setStyle(arg)

	case "/context":
		if arg == "" {
			m.notice = "Context mode: " + string(m.streamer.ContextMode())
			break
		}
		mode, err := chat.ParseContextMode(arg)
		if err != nil {
			m.err = err
			break
		}
		m.streamer.SetContextMode(mode)
		m.notice = "Context mode: " + string(mode)

	case "/copy":
		m.copyLastAnswer()

	case "/history":
		m.overlay, m.err = m.historyListing()

	case "/help", "/?":
		m.overlay = helpText()

	default:
		m.err = fmt.Errorf("unknown command %s (try /help)", name)
	}

	m.refreshViewport(true)
	return m, nil
}

// reset replaces the transcript with a persona's instructions. A chat
// bound to a history entry is unbound so the next autosave starts a new
// entry; an explicit file stays bound.
func (m *Model) reset(personaName string) error {
	if personaName != "" {
		if m.personas == nil {
			return fmt.Errorf("personas are not available")
		}
		p, err := m.personas.Get(personaName)
		if err != nil {
			return err
		}
		m.persona = p
		if p.Style != "" {
			m.streamer.SetStyle(models.StyleFromName(p.Style))
		}
	}

	m.streamer.Transcript().ResetWith(InstructionsFor(m.persona))
	if _, id := m.binding.get(); id != "" {
		m.binding.set("", "")
	}
	m.notice = "Context reset"
	return nil
}

// load reads a transcript file, or a saved chat when ref is not a file,
// and binds it. The transcript is unchanged on failure.
func (m *Model) load(ref string) error {
	if ref == "" {
		return fmt.Errorf("usage: /load PATH|REF")
	}
	t := m.streamer.Transcript()

	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		if err := t.LoadFile(ref); err != nil {
			return err
		}
		m.binding.bindPath(ref)
		m.notice = "Loaded " + ref
		return nil
	}

	if m.store == nil {
		return fmt.Errorf("no such file: %s", ref)
	}
	id, err := history.NewResolver(m.store).Resolve(ref)
	if err != nil {
		return err
	}
	text, err := m.store.Load(id)
	if err != nil {
		return err
	}
	t.Load(text)
	m.binding.bindID(id)
	m.notice = "Loaded " + id
	return nil
}

// save writes the transcript to path, or to the bound file
func (m *Model) save(path string) error {
	t := m.streamer.Transcript()
	if path != "" {
		if err := t.SaveFile(path); err != nil {
			return err
		}
		m.binding.bindPath(path)
		m.binding.rewatch()
		m.notice = "Saved " + path
		return nil
	}

	saved, err := m.binding.save(t)
	if err != nil {
		return err
	}
	if saved == "" {
		return fmt.Errorf("no file bound; use /save PATH")
	}
	m.binding.rewatch()
	m.notice = "Saved " + saved
	return nil
}

// setStyle switches the conversation style for the next exchange
func (m *Model) setStyle(name string) error {
	if name == "" {
		m.notice = "Style: " + m.streamer.Style().Name
		return nil
	}
	for _, s := range models.AllStyles() {
		if strings.EqualFold(s.Name, name) {
			m.streamer.SetStyle(s)
			m.notice = "Style: " + s.Name
			return nil
		}
	}
	return fmt.Errorf("unknown style %q (want creative, balanced or precise)", name)
}

// maxHistoryListing bounds the /history overlay
const maxHistoryListing = 15

// historyListing renders the most recent saved chats
func (m *Model) historyListing() (string, error) {
	if m.store == nil {
		return "", fmt.Errorf("history is not available")
	}
	entries, err := m.store.List()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(listHeaderStyle.Render("Saved chats"))
	sb.WriteString("\n")
	if len(entries) == 0 {
		sb.WriteString(hintStyle.Render("No saved chats"))
		return sb.String(), nil
	}
	for i, e := range entries {
		if i == maxHistoryListing {
			sb.WriteString(hintStyle.Render(fmt.Sprintf("… %d more", len(entries)-i)))
			break
		}
		star := "  "
		if e.IsFavorite {
			star = listFavoriteStyle.Render("★ ")
		}
		fmt.Fprintf(&sb, "%2d. %s%s %s\n",
			i+1, star, listItemStyle.Render(e.Title),
			listTimeStyle.Render(e.ID+" · "+history.FormatRelativeTime(e.UpdatedAt)))
	}
	sb.WriteString("\n")
	sb.WriteString(hintStyle.Render("/load N opens a chat"))
	return sb.String(), nil
}

// helpText lists the slash commands
func helpText() string {
	var sb strings.Builder
	sb.WriteString(listHeaderStyle.Render("Commands"))
	sb.WriteString("\n")
	for _, c := range slashCommands {
		usage := c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(&sb, "%s\n    %s\n", statusKeyStyle.Render(usage), statusDescStyle.Render(c.desc))
	}
	sb.WriteString("\n")
	sb.WriteString(hintStyle.Render("Start a message with // to send a literal /"))
	return sb.String()
}
