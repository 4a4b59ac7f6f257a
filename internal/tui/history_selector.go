package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/sydney/internal/history"
)

// HistoryStore defines the history operations needed by the selector
type HistoryStore interface {
	List() ([]*history.Entry, error)
	Delete(id string) error
	ToggleFavorite(id string) (bool, error)
}

// historyLoadedMsg is sent when entries are loaded
type historyLoadedMsg struct {
	entries []*history.Entry
	err     error
}

// HistorySelectorModel picks a saved chat to resume
type HistorySelectorModel struct {
	store HistoryStore

	// Data
	entries []*history.Entry

	// Navigation
	cursor int // 0 is "New chat"

	// Filter typed after "/"
	filter    string
	filtering bool

	// State
	loading       bool
	err           error
	confirmed     bool
	pendingDelete string

	// Result
	selected *history.Entry // nil means new chat
	isNew    bool

	// Dimensions
	width  int
	height int
	ready  bool
}

// NewHistorySelectorModel creates a new history selector model
func NewHistorySelectorModel(store HistoryStore) HistorySelectorModel {
	return HistorySelectorModel{
		store:   store,
		loading: true,
	}
}

// Init starts loading entries
func (m HistorySelectorModel) Init() tea.Cmd {
	return m.loadEntries()
}

// loadEntries returns a command that lists the store
func (m HistorySelectorModel) loadEntries() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.store.List()
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		return historyLoadedMsg{entries: entries}
	}
}

// visible returns the entries matching the filter
func (m HistorySelectorModel) visible() []*history.Entry {
	if m.filter == "" {
		return m.entries
	}
	needle := strings.ToLower(m.filter)
	var out []*history.Entry
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Title), needle) || strings.Contains(e.ID, needle) {
			out = append(out, e)
		}
	}
	return out
}

// current returns the entry under the cursor, or nil on "New chat"
func (m HistorySelectorModel) current() *history.Entry {
	entries := m.visible()
	if m.cursor <= 0 || m.cursor > len(entries) {
		return nil
	}
	return entries[m.cursor-1]
}

// Update handles messages and updates the model
func (m HistorySelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case historyLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.entries = msg.entries
			m.err = nil
		}
		m.cursor = min(m.cursor, len(m.visible()))

	case tea.KeyMsg:
		if m.loading {
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m HistorySelectorModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter, tea.KeyEsc:
		m.filtering = false
	case tea.KeyBackspace:
		if r := []rune(m.filter); len(r) > 0 {
			m.filter = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.filter += string(msg.Runes)
	}
	m.cursor = min(m.cursor, len(m.visible()))
	return m, nil
}

func (m HistorySelectorModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	pending := m.pendingDelete
	m.pendingDelete = ""
	m.err = nil
	count := len(m.visible())

	switch k {
	case "ctrl+c", "esc", "q":
		return m, tea.Quit

	case "up", "k":
		m.cursor--
		if m.cursor < 0 {
			// Wrap to last item (+1 for "New chat")
			m.cursor = count
		}

	case "down", "j":
		m.cursor++
		if m.cursor > count {
			m.cursor = 0
		}

	case "home", "g":
		m.cursor = 0

	case "end", "G":
		m.cursor = count

	case "/":
		m.filtering = true

	case "enter":
		m.confirmed = true
		m.selected = m.current()
		m.isNew = m.selected == nil
		return m, tea.Quit

	case "f":
		if e := m.current(); e != nil {
			fav, err := m.store.ToggleFavorite(e.ID)
			if err != nil {
				m.err = err
				return m, nil
			}
			e.IsFavorite = fav
			return m, m.loadEntries()
		}

	case "d", "delete":
		e := m.current()
		if e == nil {
			return m, nil
		}
		if pending != e.ID {
			// first press arms, second press deletes
			m.pendingDelete = e.ID
			return m, nil
		}
		if err := m.store.Delete(e.ID); err != nil {
			m.err = err
			return m, nil
		}
		return m, m.loadEntries()
	}

	return m, nil
}

// View renders the selector
func (m HistorySelectorModel) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	if m.loading {
		return loadingStyle.Render("  Loading chats...")
	}

	if m.err != nil && m.entries == nil {
		return errorStyle.Render(fmt.Sprintf("  Error: %v", m.err))
	}

	contentWidth := max(m.width-4, 40)

	sections := []string{
		listHeaderStyle.Render("✦ Sydney") + listTitleStyle.Render("Resume a chat"),
		m.renderList(contentWidth),
	}
	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}
	sections = append(sections, m.renderStatusBar(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderList renders the entry list
func (m HistorySelectorModel) renderList(width int) string {
	title := listSectionStyle.Render("Chats")
	if m.filtering || m.filter != "" {
		title += hintStyle.Render("  filter: " + m.filter)
		if m.filtering {
			title += listCursorStyle.Render("▏")
		}
	}

	items := []string{m.renderItem(0, nil)}

	entries := m.visible()
	if len(entries) == 0 {
		items = append(items, hintStyle.Render("  No saved chats"))
	} else {
		maxItems := max(5, m.height-12)

		scrollOffset := 0
		if m.cursor >= maxItems {
			scrollOffset = m.cursor - maxItems + 1
		}
		endIdx := min(scrollOffset+maxItems, len(entries)+1)

		for i := max(scrollOffset, 1); i < endIdx; i++ {
			items = append(items, m.renderItem(i, entries[i-1]))
		}

		if scrollOffset > 0 {
			items = append([]string{hintStyle.Render("  ...")}, items...)
		}
		if endIdx < len(entries)+1 {
			items = append(items, hintStyle.Render("  ..."))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{title, ""}, items...)...)
	return listPanelStyle.Width(width).Render(content)
}

// renderItem renders one line; e is nil for "New chat"
func (m HistorySelectorModel) renderItem(index int, e *history.Entry) string {
	cursor := "  "
	style := listItemStyle
	if index == m.cursor {
		cursor = listCursorStyle.Render("> ")
		style = listSelectedStyle
	}

	if e == nil {
		return cursor + style.Render("+ New chat")
	}

	star := "  "
	if e.IsFavorite {
		star = listFavoriteStyle.Render("★ ")
	}
	line := cursor + star + style.Render(e.Title) +
		listTimeStyle.Render(fmt.Sprintf(" - %s, %d turns", history.FormatRelativeTime(e.UpdatedAt), e.Turns))
	if m.pendingDelete == e.ID {
		line += warningStyle.Render("  press d again to delete")
	}
	return line
}

// renderStatusBar renders the bottom status bar
func (m HistorySelectorModel) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"↑↓", "Navigate"},
		{"Enter", "Open"},
		{"/", "Filter"},
		{"f", "Favorite"},
		{"d", "Delete"},
		{"Esc", "Quit"},
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

	bar := strings.Join(items, "  |  ")
	return listStatusStyle.Width(width).Render(bar)
}

// Result returns the selected entry (nil for new), whether "New chat" was
// picked, and whether a choice was confirmed
func (m HistorySelectorModel) Result() (*history.Entry, bool, bool) {
	return m.selected, m.isNew, m.confirmed
}

// HistorySelectorResult contains the result of running the history selector
type HistorySelectorResult struct {
	Entry     *history.Entry // nil for a new chat
	IsNew     bool
	Confirmed bool
}

// RunHistorySelector starts the history selector TUI and returns the result
func RunHistorySelector(store HistoryStore) (HistorySelectorResult, error) {
	m := NewHistorySelectorModel(store)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()
	if err != nil {
		return HistorySelectorResult{}, err
	}

	if hm, ok := finalModel.(HistorySelectorModel); ok {
		entry, isNew, confirmed := hm.Result()
		return HistorySelectorResult{
			Entry:     entry,
			IsNew:     isNew,
			Confirmed: confirmed,
		}, nil
	}

	return HistorySelectorResult{}, nil
}
