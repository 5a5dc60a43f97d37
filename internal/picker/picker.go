// Package picker is a small interactive list picker used when a repo
// argument to `arb log`, `arb diff` or `arb open` matches more than one
// canonical repo and the user needs to choose which one they meant.
package picker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/catppuccin/go"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user cancels the picker with q or Esc.
var ErrAborted = errors.New("picker: aborted")

// Item is one selectable row. Label is shown in the list; Detail, if set, is
// rendered dimmed to its right.
type Item struct {
	Label  string
	Detail string
}

var flavor = catppuccin.Mocha

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(flavor.Text().Hex))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(flavor.Mauve().Hex)).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(flavor.Overlay0().Hex))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(flavor.Overlay0().Hex)).
			Italic(true)
)

type keyMap struct {
	up, down, confirm, quit key.Binding
}

var keys = keyMap{
	up:      key.NewBinding(key.WithKeys("up", "k")),
	down:    key.NewBinding(key.WithKeys("down", "j")),
	confirm: key.NewBinding(key.WithKeys("enter")),
	quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c")),
}

type model struct {
	title    string
	items    []Item
	cursor   int
	chosen   int
	quitting bool
	aborted  bool
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, keys.down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, keys.confirm):
		m.chosen = m.cursor
		m.quitting = true
		return m, tea.Quit
	case key.Matches(keyMsg, keys.quit):
		m.aborted = true
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	if m.title != "" {
		b.WriteString(titleStyle.Render(m.title))
		b.WriteString("\n")
	}
	for i, item := range m.items {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		line := item.Label
		if item.Detail != "" {
			line = fmt.Sprintf("%s  %s", line, detailStyle.Render(item.Detail))
		}
		b.WriteString(cursor + line + "\n")
	}
	b.WriteString(hintStyle.Render("\n↑/↓ to move, enter to select, q to cancel"))
	return b.String()
}

// Run renders an interactive list of items and blocks until the user picks
// one or cancels. Returns the index of the chosen item, or ErrAborted.
func Run(title string, items []Item) (int, error) {
	if len(items) == 0 {
		return 0, errors.New("picker: no items to choose from")
	}
	if len(items) == 1 {
		return 0, nil
	}

	m := model{title: title, items: items}
	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return 0, fmt.Errorf("running picker: %w", err)
	}

	result := final.(model)
	if result.aborted {
		return 0, ErrAborted
	}
	return result.chosen, nil
}
