// Package tui provides the interactive result picker used by `search --pick`.
package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/bookfinder/internal/book"
)

const (
	listWidth  = 72
	listHeight = 20
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction is how the picker was left.
type SelectionAction int

const (
	ActionNone SelectionAction = iota
	// ActionSelected means Selection holds the chosen record.
	ActionSelected
	// ActionSkipped means the user declined to pick anything.
	ActionSkipped
	// ActionStopped means the user asked to quit the whole run.
	ActionStopped
)

// SelectionResult holds the outcome of Select.
type SelectionResult struct {
	Action    SelectionAction
	Selection *book.Record
}

type keyMap struct {
	Up, Down, Pick, Skip, Quit key.Binding
}

var keys = keyMap{
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Pick: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add to catalog")),
	Skip: key.NewBinding(key.WithKeys("s", "esc"), key.WithHelp("s", "skip")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Pick, k.Skip, k.Quit}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).MarginBottom(1)
	rowStyle    = lipgloss.NewStyle().PaddingLeft(2)
	cursorStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("214")).
			PaddingLeft(1)
	sourceStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("110"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("254"))
	authorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type recordItem struct{ rec book.Record }

func (i recordItem) FilterValue() string { return i.rec.Title + " " + i.rec.Author }

// recordDelegate draws a record as source and title, author, metadata.
type recordDelegate struct{}

func (recordDelegate) Height() int                         { return 3 }
func (recordDelegate) Spacing() int                        { return 1 }
func (recordDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (recordDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	it, ok := item.(recordItem)
	if !ok {
		return
	}
	width := m.Width() - 3
	tag := "[" + strings.ToUpper(string(it.rec.Source)) + "] "

	lines := lipgloss.JoinVertical(lipgloss.Left,
		sourceStyle.Render(tag)+titleStyle.Render(truncate(it.rec.Title, width-len(tag))),
		authorStyle.Render(truncate(it.rec.Author, width)),
		metaStyle.Render(formatMetadata(it.rec, width)),
	)

	style := rowStyle
	if idx == m.Index() {
		style = cursorStyle
	}
	_, _ = io.WriteString(w, style.Render(lines))
}

type model struct {
	query  string
	list   list.Model
	help   help.Model
	result SelectionResult
}

func newModel(query string, records []book.Record) *model {
	items := make([]list.Item, len(records))
	for i, rec := range records {
		items[i] = recordItem{rec: rec}
	}

	l := list.New(items, recordDelegate{}, listWidth, listHeight)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return &model{query: query, list: l, help: help.New()}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Pick):
			it, ok := m.list.SelectedItem().(recordItem)
			if !ok {
				return m, nil
			}
			rec := it.rec
			m.result = SelectionResult{Action: ActionSelected, Selection: &rec}
			return m, tea.Quit
		case key.Matches(msg, keys.Skip):
			m.result = SelectionResult{Action: ActionSkipped}
			return m, tea.Quit
		case key.Matches(msg, keys.Quit):
			m.result = SelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(clamp(listWidth, msg.Width-4, 40), clamp(listHeight, msg.Height-6, 5))
		m.help.Width = msg.Width
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(fmt.Sprintf("%d results for %q", len(m.list.Items()), m.query)),
		m.list.View(),
		m.help.ShortHelpView(keys.bindings()),
	)
}

// Select shows records in a picker and reports what the user chose. No
// records means there is nothing to pick, so the UI is not started.
func Select(query string, records []book.Record) (SelectionResult, error) {
	if len(records) == 0 {
		return SelectionResult{Action: ActionSkipped}, nil
	}

	final, err := runProgram(newModel(query, records))
	if err != nil {
		return SelectionResult{}, err
	}
	m, ok := final.(*model)
	if !ok {
		return SelectionResult{}, fmt.Errorf("picker returned %T", final)
	}
	return m.result, nil
}

// truncate collapses whitespace and cuts value to width runes.
func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	r := []rune(value)
	switch {
	case width <= 0 || len(r) <= width:
		return value
	case width <= 3:
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

func formatMetadata(rec book.Record, width int) string {
	var parts []string
	switch year := book.Year(rec.PublishedDate); {
	case year > 0:
		parts = append(parts, strconv.Itoa(year))
	case rec.PublishedDate != "":
		parts = append(parts, rec.PublishedDate)
	}
	if rec.PageCount > 0 {
		parts = append(parts, strconv.Itoa(rec.PageCount)+" pages")
	}
	if rec.Price != "" {
		parts = append(parts, rec.Price)
	}
	if rec.Rating > 0 {
		parts = append(parts, fmt.Sprintf("%.1f/5", rec.Rating))
	}
	if rec.ISBN13 != "" {
		parts = append(parts, "ISBN "+rec.ISBN13)
	}
	if rec.Filename != "" {
		parts = append(parts, "file: "+rec.Filename)
	}
	if len(parts) == 0 {
		return "no details"
	}
	return truncate(strings.Join(parts, " | "), width)
}

// clamp shrinks preferred to fit available (when known) but not below floor.
func clamp(preferred, available, floor int) int {
	n := preferred
	if available > 0 && available < n {
		n = available
	}
	return max(n, floor)
}
