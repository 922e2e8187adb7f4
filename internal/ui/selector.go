package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

// SelectorItem represents an item in the selector
type SelectorItem struct {
	ID    string
	Label string
}

// SelectedMsg is emitted when the user picks an item
type SelectedMsg struct {
	ID string
}

// Selector is a persistent vertical list with a cursor and one selected item
type Selector struct {
	title    string
	items    []SelectorItem
	cursor   int
	selected int
	disabled bool
	width    int
}

// NewSelector creates a selector with current preselected
func NewSelector(title string, items []SelectorItem, current string) Selector {
	selected := 0
	for i, item := range items {
		if item.ID == current {
			selected = i
			break
		}
	}

	return Selector{
		title:    title,
		items:    items,
		cursor:   selected,
		selected: selected,
		width:    26,
	}
}

// ToolItems lists every tool in sidebar order
func ToolItems() []SelectorItem {
	items := make([]SelectorItem, 0, len(catalog.All()))
	for _, tool := range catalog.All() {
		items = append(items, SelectorItem{ID: string(tool), Label: tool.Title()})
	}
	return items
}

// SetWidth sets the selector width
func (s *Selector) SetWidth(w int) {
	s.width = w
}

// SetDisabled blocks selection, e.g. while a request is loading
func (s *Selector) SetDisabled(disabled bool) {
	s.disabled = disabled
}

// Disabled reports whether selection is blocked
func (s *Selector) Disabled() bool {
	return s.disabled
}

// Selected returns the selected item ID
func (s *Selector) Selected() string {
	if s.selected >= 0 && s.selected < len(s.items) {
		return s.items[s.selected].ID
	}
	return ""
}

// Select moves the selection and cursor to id, if present
func (s *Selector) Select(id string) {
	for i, item := range s.items {
		if item.ID == id {
			s.selected = i
			s.cursor = i
			return
		}
	}
}

// Update handles selector input
func (s *Selector) Update(msg tea.Msg) (*Selector, tea.Cmd) {
	if s.disabled {
		return s, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.items)-1 {
				s.cursor++
			}
		case "enter", " ":
			s.selected = s.cursor
			id := s.items[s.selected].ID
			return s, func() tea.Msg { return SelectedMsg{ID: id} }
		}
	}

	return s, nil
}

// View renders the selector
func (s *Selector) View(focused bool) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(s.title))
	b.WriteString("\n\n")

	for i, item := range s.items {
		display := item.Label
		if display == "" {
			display = item.ID
		}
		label := fmt.Sprintf("%-*s", s.width-2, display)

		switch {
		case focused && i == s.cursor && !s.disabled:
			b.WriteString(SelectorCursor.Render(SymbolArrow) + " ")
		default:
			b.WriteString("  ")
		}

		switch {
		case s.disabled:
			b.WriteString(SelectorDim.Render(label))
		case i == s.selected:
			b.WriteString(SelectorActive.Render(label))
		default:
			b.WriteString(SelectorItemStyle.Render(label))
		}
		b.WriteString("\n")
	}

	return b.String()
}
