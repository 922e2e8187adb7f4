package ui

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

const (
	singleLineLimit = 2000
	multilineHeight = 6
)

// FieldInput edits one form field: a textarea for multiline fields,
// a single-line input otherwise
type FieldInput struct {
	field   catalog.Field
	single  textinput.Model
	multi   textarea.Model
	width   int
	focused bool
}

// NewFieldInput creates an unfocused input for f
func NewFieldInput(f catalog.Field) *FieldInput {
	fi := &FieldInput{field: f, width: 80}
	if f.Multiline {
		ta := textarea.New()
		ta.Placeholder = f.Placeholder
		ta.ShowLineNumbers = false
		ta.CharLimit = 0
		ta.SetHeight(multilineHeight)
		ta.SetWidth(fi.width)
		fi.multi = ta
	} else {
		ti := textinput.New()
		ti.Placeholder = f.Placeholder
		ti.CharLimit = singleLineLimit
		ti.Width = fi.width - 4
		fi.single = ti
	}
	return fi
}

// Field returns the field definition
func (f *FieldInput) Field() catalog.Field {
	return f.field
}

// Focus sets focus on the input
func (f *FieldInput) Focus() tea.Cmd {
	f.focused = true
	if f.field.Multiline {
		return f.multi.Focus()
	}
	return f.single.Focus()
}

// Blur removes focus from the input
func (f *FieldInput) Blur() {
	f.focused = false
	if f.field.Multiline {
		f.multi.Blur()
		return
	}
	f.single.Blur()
}

// Focused returns whether the input has focus
func (f *FieldInput) Focused() bool {
	return f.focused
}

// SetWidth sets the width of the input
func (f *FieldInput) SetWidth(w int) {
	f.width = w
	if f.field.Multiline {
		f.multi.SetWidth(w)
		return
	}
	f.single.Width = w - 4 // prompt symbol and spacing
}

// Value returns the current input value
func (f *FieldInput) Value() string {
	if f.field.Multiline {
		return f.multi.Value()
	}
	return f.single.Value()
}

// SetValue sets the input value
func (f *FieldInput) SetValue(s string) {
	if f.field.Multiline {
		f.multi.SetValue(s)
		return
	}
	f.single.SetValue(s)
}

// Update handles input events
func (f *FieldInput) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.field.Multiline {
		f.multi, cmd = f.multi.Update(msg)
	} else {
		f.single, cmd = f.single.Update(msg)
	}
	return cmd
}

// View renders the label and the input
func (f *FieldInput) View() string {
	labelStyle := LabelStyle
	if f.focused {
		labelStyle = FocusedLabelStyle
	}
	label := f.field.Label
	if f.field.Optional {
		label += " (optional)"
	}

	if f.field.Multiline {
		return labelStyle.Render(label) + "\n" + f.multi.View()
	}
	prompt := SelectorDim.Render(SymbolPrompt)
	if f.focused {
		prompt = FocusedLabelStyle.Render(SymbolPrompt)
	}
	return labelStyle.Render(label) + "\n" + prompt + " " + f.single.View()
}
