package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

// Form collects one tool's input, one FieldInput per declared field
type Form struct {
	spec   catalog.Spec
	fields []*FieldInput
	focus  int
	active bool
}

// NewForm builds the form for spec, prefilled from values
func NewForm(spec catalog.Spec, values map[string]string) *Form {
	f := &Form{spec: spec}
	for _, field := range spec.Input.Fields {
		fi := NewFieldInput(field)
		fi.SetValue(values[field.Name])
		f.fields = append(f.fields, fi)
	}
	return f
}

// Tool returns the tool this form collects input for
func (f *Form) Tool() catalog.Tool {
	return f.spec.Tool
}

// Fields returns the inputs in display order
func (f *Form) Fields() []*FieldInput {
	return f.fields
}

// Focused returns the focused field index
func (f *Form) Focused() int {
	return f.focus
}

// Focus focuses the current field
func (f *Form) Focus() tea.Cmd {
	f.active = true
	if len(f.fields) == 0 {
		return nil
	}
	return f.fields[f.focus].Focus()
}

// Blur removes focus from every field
func (f *Form) Blur() {
	f.active = false
	for _, fi := range f.fields {
		fi.Blur()
	}
}

// Next moves focus to the following field, wrapping around
func (f *Form) Next() tea.Cmd {
	return f.move(1)
}

// Prev moves focus to the preceding field, wrapping around
func (f *Form) Prev() tea.Cmd {
	return f.move(-1)
}

func (f *Form) move(delta int) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	f.fields[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	return f.fields[f.focus].Focus()
}

// SetWidth resizes every field
func (f *Form) SetWidth(w int) {
	for _, fi := range f.fields {
		fi.SetWidth(w)
	}
}

// Values returns the current field values by name
func (f *Form) Values() map[string]string {
	values := make(map[string]string, len(f.fields))
	for _, fi := range f.fields {
		values[fi.Field().Name] = fi.Value()
	}
	return values
}

// Input decodes and validates the current values
func (f *Form) Input() (catalog.Input, error) {
	in, err := catalog.DecodeInput(f.spec.Tool, f.Values())
	if err != nil {
		return nil, err
	}
	if err := catalog.Validate(in); err != nil {
		return nil, err
	}
	return in, nil
}

// Update forwards input to the focused field
func (f *Form) Update(msg tea.Msg) tea.Cmd {
	if !f.active || len(f.fields) == 0 {
		return nil
	}
	return f.fields[f.focus].Update(msg)
}

// View renders every field followed by the submit hint
func (f *Form) View(loading bool) string {
	parts := make([]string, 0, len(f.fields)+1)
	for _, fi := range f.fields {
		parts = append(parts, fi.View())
	}

	button := SubmitLabel(f.spec.Tool)
	if loading {
		button = "Analyzing..."
	}
	parts = append(parts, ButtonStyle.Render(button)+HelpStyle.Render("  ctrl+s"))
	return strings.Join(parts, "\n\n")
}
