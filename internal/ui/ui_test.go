package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
)

func TestDemoValuesAreValid(t *testing.T) {
	for _, tool := range catalog.All() {
		t.Run(string(tool), func(t *testing.T) {
			form := NewForm(catalog.MustSchemaFor(tool), DemoValues(tool))
			in, err := form.Input()
			require.NoError(t, err)
			assert.Equal(t, tool, in.Tool())
			assert.NotEqual(t, "Generate", SubmitLabel(tool))
		})
	}
}

func TestDemoValuesAreCopies(t *testing.T) {
	v := DemoValues(catalog.ToolQA)
	v["question"] = "changed"
	assert.NotEqual(t, "changed", DemoValues(catalog.ToolQA)["question"])
}

func TestFormMirrorsInputSpec(t *testing.T) {
	spec := catalog.MustSchemaFor(catalog.ToolOutreach)
	form := NewForm(spec, nil)

	require.Len(t, form.Fields(), len(spec.Input.Fields))
	for i, fi := range form.Fields() {
		assert.Equal(t, spec.Input.Fields[i], fi.Field())
	}
}

func TestFormFocusWraps(t *testing.T) {
	form := NewForm(catalog.MustSchemaFor(catalog.ToolDiscovery), nil)
	form.Focus()
	assert.Equal(t, 0, form.Focused())
	assert.True(t, form.Fields()[0].Focused())

	form.Next()
	form.Next()
	form.Next()
	assert.Equal(t, 0, form.Focused())
	form.Prev()
	assert.Equal(t, 2, form.Focused())
	assert.True(t, form.Fields()[2].Focused())
	assert.False(t, form.Fields()[0].Focused())
}

func TestFormTyping(t *testing.T) {
	form := NewForm(catalog.MustSchemaFor(catalog.ToolQA), nil)
	form.Focus()
	form.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("bitrate?")})

	in, err := form.Input()
	require.NoError(t, err)
	assert.Equal(t, catalog.QAInput{Question: "bitrate?"}, in)
}

func TestFormInputValidation(t *testing.T) {
	form := NewForm(catalog.MustSchemaFor(catalog.ToolObjection), map[string]string{"objection": "too pricey"})
	_, err := form.Input()
	var vErr *catalog.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"context"}, vErr.Missing)
}

func TestSelector(t *testing.T) {
	s := NewSelector("Tools", ToolItems(), string(catalog.ToolQA))
	assert.Equal(t, "qa", s.Selected())

	_, cmd := s.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Nil(t, cmd)
	_, cmd = s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectedMsg{ID: "outreach"}, cmd())
	assert.Equal(t, "outreach", s.Selected())

	s.SetDisabled(true)
	_, cmd = s.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Nil(t, cmd)
	_, cmd = s.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "disabled while loading")
	assert.Equal(t, "outreach", s.Selected())

	s.Select("prospect")
	assert.Equal(t, "prospect", s.Selected())
	assert.Contains(t, s.View(true), "Prospect Insights")
}
