package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary   = lipgloss.Color("33")  // Blue
	ColorSuccess   = lipgloss.Color("35")  // Green
	ColorWarning   = lipgloss.Color("214") // Gold/yellow
	ColorError     = lipgloss.Color("196") // Red
	ColorDim       = lipgloss.Color("241") // Gray
	ColorAccent    = lipgloss.Color("39")  // Light blue
	ColorHighlight = lipgloss.Color("255")
)

const (
	SymbolPrompt   = "❯"
	SymbolBullet   = "●"
	SymbolArrow    = "▸"
	SymbolCheck    = "✓"
	SymbolCross    = "✗"
	SymbolThinking = "◐"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	ErrorPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(ColorDim).
			PaddingRight(1)

	SelectorCursor = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	SelectorItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	SelectorDim = lipgloss.NewStyle().
			Foreground(ColorDim)

	SelectorActive = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Background(ColorPrimary).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	FocusedLabelStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Background(ColorPrimary).
			Padding(0, 2)
)
