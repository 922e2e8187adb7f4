package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/ashalaginvimeo/AS-test/internal/catalog"
	"github.com/ashalaginvimeo/AS-test/internal/dispatch"
	"github.com/ashalaginvimeo/AS-test/internal/export"
	"github.com/ashalaginvimeo/AS-test/internal/ui"
)

const sidebarWidth = 30

type focusArea int

const (
	focusForm focusArea = iota
	focusSidebar
)

// stateMsg carries a settled (or superseded) dispatcher state back to the UI
type stateMsg struct {
	state dispatch.State
}

// tuiModel is the interactive workspace: tool sidebar, input form and result pane
type tuiModel struct {
	dispatcher *dispatch.Dispatcher
	sidebar    ui.Selector
	form       *ui.Form
	focus      focusArea
	spinner    spinner.Model
	viewport   viewport.Model

	state    dispatch.State
	rendered string
	status   string
	inputErr string

	width    int
	height   int
	ready    bool
	quitting bool
}

func newTUIModel(d *dispatch.Dispatcher) tuiModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ui.ColorPrimary)

	state := d.State()
	return tuiModel{
		dispatcher: d,
		sidebar:    ui.NewSelector("Sales Copilot", ui.ToolItems(), string(state.Tool)),
		form:       ui.NewForm(catalog.MustSchemaFor(state.Tool), ui.DemoValues(state.Tool)),
		spinner:    sp,
		state:      state,
		width:      100,
	}
}

// waitFor blocks in the background until generation gen settles
func waitFor(d *dispatch.Dispatcher, gen uint64) tea.Cmd {
	return func() tea.Msg {
		s, _ := d.Wait(context.Background(), gen)
		return stateMsg{state: s}
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.form.Focus())
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			m.dispatcher.Cancel()
			return m, tea.Quit
		case "ctrl+x":
			m.dispatcher.Cancel()
			m.state = m.dispatcher.State()
			m.status = ""
			m.sidebar.SetDisabled(false)
			m.refresh()
			return m, nil
		case "ctrl+y":
			m.copyResult()
			m.refresh()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "esc":
			m.focus = focusSidebar
			m.form.Blur()
			m.refresh()
			return m, nil
		}

		if m.focus == focusSidebar {
			if msg.String() == "tab" || msg.String() == "right" {
				m.focus = focusForm
				cmds = append(cmds, m.form.Focus())
				break
			}
			_, cmd := m.sidebar.Update(msg)
			cmds = append(cmds, cmd)
			break
		}

		switch msg.String() {
		case "tab":
			cmds = append(cmds, m.form.Next())
		case "shift+tab":
			cmds = append(cmds, m.form.Prev())
		case "ctrl+s":
			cmds = append(cmds, m.submit())
		default:
			m.inputErr = ""
			cmds = append(cmds, m.form.Update(msg))
		}

	case ui.SelectedMsg:
		cmds = append(cmds, m.selectTool(catalog.Tool(msg.ID)))

	case stateMsg:
		if msg.state.Generation < m.state.Generation {
			break
		}
		m.applyState(msg.state)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.mainWidth(), max(msg.Height-3, 5))
			m.ready = true
		} else {
			m.viewport.Width = m.mainWidth()
			m.viewport.Height = max(msg.Height-3, 5)
		}
		m.form.SetWidth(m.mainWidth() - 2)
		m.renderResult()

	case spinner.TickMsg:
		if m.state.Phase != dispatch.PhaseLoading {
			break
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		cmds = append(cmds, m.form.Update(msg))
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

func (m *tuiModel) submit() tea.Cmd {
	if m.state.Phase == dispatch.PhaseLoading {
		return nil
	}
	in, err := m.form.Input()
	if err != nil {
		m.inputErr = err.Error()
		return nil
	}
	m.inputErr = ""
	m.status = ""

	gen, err := m.dispatcher.Submit(context.Background(), in)
	if err != nil {
		m.inputErr = err.Error()
		return nil
	}
	m.applyState(m.dispatcher.State())
	return tea.Batch(m.spinner.Tick, waitFor(m.dispatcher, gen))
}

func (m *tuiModel) selectTool(tool catalog.Tool) tea.Cmd {
	if err := m.dispatcher.SelectTool(tool); err != nil {
		m.status = err.Error()
		return nil
	}
	if tool != m.form.Tool() {
		m.form.Blur()
		m.form = ui.NewForm(catalog.MustSchemaFor(tool), ui.DemoValues(tool))
		m.form.SetWidth(m.mainWidth() - 2)
		m.inputErr = ""
		m.status = ""
		m.viewport.GotoTop()
	}
	m.applyState(m.dispatcher.State())
	m.focus = focusForm
	return m.form.Focus()
}

func (m *tuiModel) applyState(s dispatch.State) {
	m.state = s
	m.sidebar.SetDisabled(s.Phase == dispatch.PhaseLoading)
	m.renderResult()
}

func (m *tuiModel) copyResult() {
	if m.state.Phase != dispatch.PhaseSucceeded {
		m.status = "Nothing to copy yet"
		return
	}
	if err := clipboardWriteAll(export.PlainText(m.state.Output, m.state.Input)); err != nil {
		m.status = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.status = "Copied to clipboard!"
}

// renderResult caches the glamour rendering of a successful result
func (m *tuiModel) renderResult() {
	m.rendered = ""
	if m.state.Phase == dispatch.PhaseSucceeded && m.state.Output != nil {
		m.rendered = renderMarkdown(export.Markdown(m.state.Output, m.state.Input), max(m.mainWidth()-4, 20))
	}
}

func (m *tuiModel) refresh() {
	if m.ready {
		m.viewport.SetContent(m.body())
	}
}

func (m tuiModel) mainWidth() int {
	return max(m.width-sidebarWidth-3, 30)
}

func (m tuiModel) body() string {
	var b strings.Builder

	b.WriteString(ui.TitleStyle.Render(m.form.Tool().Title()))
	b.WriteString("\n\n")
	b.WriteString(m.form.View(m.state.Phase == dispatch.PhaseLoading))
	b.WriteString("\n")
	if m.inputErr != "" {
		b.WriteString("\n" + ui.ErrorStyle.Render(ui.SymbolCross+" "+m.inputErr) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.resultView())
	return b.String()
}

func (m tuiModel) resultView() string {
	switch m.state.Phase {
	case dispatch.PhaseLoading:
		return fmt.Sprintf("%s Analyzing...", m.spinner.View())
	case dispatch.PhaseFailed:
		return ui.ErrorPanelStyle.Render(
			ui.ErrorStyle.Bold(true).Render("An Error Occurred") + "\n" + m.state.Reason,
		)
	case dispatch.PhaseSucceeded:
		return m.rendered
	default:
		return ui.TitleStyle.Render("AI-Powered Content Awaits") + "\n" +
			ui.HelpStyle.Render("Fill in the details and press ctrl+s to generate.")
	}
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Initializing...\n"
	}

	sidebar := ui.SidebarStyle.
		Width(sidebarWidth).
		Height(max(m.height-2, 1)).
		Render(m.sidebar.View(m.focus == focusSidebar))

	main := m.viewport.View()
	if m.status != "" {
		main += "\n" + ui.StatusStyle.Render(m.status)
	}

	help := ui.HelpStyle.Render("  tab next field • esc tools • ctrl+s generate • ctrl+x cancel • ctrl+y copy • pgup/pgdn scroll • ctrl+c quit")
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main) + "\n" + help
}

// runTUI starts the interactive workspace. Logs go to a file so they do not
// corrupt the alt screen.
func runTUI(ctx context.Context, opts *rootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := opts.logger(true)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	g, err := opts.buildGateway(ctx, logger, nil)
	if err != nil {
		return err
	}

	d := dispatch.New(g,
		dispatch.WithLogger(logger),
		dispatch.WithTimeout(opts.cfg.RequestTimeout),
	)
	defer d.Close()

	p := tea.NewProgram(newTUIModel(d), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		logger.Error("tui exited", zap.Error(err))
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
