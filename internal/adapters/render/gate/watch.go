package gate

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type viewMsg View

type refetchDoneMsg struct{}

type keyMap struct {
	Refetch key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Refetch: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "re-check")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// WatchModel keeps the gate screen live: views are pushed in with Send and
// "r" asks for a re-check.
type WatchModel struct {
	view     View
	styles   styles
	keys     keyMap
	spinner  spinner.Model
	refetch  func()
	checking bool
}

func NewWatchModel(initial View, refetch func()) WatchModel {
	return WatchModel{
		view:   initial,
		styles: newStyles(),
		keys:   defaultKeyMap(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		refetch: refetch,
	}
}

// Send pushes a new view into a running watch program.
func Send(p *tea.Program, v View) {
	p.Send(viewMsg(v))
}

func (m WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = View(msg)
		return m, nil
	case refetchDoneMsg:
		m.checking = false
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refetch):
			if m.refetch == nil || m.checking {
				return m, nil
			}
			m.checking = true
			refetch := m.refetch
			return m, func() tea.Msg {
				refetch()
				return refetchDoneMsg{}
			}
		}
	}

	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder
	b.WriteString(renderView(m.view, m.styles))
	b.WriteString("\n")
	if m.checking || m.view.Snapshot.Loading() {
		b.WriteString("\n" + m.spinner.View() + " checking onboarding status")
	}
	b.WriteString("\n" + m.styles.help.Render(m.keys.Refetch.Help().Key+" "+m.keys.Refetch.Help().Desc+" | "+m.keys.Quit.Help().Key+" "+m.keys.Quit.Help().Desc))
	b.WriteString("\n")

	return b.String()
}

// Current returns the view the model is displaying.
func (m WatchModel) Current() View {
	return m.view
}
