package gate

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	user     lipgloss.Style
	detail   lipgloss.Style
	warning  lipgloss.Style
	section  lipgloss.Style
	empty    lipgloss.Style
	stepDone lipgloss.Style
	stepTodo lipgloss.Style
	route    lipgloss.Style
	help     lipgloss.Style
	badges   map[string]lipgloss.Style
}

func newStyles() styles {
	badge := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}

	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		user:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		stepDone: lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		stepTodo: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		route:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		help:     lipgloss.NewStyle().Faint(true),
		badges: map[string]lipgloss.Style{
			"ready":            badge("114"),
			"needs_completion": badge("221"),
			"needs_account":    badge("209"),
			"loading":          badge("69"),
			"not_applicable":   badge("245"),
		},
	}
}

func (s styles) badge(status string) lipgloss.Style {
	if style, ok := s.badges[status]; ok {
		return style
	}

	return s.detail
}
