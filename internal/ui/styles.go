package ui

import "github.com/charmbracelet/lipgloss"

// styles are bound to the output's renderer so plain writers get plain text.
type styles struct {
	alert    lipgloss.Style
	prompt   lipgloss.Style
	title    lipgloss.Style
	meta     lipgloss.Style
	status   lipgloss.Style
	draft    lipgloss.Style
	tag      lipgloss.Style
	content  lipgloss.Style
	action   lipgloss.Style
	dim      lipgloss.Style
	errorMsg lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		alert: r.NewStyle().
			Foreground(lipgloss.Color("#A6DA95")).
			Bold(true),
		prompt: r.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true),
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6600")),
		meta: r.NewStyle().
			Foreground(lipgloss.Color("#6E738D")),
		status: r.NewStyle().
			Foreground(lipgloss.Color("#7DC4E4")),
		draft: r.NewStyle().
			Foreground(lipgloss.Color("#EED49F")),
		tag: r.NewStyle().
			Foreground(lipgloss.Color("#A6DA95")).
			Italic(true),
		content: r.NewStyle().
			Foreground(lipgloss.Color("#CAD3F5")).
			Width(contentWidth),
		action: r.NewStyle().
			Foreground(lipgloss.Color("212")),
		dim: r.NewStyle().
			Foreground(lipgloss.Color("#555555")),
		errorMsg: r.NewStyle().
			Foreground(lipgloss.Color("#ED8796")).
			Bold(true),
	}
}

const contentWidth = 80

func (s styles) statusStyle(status string) lipgloss.Style {
	if status == "draft" {
		return s.draft
	}
	return s.status
}
