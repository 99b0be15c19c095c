package theme

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles for one theme and renderer.
type Styles struct {
	Text     lipgloss.Style
	Dim      lipgloss.Style
	Disabled lipgloss.Style
	Error    lipgloss.Style
	Accent   lipgloss.Style

	Button      lipgloss.Style
	ButtonFocus lipgloss.Style

	Input       lipgloss.Style
	InputFocus  lipgloss.Style
	Placeholder lipgloss.Style

	GaugeFilled lipgloss.Style
	GaugeEmpty  lipgloss.Style

	Group      lipgloss.Style
	GroupFocus lipgloss.Style
	GroupTitle lipgloss.Style
}

// Styles builds the style set for t on r. A nil renderer uses lipgloss's
// default renderer.
func (t Theme) Styles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	fg := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c))
	}
	button := r.NewStyle().
		Foreground(lipgloss.Color(t.ButtonFG)).
		Background(lipgloss.Color(t.ButtonBG)).
		Padding(0, 1)
	input := r.NewStyle().
		Foreground(lipgloss.Color(t.InputFG)).
		Background(lipgloss.Color(t.InputBG))
	group := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.Border)).
		Padding(0, 1)

	return Styles{
		Text:     fg(t.Foreground),
		Dim:      fg(t.Dim),
		Disabled: fg(t.Dim).Faint(true),
		Error:    fg(t.Error),
		Accent:   fg(t.Accent).Bold(true),

		Button:      button,
		ButtonFocus: button.Background(lipgloss.Color(t.Accent)).Bold(true),

		Input:       input,
		InputFocus:  input.Underline(true),
		Placeholder: fg(t.Placeholder),

		GaugeFilled: fg(t.GaugeFilled),
		GaugeEmpty:  fg(t.GaugeEmpty),

		Group:      group,
		GroupFocus: group.BorderForeground(lipgloss.Color(t.BorderFocus)),
		GroupTitle: fg(t.Title).Bold(true),
	}
}
