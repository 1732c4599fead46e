package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles is bound to a renderer so that output going to a pipe or buffer
// comes out unstyled.
type styles struct {
	panel      lipgloss.Style
	title      lipgloss.Style
	qubitLabel lipgloss.Style
	value      lipgloss.Style
	bitstring  lipgloss.Style
	degenerate lipgloss.Style
	errText    lipgloss.Style
	dim        lipgloss.Style
	spinner    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(0, 1),

		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff9e64")),

		qubitLabel: r.NewStyle().
			Foreground(lipgloss.Color("#7dcfff")),

		value: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#73daca")),

		bitstring: r.NewStyle().
			Foreground(lipgloss.Color("#e0af68")),

		degenerate: r.NewStyle().
			Foreground(lipgloss.Color("#bb9af7")),

		errText: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f7768e")),

		dim: r.NewStyle().
			Foreground(lipgloss.Color("#565f89")),

		spinner: r.NewStyle().
			Foreground(lipgloss.Color("#ff9e64")),
	}
}
