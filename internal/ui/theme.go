package ui

import "github.com/charmbracelet/lipgloss"

// Index run colours: bordeaux headings, gold progress, sober status marks.
const (
	colorBordeaux = "#8C1C3A"
	colorGold     = "#C9A227"
	colorInk      = "#D8CFC0"
	colorMuted    = "#7D7468"
	colorIndexed  = "#6A994E"
	colorFailed   = "#C0392B"
	colorWarned   = "#D98E04"
)

// Theme styles the live view. The zero Theme renders plain text.
type Theme struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Current lipgloss.Style
	DocID   lipgloss.Style
	Indexed lipgloss.Style
	Failed  lipgloss.Style
	Warned  lipgloss.Style
	Frame   lipgloss.Style

	// BarColor fills the progress bar; empty keeps the bar's default.
	BarColor string
}

// NewTheme returns the coloured theme, or the plain one when color is false.
func NewTheme(color bool) Theme {
	frame := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false).Padding(0, 1)
	if !color {
		return Theme{Frame: frame}
	}

	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return Theme{
		Title:    fg(colorBordeaux).Bold(true),
		Muted:    fg(colorMuted),
		Current:  fg(colorGold).Bold(true),
		DocID:    fg(colorInk),
		Indexed:  fg(colorIndexed),
		Failed:   fg(colorFailed).Bold(true),
		Warned:   fg(colorWarned),
		Frame:    frame.BorderForeground(lipgloss.Color(colorBordeaux)),
		BarColor: colorGold,
	}
}

// mark is the status glyph of a document.
func (t Theme) mark(r DocumentResult) string {
	switch {
	case !r.Failed():
		return t.Indexed.Render("✓")
	case r.Warn:
		return t.Warned.Render("!")
	default:
		return t.Failed.Render("✗")
	}
}
