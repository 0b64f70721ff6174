package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/streamgrid/internal/models"
)

var styles = NewPalette("#9147FF", "#04B575", "#FF4F4F", "#FFA500", "#626262")

// platformColors tints the platform tag in entry titles.
var platformColors = map[models.Platform]lipgloss.Color{
	models.PlatformTwitch:  lipgloss.Color("#9147FF"),
	models.PlatformYouTube: lipgloss.Color("#FF0000"),
	models.PlatformKick:    lipgloss.Color("#53FC18"),
}

// Palette is a small stylesheet of named [lipgloss.Style] fields.
type Palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	help     lipgloss.Style
	selected lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:    NewBold(t).MarginBottom(1),
		ok:       NewBold(s),
		err:      NewBold(e),
		warn:     NewStyle(w),
		help:     NewEm(h),
		selected: NewBold(t).PaddingLeft(1),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// platformTag renders p's title in its brand color.
func platformTag(p models.Platform) string {
	c, ok := platformColors[p]
	if !ok {
		return p.Title()
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(p.Title())
}
