package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/savedl/internal/tasks"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF5F56", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	info  lipgloss.Style
	frame lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		info:  lipgloss.NewStyle(),
		frame: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(h)).Padding(0, 1),
	}
}

// Level returns the style for log lines of level l.
func (p *Palette) Level(l tasks.Level) lipgloss.Style {
	switch l {
	case tasks.LevelSuccess:
		return p.ok
	case tasks.LevelWarning:
		return p.warn
	case tasks.LevelError:
		return p.err
	default:
		return p.info
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
