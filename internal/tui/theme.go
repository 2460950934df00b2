package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/ranobe/internal/reader"
)

// Palette colors the reader chrome for one reading theme. Chapter text
// itself is styled by glamour.
type Palette struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Accent     lipgloss.Color
	Border     lipgloss.Color
	// Gradient endpoints for the progress bar.
	ProgressFrom string
	ProgressTo   string
}

var palettes = map[reader.Theme]Palette{
	reader.ThemeLight: {
		Background:   lipgloss.Color("#FFFFFF"),
		Foreground:   lipgloss.Color("#1F2937"),
		Muted:        lipgloss.Color("#9CA3AF"),
		Accent:       lipgloss.Color("#2563EB"),
		Border:       lipgloss.Color("#E5E7EB"),
		ProgressFrom: "#60A5FA",
		ProgressTo:   "#2563EB",
	},
	reader.ThemeDark: {
		Background:   lipgloss.Color("#1F2937"),
		Foreground:   lipgloss.Color("#F9FAFB"),
		Muted:        lipgloss.Color("#6B7280"),
		Accent:       lipgloss.Color("#06B6D4"),
		Border:       lipgloss.Color("#374151"),
		ProgressFrom: "#0E7490",
		ProgressTo:   "#22D3EE",
	},
	reader.ThemeSepia: {
		Background:   lipgloss.Color("#F4ECD8"),
		Foreground:   lipgloss.Color("#5B4636"),
		Muted:        lipgloss.Color("#A08C74"),
		Accent:       lipgloss.Color("#B45309"),
		Border:       lipgloss.Color("#E0D4B8"),
		ProgressFrom: "#D97706",
		ProgressTo:   "#92400E",
	},
	reader.ThemeNight: {
		Background:   lipgloss.Color("#0B0B0F"),
		Foreground:   lipgloss.Color("#C9C9D1"),
		Muted:        lipgloss.Color("#4B4B57"),
		Accent:       lipgloss.Color("#A78BFA"),
		Border:       lipgloss.Color("#1E1E26"),
		ProgressFrom: "#4C1D95",
		ProgressTo:   "#A78BFA",
	},
}

// PaletteFor falls back to the light palette for unknown themes.
func PaletteFor(t reader.Theme) Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[reader.ThemeLight]
}

func (p Palette) muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(p.Muted)
}

func (p Palette) accent() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(p.Accent).Bold(true)
}

func (p Palette) text() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(p.Foreground)
}

func (p Palette) panel() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(0, 1)
}
