package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// renderHeader returns a consistently styled header with an optional muted subtitle.
// Width is used to guide truncation via helpers.
func renderHeader(title, subtitle string, width int) string {
	title = truncateEnd(title, width-2)
	subtitle = truncateEnd(subtitle, width-2)
	rows := []string{HeaderStyle.Render(title)}
	if subtitle != "" {
		rows = append(rows, renderMuted(subtitle))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// renderInputFrame draws a rounded bordered container around a rendered input view.
func renderInputFrame(inputView string, focused bool, contentWidth int) string {
	borderColor := MutedColor
	if focused {
		borderColor = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(contentWidth + 4).
		Render(inputView)
}

// renderCentered centers the provided content within the given width/height box.
func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}

// renderModal draws a confirmation dialog centered in the content area.
func renderModal(width, height int, title, question, subject, note, help string) string {
	modalWidth := (width * 4) / 5
	if modalWidth < 20 {
		modalWidth = max(width-4, 15)
	}
	center := lipgloss.NewStyle().Width(modalWidth).Align(lipgloss.Center)

	rows := []string{
		ErrorMessageStyle.Render(title),
		"",
		center.Inherit(ModalTextStyle).Render(question),
		"",
		center.Inherit(ModalHighlightStyle).Render(truncateEnd(subject, modalWidth-4)),
	}
	if note != "" {
		rows = append(rows, "", center.Foreground(MutedColor).Render(note))
	}
	rows = append(rows, "", "", renderHelp(help))

	return renderCentered(width, height, lipgloss.JoinVertical(lipgloss.Center, rows...))
}

// renderNotFound is the page shown when a novel or chapter does not exist.
func renderNotFound(width, height int, what, help string) string {
	return renderCentered(width, height, lipgloss.JoinVertical(
		lipgloss.Center,
		ErrorMessageStyle.Render("404"),
		"",
		ModalTextStyle.Render(what+" not found"),
		"",
		renderHelp(help),
	))
}
