package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// readerKeyMap is the fixed key surface of the reading view.
type readerKeyMap struct {
	Prev       key.Binding
	Next       key.Binding
	Top        key.Binding
	Bottom     key.Binding
	LineDown   key.Binding
	LineUp     key.Binding
	PageDown   key.Binding
	PageUp     key.Binding
	Settings   key.Binding
	Contents   key.Binding
	Open       key.Binding
	AutoScroll key.Binding
	Back       key.Binding
}

func newReaderKeyMap() readerKeyMap {
	return readerKeyMap{
		Prev:       key.NewBinding(key.WithKeys("left", "backspace"), key.WithHelp("←", "prev chapter")),
		Next:       key.NewBinding(key.WithKeys("right", " "), key.WithHelp("→/space", "next chapter")),
		Top:        key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "top")),
		Bottom:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "bottom")),
		LineDown:   key.NewBinding(key.WithKeys("j"), key.WithHelp("j", "scroll down")),
		LineUp:     key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "scroll up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		PageUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		Settings:   key.NewBinding(key.WithKeys("s", "S"), key.WithHelp("s", "settings")),
		Contents:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "chapters")),
		Open:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
		AutoScroll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto scroll")),
		Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

func (k readerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Settings, k.Contents, k.AutoScroll, k.Back}
}

func (k readerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Contents},
		{k.Top, k.Bottom, k.LineDown, k.LineUp, k.PageDown, k.PageUp},
		{k.Settings, k.AutoScroll, k.Open, k.Back},
	}
}

// panelKeyMap drives the settings overlay and the chapter drawer.
type panelKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Select key.Binding
	Close  key.Binding
}

func newPanelKeyMap() panelKeyMap {
	return panelKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:   key.NewBinding(key.WithKeys("left", "h", "-"), key.WithHelp("←/h", "less")),
		Right:  key.NewBinding(key.WithKeys("right", "l", "+"), key.WithHelp("→/l", "more")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

func (k panelKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Select, k.Close}
}

func (k panelKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
