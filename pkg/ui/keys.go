package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the FolderView bindings. It implements help.KeyMap.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Toggle      key.Binding
	Select      key.Binding
	Parent      key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	NoFold      key.Binding
	Notes       key.Binding
	Yank        key.Binding
	Reload      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns vim-style bindings with arrow-key aliases.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Top:         key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:      key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Toggle:      key.NewBinding(key.WithKeys(" ", "tab"), key.WithHelp("space", "fold/unfold")),
		Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Parent:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("←/h", "to header")),
		ExpandAll:   key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		CollapseAll: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
		NoFold:      key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "folding on/off")),
		Notes:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "notes")),
		Yank:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Select, k.Notes, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Toggle, k.Parent, k.ExpandAll, k.CollapseAll, k.NoFold},
		{k.Select, k.Notes, k.Yank, k.Reload, k.Help, k.Quit},
	}
}
