package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/foldtree/pkg/model"
	"github.com/vanderheijden86/foldtree/pkg/watcher"
)

// FileChangedMsg is sent when a watched data file changes on disk.
type FileChangedMsg struct {
	Paths []string
}

// ReloadedMsg carries the result of a reload.
type ReloadedMsg struct {
	Nodes []model.Node
	Err   error
}

// WatchFileCmd waits for the next debounced change burst.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		return FileChangedMsg{Paths: <-w.Changed()}
	}
}
