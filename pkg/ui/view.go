// Package ui is the terminal front end: a scrolling sectioned list over a
// folder.Model. Toggles are applied to the displayed sections by replaying
// the model's EditChange, the same way a list widget applies batch updates.
package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/foldtree/internal/datasource"
	"github.com/vanderheijden86/foldtree/pkg/binarytree"
	"github.com/vanderheijden86/foldtree/pkg/debug"
	"github.com/vanderheijden86/foldtree/pkg/folder"
	"github.com/vanderheijden86/foldtree/pkg/metrics"
	"github.com/vanderheijden86/foldtree/pkg/model"
	"github.com/vanderheijden86/foldtree/pkg/watcher"
)

const (
	defaultWidth       = 80
	defaultHeight      = 24
	defaultDetailWidth = 48
	minListWidth       = 24
)

// Options configures a FolderView. Zero values are usable.
type Options struct {
	Theme       *Theme
	Keys        *KeyMap
	Folding     bool
	RootID      string
	ShowNotes   bool
	DetailWidth int
	SourceName  string

	// Reload fetches the hierarchy again. Without it reload keys and file
	// changes are ignored.
	Reload func() ([]model.Node, error)
	// Watcher, when set, turns file changes into reloads.
	Watcher *watcher.Watcher
	// OnSelect receives the node under the cursor when Select is pressed.
	OnSelect func(model.Node)
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
}

// line is one displayed list line: a section header (row == -1) or a row.
type line struct {
	section int
	row     int
}

func (l line) isHeader() bool { return l.row < 0 }

// FolderView is the bubbletea model for the hierarchy list.
type FolderView struct {
	opts  Options
	theme Theme
	keys  KeyMap

	tree     *folder.Model[model.Node]
	nodes    []model.Node
	sections []folder.Section[model.Node]
	lines    []line

	cursor, offset int
	width, height  int

	help      help.Model
	showHelp  bool
	showNotes bool
	detail    viewport.Model
	md        *glamour.TermRenderer
	mdWidth   int

	status    string
	statusErr bool
}

// NewFolderView builds the view over nodes.
func NewFolderView(nodes []model.Node, opts Options) *FolderView {
	theme := TestTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}
	if opts.DetailWidth <= 0 {
		opts.DetailWidth = defaultDetailWidth
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}

	v := &FolderView{
		opts:      opts,
		theme:     theme,
		keys:      keys,
		width:     defaultWidth,
		height:    defaultHeight,
		help:      help.New(),
		showNotes: opts.ShowNotes,
		detail:    viewport.New(opts.DetailWidth, defaultHeight),
	}
	v.setNodes(nodes)
	return v
}

func (v *FolderView) setNodes(nodes []model.Node) {
	v.nodes = nodes
	v.tree = folder.New(nodes, folder.WithFolding(v.opts.Folding), folder.WithRootID(v.opts.RootID))
	v.sections = v.tree.Sections()
	v.rebuildLines()
}

func (v *FolderView) rebuildLines() {
	v.lines = v.lines[:0]
	for i, s := range v.sections {
		if !s.Implicit {
			v.lines = append(v.lines, line{section: i, row: -1})
		}
		for r := range s.Rows {
			v.lines = append(v.lines, line{section: i, row: r})
		}
	}
	debug.Assert(len(v.lines) == v.tree.VisibleCount(), "displayed lines match the model's visible count")
	v.cursor = clamp(v.cursor, 0, len(v.lines)-1)
	v.ensureCursorVisible()
	v.refreshDetail()
}

// Sections returns the sections as currently displayed.
func (v *FolderView) Sections() []folder.Section[model.Node] {
	return slices.Clone(v.sections)
}

// Model exposes the underlying folder model.
func (v *FolderView) Model() *folder.Model[model.Node] { return v.tree }

// Cursor returns the index of the selected line.
func (v *FolderView) Cursor() int { return v.cursor }

// Status returns the status line text.
func (v *FolderView) Status() string { return v.status }

// SelectedItem returns the item under the cursor.
func (v *FolderView) SelectedItem() (folder.Item[model.Node], bool) {
	if v.cursor < 0 || v.cursor >= len(v.lines) {
		return folder.Item[model.Node]{}, false
	}
	return v.itemAt(v.lines[v.cursor])
}

func (v *FolderView) itemAt(l line) (folder.Item[model.Node], bool) {
	if l.section >= len(v.sections) {
		return folder.Item[model.Node]{}, false
	}
	s := v.sections[l.section]
	if l.isHeader() {
		return s.Item, !s.Implicit
	}
	if l.row >= len(s.Rows) {
		return folder.Item[model.Node]{}, false
	}
	return s.Rows[l.row], true
}

// lineOf finds the line showing id, or -1.
func (v *FolderView) lineOf(id string) int {
	for i, l := range v.lines {
		if it, ok := v.itemAt(l); ok && it.ID() == id {
			return i
		}
	}
	return -1
}

func (v *FolderView) setStatus(msg string, isErr bool) {
	v.status, v.statusErr = msg, isErr
}

// Init starts watching for file changes when a watcher is configured.
func (v *FolderView) Init() tea.Cmd {
	if v.opts.Watcher != nil && v.opts.Reload != nil {
		return WatchFileCmd(v.opts.Watcher)
	}
	return nil
}

// Update handles keys, resizes, and reloads.
func (v *FolderView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
		v.help.Width = msg.Width
		v.ensureCursorVisible()
		v.refreshDetail()
		return v, nil

	case FileChangedMsg:
		debug.Log("ui: file change %v", msg.Paths)
		cmds := []tea.Cmd{v.reloadCmd()}
		if v.opts.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(v.opts.Watcher))
		}
		return v, tea.Batch(cmds...)

	case ReloadedMsg:
		v.applyReload(msg)
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)

	case tea.MouseMsg:
		if v.showNotes {
			var cmd tea.Cmd
			v.detail, cmd = v.detail.Update(msg)
			return v, cmd
		}
	}
	return v, nil
}

func (v *FolderView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	case key.Matches(msg, v.keys.Up):
		v.moveCursor(-1)
	case key.Matches(msg, v.keys.Down):
		v.moveCursor(1)
	case key.Matches(msg, v.keys.PageUp):
		v.moveCursor(-v.listHeight())
	case key.Matches(msg, v.keys.PageDown):
		v.moveCursor(v.listHeight())
	case key.Matches(msg, v.keys.Top):
		v.moveCursor(-len(v.lines))
	case key.Matches(msg, v.keys.Bottom):
		v.moveCursor(len(v.lines))
	case key.Matches(msg, v.keys.Toggle):
		v.ToggleSelected()
	case key.Matches(msg, v.keys.Parent):
		v.jumpToHeader()
	case key.Matches(msg, v.keys.Select):
		v.selectCurrent()
	case key.Matches(msg, v.keys.ExpandAll):
		v.setAll(folder.Expanded)
	case key.Matches(msg, v.keys.CollapseAll):
		v.setAll(folder.Collapsed)
	case key.Matches(msg, v.keys.NoFold):
		v.toggleFolding()
	case key.Matches(msg, v.keys.Notes):
		v.showNotes = !v.showNotes
		v.refreshDetail()
	case key.Matches(msg, v.keys.Yank):
		v.yank()
	case key.Matches(msg, v.keys.Reload):
		return v, v.reloadCmd()
	case key.Matches(msg, v.keys.Help):
		v.showHelp = !v.showHelp
		v.help.ShowAll = v.showHelp
	}
	return v, nil
}

func (v *FolderView) moveCursor(delta int) {
	if len(v.lines) == 0 {
		return
	}
	v.cursor = clamp(v.cursor+delta, 0, len(v.lines)-1)
	v.ensureCursorVisible()
	v.refreshDetail()
}

func (v *FolderView) jumpToHeader() {
	if v.cursor >= len(v.lines) {
		return
	}
	cur := v.lines[v.cursor]
	if cur.isHeader() || v.sections[cur.section].Implicit {
		return
	}
	for i := v.cursor; i >= 0; i-- {
		if v.lines[i].section == cur.section && v.lines[i].isHeader() {
			v.cursor = i
			break
		}
	}
	v.ensureCursorVisible()
	v.refreshDetail()
}

// ToggleSelected folds or unfolds the section whose header is under the
// cursor. Rows and the implicit section are not toggleable.
func (v *FolderView) ToggleSelected() {
	if v.cursor >= len(v.lines) || !v.lines[v.cursor].isHeader() {
		v.setStatus("Only section headers can be folded", false)
		return
	}
	v.toggleSection(v.lines[v.cursor].section)
}

func (v *FolderView) toggleSection(section int) {
	header, _ := v.itemAt(line{section: section, row: -1})
	change, state, err := v.tree.Toggle(section)
	if err != nil {
		v.setStatus(fmt.Sprintf("Cannot toggle: %v", err), true)
		return
	}

	next := v.tree.Sections()
	if change.IsNone() {
		v.sections = next
	} else {
		replayed, err := folder.Apply(change, v.sections, next)
		debug.AssertNoError(err, "replaying toggle")
		if err != nil || !folder.SectionsEqual(replayed, next) {
			// Resync from the model rather than show a drifted list.
			debug.Log("ui: replay of %s diverged (%v), reloading sections", change, err)
			replayed = next
		}
		v.sections = replayed
	}
	v.rebuildLines()

	if i := v.lineOf(header.ID()); i >= 0 {
		v.cursor = i
		v.ensureCursorVisible()
		v.refreshDetail()
	}
	v.setStatus(fmt.Sprintf("%s %s", state, header.Element.Label()), false)
}

func (v *FolderView) setAll(state folder.ExpandState) {
	id := v.selectedID()
	v.tree.SetAll(state)
	v.sections = v.tree.Sections()
	v.rebuildLines()
	v.restoreCursor(id)
	v.setStatus(fmt.Sprintf("All branches %s", state), false)
}

func (v *FolderView) toggleFolding() {
	id := v.selectedID()
	v.tree.SetFoldingEnabled(!v.tree.FoldingEnabled())
	v.sections = v.tree.Sections()
	v.rebuildLines()
	v.restoreCursor(id)
	if v.tree.FoldingEnabled() {
		v.setStatus("Folding enabled", false)
	} else {
		v.setStatus("Folding disabled", false)
	}
}

func (v *FolderView) selectedID() string {
	if it, ok := v.SelectedItem(); ok {
		return it.ID()
	}
	return ""
}

func (v *FolderView) restoreCursor(id string) {
	if i := v.lineOf(id); i >= 0 {
		v.cursor = i
	}
	v.cursor = clamp(v.cursor, 0, len(v.lines)-1)
	v.ensureCursorVisible()
	v.refreshDetail()
}

func (v *FolderView) selectCurrent() {
	it, ok := v.SelectedItem()
	if !ok {
		return
	}
	if v.opts.OnSelect != nil {
		v.opts.OnSelect(it.Element)
	}
	v.setStatus(fmt.Sprintf("Selected %s", it.ID()), false)
}

func (v *FolderView) yank() {
	it, ok := v.SelectedItem()
	if !ok {
		return
	}
	if err := v.opts.Clipboard(it.ID()); err != nil {
		v.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	v.setStatus(fmt.Sprintf("Copied %s to clipboard", it.ID()), false)
}

// collapsedIDs lists every collapsed branch, hidden ones included.
func (v *FolderView) collapsedIDs() map[string]bool {
	ids := make(map[string]bool)
	binarytree.Fold(v.tree.Tree(), struct{}{}, func(_ struct{}, it folder.Item[model.Node], _ struct{}) struct{} {
		if it.State == folder.Collapsed {
			ids[it.ID()] = true
		}
		return struct{}{}
	})
	return ids
}

// applyReload swaps in reloaded nodes, keeping collapsed branches collapsed
// and the cursor on the same id where both still exist.
func (v *FolderView) applyReload(msg ReloadedMsg) {
	if msg.Err != nil {
		v.setStatus(fmt.Sprintf("Reload failed: %v", msg.Err), true)
		return
	}
	id := v.selectedID()
	collapsed := v.collapsedIDs()
	folding := v.tree.FoldingEnabled()
	previous := v.nodes

	v.nodes = msg.Nodes
	v.tree = folder.New(msg.Nodes, folder.WithFolding(folding), folder.WithRootID(v.opts.RootID))
	restoreCollapsed(v.tree, collapsed)
	v.sections = v.tree.Sections()
	v.rebuildLines()
	v.restoreCursor(id)

	d := datasource.DetectInconsistencies(previous, msg.Nodes, "before", "after", datasource.DefaultDiffOptions())
	if d.HasInconsistencies() {
		v.setStatus(fmt.Sprintf("Reloaded %d nodes (%s)", len(msg.Nodes), d.ShortSummary()), false)
	} else {
		v.setStatus(fmt.Sprintf("Reloaded %d nodes, no changes", len(msg.Nodes)), false)
	}
}

// restoreCollapsed collapses the branches named in ids. Sections are
// visited from the bottom so a nested branch is collapsed before its
// ancestor hides it, and earlier indices stay valid.
func restoreCollapsed(m *folder.Model[model.Node], ids map[string]bool) {
	if len(ids) == 0 {
		return
	}
	for i := m.NumberOfSections() - 1; i >= 0; i-- {
		header, ok := m.Header(i)
		if !ok || !ids[header.ID()] || header.State == folder.Collapsed {
			continue
		}
		if _, _, err := m.Toggle(i); err != nil {
			debug.Log("ui: restoring %q: %v", header.ID(), err)
		}
	}
}

func (v *FolderView) reloadCmd() tea.Cmd {
	if v.opts.Reload == nil {
		return nil
	}
	reload := v.opts.Reload
	return func() tea.Msg {
		nodes, err := reload()
		return ReloadedMsg{Nodes: nodes, Err: err}
	}
}

// --- layout ----------------------------------------------------------------

func (v *FolderView) listHeight() int {
	// header bar, status line, help line
	return max(v.height-3, 1)
}

func (v *FolderView) listWidth() int {
	if !v.showNotes {
		return v.width
	}
	return max(v.width-v.detailWidth(), minListWidth)
}

func (v *FolderView) detailWidth() int {
	return min(v.opts.DetailWidth, max(v.width-minListWidth, 0))
}

func (v *FolderView) ensureCursorVisible() {
	h := v.listHeight()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+h {
		v.offset = v.cursor - h + 1
	}
	v.offset = clamp(v.offset, 0, max(len(v.lines)-h, 0))
}

func (v *FolderView) refreshDetail() {
	if !v.showNotes {
		return
	}
	w := v.detailWidth()
	v.detail.Width = max(w-4, 1)
	v.detail.Height = max(v.listHeight()-2, 1)

	it, ok := v.SelectedItem()
	if !ok {
		v.detail.SetContent("Nothing selected")
		return
	}
	v.detail.SetContent(v.renderNotes(it.Element))
	v.detail.GotoTop()
}

func (v *FolderView) renderNotes(n model.Node) string {
	var sb strings.Builder
	sb.WriteString("# " + n.Label() + "\n\n")
	sb.WriteString(fmt.Sprintf("`%s`", n.Key))
	if n.Kind != model.KindNone {
		sb.WriteString(fmt.Sprintf(" · %s", n.Kind))
	}
	sb.WriteString("\n\n")
	if n.Notes != "" {
		sb.WriteString(n.Notes)
	} else {
		sb.WriteString("*No notes.*")
	}

	wrap := max(v.detail.Width, 10)
	if v.md == nil || v.mdWidth != wrap {
		md, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrap))
		if err != nil {
			return sb.String()
		}
		v.md, v.mdWidth = md, wrap
	}
	out, err := v.md.Render(sb.String())
	if err != nil {
		return fmt.Sprintf("Error rendering markdown: %v", err)
	}
	return out
}

// --- rendering -------------------------------------------------------------

// View renders the header bar, the list, the optional notes pane, the
// status line and the help line.
func (v *FolderView) View() string {
	defer metrics.Timer(metrics.UIRender)()

	var sb strings.Builder
	sb.WriteString(v.renderHeader())
	sb.WriteString("\n")

	body := v.renderList()
	if v.showNotes && v.detailWidth() > 0 {
		box := v.theme.DetailBox.Width(v.detailWidth() - 2).Render(v.detail.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, box)
	}
	sb.WriteString(body)
	sb.WriteString("\n")

	if v.status != "" {
		style := v.theme.StatusOK
		if v.statusErr {
			style = v.theme.StatusError
		}
		sb.WriteString(style.Render(truncate(v.status, v.width)))
	}
	sb.WriteString("\n")
	sb.WriteString(v.help.View(v.keys))
	return sb.String()
}

func (v *FolderView) renderHeader() string {
	name := v.opts.SourceName
	if name == "" {
		name = "fold"
	}
	fold := "on"
	if !v.tree.FoldingEnabled() {
		fold = "off"
	}
	text := fmt.Sprintf("%s  %d sections · %d rows · folding %s",
		name, v.tree.NumberOfSections(), v.tree.RowCount(), fold)
	return v.theme.Header.Width(v.width).Render(truncate(text, max(v.width-2, 1)))
}

func (v *FolderView) renderList() string {
	width := v.listWidth()
	h := v.listHeight()
	if len(v.lines) == 0 {
		return v.theme.MutedText.Width(width).Height(h).Render("No nodes to display.")
	}

	end := min(v.offset+h, len(v.lines))
	out := make([]string, 0, h)
	for i := v.offset; i < end; i++ {
		text := v.renderLine(v.lines[i], width-1)
		if i == v.cursor {
			text = v.theme.Selected.Width(width - 1).Render(text)
		} else {
			text = " " + padRight(text, width-1)
		}
		out = append(out, text)
	}
	for len(out) < h {
		out = append(out, strings.Repeat(" ", width))
	}
	return strings.Join(out, "\n")
}

// renderLine draws one unstyled-width line: indentation, fold marker, kind
// glyph, label and id.
func (v *FolderView) renderLine(l line, width int) string {
	it, ok := v.itemAt(l)
	if !ok {
		return ""
	}
	indent := strings.Repeat("  ", it.Depth)
	marker := "•"
	if l.isHeader() {
		marker = "▾"
		if it.State == folder.Collapsed {
			marker = "▸"
		}
	}
	icon, color := v.theme.KindIcon(it.Element.Kind)
	prefix := fmt.Sprintf("%s%s %s ", indent, marker, icon)

	id := " " + it.ID()
	room := max(width-lipgloss.Width(prefix), 0)
	label := it.Element.Label()
	if lipgloss.Width(label)+lipgloss.Width(id) > room {
		id = ""
	}
	label = truncate(label, room)

	styledIcon := v.theme.Renderer.NewStyle().Foreground(color).Render(icon)
	prefix = fmt.Sprintf("%s%s %s ", indent, marker, styledIcon)
	if l.isHeader() {
		label = v.theme.SectionHead.Render(label)
	}
	return prefix + label + v.theme.MutedText.Render(id)
}
