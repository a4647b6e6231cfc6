package folder

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vanderheijden86/foldtree/pkg/binarytree"
	"github.com/vanderheijden86/foldtree/pkg/debug"
	"github.com/vanderheijden86/foldtree/pkg/metrics"
)

// ErrToggle is returned when a toggle cannot be applied. The model is left
// unchanged.
var ErrToggle = errors.New("cannot toggle section")

// Option configures a Model.
type Option func(*options)

type options struct {
	folding bool
	rootID  string
}

// WithFolding enables or disables folding. With folding disabled every
// branch is shown expanded regardless of its state. Default true.
func WithFolding(enabled bool) Option {
	return func(o *options) { o.folding = enabled }
}

// WithRootID sets the parent id that marks top-level elements. Default RootID.
func WithRootID(id string) Option {
	return func(o *options) { o.rootID = id }
}

// Model holds the tree and its current presentation. It is not safe for
// concurrent use; callers serialise toggles.
type Model[E Payload] struct {
	folding  bool
	rootID   string
	root     binarytree.Tree[Item[E]]
	sections []Section[E]
	parents  map[string]string
}

// New builds the hierarchy and its first presentation.
func New[E Payload](elements []E, opts ...Option) *Model[E] {
	o := options{folding: true, rootID: RootID}
	for _, opt := range opts {
		opt(&o)
	}

	root := Build(elements, o.rootID)
	parents := make(map[string]string, len(elements))
	for _, it := range root.Elements() {
		parents[it.ID()] = it.Element.ParentID()
	}

	m := &Model[E]{
		folding: o.folding,
		rootID:  o.rootID,
		root:    root,
		parents: parents,
	}
	m.sections = flatten(root, m.folding)
	debug.Log("folder: built %d items into %d sections", len(parents), len(m.sections))
	return m
}

// Sections returns a copy of the current presentation.
func (m *Model[E]) Sections() []Section[E] {
	out := make([]Section[E], len(m.sections))
	for i, s := range m.sections {
		out[i] = Section[E]{Item: s.Item, Rows: slices.Clone(s.Rows), Implicit: s.Implicit}
	}
	return out
}

// NumberOfSections returns the number of sections, the implicit one included.
func (m *Model[E]) NumberOfSections() int { return len(m.sections) }

// NumberOfRows returns the row count of a section, 0 when out of range.
func (m *Model[E]) NumberOfRows(section int) int {
	if section < 0 || section >= len(m.sections) {
		return 0
	}
	return len(m.sections[section].Rows)
}

// Header returns a section's branch item. It reports false for the implicit
// section and out-of-range indices.
func (m *Model[E]) Header(section int) (Item[E], bool) {
	if section < 0 || section >= len(m.sections) || m.sections[section].Implicit {
		return Item[E]{}, false
	}
	return m.sections[section].Item, true
}

// Row returns one row item.
func (m *Model[E]) Row(section, row int) (Item[E], bool) {
	if section < 0 || section >= len(m.sections) {
		return Item[E]{}, false
	}
	rows := m.sections[section].Rows
	if row < 0 || row >= len(rows) {
		return Item[E]{}, false
	}
	return rows[row], true
}

// Tree returns the current tree.
func (m *Model[E]) Tree() binarytree.Tree[Item[E]] { return m.root }

// FoldingEnabled reports whether collapsed branches hide their contents.
func (m *Model[E]) FoldingEnabled() bool { return m.folding }

// RootID returns the parent id of top-level elements.
func (m *Model[E]) RootID() string { return m.rootID }

// ItemCount returns the number of items in the tree.
func (m *Model[E]) ItemCount() int { return len(m.parents) }

// RowCount returns the number of rows across all sections.
func (m *Model[E]) RowCount() int {
	n := 0
	for _, s := range m.sections {
		n += len(s.Rows)
	}
	return n
}

// VisibleCount returns rows plus section headers. With folding disabled it
// equals ItemCount.
func (m *Model[E]) VisibleCount() int {
	n := m.RowCount()
	for _, s := range m.sections {
		if !s.Implicit {
			n++
		}
	}
	return n
}

// SectionIndex returns the section headed by id, or -1.
func (m *Model[E]) SectionIndex(id string) int {
	return slices.IndexFunc(m.sections, func(s Section[E]) bool {
		return !s.Implicit && s.Item.ID() == id
	})
}

// State returns the expand state of the item with the given id.
func (m *Model[E]) State(id string) (ExpandState, bool) {
	path, err := m.pathTo(id)
	if err != nil {
		return Expanded, false
	}
	t := m.root
	for i, step := range path {
		for {
			it, ok := t.Value()
			if !ok {
				return Expanded, false
			}
			if it.ID() == step {
				break
			}
			t = t.Right()
		}
		if i == len(path)-1 {
			it, _ := t.Value()
			return it.State, true
		}
		t = t.Left()
	}
	return Expanded, false
}

// Toggle flips the state of the branch heading section and returns the edits
// that take the old presentation to the new one, plus the new state.
//
// The implicit section and out-of-range indices fail with ErrToggle. With
// folding disabled the state still flips but nothing visible changes, so the
// change is NoChange.
func (m *Model[E]) Toggle(section int) (EditChange, ExpandState, error) {
	defer metrics.Timer(metrics.Toggle)()

	header, ok := m.Header(section)
	if !ok {
		return NoChange, Expanded, fmt.Errorf("%w: no branch at section %d of %d", ErrToggle, section, len(m.sections))
	}
	path, err := m.pathTo(header.ID())
	if err != nil {
		return NoChange, header.State, err
	}
	root, dest, err := toggleNode(path, m.root)
	if err != nil {
		return NoChange, header.State, err
	}
	target, _ := dest.Value()
	state := target.State
	sections := flatten(root, m.folding)

	change := NoChange
	if m.folding {
		change = diff(dest, section, state, m.expandedSnapshot(state, sections))
	}

	m.root, m.sections = root, sections
	debug.Log("folder: toggled %q to %s (%s)", header.ID(), state, change)
	return change, state, nil
}

// expandedSnapshot picks whichever presentation shows the toggled branch open.
func (m *Model[E]) expandedSnapshot(state ExpandState, next []Section[E]) []Section[E] {
	if state == Expanded {
		return next
	}
	return m.sections
}

// SetFoldingEnabled switches folding and rebuilds the presentation. Callers
// reload their whole view afterwards.
func (m *Model[E]) SetFoldingEnabled(enabled bool) {
	if m.folding == enabled {
		return
	}
	m.folding = enabled
	m.sections = flatten(m.root, enabled)
}

// SetAll sets every branch to state and rebuilds the presentation. Leaves
// are left alone. Callers reload their whole view afterwards.
func (m *Model[E]) SetAll(state ExpandState) {
	var apply func(t binarytree.Tree[Item[E]]) binarytree.Tree[Item[E]]
	apply = func(t binarytree.Tree[Item[E]]) binarytree.Tree[Item[E]] {
		it, ok := t.Value()
		if !ok {
			return t
		}
		if !t.Left().IsEmpty() {
			it.State = state
		}
		return binarytree.New(apply(t.Left()), it, apply(t.Right()))
	}
	m.root = apply(m.root)
	m.sections = flatten(m.root, m.folding)
}

// pathTo returns the ids from a top-level item down to id.
func (m *Model[E]) pathTo(id string) ([]string, error) {
	var path []string
	for cur := id; ; {
		parent, ok := m.parents[cur]
		if !ok {
			return nil, fmt.Errorf("%w: %q is not in the tree", ErrToggle, cur)
		}
		path = append(path, cur)
		if parent == m.rootID {
			break
		}
		if len(path) > len(m.parents) {
			return nil, fmt.Errorf("%w: parent chain of %q does not end", ErrToggle, id)
		}
		cur = parent
	}
	slices.Reverse(path)
	return path, nil
}

// toggleNode walks path through t, flipping the state of the last id. It
// returns the rebuilt tree and the flipped node.
func toggleNode[E Payload](path []string, t binarytree.Tree[Item[E]]) (root, dest binarytree.Tree[Item[E]], err error) {
	if len(path) == 0 {
		return t, dest, fmt.Errorf("%w: empty path", ErrToggle)
	}
	it, ok := t.Value()
	if !ok {
		return t, dest, fmt.Errorf("%w: %q not found", ErrToggle, path[0])
	}

	if it.ID() != path[0] {
		right, dest, err := toggleNode(path, t.Right())
		if err != nil {
			return t, dest, err
		}
		root, err := t.WithRight(right)
		return root, dest, err
	}

	if len(path) == 1 {
		it.State = it.State.Toggled()
		root := t.WithValue(it)
		return root, root, nil
	}
	left, dest, err := toggleNode(path[1:], t.Left())
	if err != nil {
		return t, dest, err
	}
	root, err = t.WithLeft(left)
	return root, dest, err
}

// diff derives the edits for toggling the branch dest, which heads section.
// It only looks at the branch's own subtree folded fully open, plus the
// expanded presentation for the rows that move between the branch and its
// last nested section.
func diff[E Payload](dest binarytree.Tree[Item[E]], section int, state ExpandState, expanded []Section[E]) EditChange {
	inner := fold(dest.Left(), true)

	switch inner.kind {
	case chunkNone:
		return NoChange
	case chunkRows:
		rows := rowPaths(section, len(inner.rows))
		if state == Collapsed {
			return EditChange{RemovedRows: rows}
		}
		return EditChange{InsertedRows: rows}
	}

	nested := make([]int, len(inner.sections))
	for i := range nested {
		nested[i] = section + 1 + i
	}
	leading := rowPaths(section, len(inner.rows))

	// Rows after the branch's subtree sit in its own section while collapsed
	// and in its last nested section while expanded.
	var moved []RowPath
	last := inner.sections[len(inner.sections)-1]
	if i := section + len(inner.sections); i < len(expanded) && expanded[i].Item.ID() == last.Item.ID() {
		if extra := len(expanded[i].Rows) - len(last.Rows); extra > 0 {
			moved = rowPaths(section, extra)
		}
	}

	if state == Collapsed {
		return EditChange{RemovedRows: leading, RemovedSections: nested, InsertedRows: moved}
	}
	return EditChange{InsertedRows: leading, InsertedSections: nested, RemovedRows: moved}
}

func rowPaths(section, n int) []RowPath {
	if n == 0 {
		return nil
	}
	out := make([]RowPath, n)
	for i := range out {
		out[i] = RowPath{Section: section, Row: i}
	}
	return out
}
