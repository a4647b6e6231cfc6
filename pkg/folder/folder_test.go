package folder

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

type node struct {
	id, parent string
	rank       int
}

func (n node) ID() string       { return n.id }
func (n node) ParentID() string { return n.parent }
func (n node) Rank() int        { return n.rank }

// render writes sections as "A[B,C] D[] *[x]" for compact assertions. A
// collapsed header is marked with "+", the implicit section with "*".
func render(sections []Section[node]) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		head := "*"
		if !s.Implicit {
			head = s.Item.ID()
			if s.Item.State == Collapsed {
				head += "+"
			}
		}
		ids := make([]string, len(s.Rows))
		for i, r := range s.Rows {
			ids[i] = r.ID()
		}
		parts = append(parts, head+"["+strings.Join(ids, ",")+"]")
	}
	return strings.Join(parts, " ")
}

func paths(pairs ...[2]int) []RowPath {
	out := make([]RowPath, len(pairs))
	for i, p := range pairs {
		out[i] = RowPath{Section: p[0], Row: p[1]}
	}
	return out
}

func TestBuildSmallFixture(t *testing.T) {
	elements := []node{
		{"grandchild", "child1", 0},
		{"child2", "root", 1},
		{"child1", "root", 0},
		{"root", RootID, 0},
	}
	tree := Build(elements, RootID)

	if got := tree.Count(); got != 4 {
		t.Fatalf("Count() = %d, want 4", got)
	}

	type entry struct {
		id    string
		depth int
	}
	var got []entry
	for _, it := range tree.Elements() {
		got = append(got, entry{it.ID(), it.Depth})
	}
	// In-order of a left-child/right-sibling tree lists a subtree's
	// descendants before the subtree root.
	want := []entry{{"grandchild", 2}, {"child1", 1}, {"child2", 1}, {"root", 0}}
	if !slices.Equal(got, want) {
		t.Errorf("Elements() = %v, want %v", got, want)
	}

	root, _ := tree.Value()
	first, _ := tree.Left().Value()
	second, _ := tree.Left().Right().Value()
	if root.ID() != "root" || first.ID() != "child1" || second.ID() != "child2" {
		t.Errorf("unexpected shape: root=%s first=%s second=%s", root.ID(), first.ID(), second.ID())
	}
	for _, it := range tree.Elements() {
		if it.State != Expanded {
			t.Errorf("%s starts %s", it.ID(), it.State)
		}
	}
}

func TestBuildStableRankTies(t *testing.T) {
	elements := []node{{"b", RootID, 1}, {"x", RootID, 0}, {"a", RootID, 1}, {"c", RootID, 1}}
	var ids []string
	for _, it := range Build(elements, RootID).Elements() {
		ids = append(ids, it.ID())
	}
	// Siblings chain to the right, so in-order yields them in sibling order.
	if want := []string{"x", "b", "a", "c"}; !slices.Equal(ids, want) {
		t.Errorf("sibling order = %v, want %v", ids, want)
	}
}

func TestBuildMalformedInput(t *testing.T) {
	tests := []struct {
		name     string
		elements []node
		want     int
	}{
		{"empty", nil, 0},
		{"no root", []node{{"a", "missing", 0}}, 0},
		{"dangling parent", []node{{"a", RootID, 0}, {"b", "ghost", 0}}, 1},
		{"cycle", []node{{"a", RootID, 0}, {"b", "c", 0}, {"c", "b", 0}}, 1},
		{"self parent", []node{{"a", RootID, 0}, {"s", "s", 0}}, 1},
		{"duplicate ids", []node{{"a", RootID, 0}, {"a", RootID, 1}, {"b", RootID, 2}}, 2},
		{"duplicate under itself", []node{{"a", RootID, 0}, {"a", "a", 0}, {"b", "a", 1}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Build(tt.elements, RootID).Count(); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildCustomRootID(t *testing.T) {
	elements := []node{{"a", "top", 0}, {"b", "a", 0}, {"c", RootID, 0}}
	m := New(elements, WithRootID("top"))
	if got := render(m.Sections()); got != "a[b]" {
		t.Errorf("sections = %s", got)
	}
	if m.RootID() != "top" {
		t.Errorf("RootID() = %q", m.RootID())
	}
}

func TestFlattenShapes(t *testing.T) {
	tests := []struct {
		name     string
		elements []node
		want     string
	}{
		{"empty", nil, ""},
		{"two roots", []node{{"a", RootID, 0}, {"b", RootID, 1}}, "*[a,b]"},
		{"single branch", []node{{"A", RootID, 0}, {"B", "A", 0}, {"C", "A", 1}}, "A[B,C]"},
		{
			"leading leaves then branch",
			[]node{{"x", RootID, 0}, {"A", RootID, 1}, {"B", "A", 0}},
			"*[x] A[B]",
		},
		{
			"trailing top-level leaf joins last section",
			[]node{{"A", RootID, 0}, {"B", "A", 0}, {"y", RootID, 1}},
			"A[B,y]",
		},
		{
			"leaf after nested branch",
			[]node{{"A", RootID, 0}, {"B", "A", 0}, {"C", "B", 0}, {"D", "A", 1}},
			"A[] B[C,D]",
		},
		{
			"leaves around nested branch",
			[]node{{"A", RootID, 0}, {"l1", "A", 0}, {"B", "A", 1}, {"C", "B", 0}, {"l2", "A", 2}, {"E", RootID, 1}, {"F", "E", 0}},
			"A[l1] B[C,l2] E[F]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.elements)
			if got := render(m.Sections()); got != tt.want {
				t.Errorf("sections = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToggleConcreteScenario(t *testing.T) {
	m := New([]node{{"A", RootID, 0}, {"B", "A", 0}, {"C", "A", 1}})
	initial := m.Sections()
	if got := render(initial); got != "A[B,C]" {
		t.Fatalf("initial sections = %s", got)
	}

	change, state, err := m.Toggle(0)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if state != Collapsed {
		t.Errorf("state = %s, want collapsed", state)
	}
	if !slices.Equal(change.RemovedRows, paths([2]int{0, 0}, [2]int{0, 1})) {
		t.Errorf("RemovedRows = %v", change.RemovedRows)
	}
	if len(change.InsertedRows)+len(change.InsertedSections)+len(change.RemovedSections) != 0 {
		t.Errorf("unexpected extra edits: %s", change)
	}
	if got := render(m.Sections()); got != "A+[]" {
		t.Errorf("collapsed sections = %s", got)
	}

	change, state, err = m.Toggle(0)
	if err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	if state != Expanded {
		t.Errorf("state = %s, want expanded", state)
	}
	if !slices.Equal(change.InsertedRows, paths([2]int{0, 0}, [2]int{0, 1})) {
		t.Errorf("InsertedRows = %v", change.InsertedRows)
	}
	if !SectionsEqual(m.Sections(), initial) {
		t.Errorf("double toggle gave %s, want %s", render(m.Sections()), render(initial))
	}
}

func TestToggleTwoRootsIsRejected(t *testing.T) {
	m := New([]node{{"a", RootID, 0}, {"b", RootID, 1}})
	before := m.Sections()

	for _, section := range []int{0, 1, -1} {
		change, _, err := m.Toggle(section)
		if !errors.Is(err, ErrToggle) {
			t.Errorf("Toggle(%d) err = %v, want ErrToggle", section, err)
		}
		if !change.IsNone() {
			t.Errorf("Toggle(%d) change = %s", section, change)
		}
	}
	if !SectionsEqual(before, m.Sections()) {
		t.Error("failed toggles changed the sections")
	}
}

func deepFixture() []node {
	return []node{
		{"root", RootID, 0},
		{"a", "root", 0},
		{"a1", "a", 0},
		{"a1x", "a1", 0},
		{"a1y", "a1", 1},
		{"a2", "a", 1},
		{"b", "root", 1},
		{"c", "root", 2},
		{"c1", "c", 0},
		{"tail", RootID, 1},
	}
}

func TestDeepCollapseAndRestore(t *testing.T) {
	m := New(deepFixture())
	before := m.Sections()
	if got := render(before); got != "root[] a[] a1[a1x,a1y,a2,b] c[c1,tail]" {
		t.Fatalf("initial sections = %s", got)
	}

	change, _, err := m.Toggle(0)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(change.RemovedSections, []int{1, 2, 3}) {
		t.Errorf("RemovedSections = %v", change.RemovedSections)
	}
	if len(change.RemovedRows) != 0 {
		t.Errorf("RemovedRows = %v", change.RemovedRows)
	}
	if !slices.Equal(change.InsertedRows, paths([2]int{0, 0})) {
		t.Errorf("InsertedRows = %v, want the trailing row moving up", change.InsertedRows)
	}
	after := m.Sections()
	if got := render(after); got != "root+[tail]" {
		t.Errorf("collapsed sections = %s", got)
	}
	replayed, err := Apply(change, before, after)
	if err != nil || !SectionsEqual(replayed, after) {
		t.Fatalf("replay collapse: %v, %s", err, render(replayed))
	}

	change, _, err = m.Toggle(0)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(change.InsertedSections, []int{1, 2, 3}) || !slices.Equal(change.RemovedRows, paths([2]int{0, 0})) {
		t.Errorf("expand change = %s", change)
	}
	if !SectionsEqual(m.Sections(), before) {
		t.Errorf("restore gave %s, want %s", render(m.Sections()), render(before))
	}
}

func TestNestedCollapsePreservedByAncestorToggle(t *testing.T) {
	m := New(deepFixture())
	if _, _, err := m.Toggle(m.SectionIndex("a1")); err != nil {
		t.Fatal(err)
	}
	nested := m.Sections()
	if got := render(nested); got != "root[] a[] a1+[a2,b] c[c1,tail]" {
		t.Fatalf("after collapsing a1: %s", got)
	}

	for range 2 {
		old := m.Sections()
		change, _, err := m.Toggle(m.SectionIndex("root"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Apply(change, old, m.Sections()); err != nil {
			t.Fatalf("replay %s: %v", change, err)
		}
	}
	if !SectionsEqual(m.Sections(), nested) {
		t.Errorf("got %s, want %s", render(m.Sections()), render(nested))
	}
	if st, ok := m.State("a1"); !ok || st != Collapsed {
		t.Errorf("State(a1) = %s, %v", st, ok)
	}
}

func TestCountInvariant(t *testing.T) {
	elements := []node{
		{"A", RootID, 0}, {"B", "A", 0}, {"C", "A", 1}, {"D", "C", 0}, {"E", RootID, 1}, {"F", "E", 0},
	}

	m := New(elements, WithFolding(false))
	if _, _, err := m.Toggle(0); err != nil {
		t.Fatal(err)
	}
	if got := m.RowCount() + m.NumberOfSections(); got != m.ItemCount() {
		t.Errorf("rows+sections = %d, want %d", got, m.ItemCount())
	}

	m = New(elements)
	if _, _, err := m.Toggle(0); err != nil {
		t.Fatal(err)
	}
	if got := m.RowCount() + m.NumberOfSections(); got >= m.ItemCount() {
		t.Errorf("rows+sections = %d with a collapsed branch, want < %d", got, m.ItemCount())
	}
}

func TestToggleWithFoldingDisabled(t *testing.T) {
	m := New([]node{{"A", RootID, 0}, {"B", "A", 0}}, WithFolding(false))
	before := m.Sections()

	change, state, err := m.Toggle(0)
	if err != nil {
		t.Fatal(err)
	}
	if !change.IsNone() {
		t.Errorf("change = %s, want none", change)
	}
	if state != Collapsed {
		t.Errorf("state = %s, want collapsed", state)
	}
	if got := render(m.Sections()); got != "A+[B]" {
		t.Errorf("sections = %s", got)
	}
	if _, err := Apply(change, before, m.Sections()); err != nil {
		t.Errorf("header refresh replay: %v", err)
	}

	m.SetFoldingEnabled(true)
	if got := render(m.Sections()); got != "A+[]" {
		t.Errorf("after enabling folding: %s", got)
	}
}

func TestSetAll(t *testing.T) {
	m := New(deepFixture())
	m.SetAll(Collapsed)
	if got := render(m.Sections()); got != "root+[tail]" {
		t.Errorf("collapsed all: %s", got)
	}
	if st, _ := m.State("b"); st != Expanded {
		t.Errorf("leaf state changed to %s", st)
	}
	m.SetAll(Expanded)
	if got := render(m.Sections()); got != "root[] a[] a1[a1x,a1y,a2,b] c[c1,tail]" {
		t.Errorf("expanded all: %s", got)
	}
}

func TestQueries(t *testing.T) {
	m := New([]node{{"x", RootID, 0}, {"A", RootID, 1}, {"B", "A", 0}})

	if _, ok := m.Header(0); ok {
		t.Error("implicit section reported a header")
	}
	if h, ok := m.Header(1); !ok || h.ID() != "A" {
		t.Errorf("Header(1) = %v, %v", h, ok)
	}
	if _, ok := m.Header(5); ok {
		t.Error("out-of-range header")
	}
	if r, ok := m.Row(1, 0); !ok || r.ID() != "B" || r.Depth != 1 {
		t.Errorf("Row(1,0) = %+v, %v", r, ok)
	}
	if _, ok := m.Row(1, 1); ok {
		t.Error("out-of-range row")
	}
	if m.NumberOfRows(0) != 1 || m.NumberOfRows(9) != 0 {
		t.Errorf("NumberOfRows = %d, %d", m.NumberOfRows(0), m.NumberOfRows(9))
	}
	if m.SectionIndex("A") != 1 || m.SectionIndex("B") != -1 {
		t.Errorf("SectionIndex = %d, %d", m.SectionIndex("A"), m.SectionIndex("B"))
	}
	if m.VisibleCount() != 3 || m.ItemCount() != 3 {
		t.Errorf("VisibleCount = %d, ItemCount = %d", m.VisibleCount(), m.ItemCount())
	}
	if _, ok := m.State("missing"); ok {
		t.Error("State of missing id")
	}

	// Sections returns a snapshot.
	s := m.Sections()
	s[1].Rows[0] = Item[node]{}
	if r, _ := m.Row(1, 0); r.ID() != "B" {
		t.Error("mutating a snapshot changed the model")
	}
}

func TestApplyRejectsBadChanges(t *testing.T) {
	m := New([]node{{"A", RootID, 0}, {"B", "A", 0}})
	s := m.Sections()

	bad := []EditChange{
		{RemovedRows: paths([2]int{0, 5})},
		{RemovedRows: paths([2]int{0, 0}, [2]int{0, 0})},
		{RemovedSections: []int{3}},
		{InsertedSections: []int{1}},
		{InsertedRows: paths([2]int{0, 1})},
		{RemovedRows: paths([2]int{0, 0})},
	}
	for _, c := range bad {
		if _, err := Apply(c, s, s); !errors.Is(err, ErrEditMismatch) {
			t.Errorf("Apply(%s) err = %v, want ErrEditMismatch", c, err)
		}
	}
	if got, err := Apply(NoChange, s, s); err != nil || !SectionsEqual(got, s) {
		t.Errorf("Apply(NoChange) = %v, %v", got, err)
	}
}

func TestExpandStateText(t *testing.T) {
	for _, st := range []ExpandState{Expanded, Collapsed} {
		b, err := st.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back ExpandState
		if err := back.UnmarshalText(b); err != nil || back != st {
			t.Errorf("round trip %s -> %q -> %s (%v)", st, b, back, err)
		}
	}
	var st ExpandState
	if err := st.UnmarshalText([]byte("open")); err == nil {
		t.Error("accepted unknown state")
	}
	if Expanded.Toggled() != Collapsed || Collapsed.Toggled() != Expanded {
		t.Error("Toggled is not an involution")
	}
}

// drawForest draws a random acyclic hierarchy: each element's parent is the
// root sentinel or an earlier element.
func drawForest(t *rapid.T) []node {
	n := rapid.IntRange(0, 30).Draw(t, "n")
	elements := make([]node, n)
	for i := range elements {
		parent := RootID
		if i > 0 && rapid.Bool().Draw(t, fmt.Sprintf("nested%d", i)) {
			parent = fmt.Sprintf("n%d", rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("parent%d", i)))
		}
		elements[i] = node{id: fmt.Sprintf("n%d", i), parent: parent, rank: rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("rank%d", i))}
	}
	return elements
}

// reference flattens by walking the hierarchy directly: a visible branch
// opens a section and every visible leaf joins the latest section.
func reference(elements []node, collapsed map[string]bool, folding bool) string {
	children := make(map[string][]node)
	for _, e := range elements {
		children[e.parent] = append(children[e.parent], e)
	}
	for _, c := range children {
		slices.SortStableFunc(c, func(a, b node) int { return cmp.Compare(a.rank, b.rank) })
	}

	type sec struct {
		head string
		rows []string
	}
	var out []sec
	var walk func(parent string)
	walk = func(parent string) {
		for _, c := range children[parent] {
			if len(children[c.id]) == 0 {
				if len(out) == 0 {
					out = append(out, sec{head: "*"})
				}
				out[len(out)-1].rows = append(out[len(out)-1].rows, c.id)
				continue
			}
			head := c.id
			if collapsed[c.id] {
				head += "+"
			}
			out = append(out, sec{head: head})
			if !folding || !collapsed[c.id] {
				walk(c.id)
			}
		}
	}
	walk(RootID)

	parts := make([]string, len(out))
	for i, s := range out {
		parts[i] = s.head + "[" + strings.Join(s.rows, ",") + "]"
	}
	return strings.Join(parts, " ")
}

func TestToggleReplayProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		elements := drawForest(t)
		folding := rapid.Float64().Draw(t, "folding") < 0.8
		m := New(elements, WithFolding(folding))
		collapsed := make(map[string]bool)

		if got, want := render(m.Sections()), reference(elements, collapsed, folding); got != want {
			t.Fatalf("initial flatten = %q, want %q", got, want)
		}

		steps := rapid.IntRange(0, 12).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			var branches []int
			for s := 0; s < m.NumberOfSections(); s++ {
				if _, ok := m.Header(s); ok {
					branches = append(branches, s)
				}
			}
			if len(branches) == 0 {
				return
			}
			section := rapid.SampledFrom(branches).Draw(t, fmt.Sprintf("section%d", i))
			header, _ := m.Header(section)

			old := m.Sections()
			change, state, err := m.Toggle(section)
			if err != nil {
				t.Fatalf("Toggle(%d): %v", section, err)
			}
			collapsed[header.ID()] = state == Collapsed
			if state == header.State {
				t.Fatalf("Toggle(%d) left state at %s", section, state)
			}

			next := m.Sections()
			if got, want := render(next), reference(elements, collapsed, folding); got != want {
				t.Fatalf("after toggling %s: %q, want %q", header.ID(), got, want)
			}
			replayed, err := Apply(change, old, next)
			if err != nil {
				t.Fatalf("Apply(%s): %v\nold: %s\nnew: %s", change, err, render(old), render(next))
			}
			if !SectionsEqual(replayed, next) {
				t.Fatalf("replay gave %s, want %s", render(replayed), render(next))
			}
			if !folding && m.VisibleCount() != m.ItemCount() {
				t.Fatalf("VisibleCount() = %d, ItemCount() = %d", m.VisibleCount(), m.ItemCount())
			}
		}
	})
}

func TestDoubleToggleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := New(drawForest(t))
		if m.NumberOfSections() == 0 {
			return
		}
		section := rapid.IntRange(0, m.NumberOfSections()-1).Draw(t, "section")
		header, ok := m.Header(section)
		if !ok {
			return
		}
		before := m.Sections()
		if _, _, err := m.Toggle(section); err != nil {
			t.Fatal(err)
		}
		_, state, err := m.Toggle(section)
		if err != nil {
			t.Fatal(err)
		}
		if state != header.State {
			t.Fatalf("state after double toggle = %s, want %s", state, header.State)
		}
		if !SectionsEqual(m.Sections(), before) {
			t.Fatalf("double toggle: %s, want %s", render(m.Sections()), render(before))
		}
	})
}
