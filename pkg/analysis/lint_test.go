package analysis

import (
	"slices"
	"strings"
	"testing"

	"github.com/vanderheijden86/foldtree/pkg/folder"
	"github.com/vanderheijden86/foldtree/pkg/model"
)

func n(id, parent string) model.Node {
	return model.Node{Key: id, Parent: parent}
}

func TestLintCleanHierarchy(t *testing.T) {
	nodes := []model.Node{n("a", ""), n("b", "a"), n("c", "b"), n("d", "")}
	r := Lint(nodes, folder.RootID)

	if r.HasErrors() {
		t.Fatalf("unexpected problems:\n%s", r.Summary())
	}
	if r.Total != 4 || r.Placed != 4 {
		t.Errorf("Total/Placed = %d/%d", r.Total, r.Placed)
	}
	if !slices.Equal(r.Roots, []string{"a", "d"}) {
		t.Errorf("Roots = %v", r.Roots)
	}
	if r.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", r.MaxDepth)
	}
	if !strings.Contains(r.Summary(), "no problems found") {
		t.Errorf("Summary = %q", r.Summary())
	}
}

func TestLintFindsProblems(t *testing.T) {
	nodes := []model.Node{
		n("root", ""),
		n("dup", "root"),
		n("dup", "root"),
		n("self", "self"),
		n("orphan", "ghost"),
		n("below-orphan", "orphan"),
		n("x", "z"),
		n("y", "x"),
		n("z", "y"),
		n("below-cycle", "y"),
	}
	r := Lint(nodes, "")

	if !r.HasErrors() {
		t.Fatal("expected problems")
	}
	if !slices.Equal(r.Duplicates, []string{"dup"}) {
		t.Errorf("Duplicates = %v", r.Duplicates)
	}
	if !slices.Equal(r.SelfParented, []string{"self"}) {
		t.Errorf("SelfParented = %v", r.SelfParented)
	}
	if !slices.Equal(r.Orphans, []string{"orphan"}) {
		t.Errorf("Orphans = %v", r.Orphans)
	}
	if len(r.Cycles) != 1 || !slices.Equal(r.Cycles[0], []string{"x", "z", "y"}) {
		t.Errorf("Cycles = %v", r.Cycles)
	}
	wantUnreachable := []string{"below-cycle", "below-orphan", "orphan", "self", "x", "y", "z"}
	if !slices.Equal(r.Unreachable, wantUnreachable) {
		t.Errorf("Unreachable = %v, want %v", r.Unreachable, wantUnreachable)
	}
	if r.Placed != 2 {
		t.Errorf("Placed = %d, want 2 (root and one dup)", r.Placed)
	}
	s := r.Summary()
	if !strings.Contains(s, "cycle: x -> z -> y -> x") {
		t.Errorf("Summary missing cycle:\n%s", s)
	}
}

func TestLintCustomRoot(t *testing.T) {
	r := Lint([]model.Node{n("a", "top"), n("b", "a")}, "top")
	if r.HasErrors() || r.Placed != 2 || !slices.Equal(r.Roots, []string{"a"}) {
		t.Errorf("report = %+v", r)
	}
}

func TestLintEmpty(t *testing.T) {
	r := Lint(nil, "")
	if r.HasErrors() || r.Total != 0 || r.MaxDepth != 0 {
		t.Errorf("report = %+v", r)
	}
}
