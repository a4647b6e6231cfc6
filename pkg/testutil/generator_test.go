package testutil

import (
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/foldtree/pkg/analysis"
	"github.com/vanderheijden86/foldtree/pkg/folder"
	"github.com/vanderheijden86/foldtree/pkg/model"
)

func TestChain(t *testing.T) {
	nodes := QuickChain(4)
	AssertNodeCount(t, nodes, 4)
	AssertNoDuplicateIDs(t, nodes)
	AssertAllValid(t, nodes)

	for i := 1; i < len(nodes); i++ {
		if nodes[i].Parent != nodes[i-1].Key {
			t.Errorf("node %d parent = %q, want %q", i, nodes[i].Parent, nodes[i-1].Key)
		}
	}
	if nodes[0].Kind != model.KindFolder || nodes[3].Kind == model.KindFolder {
		t.Error("only nodes with children should be folders")
	}

	m := folder.New(nodes)
	if m.NumberOfSections() != 3 {
		t.Errorf("chain of 4 should give 3 sections, got %d", m.NumberOfSections())
	}
	AssertModelConsistent(t, m)
}

func TestWide(t *testing.T) {
	nodes := QuickWide(5)
	m := folder.New(nodes)
	if m.NumberOfSections() != 1 || m.NumberOfRows(0) != 5 {
		t.Errorf("wide: got %d sections, %d rows", m.NumberOfSections(), m.NumberOfRows(0))
	}
	if s := m.Sections()[0]; !s.Implicit {
		t.Error("top-level leaves should land in the implicit section")
	}
	AssertModelConsistent(t, m)
}

func TestTree(t *testing.T) {
	nodes := QuickTree(3, 2)
	// 2 + 4 + 8
	AssertNodeCount(t, nodes, 14)
	AssertNoDuplicateIDs(t, nodes)

	m := folder.New(nodes)
	if m.ItemCount() != 14 {
		t.Errorf("ItemCount = %d", m.ItemCount())
	}
	// Branches are the 6 nodes of the first two levels.
	if m.NumberOfSections() != 6 {
		t.Errorf("sections = %d, want 6", m.NumberOfSections())
	}
	AssertModelConsistent(t, m)
}

func TestForest(t *testing.T) {
	nodes := QuickForest(60)
	AssertNodeCount(t, nodes, 60)
	AssertNoDuplicateIDs(t, nodes)
	AssertAllValid(t, nodes)

	report := analysis.Lint(nodes, folder.RootID)
	if report.HasErrors() {
		t.Fatalf("forest should lint clean: %s", report.Summary())
	}
	m := folder.New(nodes)
	if m.ItemCount() != 60 {
		t.Errorf("every node should be placed, got %d", m.ItemCount())
	}
	AssertModelConsistent(t, m)
}

func TestCycle(t *testing.T) {
	nodes := NewDefault().Cycle(3)
	AssertNodeCount(t, nodes, 4)

	report := analysis.Lint(nodes, folder.RootID)
	if len(report.Cycles) != 1 || len(report.Cycles[0]) != 3 {
		t.Fatalf("expected one 3-cycle, got %v", report.Cycles)
	}
	if got := folder.New(nodes).ItemCount(); got != 1 {
		t.Errorf("only the top-level node is reachable, got %d", got)
	}
}

func TestDeterminism(t *testing.T) {
	a := New(DefaultConfig()).Forest(40)
	b := New(DefaultConfig()).Forest(40)
	AssertJSONEqual(t, a, b)

	cfg := DefaultConfig()
	cfg.Seed = 7
	c := New(cfg).Forest(40)
	if slices.Equal(IDs(a), IDs(c)) && ToJSONL(a) == ToJSONL(c) {
		t.Error("different seeds should give different forests")
	}
}

func TestWithNotesAndKinds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WithNotes = true
	cfg.IDPrefix = "X"
	cfg.KindMix = []model.Kind{model.KindNote}
	nodes := New(cfg).Wide(3)
	for _, n := range nodes {
		if !strings.HasPrefix(n.Key, "X") || n.Kind != model.KindNote || n.Notes == "" {
			t.Errorf("unexpected node %+v", n)
		}
	}
}

func TestToJSONL(t *testing.T) {
	out := ToJSONL(QuickWide(3))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"id":"N0"`) {
		t.Errorf("unexpected line %s", lines[0])
	}
}

func TestWriteNodesFile(t *testing.T) {
	path := WriteNodesFile(t, t.TempDir()+"/sub/tree.jsonl", QuickChain(2))
	if !strings.HasSuffix(path, "tree.jsonl") {
		t.Errorf("path = %s", path)
	}
}

// Toggling any sequence of sections on a random forest keeps the model
// consistent.
func TestRandomToggleConsistency(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := DefaultConfig()
		cfg.Seed = rapid.Int64Range(1, 1<<40).Draw(rt, "seed")
		nodes := New(cfg).Forest(rapid.IntRange(1, 40).Draw(rt, "size"))
		m := folder.New(nodes)

		steps := rapid.IntRange(0, 20).Draw(rt, "steps")
		for i := 0; i < steps && m.NumberOfSections() > 0; i++ {
			section := rapid.IntRange(0, m.NumberOfSections()-1).Draw(rt, "section")
			if _, ok := m.Header(section); !ok {
				continue
			}
			if _, _, err := m.Toggle(section); err != nil {
				rt.Fatalf("toggle %d: %v", section, err)
			}
		}
		AssertModelConsistent(rt, m)
	})
}
