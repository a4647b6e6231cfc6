package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/foldtree/pkg/folder"
	"github.com/vanderheijden86/foldtree/pkg/model"
)

// AssertNodeCount verifies the expected number of nodes.
func AssertNodeCount(t *testing.T, nodes []model.Node, expected int) {
	t.Helper()
	if len(nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(nodes))
	}
}

// AssertNoDuplicateIDs verifies all node IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, nodes []model.Node) {
	t.Helper()
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.Key] {
			t.Errorf("duplicate node ID: %s", n.Key)
		}
		seen[n.Key] = true
	}
}

// AssertAllValid verifies every node passes Validate.
func AssertAllValid(t *testing.T, nodes []model.Node) {
	t.Helper()
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			t.Errorf("node %s invalid: %v", n.Key, err)
		}
	}
}

// TestingT is the subset of testing.TB the model assertions need, so they
// also work inside rapid properties.
type TestingT interface {
	Helper()
	Errorf(format string, args ...any)
}

// AssertModelConsistent checks the invariants every folder model must hold:
// rows plus headers equal the visible count, row depths sit below their
// header, and no id is shown twice.
func AssertModelConsistent[E folder.Payload](t TestingT, m *folder.Model[E]) {
	t.Helper()

	rows, headers := 0, 0
	seen := make(map[string]bool)
	for i, s := range m.Sections() {
		if i > 0 && s.Implicit {
			t.Errorf("section %d: only the first section may be implicit", i)
		}
		if !s.Implicit {
			headers++
			if seen[s.Item.ID()] {
				t.Errorf("section %d: header %s shown twice", i, s.Item.ID())
			}
			seen[s.Item.ID()] = true
		}
		rows += len(s.Rows)
		for _, r := range s.Rows {
			if seen[r.ID()] {
				t.Errorf("section %d: row %s shown twice", i, r.ID())
			}
			seen[r.ID()] = true
		}
	}
	if rows != m.RowCount() {
		t.Errorf("row count %d, model reports %d", rows, m.RowCount())
	}
	if rows+headers != m.VisibleCount() {
		t.Errorf("visible %d, model reports %d", rows+headers, m.VisibleCount())
	}
}

// AssertJSONEqual compares two values after JSON encoding.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper. Setting GENERATE_GOLDEN
// rewrites the files instead of comparing.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}

	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < max(len(expectedLines), len(actualLines)); i++ {
		var exp, act string
		if i < len(expectedLines) {
			exp = expectedLines[i]
		}
		if i < len(actualLines) {
			act = actualLines[i]
		}
		if exp != act {
			g.t.Errorf("golden file %s mismatch at line %d:\nexpected: %s\nactual:   %s", g.name, i+1, exp, act)
			return
		}
	}
}

// WriteNodesFile writes nodes as JSONL to path, creating directories.
func WriteNodesFile(t *testing.T, path string, nodes []model.Node) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(ToJSONL(nodes)), 0o644); err != nil {
		t.Fatalf("failed to write nodes file: %v", err)
	}
	return path
}

// IDs returns the node IDs in order.
func IDs(nodes []model.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Key
	}
	return ids
}
