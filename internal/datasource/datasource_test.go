package datasource

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/foldtree/pkg/model"
)

func sampleNodes() []model.Node {
	return []model.Node{
		{Key: "root", Title: "Root", Kind: model.KindFolder},
		{Key: "a", Parent: "root", Order: 0, Title: "A", Notes: "# Heading"},
		{Key: "b", Parent: "root", Order: 1, Title: "B", Kind: model.KindFile},
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	if err := WriteNodes(path, sampleNodes()); err != nil {
		t.Fatalf("WriteNodes: %v", err)
	}

	src, err := Detect(path)
	if err != nil {
		t.Fatal(err)
	}
	if src.Type != SourceTypeSQLite || src.Priority != PrioritySQLite {
		t.Fatalf("Detect = %+v", src)
	}

	reader, err := NewSQLiteReader(src)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	nodes, err := reader.LoadNodes()
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes", len(nodes))
	}
	byID := map[string]model.Node{}
	for _, n := range nodes {
		byID[n.Key] = n
	}
	for _, want := range sampleNodes() {
		if got := byID[want.Key]; got != want {
			t.Errorf("node %s = %+v, want %+v", want.Key, got, want)
		}
	}
	if n, err := reader.CountNodes(); err != nil || n != 3 {
		t.Errorf("CountNodes = %d, %v", n, err)
	}
}

func TestSQLiteStructuralColumnsOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	stmts := []string{
		`CREATE TABLE nodes (id TEXT, parent_id TEXT, rank INTEGER)`,
		`INSERT INTO nodes VALUES ('x', '', 0), ('y', 'x', 0), ('', 'x', 1)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	nodes, err := LoadFromSource(DataSource{Type: SourceTypeSQLite, Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 || nodes[0].Key != "x" || nodes[1].Parent != "x" {
		t.Errorf("nodes = %+v", nodes)
	}
}

func TestNewSQLiteReaderRejectsFiles(t *testing.T) {
	if _, err := NewSQLiteReader(DataSource{Type: SourceTypeFile, Path: "x.jsonl"}); err == nil {
		t.Error("expected error for non-SQLite source")
	}
}

func TestDiscoverAndSelect(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "nodes.jsonl")
	if err := os.WriteFile(old, []byte(`{"id":"a"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0644); err != nil {
		t.Fatal(err)
	}
	db := filepath.Join(dir, "tree.db")
	if err := WriteNodes(db, sampleNodes()); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)
	os.Chtimes(empty, time.Now(), time.Now())

	sources, err := DiscoverSources(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 3 {
		t.Fatalf("got %d sources: %v", len(sources), sources)
	}
	for _, s := range sources {
		if s.Path == empty && s.Valid {
			t.Error("empty source should be invalid")
		}
	}

	best, err := SelectBestSource(sources)
	if err != nil {
		t.Fatal(err)
	}
	if best.Path != db {
		t.Errorf("best = %s, want the database", best)
	}

	nodes, src, err := Load(dir)
	if err != nil || src.Path != db || len(nodes) != 3 {
		t.Errorf("Load(dir) = %d nodes from %s, %v", len(nodes), src.Path, err)
	}
}

func TestSelectBestSourceNoneValid(t *testing.T) {
	if _, err := SelectBestSource([]DataSource{{Path: "x"}}); err == nil {
		t.Error("expected error")
	}
}

func TestDetectErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Detect(dir); err == nil {
		t.Error("directory should not be a source")
	}
	txt := filepath.Join(dir, "a.txt")
	os.WriteFile(txt, []byte("x"), 0644)
	if _, err := Detect(txt); err == nil {
		t.Error("unsupported extension should fail")
	}
}

func TestDetectInconsistencies(t *testing.T) {
	a := []model.Node{
		{Key: "root"},
		{Key: "x", Parent: "root", Order: 0, Title: "X"},
		{Key: "gone", Parent: "root"},
	}
	b := []model.Node{
		{Key: "root"},
		{Key: "x", Parent: "new", Order: 2, Title: "X2"},
		{Key: "new", Parent: "root"},
	}

	d := DetectInconsistencies(a, b, "a.jsonl", "b.db", DefaultDiffOptions())
	if !d.HasInconsistencies() {
		t.Fatal("expected differences")
	}
	if strings.Join(d.MissingInA, ",") != "new" || strings.Join(d.MissingInB, ",") != "gone" {
		t.Errorf("missing = %v / %v", d.MissingInA, d.MissingInB)
	}
	if len(d.Moved) != 1 || d.Moved[0] != (MoveDifference{ID: "x", ParentA: "root", ParentB: "new", RankA: 0, RankB: 2}) {
		t.Errorf("moved = %+v", d.Moved)
	}
	if strings.Join(d.Retitled, ",") != "x" {
		t.Errorf("retitled = %v", d.Retitled)
	}
	if got := d.ShortSummary(); got != "+1 -1 ~2" {
		t.Errorf("ShortSummary = %q", got)
	}
	if s := d.Summary(); !strings.Contains(s, "x: root#0 -> new#2") {
		t.Errorf("Summary missing move:\n%s", s)
	}

	same := DetectInconsistencies(a, a, "a", "a", DiffOptions{})
	if same.HasInconsistencies() || !strings.Contains(same.Summary(), "match (3 nodes") {
		t.Errorf("identical sets: %+v", same)
	}

	capped := DetectInconsistencies(nil, b, "a", "b", DiffOptions{MaxDifferences: 1, IgnoreTitles: true})
	if len(capped.MissingInA) != 1 {
		t.Errorf("MaxDifferences not applied: %v", capped.MissingInA)
	}
}

func TestCompareSources(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "tree.db")
	if err := WriteNodes(db, sampleNodes()); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "tree.jsonl")
	os.WriteFile(file, []byte(`{"id":"root","title":"Root","kind":"folder"}`+"\n"), 0644)

	srcA, _ := Detect(db)
	srcB, _ := Detect(file)
	d, err := CompareSources(srcA, srcB, DefaultDiffOptions())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(d.MissingInB, ",") != "a,b" || len(d.MissingInA) != 0 {
		t.Errorf("diff = %+v", d)
	}
}
