package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/foldtree/pkg/model"
)

// SourceDiff represents differences between two sets of nodes
type SourceDiff struct {
	SourceA string `json:"source_a"`
	SourceB string `json:"source_b"`
	// MissingInA contains node IDs present in B but not in A
	MissingInA []string `json:"missing_in_a,omitempty"`
	// MissingInB contains node IDs present in A but not in B
	MissingInB []string `json:"missing_in_b,omitempty"`
	// Moved contains nodes whose parent or rank differ
	Moved []MoveDifference `json:"moved,omitempty"`
	// Retitled contains nodes whose title differs
	Retitled []string `json:"retitled,omitempty"`
	CountA   int      `json:"count_a"`
	CountB   int      `json:"count_b"`
}

// MoveDifference is a node placed differently in the two sources.
type MoveDifference struct {
	ID      string `json:"id"`
	ParentA string `json:"parent_a"`
	ParentB string `json:"parent_b"`
	RankA   int    `json:"rank_a"`
	RankB   int    `json:"rank_b"`
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.Moved) > 0 || len(d.Retitled) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d nodes each)", d.CountA)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Differences between %s and %s:\n", d.SourceA, d.SourceB)
	if d.CountA != d.CountB {
		fmt.Fprintf(&b, "  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}
	list := func(header string, ids []string) {
		if len(ids) == 0 {
			return
		}
		fmt.Fprintf(&b, "  - %s: %d\n", header, len(ids))
		if len(ids) <= 5 {
			for _, id := range ids {
				fmt.Fprintf(&b, "    - %s\n", id)
			}
		}
	}
	list(fmt.Sprintf("only in %s", d.SourceB), d.MissingInA)
	list(fmt.Sprintf("only in %s", d.SourceA), d.MissingInB)
	if len(d.Moved) > 0 {
		fmt.Fprintf(&b, "  - moved: %d\n", len(d.Moved))
		if len(d.Moved) <= 5 {
			for _, m := range d.Moved {
				fmt.Fprintf(&b, "    - %s: %s#%d -> %s#%d\n", m.ID, m.ParentA, m.RankA, m.ParentB, m.RankB)
			}
		}
	}
	list("retitled", d.Retitled)
	return b.String()
}

// ShortSummary is a one-line form used in status bars.
func (d SourceDiff) ShortSummary() string {
	return fmt.Sprintf("+%d -%d ~%d", len(d.MissingInA), len(d.MissingInB), len(d.Moved)+len(d.Retitled))
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// IgnoreTitles skips title comparison
	IgnoreTitles bool
	// MaxDifferences limits each list (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{MaxDifferences: 100}
}

// DetectInconsistencies compares two node sets. Results are sorted by id.
// When an id repeats within a set the first occurrence counts.
func DetectInconsistencies(nodesA, nodesB []model.Node, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	diff := SourceDiff{SourceA: sourceA, SourceB: sourceB}

	index := func(nodes []model.Node) map[string]model.Node {
		m := make(map[string]model.Node, len(nodes))
		for _, n := range nodes {
			if _, dup := m[n.Key]; !dup {
				m[n.Key] = n
			}
		}
		return m
	}
	mapA, mapB := index(nodesA), index(nodesB)
	diff.CountA, diff.CountB = len(mapA), len(mapB)

	room := func(n int) bool { return opts.MaxDifferences == 0 || n < opts.MaxDifferences }

	for _, id := range sortedKeys(mapA) {
		if _, ok := mapB[id]; !ok && room(len(diff.MissingInB)) {
			diff.MissingInB = append(diff.MissingInB, id)
		}
	}
	for _, id := range sortedKeys(mapB) {
		b := mapB[id]
		a, ok := mapA[id]
		if !ok {
			if room(len(diff.MissingInA)) {
				diff.MissingInA = append(diff.MissingInA, id)
			}
			continue
		}
		if (a.Parent != b.Parent || a.Order != b.Order) && room(len(diff.Moved)) {
			diff.Moved = append(diff.Moved, MoveDifference{
				ID: id, ParentA: a.Parent, ParentB: b.Parent, RankA: a.Order, RankB: b.Order,
			})
		}
		if !opts.IgnoreTitles && a.Title != b.Title && room(len(diff.Retitled)) {
			diff.Retitled = append(diff.Retitled, id)
		}
	}
	return diff
}

func sortedKeys(m map[string]model.Node) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CompareSources loads and compares two data sources
func CompareSources(sourceA, sourceB DataSource, opts DiffOptions) (*SourceDiff, error) {
	nodesA, err := LoadFromSource(sourceA)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}
	nodesB, err := LoadFromSource(sourceB)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}
	diff := DetectInconsistencies(nodesA, nodesB, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}
