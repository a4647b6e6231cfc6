package analysis

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/vanderheijden86/foldtree/pkg/folder"
	"github.com/vanderheijden86/foldtree/pkg/model"
)

// LintReport describes structural problems in a node set. Lists are sorted.
type LintReport struct {
	Total int `json:"total"`
	// Placed is how many nodes the folder hierarchy actually shows.
	Placed       int        `json:"placed"`
	Roots        []string   `json:"roots"`
	MaxDepth     int        `json:"max_depth"`
	Duplicates   []string   `json:"duplicates,omitempty"`
	SelfParented []string   `json:"self_parented,omitempty"`
	Orphans      []string   `json:"orphans,omitempty"`
	Cycles       [][]string `json:"cycles,omitempty"`
	Unreachable  []string   `json:"unreachable,omitempty"`
}

// HasErrors reports problems that hide or drop nodes.
func (r LintReport) HasErrors() bool {
	return len(r.Duplicates) > 0 || len(r.SelfParented) > 0 || len(r.Orphans) > 0 ||
		len(r.Cycles) > 0 || len(r.Unreachable) > 0
}

// Summary renders the report for terminals.
func (r LintReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d nodes, %d placed, %d roots, depth %d\n", r.Total, r.Placed, len(r.Roots), r.MaxDepth)
	line := func(label string, ids []string) {
		if len(ids) > 0 {
			fmt.Fprintf(&b, "  %s: %s\n", label, strings.Join(ids, ", "))
		}
	}
	line("duplicate ids", r.Duplicates)
	line("own parent", r.SelfParented)
	line("missing parent", r.Orphans)
	for _, c := range r.Cycles {
		fmt.Fprintf(&b, "  cycle: %s -> %s\n", strings.Join(c, " -> "), c[0])
	}
	line("unreachable", r.Unreachable)
	if !r.HasErrors() {
		b.WriteString("  no problems found\n")
	}
	return b.String()
}

// Lint checks nodes for the problems folder.Build silently tolerates:
// duplicate ids, self-parented nodes, missing parents, parent cycles and
// nodes that hang below any of those.
func Lint(nodes []model.Node, rootID string) LintReport {
	report := LintReport{Total: len(nodes)}

	g := simple.NewDirectedGraph()
	sentinel := g.NewNode()
	g.AddNode(sentinel)

	idToNode := make(map[string]int64, len(nodes))
	nodeToID := make(map[int64]string, len(nodes))
	parentOf := make(map[string]string, len(nodes))
	dupSeen := make(map[string]bool)
	for _, n := range nodes {
		if _, exists := idToNode[n.Key]; exists {
			if !dupSeen[n.Key] {
				report.Duplicates = append(report.Duplicates, n.Key)
				dupSeen[n.Key] = true
			}
			continue
		}
		gn := g.NewNode()
		g.AddNode(gn)
		idToNode[n.Key] = gn.ID()
		nodeToID[gn.ID()] = n.Key
		parentOf[n.Key] = n.Parent
	}

	for id, parent := range parentOf {
		child := g.Node(idToNode[id])
		switch {
		case parent == rootID:
			report.Roots = append(report.Roots, id)
			g.SetEdge(g.NewEdge(sentinel, child))
		case parent == id:
			// simple graphs reject self edges.
			report.SelfParented = append(report.SelfParented, id)
		default:
			p, ok := idToNode[parent]
			if !ok {
				report.Orphans = append(report.Orphans, id)
				continue
			}
			g.SetEdge(g.NewEdge(g.Node(p), child))
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		report.Cycles = append(report.Cycles, orderCycle(scc, nodeToID, parentOf))
	}
	sort.Slice(report.Cycles, func(i, j int) bool { return report.Cycles[i][0] < report.Cycles[j][0] })

	reached := make(map[int64]bool, len(nodes))
	bfs := traverse.BreadthFirst{
		Visit: func(n graph.Node) { reached[n.ID()] = true },
	}
	bfs.Walk(g, sentinel, func(_ graph.Node, depth int) bool {
		report.MaxDepth = max(report.MaxDepth, depth-1)
		return false
	})
	for id, gid := range idToNode {
		if !reached[gid] {
			report.Unreachable = append(report.Unreachable, id)
		}
	}

	report.Placed = folder.New(nodes, folder.WithRootID(rootID)).ItemCount()

	for _, list := range [][]string{report.Roots, report.Duplicates, report.SelfParented, report.Orphans, report.Unreachable} {
		sort.Strings(list)
	}
	return report
}

// orderCycle lists a cycle's ids following parent links from the smallest id.
func orderCycle(scc []graph.Node, nodeToID map[int64]string, parentOf map[string]string) []string {
	ids := make([]string, len(scc))
	for i, n := range scc {
		ids[i] = nodeToID[n.ID()]
	}
	start := slices.Min(ids)
	cycle := []string{start}
	for cur := parentOf[start]; cur != start && len(cycle) <= len(ids); cur = parentOf[cur] {
		cycle = append(cycle, cur)
	}
	return cycle
}
