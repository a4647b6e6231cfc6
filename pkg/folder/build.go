package folder

import (
	"cmp"
	"slices"

	"github.com/vanderheijden86/foldtree/pkg/binarytree"
	"github.com/vanderheijden86/foldtree/pkg/debug"
	"github.com/vanderheijden86/foldtree/pkg/metrics"
)

// Build arranges elements into a left-child/right-sibling tree rooted at the
// first child of rootID. Siblings are ordered by Rank, ties keep input order.
// Every item starts Expanded.
//
// Elements whose parent is never reached (dangling parents, cycles) are left
// out. An id is placed at most once: a repeated id is skipped and the chain
// continues with its next sibling.
func Build[E Payload](elements []E, rootID string) binarytree.Tree[Item[E]] {
	defer metrics.Timer(metrics.HierarchyBuild)()

	groups := make(map[string][]int)
	for i, e := range elements {
		groups[e.ParentID()] = append(groups[e.ParentID()], i)
	}

	firstChild := make(map[string]int, len(groups))
	nextSibling := make([]int, len(elements))
	for parent, members := range groups {
		slices.SortStableFunc(members, func(a, b int) int {
			return cmp.Compare(elements[a].Rank(), elements[b].Rank())
		})
		firstChild[parent] = members[0]
		for i, idx := range members {
			nextSibling[idx] = -1
			if i+1 < len(members) {
				nextSibling[idx] = members[i+1]
			}
		}
	}

	root, ok := firstChild[rootID]
	if !ok {
		return binarytree.Empty[Item[E]]()
	}

	seen := make(map[string]bool, len(elements))
	var materialize func(idx, depth int) binarytree.Tree[Item[E]]
	materialize = func(idx, depth int) binarytree.Tree[Item[E]] {
		if idx < 0 {
			return binarytree.Empty[Item[E]]()
		}
		e := elements[idx]
		id := e.ID()
		if seen[id] {
			debug.Log("folder: skipping repeated id %q", id)
			return materialize(nextSibling[idx], depth)
		}
		seen[id] = true

		var left binarytree.Tree[Item[E]]
		if child, ok := firstChild[id]; ok {
			left = materialize(child, depth+1)
		}
		right := materialize(nextSibling[idx], depth)
		return binarytree.New(left, Item[E]{Element: e, Depth: depth, State: Expanded}, right)
	}

	tree := materialize(root, 0)
	debug.LogIf(len(seen) != len(elements), "folder: %d of %d elements placed", len(seen), len(elements))
	return tree
}
