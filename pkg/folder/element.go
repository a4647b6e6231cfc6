// Package folder turns a flat list of parent-linked elements into a
// collapsible, sectioned list.
//
// Elements are arranged in a left-child/right-sibling binary tree: a node's
// left subtree holds its first child, its right subtree its next sibling.
// Flattening the tree yields sections, one per visible branch, each headed by
// the branch item and followed by the leaf rows shown beneath it. Toggling a
// section rebuilds the tree and reports the minimal row and section edits a
// list widget needs to animate from the old presentation to the new one.
package folder

import "fmt"

// RootID is the default parent id of top-level elements.
const RootID = ""

// Element is anything that can be placed in the hierarchy.
type Element interface {
	ID() string
	ParentID() string
	Rank() int
}

// Payload is the constraint for elements held by a Model. Comparability
// gives Items and trees value equality.
type Payload interface {
	comparable
	Element
}

// ExpandState is the fold state of a branch.
type ExpandState uint8

const (
	Expanded ExpandState = iota
	Collapsed
)

// Toggled returns the opposite state.
func (s ExpandState) Toggled() ExpandState {
	if s == Expanded {
		return Collapsed
	}
	return Expanded
}

// IsExpanded reports whether s is Expanded.
func (s ExpandState) IsExpanded() bool { return s == Expanded }

func (s ExpandState) String() string {
	switch s {
	case Expanded:
		return "expanded"
	case Collapsed:
		return "collapsed"
	default:
		return fmt.Sprintf("ExpandState(%d)", uint8(s))
	}
}

// MarshalText encodes the state as "expanded" or "collapsed".
func (s ExpandState) MarshalText() ([]byte, error) {
	switch s {
	case Expanded, Collapsed:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid expand state %d", uint8(s))
}

// UnmarshalText is the inverse of MarshalText.
func (s *ExpandState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "expanded":
		*s = Expanded
	case "collapsed":
		*s = Collapsed
	default:
		return fmt.Errorf("invalid expand state %q", b)
	}
	return nil
}

// Item is an element placed in the tree. Depth is 0 for top-level elements
// and never changes after the build; State is the only field a toggle
// touches.
type Item[E Payload] struct {
	Element E           `json:"element"`
	Depth   int         `json:"depth"`
	State   ExpandState `json:"state"`
}

// ID is a shortcut for Element.ID.
func (it Item[E]) ID() string { return it.Element.ID() }
