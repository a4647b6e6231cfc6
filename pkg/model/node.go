package model

import (
	"fmt"
	"strings"
)

// Node is one entry of a hierarchy file. It satisfies folder.Element.
type Node struct {
	Key    string `json:"id" yaml:"id"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Order  int    `json:"rank" yaml:"rank"`
	Title  string `json:"title" yaml:"title"`
	Kind   Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Notes  string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func (n Node) ID() string       { return n.Key }
func (n Node) ParentID() string { return n.Parent }
func (n Node) Rank() int        { return n.Order }

// Label is the display text: the title, or the id when untitled.
func (n Node) Label() string {
	if t := strings.TrimSpace(n.Title); t != "" {
		return t
	}
	return n.Key
}

// Validate checks a node on its own. Cross-node problems such as duplicate
// ids or cycles are reported by the analysis package.
func (n Node) Validate() error {
	if n.Key == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if n.Key == n.Parent {
		return fmt.Errorf("node %s cannot be its own parent", n.Key)
	}
	if !n.Kind.IsValid() {
		return fmt.Errorf("invalid kind: %s", n.Kind)
	}
	return nil
}

// Kind classifies a node for display.
type Kind string

const (
	KindNone   Kind = ""
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
	KindNote   Kind = "note"
)

// IsValid returns true if the kind is a recognized value
func (k Kind) IsValid() bool {
	switch k {
	case KindNone, KindFolder, KindFile, KindNote:
		return true
	}
	return false
}
