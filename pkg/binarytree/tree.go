// Package binarytree implements an immutable generic binary tree.
//
// A Tree is either empty or a node carrying a value and two subtrees. Trees
// are values: every update returns a new tree and leaves the receiver intact,
// so snapshots can be shared without copying. Fold is the one recursive
// primitive; Count, Height and Elements are built on it.
package binarytree

import (
	"errors"
	"fmt"
)

// ErrInvalidUpdate is returned when a child update targets an empty tree.
var ErrInvalidUpdate = errors.New("invalid tree update")

// Tree is an immutable binary tree. The zero value is the empty tree.
type Tree[T any] struct {
	n *node[T]
}

type node[T any] struct {
	left  Tree[T]
	value T
	right Tree[T]
}

// Empty returns the empty tree.
func Empty[T any]() Tree[T] {
	return Tree[T]{}
}

// Leaf returns a single node with empty children.
func Leaf[T any](v T) Tree[T] {
	return New(Empty[T](), v, Empty[T]())
}

// New returns a node with the given children.
func New[T any](left Tree[T], v T, right Tree[T]) Tree[T] {
	return Tree[T]{n: &node[T]{left: left, value: v, right: right}}
}

// IsEmpty reports whether t has no node.
func (t Tree[T]) IsEmpty() bool {
	return t.n == nil
}

// Value returns the node's value, or false for the empty tree.
func (t Tree[T]) Value() (T, bool) {
	if t.n == nil {
		var zero T
		return zero, false
	}
	return t.n.value, true
}

// Left returns the left subtree, or Empty.
func (t Tree[T]) Left() Tree[T] {
	if t.n == nil {
		return Tree[T]{}
	}
	return t.n.left
}

// Right returns the right subtree, or Empty.
func (t Tree[T]) Right() Tree[T] {
	if t.n == nil {
		return Tree[T]{}
	}
	return t.n.right
}

// Fold reduces t bottom-up. empty is the result for every empty subtree and
// combine receives the folded left subtree, the node value and the folded
// right subtree.
func Fold[T, R any](t Tree[T], empty R, combine func(left R, value T, right R) R) R {
	if t.n == nil {
		return empty
	}
	return combine(Fold(t.n.left, empty, combine), t.n.value, Fold(t.n.right, empty, combine))
}

// Count returns the number of nodes.
func (t Tree[T]) Count() int {
	return Fold(t, 0, func(l int, _ T, r int) int { return l + 1 + r })
}

// Height returns the longest root-to-leaf path length; 0 for Empty.
func (t Tree[T]) Height() int {
	return Fold(t, 0, func(l int, _ T, r int) int { return max(l, r) + 1 })
}

// Elements returns all values in left, value, right order.
func (t Tree[T]) Elements() []T {
	// Each child result is consumed exactly once, so appending in place is safe.
	return Fold(t, []T(nil), func(l []T, v T, r []T) []T {
		return append(append(l, v), r...)
	})
}

// WithValue returns t with its value replaced. On Empty it returns a leaf.
func (t Tree[T]) WithValue(v T) Tree[T] {
	return New(t.Left(), v, t.Right())
}

// WithLeft returns t with its left subtree replaced.
func (t Tree[T]) WithLeft(sub Tree[T]) (Tree[T], error) {
	if t.n == nil {
		return t, fmt.Errorf("%w: empty tree has no left subtree", ErrInvalidUpdate)
	}
	return New(sub, t.n.value, t.n.right), nil
}

// WithRight returns t with its right subtree replaced.
func (t Tree[T]) WithRight(sub Tree[T]) (Tree[T], error) {
	if t.n == nil {
		return t, fmt.Errorf("%w: empty tree has no right subtree", ErrInvalidUpdate)
	}
	return New(t.n.left, t.n.value, sub), nil
}

// WithoutLeft returns t with an empty left subtree.
func (t Tree[T]) WithoutLeft() (Tree[T], error) {
	return t.WithLeft(Empty[T]())
}

// WithoutRight returns t with an empty right subtree.
func (t Tree[T]) WithoutRight() (Tree[T], error) {
	return t.WithRight(Empty[T]())
}

// Cleared returns the empty tree.
func (t Tree[T]) Cleared() Tree[T] {
	return Tree[T]{}
}

// Equal reports deep, order-sensitive equality.
func Equal[T comparable](a, b Tree[T]) bool {
	return EqualFunc(a, b, func(x, y T) bool { return x == y })
}

// EqualFunc is Equal with a caller-supplied value comparison.
func EqualFunc[T any](a, b Tree[T], eq func(T, T) bool) bool {
	if a.n == nil || b.n == nil {
		return a.n == nil && b.n == nil
	}
	if a.n == b.n {
		return true
	}
	return eq(a.n.value, b.n.value) &&
		EqualFunc(a.n.left, b.n.left, eq) &&
		EqualFunc(a.n.right, b.n.right, eq)
}
