package binarytree

import (
	"errors"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

func TestConstructors(t *testing.T) {
	if !Empty[int]().IsEmpty() {
		t.Error("Empty should be empty")
	}
	leaf := Leaf(2)
	if leaf.IsEmpty() {
		t.Error("Leaf should not be empty")
	}
	if !Equal(leaf, New(Empty[int](), 2, Empty[int]())) {
		t.Error("Leaf(2) != New(Empty, 2, Empty)")
	}
	if v, ok := Leaf("hello").Value(); !ok || v != "hello" {
		t.Errorf("Value() = %q, %v", v, ok)
	}
	if _, ok := Empty[string]().Value(); ok {
		t.Error("Empty.Value() reported a value")
	}
	if !Leaf(0).Left().IsEmpty() || !Empty[int]().Right().IsEmpty() {
		t.Error("missing children should be Empty")
	}
}

func TestQueries(t *testing.T) {
	one, two := Leaf(1), Leaf(2)
	tree1 := New(one, 3, two)
	tree1Copy := New(Leaf(1), 3, Leaf(2))
	tree2 := New(two, 3, one)

	if !Equal(tree1, tree1Copy) {
		t.Error("structurally equal trees compare unequal")
	}
	if Equal(tree1, tree2) {
		t.Error("mirrored trees compare equal")
	}
	if got := tree2.Elements(); !slices.Equal(got, []int{2, 3, 1}) {
		t.Errorf("Elements() = %v, want [2 3 1]", got)
	}
	if got := tree1.Left().Elements(); !slices.Equal(got, []int{1}) {
		t.Errorf("Left().Elements() = %v, want [1]", got)
	}

	tests := []struct {
		name   string
		tree   Tree[int]
		count  int
		height int
	}{
		{"empty", Empty[int](), 0, 0},
		{"leaf", one, 1, 1},
		{"three", tree1, 3, 2},
		{"nested", New(tree1Copy, 5, New(tree2, 4, New(tree1, 3, tree2))), 15, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tree.Count(); got != tt.count {
				t.Errorf("Count() = %d, want %d", got, tt.count)
			}
			if got := tt.tree.Height(); got != tt.height {
				t.Errorf("Height() = %d, want %d", got, tt.height)
			}
		})
	}
}

func TestUpdates(t *testing.T) {
	first := Leaf(10).WithValue(100)
	second := Leaf(100)
	if !Equal(first, second) {
		t.Fatal("WithValue did not replace the value")
	}

	left, right := Leaf(99), Leaf(98)
	withLeft, err := first.WithLeft(left)
	if err != nil {
		t.Fatalf("WithLeft: %v", err)
	}
	if !Equal(withLeft, New(left, 100, Empty[int]())) {
		t.Error("WithLeft produced the wrong tree")
	}

	both, err := withLeft.WithRight(right)
	if err != nil {
		t.Fatalf("WithRight: %v", err)
	}
	if !Equal(both, New(left, 100, right)) {
		t.Error("WithRight produced the wrong tree")
	}

	noRight, err := both.WithoutRight()
	if err != nil || !Equal(noRight, withLeft) {
		t.Errorf("WithoutRight = %v, %v", noRight.Elements(), err)
	}
	bare, err := noRight.WithoutLeft()
	if err != nil || !Equal(bare, second) {
		t.Errorf("WithoutLeft = %v, %v", bare.Elements(), err)
	}

	// The receivers are untouched.
	if !Equal(first, second) || both.Count() != 3 {
		t.Error("an update modified its receiver")
	}

	cleared := bare.Cleared()
	if !cleared.IsEmpty() {
		t.Error("Cleared should be empty")
	}
	if !Equal(Empty[int]().WithValue(7), Leaf(7)) {
		t.Error("WithValue on Empty should make a leaf")
	}
}

func TestUpdatesOnEmptyFail(t *testing.T) {
	e := Empty[int]()
	updates := map[string]func() (Tree[int], error){
		"WithLeft":     func() (Tree[int], error) { return e.WithLeft(Leaf(1)) },
		"WithRight":    func() (Tree[int], error) { return e.WithRight(Leaf(1)) },
		"WithoutLeft":  e.WithoutLeft,
		"WithoutRight": e.WithoutRight,
	}
	for name, update := range updates {
		t.Run(name, func(t *testing.T) {
			got, err := update()
			if !errors.Is(err, ErrInvalidUpdate) {
				t.Errorf("err = %v, want ErrInvalidUpdate", err)
			}
			if !got.IsEmpty() {
				t.Error("failed update returned a non-empty tree")
			}
		})
	}
}

func TestEqualFunc(t *testing.T) {
	type pair struct{ key, label string }
	a := New(Leaf(pair{"a", "x"}), pair{"b", "y"}, Empty[pair]())
	b := New(Leaf(pair{"a", "changed"}), pair{"b", "y"}, Empty[pair]())

	byKey := func(x, y pair) bool { return x.key == y.key }
	if !EqualFunc(a, b, byKey) {
		t.Error("EqualFunc by key should match")
	}
	if Equal(a, b) {
		t.Error("Equal should see the label change")
	}
}

// bst inserts values into a search tree, giving rapid a cheap way to draw
// arbitrary tree shapes.
func bst(values []int) Tree[int] {
	var insert func(t Tree[int], v int) Tree[int]
	insert = func(t Tree[int], v int) Tree[int] {
		cur, ok := t.Value()
		if !ok {
			return Leaf(v)
		}
		if v < cur {
			next, _ := t.WithLeft(insert(t.Left(), v))
			return next
		}
		next, _ := t.WithRight(insert(t.Right(), v))
		return next
	}
	var t Tree[int]
	for _, v := range values {
		t = insert(t, v)
	}
	return t
}

func TestFoldProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.IntRange(-50, 50), 0, 40).Draw(t, "values")
		tree := bst(values)

		if tree.Count() != len(values) {
			t.Fatalf("Count() = %d, want %d", tree.Count(), len(values))
		}
		elems := tree.Elements()
		if len(elems) != tree.Count() {
			t.Fatalf("len(Elements()) = %d, Count() = %d", len(elems), tree.Count())
		}
		if !slices.IsSorted(elems) {
			t.Fatalf("in-order traversal of a search tree is unsorted: %v", elems)
		}
		if h := tree.Height(); h > tree.Count() || (tree.Count() > 0 && h == 0) {
			t.Fatalf("Height() = %d for %d nodes", h, tree.Count())
		}
		if !Equal(tree, bst(values)) {
			t.Fatal("rebuilding from the same values gave a different tree")
		}
	})
}

func TestRoundTripMutators(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := bst(rapid.SliceOfN(rapid.IntRange(0, 100), 1, 20).Draw(t, "values"))
		sub := bst(rapid.SliceOfN(rapid.IntRange(0, 100), 0, 10).Draw(t, "sub"))

		withLeft, err := tree.WithLeft(sub)
		if err != nil {
			t.Fatal(err)
		}
		if !Equal(withLeft.Left(), sub) || !Equal(withLeft.Right(), tree.Right()) {
			t.Fatal("WithLeft did not keep the other child")
		}
		restored, _ := withLeft.WithLeft(tree.Left())
		if !Equal(restored, tree) {
			t.Fatal("restoring the left child did not round-trip")
		}
	})
}
