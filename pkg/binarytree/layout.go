package binarytree

import (
	"errors"
	"fmt"
	"strings"
)

// MaxDescribeHeight is the tallest tree Describe draws. The grid doubles in
// width per level.
const MaxDescribeHeight = 12

// maxGridLevels bounds the levels that get their own column span. Deeper
// levels step one column at a time, so offsets stay far below the int range.
const maxGridLevels = 52

// ErrTooTall is returned by Describe for trees above MaxDescribeHeight.
var ErrTooTall = errors.New("tree too tall to describe")

// Placement is one node's position on the printing grid. X is the column
// offset from the root (negative is left), Y the level starting at 1 for the
// root. Parent indexes the parent placement, -1 for the root.
type Placement[T any] struct {
	Value  T
	X, Y   int
	Parent int
	IsLeft bool
}

// Layout assigns grid positions in pre-order. Each level halves the
// horizontal step so subtrees never overlap. In trees taller than 52 levels
// the levels past that depth step by one column and may share cells.
func (t Tree[T]) Layout() []Placement[T] {
	height := min(t.Height(), maxGridLevels)
	var out []Placement[T]

	var walk func(t Tree[T], level, parent int, isLeft bool)
	walk = func(t Tree[T], level, parent int, isLeft bool) {
		if t.n == nil {
			return
		}
		x := 0
		if parent >= 0 {
			step := gridSpan(height-level+1)/2 + 1
			if isLeft {
				x = out[parent].X - step
			} else {
				x = out[parent].X + step
			}
		}
		out = append(out, Placement[T]{Value: t.n.value, X: x, Y: level, Parent: parent, IsLeft: isLeft})
		self := len(out) - 1
		walk(t.n.left, level+1, self, true)
		walk(t.n.right, level+1, self, false)
	}
	walk(t, 1, -1, true)
	return out
}

// Width returns the number of grid columns Layout can use.
func (t Tree[T]) Width() int {
	height := t.Height()
	capped := min(height, maxGridLevels)
	return gridSpan(capped) + 2*(height-capped)
}

// gridSpan is the column count of a full subtree with the given levels.
func gridSpan(levels int) int {
	return (2 << max(levels, 0)) - 1
}

// Describe draws the tree as text, one line per level separated by blank
// lines. Every grid cell is wordWidth characters: values are centered and
// truncated, empty cells are dashes. Trees taller than MaxDescribeHeight
// fail with ErrTooTall.
func (t Tree[T]) Describe(wordWidth int) (string, error) {
	if t.n == nil || wordWidth <= 0 {
		return "", nil
	}
	height := t.Height()
	if height > MaxDescribeHeight {
		return "", fmt.Errorf("%w: height %d exceeds %d", ErrTooTall, height, MaxDescribeHeight)
	}
	width := t.Width()

	cells := make(map[[2]int]T)
	for _, p := range t.Layout() {
		key := [2]int{p.X, p.Y}
		if _, taken := cells[key]; !taken {
			cells[key] = p.Value
		}
	}

	filler := strings.Repeat("-", wordWidth)
	rows := make([]string, 0, height)
	longest := 0
	for level := 1; level <= height; level++ {
		var b strings.Builder
		for col := 0; col < width; col++ {
			if v, ok := cells[[2]int{col - width/2, level}]; ok {
				b.WriteString(fitCell(fmt.Sprint(v), wordWidth))
			} else {
				b.WriteString(filler)
			}
		}
		rows = append(rows, b.String())
		longest = max(longest, len([]rune(rows[len(rows)-1])))
	}

	for i, row := range rows {
		if pad := longest - len([]rune(row)); pad > 0 {
			rows[i] = strings.Repeat("-", pad/2) + row + strings.Repeat("-", pad-pad/2)
		}
	}
	return strings.Join(rows, "\n\n"), nil
}

func fitCell(s string, width int) string {
	r := []rune(s)
	switch {
	case len(r) > width:
		return string(r[:width])
	case len(r) < width:
		pre := (width - len(r)) / 2
		return strings.Repeat(" ", pre) + s + strings.Repeat(" ", width-len(r)-pre)
	default:
		return s
	}
}
