package folder

import (
	"github.com/vanderheijden86/foldtree/pkg/binarytree"
	"github.com/vanderheijden86/foldtree/pkg/metrics"
)

// Section is one visible branch and the leaf rows shown beneath it.
//
// Implicit marks the synthetic first section that groups top-level leaves
// appearing before the first top-level branch. It has no header: its Item
// is the zero value.
type Section[E Payload] struct {
	Item     Item[E]   `json:"item"`
	Rows     []Item[E] `json:"rows"`
	Implicit bool      `json:"implicit,omitempty"`
}

// Equal compares header, implicit flag and rows. A nil and an empty Rows
// slice are equal.
func (s Section[E]) Equal(o Section[E]) bool {
	if s.Item != o.Item || s.Implicit != o.Implicit || len(s.Rows) != len(o.Rows) {
		return false
	}
	for i := range s.Rows {
		if s.Rows[i] != o.Rows[i] {
			return false
		}
	}
	return true
}

// SectionsEqual compares two section lists element-wise.
func SectionsEqual[E Payload](a, b []Section[E]) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

type chunkKind uint8

const (
	chunkNone chunkKind = iota
	chunkRows
	chunkSectioned
)

// chunk is the flatten accumulator for one subtree. For chunkRows, rows are
// the subtree's leaves. For chunkSectioned, rows are the leaves that precede
// the first section; they belong to whatever section encloses the subtree.
type chunk[E Payload] struct {
	kind     chunkKind
	sections []Section[E]
	rows     []Item[E]
}

// fold flattens t bottom-up. Chunks may share slices with each other but
// nothing mutates a slice once built.
func fold[E Payload](t binarytree.Tree[Item[E]], folding bool) chunk[E] {
	return binarytree.Fold(t, chunk[E]{}, func(l chunk[E], it Item[E], r chunk[E]) chunk[E] {
		open := !folding || it.State.IsExpanded()

		switch l.kind {
		case chunkNone:
			rows := concat([]Item[E]{it}, r.rows)
			if r.kind == chunkSectioned {
				return chunk[E]{kind: chunkSectioned, sections: r.sections, rows: rows}
			}
			return chunk[E]{kind: chunkRows, rows: rows}

		case chunkRows:
			rows := r.rows
			if open {
				rows = concat(l.rows, r.rows)
			}
			head := Section[E]{Item: it, Rows: concat(rows)}
			return chunk[E]{kind: chunkSectioned, sections: concat([]Section[E]{head}, r.sections)}

		default:
			if !open {
				head := Section[E]{Item: it, Rows: concat(r.rows)}
				return chunk[E]{kind: chunkSectioned, sections: concat([]Section[E]{head}, r.sections)}
			}
			head := Section[E]{Item: it, Rows: concat(l.rows)}
			return chunk[E]{
				kind:     chunkSectioned,
				sections: concat([]Section[E]{head}, appendToLast(l.sections, r.rows), r.sections),
			}
		}
	})
}

// flatten produces the presentation for a whole tree.
func flatten[E Payload](t binarytree.Tree[Item[E]], folding bool) []Section[E] {
	defer metrics.Timer(metrics.Flatten)()

	c := fold(t, folding)
	out := make([]Section[E], 0, len(c.sections)+1)
	if len(c.rows) > 0 {
		out = append(out, Section[E]{Rows: c.rows, Implicit: true})
	}
	return append(out, c.sections...)
}

// appendToLast returns a copy of sections with rows added to the last one.
func appendToLast[E Payload](sections []Section[E], rows []Item[E]) []Section[E] {
	if len(rows) == 0 || len(sections) == 0 {
		return sections
	}
	out := concat(sections)
	last := &out[len(out)-1]
	last.Rows = concat(last.Rows, rows)
	return out
}

func concat[S ~[]V, V any](parts ...S) S {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(S, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
