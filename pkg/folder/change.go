package folder

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrEditMismatch is returned when an EditChange does not fit the sections
// it is replayed against.
var ErrEditMismatch = errors.New("edit does not match sections")

// RowPath addresses one row inside a section.
type RowPath struct {
	Section int `json:"section"`
	Row     int `json:"row"`
}

// EditChange lists the edits that turn one presentation into the next.
// Removed positions refer to the old presentation, inserted positions to the
// new one.
type EditChange struct {
	InsertedRows     []RowPath `json:"inserted_rows,omitempty"`
	RemovedRows      []RowPath `json:"removed_rows,omitempty"`
	InsertedSections []int     `json:"inserted_sections,omitempty"`
	RemovedSections  []int     `json:"removed_sections,omitempty"`
}

// NoChange is the change that edits nothing.
var NoChange = EditChange{}

// IsNone reports whether c edits nothing.
func (c EditChange) IsNone() bool {
	return len(c.InsertedRows) == 0 && len(c.RemovedRows) == 0 &&
		len(c.InsertedSections) == 0 && len(c.RemovedSections) == 0
}

func (c EditChange) String() string {
	if c.IsNone() {
		return "no change"
	}
	return fmt.Sprintf("+rows %v -rows %v +sections %v -sections %v",
		c.InsertedRows, c.RemovedRows, c.InsertedSections, c.RemovedSections)
}

// Apply replays c against old the way a batch-updating list widget does:
// rows then sections are removed using old positions, then sections and rows
// are inserted using new positions, with inserted content read from next.
// Headers are refreshed from next afterwards, since a toggled header changes
// state without moving.
//
// Apply returns ErrEditMismatch when an index is out of range or when the
// result does not line up with next. A correct change always reproduces next.
func Apply[E Payload](c EditChange, old, next []Section[E]) ([]Section[E], error) {
	work := make([]Section[E], len(old))
	for i, s := range old {
		work[i] = Section[E]{Item: s.Item, Rows: concat(s.Rows), Implicit: s.Implicit}
	}

	removedRows, err := uniquePaths(c.RemovedRows)
	if err != nil {
		return nil, err
	}
	for i := len(removedRows) - 1; i >= 0; i-- {
		p := removedRows[i]
		if p.Section < 0 || p.Section >= len(work) || p.Row < 0 || p.Row >= len(work[p.Section].Rows) {
			return nil, fmt.Errorf("%w: remove row %d of section %d", ErrEditMismatch, p.Row, p.Section)
		}
		work[p.Section].Rows = slices.Delete(work[p.Section].Rows, p.Row, p.Row+1)
	}

	removedSections, err := uniqueIndices(c.RemovedSections)
	if err != nil {
		return nil, err
	}
	for i := len(removedSections) - 1; i >= 0; i-- {
		s := removedSections[i]
		if s < 0 || s >= len(work) {
			return nil, fmt.Errorf("%w: remove section %d of %d", ErrEditMismatch, s, len(work))
		}
		work = slices.Delete(work, s, s+1)
	}

	insertedSections, err := uniqueIndices(c.InsertedSections)
	if err != nil {
		return nil, err
	}
	for _, s := range insertedSections {
		if s < 0 || s > len(work) || s >= len(next) {
			return nil, fmt.Errorf("%w: insert section %d", ErrEditMismatch, s)
		}
		src := next[s]
		work = slices.Insert(work, s, Section[E]{Item: src.Item, Rows: concat(src.Rows), Implicit: src.Implicit})
	}

	insertedRows, err := uniquePaths(c.InsertedRows)
	if err != nil {
		return nil, err
	}
	for _, p := range insertedRows {
		if p.Section < 0 || p.Section >= len(work) || p.Section >= len(next) ||
			p.Row < 0 || p.Row > len(work[p.Section].Rows) || p.Row >= len(next[p.Section].Rows) {
			return nil, fmt.Errorf("%w: insert row %d of section %d", ErrEditMismatch, p.Row, p.Section)
		}
		work[p.Section].Rows = slices.Insert(work[p.Section].Rows, p.Row, next[p.Section].Rows[p.Row])
	}

	if len(work) != len(next) {
		return nil, fmt.Errorf("%w: replay left %d sections, want %d", ErrEditMismatch, len(work), len(next))
	}
	for i := range work {
		if work[i].Implicit != next[i].Implicit || (!next[i].Implicit && work[i].Item.ID() != next[i].Item.ID()) {
			return nil, fmt.Errorf("%w: section %d header differs after replay", ErrEditMismatch, i)
		}
		work[i].Item = next[i].Item
		if !work[i].Equal(next[i]) {
			return nil, fmt.Errorf("%w: section %d rows differ after replay", ErrEditMismatch, i)
		}
	}
	return work, nil
}

func uniquePaths(paths []RowPath) ([]RowPath, error) {
	sorted := slices.Clone(paths)
	slices.SortFunc(sorted, func(a, b RowPath) int {
		return cmp.Or(cmp.Compare(a.Section, b.Section), cmp.Compare(a.Row, b.Row))
	})
	if len(slices.Compact(slices.Clone(sorted))) != len(sorted) {
		return nil, fmt.Errorf("%w: repeated row path", ErrEditMismatch)
	}
	return sorted, nil
}

func uniqueIndices(indices []int) ([]int, error) {
	sorted := slices.Sorted(slices.Values(indices))
	if len(slices.Compact(slices.Clone(sorted))) != len(sorted) {
		return nil, fmt.Errorf("%w: repeated section index", ErrEditMismatch)
	}
	return sorted, nil
}
