package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/foldtree/internal/datasource"
	"github.com/vanderheijden86/foldtree/pkg/analysis"
	"github.com/vanderheijden86/foldtree/pkg/binarytree"
	"github.com/vanderheijden86/foldtree/pkg/folder"
	"github.com/vanderheijden86/foldtree/pkg/metrics"
	"github.com/vanderheijden86/foldtree/pkg/model"
	"github.com/vanderheijden86/foldtree/pkg/version"
)

type robotRow struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind,omitempty"`
	Depth int    `json:"depth"`
}

type robotSection struct {
	Index    int        `json:"index"`
	Implicit bool       `json:"implicit,omitempty"`
	Header   *robotRow  `json:"header,omitempty"`
	State    string     `json:"state,omitempty"`
	Rows     []robotRow `json:"rows"`
}

type robotSectionsOutput struct {
	Version      string         `json:"version"`
	Source       string         `json:"source,omitempty"`
	Folding      bool           `json:"folding_enabled"`
	ItemCount    int            `json:"item_count"`
	VisibleCount int            `json:"visible_count"`
	Sections     []robotSection `json:"sections"`
}

type robotToggleStep struct {
	Section  int                `json:"section"`
	State    string             `json:"state,omitempty"`
	Change   *folder.EditChange `json:"change,omitempty"`
	Error    string             `json:"error,omitempty"`
	Sections int                `json:"sections_after"`
	Visible  int                `json:"visible_after"`
}

type robotToggleOutput struct {
	Version string            `json:"version"`
	Steps   []robotToggleStep `json:"steps"`
	Final   []robotSection    `json:"final"`
}

func toRobotRow(it folder.Item[model.Node]) robotRow {
	return robotRow{
		ID:    it.ID(),
		Title: it.Element.Label(),
		Kind:  string(it.Element.Kind),
		Depth: it.Depth,
	}
}

func toRobotSections(sections []folder.Section[model.Node]) []robotSection {
	out := make([]robotSection, 0, len(sections))
	for i, s := range sections {
		rs := robotSection{Index: i, Implicit: s.Implicit, Rows: make([]robotRow, 0, len(s.Rows))}
		if !s.Implicit {
			h := toRobotRow(s.Item)
			rs.Header = &h
			rs.State = s.Item.State.String()
		}
		for _, r := range s.Rows {
			rs.Rows = append(rs.Rows, toRobotRow(r))
		}
		out = append(out, rs)
	}
	return out
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func robotSections(w io.Writer, m *folder.Model[model.Node], source string) error {
	return encodeJSON(w, robotSectionsOutput{
		Version:      version.Version,
		Source:       source,
		Folding:      m.FoldingEnabled(),
		ItemCount:    m.ItemCount(),
		VisibleCount: m.VisibleCount(),
		Sections:     toRobotSections(m.Sections()),
	})
}

// parseIndices parses "0,2,5" into section indices.
func parseIndices(list string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid section index %q: %w", part, err)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no section indices in %q", list)
	}
	return out, nil
}

// robotToggle applies toggles in order. A rejected toggle is reported in its
// step and the sequence continues.
func robotToggle(w io.Writer, m *folder.Model[model.Node], indices []int) error {
	out := robotToggleOutput{Version: version.Version, Steps: make([]robotToggleStep, 0, len(indices))}
	for _, idx := range indices {
		step := robotToggleStep{Section: idx}
		change, state, err := m.Toggle(idx)
		if err != nil {
			step.Error = err.Error()
		} else {
			step.State = state.String()
			step.Change = &change
		}
		step.Sections = m.NumberOfSections()
		step.Visible = m.VisibleCount()
		out.Steps = append(out.Steps, step)
	}
	out.Final = toRobotSections(m.Sections())
	return encodeJSON(w, out)
}

// robotLint prints the lint report and reports whether it found errors.
func robotLint(w io.Writer, nodes []model.Node, rootID string) (bool, error) {
	report := analysis.Lint(nodes, rootID)
	out := struct {
		Version string              `json:"version"`
		Summary string              `json:"summary"`
		Report  analysis.LintReport `json:"report"`
	}{version.Version, report.Summary(), report}
	return report.HasErrors(), encodeJSON(w, out)
}

func robotDiff(w io.Writer, nodes []model.Node, source string, otherPath string) error {
	other, otherSrc, err := datasource.Load(otherPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", otherPath, err)
	}
	diff := datasource.DetectInconsistencies(nodes, other, source, otherSrc.Path, datasource.DefaultDiffOptions())
	out := struct {
		Version string                `json:"version"`
		Summary string                `json:"summary"`
		Diff    datasource.SourceDiff `json:"diff"`
	}{version.Version, diff.ShortSummary(), diff}
	return encodeJSON(w, out)
}

// robotMetrics builds and flattens once, toggles every branch section twice,
// then prints the collected timings.
func robotMetrics(w io.Writer, nodes []model.Node, opts ...folder.Option) error {
	metrics.ResetAll()
	m := folder.New(nodes, opts...)
	for i := m.NumberOfSections() - 1; i >= 0; i-- {
		if _, _, err := m.Toggle(i); err != nil {
			continue
		}
		_, _, _ = m.Toggle(i)
	}
	out := struct {
		Version string                `json:"version"`
		Enabled bool                  `json:"enabled"`
		Items   int                   `json:"items"`
		Timings []metrics.TimingStats `json:"timings"`
	}{version.Version, metrics.Enabled(), m.ItemCount(), metrics.AllTimingStats()}
	return encodeJSON(w, out)
}

// describeTree renders the LCRS tree with node ids in the cells.
func describeTree(w io.Writer, m *folder.Model[model.Node], width int) error {
	tree := m.Tree()
	if tree.IsEmpty() {
		_, err := fmt.Fprintln(w, "(empty)")
		return err
	}
	ids := binarytree.Fold(tree, binarytree.Empty[string](),
		func(left binarytree.Tree[string], it folder.Item[model.Node], right binarytree.Tree[string]) binarytree.Tree[string] {
			return binarytree.New(left, it.ID(), right)
		})
	text, err := ids.Describe(width)
	if err != nil {
		return fmt.Errorf("%w; use --export-snapshot instead", err)
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
