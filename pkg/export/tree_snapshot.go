package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/foldtree/pkg/binarytree"
	"github.com/vanderheijden86/foldtree/pkg/folder"
	"github.com/vanderheijden86/foldtree/pkg/model"
)

// Tree is the hierarchy tree a snapshot draws.
type Tree = binarytree.Tree[folder.Item[model.Node]]

// SnapshotOptions controls tree snapshot export.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive)
	Title  string // Optional title rendered in the header
}

// SaveTreeSnapshot draws the left-child/right-sibling tree as SVG or PNG.
// Left edges (first child) are solid, right edges (next sibling) dashed.
func SaveTreeSnapshot(tree Tree, opts SnapshotOptions) error {
	if tree.IsEmpty() {
		return fmt.Errorf("no nodes to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildTreeLayout(tree, opts.Title)
	if format == "png" {
		return renderTreePNG(opts.Path, layout)
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	return renderTreeSVG(f, layout)
}

// --- layout computation ----------------------------------------------------

type treeBox struct {
	Label  string
	ID     string
	Kind   boxKind
	X, Y   float64
	Parent int
	IsLeft bool
}

type boxKind uint8

const (
	boxLeaf boxKind = iota
	boxExpanded
	boxCollapsed
)

type treeLayout struct {
	Boxes         []treeBox
	Width, Height int
	Title         string
	Nodes, Levels int
}

const (
	boxW     = 150.0
	boxH     = 40.0
	colGap   = 24.0
	rowGap   = 36.0
	padding  = 32.0
	headerH  = 72.0
	minWidth = 480
)

func buildTreeLayout(tree Tree, title string) treeLayout {
	placements := tree.Layout()

	// Grid columns double per level, so deep trees would overflow any
	// canvas. Columns come from the in-order position instead, which keeps
	// every left subtree left of its parent.
	column := inOrderColumns(placements)
	boxes := make([]treeBox, len(placements))
	levels := 0
	for i, p := range placements {
		boxes[i] = treeBox{
			Label:  truncate(p.Value.Element.Label(), 20),
			ID:     p.Value.ID(),
			Kind:   boxLeaf,
			X:      padding + float64(column[i])*(boxW+colGap),
			Y:      padding + headerH + float64(p.Y-1)*(boxH+rowGap),
			Parent: p.Parent,
			IsLeft: p.IsLeft,
		}
		levels = max(levels, p.Y)
	}
	// A node with a left child is a branch.
	for _, b := range boxes {
		if b.Parent >= 0 && b.IsLeft {
			parent := &boxes[b.Parent]
			parent.Kind = boxExpanded
			if placements[b.Parent].Value.State == folder.Collapsed {
				parent.Kind = boxCollapsed
			}
		}
	}

	if strings.TrimSpace(title) == "" {
		title = "Hierarchy Snapshot"
	}
	width := int(padding*2 + float64(len(placements))*(boxW+colGap))
	height := int(padding*2 + headerH + float64(levels)*(boxH+rowGap))
	return treeLayout{
		Boxes:  boxes,
		Width:  max(width, minWidth),
		Height: height,
		Title:  title,
		Nodes:  len(boxes),
		Levels: levels,
	}
}

func inOrderColumns[T any](placements []binarytree.Placement[T]) []int {
	left := make([]int, len(placements))
	right := make([]int, len(placements))
	for i := range placements {
		left[i], right[i] = -1, -1
	}
	for i, p := range placements {
		if p.Parent < 0 {
			continue
		}
		if p.IsLeft {
			left[p.Parent] = i
		} else {
			right[p.Parent] = i
		}
	}

	column := make([]int, len(placements))
	if len(placements) == 0 {
		return column
	}
	next := 0
	// Explicit stack: sibling chains make the binary tree as deep as it is long.
	var stack []int
	for cur := 0; cur >= 0 || len(stack) > 0; {
		for ; cur >= 0; cur = left[cur] {
			stack = append(stack, cur)
		}
		cur = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		column[cur] = next
		next++
		cur = right[cur]
	}
	return column
}

// --- rendering -------------------------------------------------------------

var (
	colorLeaf      = color.RGBA{0xe3, 0xf2, 0xfd, 0xff}
	colorExpanded  = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorCollapsed = color.RGBA{0xff, 0xe0, 0xb2, 0xff}
	colorStroke    = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorChild     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorSibling   = color.RGBA{0xb0, 0xb0, 0xb0, 0xff}
	colorText      = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle    = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop  = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG  = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func (k boxKind) fill() color.RGBA {
	switch k {
	case boxExpanded:
		return colorExpanded
	case boxCollapsed:
		return colorCollapsed
	default:
		return colorLeaf
	}
}

func edgeEnds(from, to treeBox) (x1, y1, x2, y2 float64) {
	return from.X + boxW/2, from.Y + boxH, to.X + boxW/2, to.Y
}

func renderTreePNG(path string, l treeLayout) error {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(l.Width)-32, headerH-16, 10)
	dc.Fill()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorText)
	dc.DrawStringAnchored(l.Title, 32, 36, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("nodes: %d  levels: %d  solid: first child  dashed: next sibling", l.Nodes, l.Levels), 32, 56, 0, 0.5)

	dc.SetLineWidth(2)
	for _, b := range l.Boxes {
		if b.Parent < 0 {
			continue
		}
		x1, y1, x2, y2 := edgeEnds(l.Boxes[b.Parent], b)
		if b.IsLeft {
			dc.SetColor(colorChild)
			dc.SetDash()
		} else {
			dc.SetColor(colorSibling)
			dc.SetDash(6, 4)
		}
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}
	dc.SetDash()

	for _, b := range l.Boxes {
		dc.SetColor(b.Kind.fill())
		dc.DrawRoundedRectangle(b.X, b.Y, boxW, boxH, 8)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
		dc.DrawRoundedRectangle(b.X, b.Y, boxW, boxH, 8)
		dc.Stroke()
		dc.SetColor(colorText)
		dc.DrawStringAnchored(b.Label, b.X+10, b.Y+14, 0, 0.5)
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(truncate(b.ID, 20), b.X+10, b.Y+30, 0, 0.5)
	}
	return dc.SavePNG(path)
}

func renderTreeSVG(w io.Writer, l treeLayout) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, l.Width-32, int(headerH-16), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(32, 40, l.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(32, 60, fmt.Sprintf("nodes: %d  levels: %d", l.Nodes, l.Levels), fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))

	for _, b := range l.Boxes {
		if b.Parent < 0 {
			continue
		}
		x1, y1, x2, y2 := edgeEnds(l.Boxes[b.Parent], b)
		style := fmt.Sprintf("stroke:%s;stroke-width:2", css(colorChild))
		if !b.IsLeft {
			style = fmt.Sprintf("stroke:%s;stroke-width:2;stroke-dasharray:6,4", css(colorSibling))
		}
		canvas.Line(int(x1), int(y1), int(x2), int(y2), style)
	}

	for _, b := range l.Boxes {
		x, y := int(b.X), int(b.Y)
		canvas.Roundrect(x, y, int(boxW), int(boxH), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1.2", css(b.Kind.fill()), css(colorStroke)))
		canvas.Text(x+10, y+17, b.Label, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace;font-weight:bold", css(colorText)))
		canvas.Text(x+10, y+33, truncate(b.ID, 20), fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle)))
	}

	canvas.End()
	return nil
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
