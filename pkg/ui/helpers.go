package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// truncate cuts s to maxWidth terminal cells, ending with "…" when cut.
// Width is measured in cells so CJK and emoji titles line up.
func truncate(s string, maxWidth int) string {
	const suffix = "…"
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= runewidth.StringWidth(suffix) {
		return runewidth.Truncate(suffix, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth-runewidth.StringWidth(suffix), "") + suffix
}

// padRight pads s with spaces to width cells.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
