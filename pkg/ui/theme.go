package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/foldtree/pkg/model"
)

// TermProfile holds the detected terminal color profile, computed once so
// style helpers can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns hex on ANSI256+ terminals and plain white (color 7)
// below that.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme holds colors and pre-built styles. Styles are created once here
// rather than per rendered line.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor

	Folder lipgloss.AdaptiveColor
	File   lipgloss.AdaptiveColor
	Note   lipgloss.AdaptiveColor

	Base        lipgloss.Style
	Selected    lipgloss.Style
	Header      lipgloss.Style
	SectionHead lipgloss.Style
	MutedText   lipgloss.Style
	StatusOK    lipgloss.Style
	StatusError lipgloss.Style
	DetailBox   lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Danger:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Success:   lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},

		Folder: lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		File:   lipgloss.AdaptiveColor{Light: "#2684FF", Dark: "#4C9AFF"},
		Note:   lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(ThemeFg("#282A36")).
		Bold(true).
		Padding(0, 1)

	t.SectionHead = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.StatusOK = r.NewStyle().Foreground(t.Success)
	t.StatusError = r.NewStyle().Foreground(t.Danger).Bold(true)
	t.DetailBox = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	return t
}

// KindIcon returns the glyph and color for a node kind.
func (t Theme) KindIcon(k model.Kind) (string, lipgloss.AdaptiveColor) {
	switch k {
	case model.KindFolder:
		return "D", t.Folder
	case model.KindFile:
		return "F", t.File
	case model.KindNote:
		return "N", t.Note
	default:
		return "·", t.Subtext
	}
}

// TestTheme returns a theme for tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
