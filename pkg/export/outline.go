package export

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/vanderheijden86/foldtree/pkg/folder"
	"github.com/vanderheijden86/foldtree/pkg/model"
)

// Package-level compiled regex for slug creation (avoids recompilation per call)
var slugNonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateOutline renders flattened sections as a Markdown document: a
// summary table, a table of contents, and one heading per section with its
// rows as a bullet list.
func GenerateOutline(sections []folder.Section[model.Node], title string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("*Generated: %s*\n\n", time.Now().Format(time.RFC1123)))

	rows, collapsed := 0, 0
	for _, s := range sections {
		rows += len(s.Rows)
		if !s.Implicit && s.Item.State == folder.Collapsed {
			collapsed++
		}
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Count |\n|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| **Sections** | %d |\n", len(sections)))
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", rows))
	sb.WriteString(fmt.Sprintf("| Collapsed | %d |\n\n", collapsed))

	slugCounts := make(map[string]int, len(sections))
	slugs := make([]string, len(sections))
	for idx, s := range sections {
		slugs[idx] = uniqueSlug(createSlug(sectionHeadingText(s)), slugCounts)
	}

	sb.WriteString("## Table of Contents\n\n")
	for idx, s := range sections {
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", sectionHeadingText(s), slugs[idx]))
	}
	sb.WriteString("\n---\n\n")

	for idx, s := range sections {
		sb.WriteString(fmt.Sprintf("<a id=\"%s\"></a>\n\n", slugs[idx]))
		sb.WriteString(fmt.Sprintf("## %s\n\n", sectionHeadingText(s)))

		if !s.Implicit && s.Item.Element.Notes != "" {
			sb.WriteString("> " + strings.ReplaceAll(s.Item.Element.Notes, "\n", "\n> ") + "\n\n")
		}
		if len(s.Rows) == 0 {
			sb.WriteString("*No visible rows.*\n\n")
			continue
		}
		for _, row := range s.Rows {
			indent := strings.Repeat("  ", max(row.Depth-s.Item.Depth-1, 0))
			sb.WriteString(fmt.Sprintf("%s- %s %s `%s`\n", indent, getKindEmoji(row.Element.Kind), escapeInline(row.Element.Label()), row.ID()))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func sectionHeadingText(s folder.Section[model.Node]) string {
	if s.Implicit {
		return "(top level)"
	}
	marker := "▾"
	if s.Item.State == folder.Collapsed {
		marker = "▸"
	}
	return fmt.Sprintf("%s %s %s", marker, getKindEmoji(s.Item.Element.Kind), s.Item.Element.Label())
}

func uniqueSlug(base string, counts map[string]int) string {
	if base == "" {
		base = "section"
	}
	if count, ok := counts[base]; ok {
		count++
		counts[base] = count
		return fmt.Sprintf("%s-%d", base, count)
	}
	counts[base] = 0
	return base
}

// createSlug creates a URL-friendly slug from heading text.
func createSlug(text string) string {
	slug := strings.ToLower(text)
	slug = slugNonAlphanumericRegex.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func escapeInline(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "`", "'")
}

func getKindEmoji(kind model.Kind) string {
	switch kind {
	case model.KindFolder:
		return "📁"
	case model.KindFile:
		return "📄"
	case model.KindNote:
		return "📝"
	default:
		return "•"
	}
}

// SaveOutlineToFile writes the model's current sections as Markdown.
func SaveOutlineToFile(m *folder.Model[model.Node], title, filename string) error {
	if title == "" {
		title = "Hierarchy Outline"
	}
	return os.WriteFile(filename, []byte(GenerateOutline(m.Sections(), title)), 0644)
}
