package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/slug"
)

// MaxNavLevel is the deepest heading promoted to a sidebar entry.
const MaxNavLevel = 2

// headingLine matches an ATX heading line in raw markdown. The title stops at
// the first line break, including a bare carriage return.
var headingLine = regexp.MustCompile(`(?m)^(#+)\s+([^\r\n]*)`)

// ExtractSections scans raw markdown (not rendered HTML) for heading lines
// and returns the level 1 and 2 headings as sections of src, in source order.
// Deeper headings are still rendered but never become navigation entries.
func ExtractSections(raw string, src doctree.ContentSource) []doctree.Section {
	var sections []doctree.Section
	for _, m := range headingLine.FindAllStringSubmatch(raw, -1) {
		level := len(m[1])
		if level > MaxNavLevel {
			continue
		}
		title := m[2]
		sections = append(sections, doctree.Section{
			ID:     slug.Slugify(title),
			Title:  title,
			Level:  level,
			Source: src,
		})
	}
	return sections
}

// IsMarkdown reports whether a path names a markdown document.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
