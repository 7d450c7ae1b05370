// Package slug derives URL-safe identifiers from heading text.
package slug

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)
	nonWord       = regexp.MustCompile(`[^\w\-]+`)
	hyphenRun     = regexp.MustCompile(`\-\-+`)
)

// Slugify lowercases and trims text, turns whitespace runs (Unicode space
// separators, line separators and BOM included) into single hyphens, drops everything outside [A-Za-z0-9_-] and collapses repeated
// hyphens. The result is the id shared by a Section and its rendered heading.
func Slugify(text string) string {
	s := strings.TrimFunc(strings.ToLower(text), isSpace)
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = nonWord.ReplaceAllString(s, "")
	return hyphenRun.ReplaceAllString(s, "-")
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || unicode.Is(unicode.Zs, r) ||
		r == '\u2028' || r == '\u2029' || r == '\ufeff'
}

// SlugifyPtr is Slugify for optional text; nil yields "".
func SlugifyPtr(text *string) string {
	if text == nil {
		return ""
	}
	return Slugify(*text)
}
