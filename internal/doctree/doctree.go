package doctree

import "fmt"

// ContentSource identifies one of the two documents the viewer shows.
type ContentSource string

const (
	Primary   ContentSource = "primary"   // Sandbox guidelines
	Reference ContentSource = "reference" // Official docs
)

// Sources lists content sources in sidebar order.
var Sources = []ContentSource{Primary, Reference}

// Valid reports whether s is a known content source.
func (s ContentSource) Valid() bool {
	return s == Primary || s == Reference
}

// Other returns the opposite source.
func (s ContentSource) Other() ContentSource {
	if s == Primary {
		return Reference
	}
	return Primary
}

// ParseSource converts a wire value into a ContentSource.
func ParseSource(v string) (ContentSource, error) {
	s := ContentSource(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown content source %q", v)
	}
	return s, nil
}

// Section is a navigable heading in the sidebar.
type Section struct {
	ID     string        `json:"id"`    // Slug of Title; matches the rendered heading's id
	Title  string        `json:"title"` // Raw heading text
	Level  int           `json:"level"` // 1 or 2
	Source ContentSource `json:"content_source"`
}

// ContentMap holds the rendered HTML of both sources.
type ContentMap struct {
	Primary   string `json:"primary"`
	Reference string `json:"reference"`
}

// Get returns the HTML for a source.
func (m ContentMap) Get(src ContentSource) string {
	if src == Reference {
		return m.Reference
	}
	return m.Primary
}

// With returns a copy of m with src replaced by html.
func (m ContentMap) With(src ContentSource, html string) ContentMap {
	if src == Reference {
		m.Reference = html
	} else {
		m.Primary = html
	}
	return m
}

// Document is one fetched and parsed content source.
type Document struct {
	Source ContentSource
	Path   string // Fetch path, e.g. "/Gemini.md"
	Raw    string // Markdown as fetched
	HTML   string // Rendered HTML
	Title  string // Front matter title, if any
}

// Filter returns the sections belonging to src, in document order.
func Filter(sections []Section, src ContentSource) []Section {
	var out []Section
	for _, s := range sections {
		if s.Source == src {
			out = append(out, s)
		}
	}
	return out
}

// Find looks up a section by source and id.
func Find(sections []Section, src ContentSource, id string) (Section, bool) {
	for _, s := range sections {
		if s.Source == src && s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}
