package parser

import (
	"strings"
	"testing"
)

func TestConverter_HeadingIDs(t *testing.T) {
	input := `# Title One

Intro text.

## Sub Two

### Deep Heading, Still Rendered
`
	c := NewConverter(Options{})
	out, err := c.Convert([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		`<h1 id="title-one">Title One</h1>`,
		`<h2 id="sub-two">Sub Two</h2>`,
		`<h3 id="deep-heading-still-rendered">Deep Heading, Still Rendered</h3>`,
	} {
		if !strings.Contains(out.HTML, want) {
			t.Errorf("expected output to contain %q, got %q", want, out.HTML)
		}
	}
}

func TestConverter_HeadingIDUsesRawText(t *testing.T) {
	// The id comes from the raw markdown, so inline markup does not leak into it.
	c := NewConverter(Options{})
	out, err := c.Convert([]byte("## Using `fetch()` **safely**\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.HTML, `<h2 id="using-fetch-safely">`) {
		t.Errorf("expected slug of raw heading text, got %q", out.HTML)
	}
	if !strings.Contains(out.HTML, "<code>fetch()</code>") {
		t.Errorf("expected inline code to be rendered, got %q", out.HTML)
	}
}

func TestConverter_Links(t *testing.T) {
	input := "See [the docs](https://ai.google.dev/docs), [plain http](http://example.com) and [below](#setup) or [local](guide.md).\n"
	c := NewConverter(Options{})
	out, err := c.Convert([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	external := []string{
		`<a href="https://ai.google.dev/docs" target="_blank" rel="noopener noreferrer">the docs</a>`,
		`<a href="http://example.com" target="_blank" rel="noopener noreferrer">plain http</a>`,
	}
	for _, want := range external {
		if !strings.Contains(out.HTML, want) {
			t.Errorf("expected %q in output, got %q", want, out.HTML)
		}
	}

	internal := []string{
		`<a href="#setup">below</a>`,
		`<a href="guide.md">local</a>`,
	}
	for _, want := range internal {
		if !strings.Contains(out.HTML, want) {
			t.Errorf("expected internal link %q unchanged, got %q", want, out.HTML)
		}
	}
}

func TestConverter_LinkTitleKept(t *testing.T) {
	c := NewConverter(Options{})
	out, err := c.Convert([]byte(`[api](https://example.com/api "API Reference")` + "\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<a href="https://example.com/api" title="API Reference" target="_blank" rel="noopener noreferrer">api</a>`
	if !strings.Contains(out.HTML, want) {
		t.Errorf("expected %q, got %q", want, out.HTML)
	}
}

func TestConverter_AutoLink(t *testing.T) {
	c := NewConverter(Options{})
	out, err := c.Convert([]byte("Visit <https://example.com> today.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.HTML, `target="_blank"`) || !strings.Contains(out.HTML, `rel="noopener noreferrer"`) {
		t.Errorf("expected autolink to open externally, got %q", out.HTML)
	}
}

func TestConverter_TrustedHTMLPassthrough(t *testing.T) {
	c := NewConverter(Options{})
	out, err := c.Convert([]byte("<div class=\"note\">Raw <b>HTML</b></div>\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.HTML, `<div class="note">Raw <b>HTML</b></div>`) {
		t.Errorf("expected raw HTML to pass through, got %q", out.HTML)
	}
}

func TestConverter_CodeBlock(t *testing.T) {
	input := "# API\n\n```\nGET /api/users\n```\n"
	c := NewConverter(Options{})
	out, err := c.Convert([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.HTML, "<pre><code>GET /api/users\n</code></pre>") {
		t.Errorf("expected plain code block, got %q", out.HTML)
	}
}

func TestConverter_Highlighting(t *testing.T) {
	input := "```go\npackage main\n```\n"
	c := NewConverter(Options{Highlight: true, HighlightStyle: "github"})
	out, err := c.Convert([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.HTML, "<pre") || !strings.Contains(out.HTML, "style=") {
		t.Errorf("expected highlighted code block, got %q", out.HTML)
	}
	if !strings.Contains(out.HTML, "package") {
		t.Errorf("expected code text to survive highlighting, got %q", out.HTML)
	}
}

func TestConverter_FrontMatterTitle(t *testing.T) {
	input := "---\ntitle: Sandbox Guidelines\n---\n# Intro\n"
	c := NewConverter(Options{})
	out, err := c.Convert([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Title != "Sandbox Guidelines" {
		t.Errorf("expected title %q, got %q", "Sandbox Guidelines", out.Title)
	}
	if strings.Contains(out.HTML, "title:") {
		t.Errorf("expected front matter to be stripped, got %q", out.HTML)
	}
}

func TestConverter_EmptyInput(t *testing.T) {
	c := NewConverter(Options{})
	out, err := c.Convert(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.HTML != "" || out.Title != "" {
		t.Errorf("expected empty output, got %+v", out)
	}
}
