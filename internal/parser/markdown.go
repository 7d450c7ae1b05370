package parser

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/dgallion1/docview/internal/slug"
)

// Options controls markdown rendering.
type Options struct {
	Highlight      bool   // Syntax-highlight fenced code blocks
	HighlightStyle string // Chroma style name, e.g. "github"
}

// Rendered is the output of a single conversion.
type Rendered struct {
	HTML  string
	Title string // From front matter "title", empty if absent
}

// Converter renders markdown to HTML using goldmark. Headings get an id equal
// to the slug of their raw text and absolute http(s) links open in a new
// browsing context. Raw HTML in the source is passed through untouched: the
// documents are trusted.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter builds a Converter.
func NewConverter(opts Options) *Converter {
	exts := []goldmark.Extender{extension.GFM, meta.Meta}
	if opts.Highlight {
		style := opts.HighlightStyle
		if style == "" {
			style = "github"
		}
		exts = append(exts, highlighting.NewHighlighting(highlighting.WithStyle(style)))
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(
				util.Prioritized(headingIDs{}, 100),
				util.Prioritized(externalLinks{}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
		),
	)
	return &Converter{md: md}
}

// Convert renders src.
func (c *Converter) Convert(src []byte) (Rendered, error) {
	ctx := parser.NewContext()
	var buf bytes.Buffer
	if err := c.md.Convert(src, &buf, parser.WithContext(ctx)); err != nil {
		return Rendered{}, fmt.Errorf("convert markdown: %w", err)
	}

	out := Rendered{HTML: buf.String()}
	if title, ok := meta.Get(ctx)["title"].(string); ok {
		out.Title = title
	}
	return out, nil
}

// headingIDs sets id="<slug>" on every heading.
type headingIDs struct{}

func (headingIDs) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	src := reader.Source()
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			h.SetAttributeString("id", []byte(slug.Slugify(headingText(h, src))))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

// headingText returns the heading's raw source text, before inline parsing.
func headingText(h *ast.Heading, src []byte) string {
	var buf bytes.Buffer
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		if i > 0 {
			buf.WriteByte(' ')
		}
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

// externalLinks marks links whose destination starts with "http".
type externalLinks struct{}

var (
	externalTarget = []byte("_blank")
	externalRel    = []byte("noopener noreferrer")
)

func (externalLinks) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	src := reader.Source()
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch link := n.(type) {
		case *ast.Link:
			if isExternal(link.Destination) {
				markExternal(link)
			}
		case *ast.AutoLink:
			if link.AutoLinkType == ast.AutoLinkURL && isExternal(link.URL(src)) {
				markExternal(link)
			}
		}
		return ast.WalkContinue, nil
	})
}

func isExternal(dest []byte) bool {
	return bytes.HasPrefix(dest, []byte("http"))
}

func markExternal(n ast.Node) {
	n.SetAttributeString("target", externalTarget)
	n.SetAttributeString("rel", externalRel)
}
