// Package render mounts rendered markdown into a DOM tree and augments its
// code blocks with copy-to-clipboard controls.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/dgallion1/docview/internal/clock"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContainerClass is the class of the element that holds mounted content.
const ContainerClass = "markdown-body"

// Document is the mounted content area. The HTML is injected verbatim; it
// comes from our own documents and is not sanitized.
type Document struct {
	mu       sync.Mutex
	root     *html.Node
	controls []*CopyControl

	// Pending label reverts; stopped on Release.
	reverts  []clock.Timer
	released bool
}

// Mount parses fragment into a fresh content container.
func Mount(fragment string) (*Document, error) {
	root := &html.Node{
		Type:     html.ElementNode,
		Data:     "article",
		DataAtom: atom.Article,
		Attr:     []html.Attribute{{Key: "class", Val: ContainerClass}},
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root}, nil
}

// Release stops the document's pending label reverts and silences its
// controls. Call it when the document is replaced by another mount.
func (d *Document) Release() {
	d.mu.Lock()
	timers := d.reverts
	d.reverts = nil
	d.released = true
	d.mu.Unlock()
	for _, t := range timers {
		t.Stop()
	}
}

func (d *Document) trackRevert(t clock.Timer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		t.Stop()
		return
	}
	d.reverts = append(d.reverts, t)
}

// ElementByID returns the first element whose id attribute equals id.
func (d *Document) ElementByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// HeadingIDs returns the ids of h1 and h2 elements in document order.
// Headings without an id are skipped.
func (d *Document) HeadingIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []string
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && (n.DataAtom == atom.H1 || n.DataAtom == atom.H2) {
			if id := attr(n, "id"); id != "" {
				ids = append(ids, id)
			}
			return false
		}
		return true
	})
	return ids
}

// CodeBlocks returns every pre element in document order.
func (d *Document) CodeBlocks() []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return codeBlocks(d.root)
}

// Controls returns the copy controls attached so far, in document order.
func (d *Document) Controls() []*CopyControl {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*CopyControl, len(d.controls))
	copy(out, d.controls)
	return out
}

// Control returns the i-th copy control.
func (d *Document) Control(i int) (*CopyControl, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.controls) {
		return nil, false
	}
	return d.controls[i], true
}

// HTML serializes the container including its children.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// InnerHTML serializes only the children of the container.
func (d *Document) InnerHTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}

func codeBlocks(root *html.Node) []*html.Node {
	var pres []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Pre {
			pres = append(pres, n)
			return false
		}
		return true
	})
	return pres
}

// walk visits n and its descendants depth first. Returning false from fn
// skips the children of the visited node.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if c.Type == html.ElementNode && c.DataAtom == a {
			found = c
			return false
		}
		return true
	})
	return found
}

// textContent returns the concatenated text of n without trimming, so code
// keeps its whitespace.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}
