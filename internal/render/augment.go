package render

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dgallion1/docview/internal/clock"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	CopyLabel       = "Copy"
	CopiedLabel     = "Copied!"
	CopyButtonClass = "copy-button"

	// DefaultFeedback is how long CopiedLabel stays up after a copy.
	DefaultFeedback = 2 * time.Second
)

// Augmenter attaches a copy control to every code block of a Document.
type Augmenter struct {
	clipboard Clipboard
	clock     clock.Clock
	feedback  time.Duration
	log       *slog.Logger

	mu      sync.Mutex
	onLabel func(*CopyControl)
}

func NewAugmenter(cb Clipboard, clk clock.Clock, feedback time.Duration, log *slog.Logger) *Augmenter {
	if feedback <= 0 {
		feedback = DefaultFeedback
	}
	return &Augmenter{
		clipboard: cb,
		clock:     clk,
		feedback:  feedback,
		log:       log,
	}
}

// OnLabel registers fn to be called whenever a control's label changes.
// fn may run on a timer goroutine.
func (a *Augmenter) OnLabel(fn func(*CopyControl)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onLabel = fn
}

// Augment adds a control to each pre element that does not already contain
// one and returns how many were added. Calling it again on the same
// Document adds nothing.
func (a *Augmenter) Augment(doc *Document) int {
	doc.mu.Lock()
	defer doc.mu.Unlock()

	added := 0
	for _, pre := range codeBlocks(doc.root) {
		if hasCopyButton(pre) {
			continue
		}

		var text string
		if code := findElement(pre, atom.Code); code != nil {
			text = textContent(code)
		}

		index := len(doc.controls)
		label := &html.Node{Type: html.TextNode, Data: CopyLabel}
		button := &html.Node{
			Type:     html.ElementNode,
			Data:     "button",
			DataAtom: atom.Button,
			Attr: []html.Attribute{
				{Key: "class", Val: CopyButtonClass},
				{Key: "type", Val: "button"},
				{Key: "aria-label", Val: "Copy code to clipboard"},
				{Key: "data-copy-index", Val: strconv.Itoa(index)},
			},
		}
		button.AppendChild(label)
		pre.AppendChild(button)

		doc.controls = append(doc.controls, &CopyControl{
			doc:   doc,
			aug:   a,
			index: index,
			text:  text,
			label: label,
		})
		added++
	}
	return added
}

func hasCopyButton(pre *html.Node) bool {
	found := false
	walk(pre, func(n *html.Node) bool {
		if found {
			return false
		}
		if n.Type == html.ElementNode && hasClass(n, CopyButtonClass) {
			found = true
			return false
		}
		return true
	})
	return found
}

// CopyControl is the button attached to one code block.
type CopyControl struct {
	doc   *Document
	aug   *Augmenter
	index int
	text  string // Code text captured when the control was attached
	label *html.Node
}

// Index is the control's position among the document's controls.
func (c *CopyControl) Index() int { return c.index }

// Text is what a click writes to the clipboard.
func (c *CopyControl) Text() string { return c.text }

func (c *CopyControl) Label() string {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()
	return c.label.Data
}

// Click copies the code text. On success the label switches to CopiedLabel
// and reverts to CopyLabel after the feedback delay. On failure the label
// is left alone.
func (c *CopyControl) Click(ctx context.Context) error {
	if err := c.aug.clipboard.WriteText(ctx, c.text); err != nil {
		c.aug.log.Warn("copy to clipboard failed", "index", c.index, "error", err)
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	c.setLabel(CopiedLabel)
	c.doc.trackRevert(c.aug.clock.AfterFunc(c.aug.feedback, func() {
		c.setLabel(CopyLabel)
	}))
	return nil
}

func (c *CopyControl) setLabel(l string) {
	c.doc.mu.Lock()
	if c.doc.released {
		c.doc.mu.Unlock()
		return
	}
	c.label.Data = l
	c.doc.mu.Unlock()

	c.aug.mu.Lock()
	fn := c.aug.onLabel
	c.aug.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}
