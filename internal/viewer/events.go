package viewer

import (
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/nav"
)

// EventType names a message pushed to the page.
type EventType string

const (
	EventState     EventType = "state"     // Phase or navigation state changed
	EventMount     EventType = "mount"     // New content mounted in the content area
	EventScroll    EventType = "scroll"    // Smooth-scroll the target to the top
	EventClipboard EventType = "clipboard" // Write Text to the clipboard
	EventLabel     EventType = "label"     // Copy control label changed
	EventError     EventType = "error"     // A page request was rejected
)

// Event is pushed to every subscriber of a session.
type Event struct {
	Type EventType `json:"type"`

	Phase Phase      `json:"phase,omitempty"`
	Error string     `json:"error,omitempty"`
	State *nav.State `json:"state,omitempty"`

	Source   doctree.ContentSource `json:"source,omitempty"`
	HTML     string                `json:"html,omitempty"`
	Headings []string              `json:"headings,omitempty"` // Ids the page should observe

	Target string `json:"target,omitempty"`

	Text    string        `json:"text,omitempty"`
	Control *ControlLabel `json:"control,omitempty"`
}

// ControlLabel identifies a copy control and its current label.
type ControlLabel struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}
