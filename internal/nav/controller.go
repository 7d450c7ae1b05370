// Package nav holds the navigation model: which section and content source
// are active, whether the sidebar is open, and how a sidebar click turns
// into a source switch and a scroll.
package nav

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docview/internal/doctree"
)

// State is the navigation state of one viewer.
type State struct {
	ActiveSection string                `json:"active_section"` // Empty when nothing is active
	ActiveSource  doctree.ContentSource `json:"active_content_source"`
	SidebarOpen   bool                  `json:"sidebar_open"`
}

// View is the rendered side of the viewer.
type View interface {
	// ShowSource mounts the HTML of src in the content area.
	ShowSource(src doctree.ContentSource)
	// ScrollTo smooth-scrolls the element with id to the top of the
	// content area. It reports false when no such element is mounted.
	ScrollTo(id string) bool
}

// Scheduler runs fn after the view has had a chance to process what is
// already queued.
type Scheduler interface {
	Defer(fn func())
}

// Controller owns the navigation state and the scroll guard.
type Controller struct {
	view     View
	sched    Scheduler
	guard    *ScrollGuard
	settle   time.Duration
	log      *slog.Logger
	mu       sync.Mutex
	state    State
	onChange func(State)
}

func NewController(view View, sched Scheduler, guard *ScrollGuard, settle time.Duration, log *slog.Logger) *Controller {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Controller{
		view:   view,
		sched:  sched,
		guard:  guard,
		settle: settle,
		log:    log,
		state:  State{ActiveSource: doctree.Primary},
	}
}

// OnChange registers fn to receive every state change. It is called
// without the controller lock held.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Guard() *ScrollGuard { return c.guard }

// SelectSection navigates to s. When s lives in the other content source
// the source is switched first and the scroll is deferred until the view
// has mounted it, so the lookup runs against the new content.
func (c *Controller) SelectSection(s doctree.Section) {
	c.mu.Lock()
	switching := s.Source != c.state.ActiveSource
	if switching {
		c.state.ActiveSource = s.Source
	}
	c.mu.Unlock()

	if !switching {
		c.navigate(s.ID)
		return
	}

	c.log.Debug("switching content source", "source", s.Source, "section", s.ID)
	c.notify()
	c.view.ShowSource(s.Source)
	c.sched.Defer(func() { c.navigate(s.ID) })
}

func (c *Controller) navigate(id string) {
	c.guard.Set()

	c.mu.Lock()
	c.state.ActiveSection = id
	c.mu.Unlock()
	c.notify()

	if !c.view.ScrollTo(id) {
		c.log.Warn("could not find target element", "id", id)
	}
	c.guard.ResetTimer(c.settle)

	c.CloseSidebar()
}

// SetActive records id as the active section. The scroll tracker calls it
// for headings entering the active band.
func (c *Controller) SetActive(id string) {
	c.mu.Lock()
	if c.state.ActiveSection == id {
		c.mu.Unlock()
		return
	}
	c.state.ActiveSection = id
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) OpenSidebar()   { c.setSidebar(true) }
func (c *Controller) CloseSidebar()  { c.setSidebar(false) }
func (c *Controller) ToggleSidebar() { c.setSidebar(!c.State().SidebarOpen) }

func (c *Controller) setSidebar(open bool) {
	c.mu.Lock()
	if c.state.SidebarOpen == open {
		c.mu.Unlock()
		return
	}
	c.state.SidebarOpen = open
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	st := c.state
	c.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}
