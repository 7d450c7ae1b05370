// Package viewer is the DocViewer: one Session per open page, holding the
// loaded content, navigation state, mounted document and scroll tracking,
// all driven through a serial event loop.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docview/internal/clock"
	"github.com/dgallion1/docview/internal/content"
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/nav"
	"github.com/dgallion1/docview/internal/render"
	"github.com/dgallion1/docview/internal/scroll"
	"github.com/google/uuid"
)

// Phase is the load state of a session.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// ObserverMode selects how heading visibility is computed.
type ObserverMode string

const (
	ObserverNative  ObserverMode = "native"  // Browser IntersectionObserver batches relayed to us
	ObserverPolling ObserverMode = "polling" // Geometry computed here from reported offsets
)

var (
	ErrNotReady       = errors.New("content not loaded")
	ErrUnknownSection = errors.New("unknown section")
	ErrNoControl      = errors.New("no such copy control")
	ErrNoSubscribers  = errors.New("no page attached to session")
)

// Options configure a session.
type Options struct {
	Settle       time.Duration
	CopyFeedback time.Duration
	Mode         ObserverMode
	Band         float64
	Titles       map[doctree.ContentSource]string // Sidebar group headers
	Clock        clock.Clock
	Clipboard    render.Clipboard // Defaults to pushing clipboard events to the page
}

// Group is one content source's block in the sidebar.
type Group struct {
	Source   doctree.ContentSource `json:"source"`
	Title    string                `json:"title"`
	Sections []doctree.Section     `json:"sections"`
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID        string    `json:"session_id"`
	Phase     Phase     `json:"phase"`
	Error     string    `json:"error,omitempty"`
	Nav       nav.State `json:"navigation"`
	Groups    []Group   `json:"groups"`
	HTML      string    `json:"html,omitempty"` // Mounted content, copy controls included
	Headings  []string  `json:"headings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is the viewer state of one page.
type Session struct {
	ID        string
	CreatedAt time.Time

	loader *content.Loader
	loop   *Loop
	clock  clock.Clock
	opts   Options
	log    *slog.Logger

	ctrl    *nav.Controller
	tracker *scroll.Tracker
	relay   *scroll.RelayObserver
	band    *scroll.BandObserver
	aug     *render.Augmenter

	// Owned by the loop.
	result *content.Result
	doc    *render.Document

	mu        sync.Mutex
	phase     Phase
	errMsg    string
	updatedAt time.Time
	subs      map[int]func(Event)
	nextSub   int
}

// NewSession creates a session and starts its loop.
func NewSession(ctx context.Context, loader *content.Loader, opts Options, log *slog.Logger) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Mode == "" {
		opts.Mode = ObserverNative
	}

	id := uuid.NewString()
	now := opts.Clock.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		loader:    loader,
		clock:     opts.Clock,
		opts:      opts,
		log:       log.With("session_id", id),
		phase:     PhaseLoading,
		updatedAt: now,
		subs:      make(map[int]func(Event)),
	}
	s.loop = NewLoop(0, s.log)

	var observer scroll.Observer
	if opts.Mode == ObserverPolling {
		s.band = scroll.NewBandObserver(opts.Band)
		observer = s.band
	} else {
		s.relay = scroll.NewRelayObserver()
		observer = s.relay
	}

	guard := nav.NewScrollGuard(opts.Clock)
	s.ctrl = nav.NewController(s, s.loop, guard, opts.Settle, s.log)
	s.ctrl.OnChange(func(st nav.State) {
		s.emit(Event{Type: EventState, Phase: s.Phase(), State: &st})
	})
	s.tracker = scroll.NewTracker(observer, guard, s.ctrl.SetActive, s.log)

	cb := opts.Clipboard
	if cb == nil {
		cb = render.ClipboardFunc(s.pushClipboard)
	}
	s.aug = render.NewAugmenter(cb, opts.Clock, opts.CopyFeedback, s.log)
	s.aug.OnLabel(func(c *render.CopyControl) {
		ev := Event{Type: EventLabel, Control: &ControlLabel{Index: c.Index(), Label: c.Label()}}
		if err := s.loop.Post(func() { s.emit(ev) }); err != nil {
			s.log.Debug("label update dropped", "error", err)
		}
	})

	s.loop.Start(ctx)
	return s
}

// Load fetches both documents and establishes the initial state. Nothing
// is shown until both fetches have finished.
func (s *Session) Load(ctx context.Context) error {
	res, loadErr := s.loader.LoadAll(ctx)
	err := s.loop.Do(ctx, func() {
		if loadErr != nil {
			s.setPhase(PhaseFailed, content.UserMessage)
			s.emitState()
			return
		}
		s.result = res
		if len(res.Sections) > 0 {
			s.log.Debug("setting initial active section", "id", res.Sections[0].ID)
			s.ctrl.SetActive(res.Sections[0].ID)
		}
		s.setPhase(PhaseReady, "")
		s.ShowSource(s.ctrl.State().ActiveSource)
		s.emitState()
	})
	if err != nil {
		return err
	}
	return loadErr
}

// ShowSource mounts the HTML of src, attaches copy controls and points
// the tracker at the new headings. It runs on the loop.
func (s *Session) ShowSource(src doctree.ContentSource) {
	if s.result == nil {
		return
	}
	doc, err := render.Mount(s.result.Content.Get(src))
	if err != nil {
		s.log.Error("mount content failed", "source", src, "error", err)
		return
	}
	n := s.aug.Augment(doc)
	if s.doc != nil {
		s.doc.Release()
	}
	s.doc = doc

	inner, err := doc.InnerHTML()
	if err != nil {
		s.log.Error("serialize content failed", "source", src, "error", err)
		return
	}
	headings := doc.HeadingIDs()
	s.log.Debug("mounted content", "source", src, "headings", len(headings), "copy_controls", n)
	s.emit(Event{Type: EventMount, Source: src, HTML: inner, Headings: headings})

	s.tracker.Detach()
	if s.band != nil {
		s.band.SetLayout(nil, 0)
	}
	s.tracker.Attach(headings)
}

// ScrollTo asks the page to bring id into view. It runs on the loop.
func (s *Session) ScrollTo(id string) bool {
	if s.doc == nil || s.doc.ElementByID(id) == nil {
		return false
	}
	s.emit(Event{Type: EventScroll, Target: id})
	return true
}

// Select navigates to the section id of src.
func (s *Session) Select(ctx context.Context, src doctree.ContentSource, id string) error {
	var err error
	doErr := s.loop.Do(ctx, func() {
		if s.result == nil {
			err = ErrNotReady
			return
		}
		sec, ok := doctree.Find(s.result.Sections, src, id)
		if !ok {
			s.log.Warn("select of unknown section", "source", src, "id", id)
			err = fmt.Errorf("%w: %s/%s", ErrUnknownSection, src, id)
			return
		}
		s.ctrl.SelectSection(sec)
	})
	s.touch()
	if doErr != nil {
		return doErr
	}
	return err
}

// SetSidebar opens or closes the sidebar.
func (s *Session) SetSidebar(ctx context.Context, open bool) error {
	s.touch()
	return s.loop.Do(ctx, func() {
		if open {
			s.ctrl.OpenSidebar()
		} else {
			s.ctrl.CloseSidebar()
		}
	})
}

func (s *Session) ToggleSidebar(ctx context.Context) error {
	s.touch()
	return s.loop.Do(ctx, s.ctrl.ToggleSidebar)
}

// Visibility relays a batch from the page's IntersectionObserver.
func (s *Session) Visibility(entries []scroll.Entry) error {
	if s.relay == nil {
		s.log.Debug("ignoring visibility batch in polling mode")
		return nil
	}
	return s.loop.Post(func() { s.relay.Deliver(entries) })
}

// Layout records heading boxes and viewport height for polling mode.
func (s *Session) Layout(boxes []scroll.Box, viewport float64) error {
	if s.band == nil {
		return nil
	}
	return s.loop.Post(func() { s.band.SetLayout(boxes, viewport) })
}

// Scroll records the content area's scroll offset for polling mode.
func (s *Session) Scroll(top float64) error {
	if s.band == nil {
		return nil
	}
	return s.loop.Post(func() { s.band.ScrollTo(top) })
}

// Copy clicks the copy control at index.
func (s *Session) Copy(ctx context.Context, index int) error {
	var err error
	doErr := s.loop.Do(ctx, func() {
		if s.doc == nil {
			err = ErrNotReady
			return
		}
		c, ok := s.doc.Control(index)
		if !ok {
			err = fmt.Errorf("%w: %d", ErrNoControl, index)
			return
		}
		err = c.Click(ctx)
	})
	s.touch()
	if doErr != nil {
		return doErr
	}
	return err
}

// Sync waits for every task queued before it.
func (s *Session) Sync(ctx context.Context) error {
	return s.loop.Do(ctx, func() {})
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Navigation() nav.State { return s.ctrl.State() }

// Snapshot captures the session state. It goes through the loop so the
// mounted document is consistent with the navigation state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.loop.Do(ctx, func() {
		s.mu.Lock()
		snap = Snapshot{
			ID:        s.ID,
			Phase:     s.phase,
			Error:     s.errMsg,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.updatedAt,
		}
		s.mu.Unlock()

		snap.Nav = s.ctrl.State()
		snap.Groups = s.groups()
		snap.Headings = []string{}
		if s.doc != nil {
			if h, err := s.doc.InnerHTML(); err == nil {
				snap.HTML = h
			}
			snap.Headings = s.doc.HeadingIDs()
		}
	})
	return snap, err
}

// Sections returns the loaded sections in sidebar order.
func (s *Session) Sections(ctx context.Context) ([]doctree.Section, error) {
	var out []doctree.Section
	err := s.loop.Do(ctx, func() {
		if s.result != nil {
			out = append(out, s.result.Sections...)
		}
	})
	return out, err
}

// Subscribe registers fn for session events and returns a function that
// removes it. fn is called on the loop and must not block.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Connect subscribes fn and immediately replays the current state to it,
// so a page attaching late sees the same view as one attached from the
// start. Both happen on the loop, so no event can fall in between.
func (s *Session) Connect(ctx context.Context, fn func(Event)) (cancel func(), err error) {
	s.touch()
	err = s.loop.Do(ctx, func() {
		cancel = s.Subscribe(fn)

		s.mu.Lock()
		ev := Event{Type: EventState, Phase: s.phase, Error: s.errMsg}
		s.mu.Unlock()
		st := s.ctrl.State()
		ev.State = &st
		fn(ev)

		if s.doc == nil {
			return
		}
		inner, herr := s.doc.InnerHTML()
		if herr != nil {
			s.log.Error("serialize content failed", "error", herr)
			return
		}
		fn(Event{Type: EventMount, Source: st.ActiveSource, HTML: inner, Headings: s.doc.HeadingIDs()})
	})
	if err != nil {
		return nil, err
	}
	return cancel, nil
}

// UpdatedAt is the time of the last reader interaction.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Close stops the loop and releases observers and timers.
func (s *Session) Close() {
	s.loop.Stop()
	s.ctrl.Guard().Stop()
	s.tracker.Detach()
	if s.doc != nil {
		s.doc.Release()
	}
}

func (s *Session) groups() []Group {
	var groups []Group
	for _, src := range doctree.Sources {
		g := Group{Source: src, Title: s.opts.Titles[src], Sections: []doctree.Section{}}
		if s.result != nil {
			if t := s.result.Document(src).Title; t != "" {
				g.Title = t
			}
			g.Sections = append(g.Sections, doctree.Filter(s.result.Sections, src)...)
		}
		groups = append(groups, g)
	}
	return groups
}

func (s *Session) pushClipboard(_ context.Context, text string) error {
	s.mu.Lock()
	n := len(s.subs)
	s.mu.Unlock()
	if n == 0 {
		return ErrNoSubscribers
	}
	s.emit(Event{Type: EventClipboard, Text: text})
	return nil
}

func (s *Session) setPhase(p Phase, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
	s.errMsg = msg
	s.updatedAt = s.clock.Now()
}

func (s *Session) emitState() {
	s.mu.Lock()
	ev := Event{Type: EventState, Phase: s.phase, Error: s.errMsg}
	s.mu.Unlock()
	st := s.ctrl.State()
	ev.State = &st
	s.emit(ev)
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updatedAt = s.clock.Now()
}
