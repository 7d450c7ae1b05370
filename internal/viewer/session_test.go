package viewer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/docview/internal/clock"
	"github.com/dgallion1/docview/internal/content"
	"github.com/dgallion1/docview/internal/docsource"
	"github.com/dgallion1/docview/internal/doctree"
	"github.com/dgallion1/docview/internal/parser"
	"github.com/dgallion1/docview/internal/scroll"
)

const (
	primaryDoc = "# Sandbox\n\nIntro.\n\n## Rules\n\n```\nGET /api/users\n```\n"
	refDoc     = "---\ntitle: Gemini API\n---\n# Overview\n\n## Models\n"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	body, ok := m[path]
	if !ok {
		return nil, &docsource.FetchError{Path: path, Status: 404}
	}
	return []byte(body), nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newTestSession(t *testing.T, docs mapFetcher, mode ObserverMode) (*Session, *clock.Fake, *recorder) {
	t.Helper()
	clk := clock.NewFake()
	loader := content.NewLoader(docs, parser.NewConverter(parser.Options{}),
		content.Paths{Primary: "/Gemini.md", Reference: "/OfficialDocs.md"}, discardLogger())
	s := NewSession(context.Background(), loader, Options{
		Settle:       time.Second,
		CopyFeedback: 2 * time.Second,
		Mode:         mode,
		Band:         scroll.DefaultBand,
		Titles: map[doctree.ContentSource]string{
			doctree.Primary:   "Sandbox Guidelines",
			doctree.Reference: "Official Gemini Docs",
		},
		Clock: clk,
	}, discardLogger())
	t.Cleanup(s.Close)

	rec := &recorder{}
	s.Subscribe(rec.add)
	return s, clk, rec
}

func bothDocs() mapFetcher {
	return mapFetcher{"/Gemini.md": primaryDoc, "/OfficialDocs.md": refDoc}
}

func TestSession_Load(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestSession(t, bothDocs(), ObserverNative)

	if s.Phase() != PhaseLoading {
		t.Fatalf("expected loading phase, got %s", s.Phase())
	}
	if err := s.Load(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Phase != PhaseReady {
		t.Errorf("expected ready, got %s", snap.Phase)
	}
	if snap.Nav.ActiveSection != "sandbox" {
		t.Errorf("expected first section active, got %q", snap.Nav.ActiveSection)
	}
	if snap.Nav.ActiveSource != doctree.Primary {
		t.Errorf("expected primary source, got %s", snap.Nav.ActiveSource)
	}
	if len(snap.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(snap.Groups))
	}
	if snap.Groups[0].Title != "Sandbox Guidelines" {
		t.Errorf("expected configured title, got %q", snap.Groups[0].Title)
	}
	if snap.Groups[1].Title != "Gemini API" {
		t.Errorf("expected front matter title, got %q", snap.Groups[1].Title)
	}
	if len(snap.Groups[0].Sections) != 2 || len(snap.Groups[1].Sections) != 2 {
		t.Errorf("expected 2 sections per group, got %+v", snap.Groups)
	}
	if !strings.Contains(snap.HTML, `class="copy-button"`) {
		t.Errorf("expected augmented html, got %q", snap.HTML)
	}

	mounts := rec.ofType(EventMount)
	if len(mounts) != 1 || mounts[0].Source != doctree.Primary {
		t.Fatalf("expected one primary mount, got %+v", mounts)
	}
	if len(mounts[0].Headings) != 2 || mounts[0].Headings[0] != "sandbox" {
		t.Errorf("expected headings to observe, got %v", mounts[0].Headings)
	}
}

func TestSession_LoadFailure(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestSession(t, mapFetcher{"/Gemini.md": primaryDoc}, ObserverNative)

	err := s.Load(ctx)
	if !errors.Is(err, content.ErrLoadFailure) {
		t.Fatalf("expected ErrLoadFailure, got %v", err)
	}

	snap, _ := s.Snapshot(ctx)
	if snap.Phase != PhaseFailed {
		t.Errorf("expected failed phase, got %s", snap.Phase)
	}
	if snap.Error != content.UserMessage {
		t.Errorf("expected %q, got %q", content.UserMessage, snap.Error)
	}
	for _, g := range snap.Groups {
		if len(g.Sections) != 0 {
			t.Errorf("expected no sections, got %+v", g.Sections)
		}
	}
	if snap.HTML != "" {
		t.Errorf("expected no content, got %q", snap.HTML)
	}
	if len(rec.ofType(EventMount)) != 0 {
		t.Error("expected nothing mounted")
	}

	if err := s.Select(ctx, doctree.Primary, "sandbox"); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
}

func TestSession_SelectCrossSource(t *testing.T) {
	ctx := context.Background()
	s, _, rec := newTestSession(t, bothDocs(), ObserverNative)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.reset()

	if err := s.Select(ctx, doctree.Reference, "models"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mountAt, scrollAt = -1, -1
	for i, typ := range rec.types() {
		switch typ {
		case EventMount:
			mountAt = i
		case EventScroll:
			scrollAt = i
		}
	}
	if mountAt < 0 || scrollAt < 0 || mountAt > scrollAt {
		t.Fatalf("expected mount before scroll, got %v", rec.types())
	}
	if got := rec.ofType(EventScroll)[0].Target; got != "models" {
		t.Errorf("expected scroll to models, got %q", got)
	}

	nav := s.Navigation()
	if nav.ActiveSource != doctree.Reference || nav.ActiveSection != "models" {
		t.Errorf("expected reference/models, got %+v", nav)
	}
}

func TestSession_SelectUnknown(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSession(t, bothDocs(), ObserverNative)
	_ = s.Load(ctx)

	err := s.Select(ctx, doctree.Primary, "models")
	if !errors.Is(err, ErrUnknownSection) {
		t.Errorf("expected ErrUnknownSection, got %v", err)
	}
}

func TestSession_ScrollSuppression(t *testing.T) {
	ctx := context.Background()
	s, clk, _ := newTestSession(t, bothDocs(), ObserverNative)
	_ = s.Load(ctx)

	if err := s.Select(ctx, doctree.Primary, "rules"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = s.Visibility([]scroll.Entry{{ID: "sandbox", Intersecting: true}})
	_ = s.Sync(ctx)
	if got := s.Navigation().ActiveSection; got != "rules" {
		t.Errorf("expected rules to stay active while scrolling, got %q", got)
	}

	clk.Advance(time.Second)
	_ = s.Visibility([]scroll.Entry{{ID: "sandbox", Intersecting: true}})
	_ = s.Sync(ctx)
	if got := s.Navigation().ActiveSection; got != "sandbox" {
		t.Errorf("expected sandbox after the settle delay, got %q", got)
	}
}

func TestSession_PollingMode(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSession(t, bothDocs(), ObserverPolling)
	_ = s.Load(ctx)

	_ = s.Layout([]scroll.Box{
		{ID: "sandbox", Top: 0, Height: 40},
		{ID: "rules", Top: 800, Height: 40},
	}, 1000)
	_ = s.Scroll(780)
	_ = s.Sync(ctx)

	if got := s.Navigation().ActiveSection; got != "rules" {
		t.Errorf("expected rules in the active band, got %q", got)
	}

	// Relayed batches are ignored in polling mode.
	_ = s.Visibility([]scroll.Entry{{ID: "sandbox", Intersecting: true}})
	_ = s.Sync(ctx)
	if got := s.Navigation().ActiveSection; got != "rules" {
		t.Errorf("expected rules, got %q", got)
	}
}

func TestSession_Copy(t *testing.T) {
	ctx := context.Background()
	s, clk, rec := newTestSession(t, bothDocs(), ObserverNative)
	_ = s.Load(ctx)

	if err := s.Copy(ctx, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = s.Sync(ctx)

	clips := rec.ofType(EventClipboard)
	if len(clips) != 1 || clips[0].Text != "GET /api/users\n" {
		t.Fatalf("expected clipboard event with code text, got %+v", clips)
	}
	labels := rec.ofType(EventLabel)
	if len(labels) != 1 || labels[0].Control.Label != "Copied!" {
		t.Fatalf("expected Copied! label, got %+v", labels)
	}

	clk.Advance(2 * time.Second)
	_ = s.Sync(ctx)
	labels = rec.ofType(EventLabel)
	if len(labels) != 2 || labels[1].Control.Label != "Copy" || labels[1].Control.Index != 0 {
		t.Errorf("expected label to revert, got %+v", labels)
	}

	if err := s.Copy(ctx, 9); !errors.Is(err, ErrNoControl) {
		t.Errorf("expected ErrNoControl, got %v", err)
	}
}

func TestSession_SourceSwitchDropsStaleLabelRevert(t *testing.T) {
	ctx := context.Background()
	s, clk, rec := newTestSession(t, bothDocs(), ObserverNative)
	_ = s.Load(ctx)

	if err := s.Copy(ctx, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Select(ctx, doctree.Reference, "models"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = s.Sync(ctx)
	rec.reset()

	clk.Advance(2 * time.Second)
	_ = s.Sync(ctx)
	if labels := rec.ofType(EventLabel); len(labels) != 0 {
		t.Errorf("expected no label events for the replaced document, got %+v", labels)
	}
	if clk.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", clk.Pending())
	}
}

func TestSession_CopyWithoutPage(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake()
	loader := content.NewLoader(bothDocs(), parser.NewConverter(parser.Options{}),
		content.Paths{Primary: "/Gemini.md", Reference: "/OfficialDocs.md"}, discardLogger())
	s := NewSession(ctx, loader, Options{Clock: clk}, discardLogger())
	defer s.Close()
	_ = s.Load(ctx)

	if err := s.Copy(ctx, 0); !errors.Is(err, ErrNoSubscribers) {
		t.Errorf("expected ErrNoSubscribers, got %v", err)
	}
}

func TestSession_Sidebar(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSession(t, bothDocs(), ObserverNative)
	_ = s.Load(ctx)

	_ = s.SetSidebar(ctx, true)
	if !s.Navigation().SidebarOpen {
		t.Fatal("expected sidebar open")
	}
	if err := s.Select(ctx, doctree.Primary, "rules"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Navigation().SidebarOpen {
		t.Error("expected navigation to close the sidebar")
	}
	_ = s.ToggleSidebar(ctx)
	if !s.Navigation().SidebarOpen {
		t.Error("expected toggle to open the sidebar")
	}
}

func TestSession_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSession(t, bothDocs(), ObserverNative)
	rec := &recorder{}
	cancel := s.Subscribe(rec.add)
	cancel()
	_ = s.Load(ctx)
	if len(rec.types()) != 0 {
		t.Errorf("expected no events after unsubscribe, got %v", rec.types())
	}
}

func TestSession_ConnectReplaysState(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestSession(t, bothDocs(), ObserverNative)
	_ = s.Load(ctx)
	_ = s.Select(ctx, doctree.Reference, "overview")
	_ = s.Sync(ctx)

	late := &recorder{}
	cancel, err := s.Connect(ctx, late.add)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	types := late.types()
	if len(types) != 2 || types[0] != EventState || types[1] != EventMount {
		t.Fatalf("expected state then mount, got %v", types)
	}
	st := late.ofType(EventState)[0]
	if st.Phase != PhaseReady || st.State.ActiveSection != "overview" {
		t.Errorf("expected ready/overview, got %+v", st)
	}
	if m := late.ofType(EventMount)[0]; m.Source != doctree.Reference {
		t.Errorf("expected reference mount, got %s", m.Source)
	}
}
