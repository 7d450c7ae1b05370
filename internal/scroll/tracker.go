// Package scroll keeps the active sidebar item in sync with the headings
// visible at the top of the content area.
package scroll

import (
	"log/slog"
	"sync"
)

// DefaultBand is the fraction of the viewport height, measured from the
// top, in which a heading counts as visible.
const DefaultBand = 0.15

// Entry is one visibility change of an observed heading.
type Entry struct {
	ID           string `json:"id"`
	Intersecting bool   `json:"intersecting"`
}

// Observer reports visibility changes of a set of elements.
type Observer interface {
	// Observe replaces the observed set with ids and delivers batches of
	// entries to fn.
	Observe(ids []string, fn func([]Entry))
	Unobserve()
}

// Guard reports whether a programmatic scroll is in progress.
type Guard interface {
	IsActive() bool
}

// Tracker turns visibility batches into active-section updates.
type Tracker struct {
	observer  Observer
	guard     Guard
	setActive func(id string)
	log       *slog.Logger

	mu       sync.Mutex
	attached []string
}

func NewTracker(observer Observer, guard Guard, setActive func(id string), log *slog.Logger) *Tracker {
	return &Tracker{
		observer:  observer,
		guard:     guard,
		setActive: setActive,
		log:       log,
	}
}

// Attach observes the given heading ids, dropping any previous
// subscription. An empty list only detaches.
func (t *Tracker) Attach(ids []string) {
	t.observer.Unobserve()

	t.mu.Lock()
	t.attached = append([]string(nil), ids...)
	t.mu.Unlock()

	if len(ids) == 0 {
		return
	}
	t.log.Debug("observing headings", "count", len(ids))
	t.observer.Observe(ids, t.Handle)
}

func (t *Tracker) Detach() {
	t.observer.Unobserve()
	t.mu.Lock()
	t.attached = nil
	t.mu.Unlock()
}

// Attached returns the ids currently observed.
func (t *Tracker) Attached() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.attached...)
}

// Handle processes one batch. Batches arriving during a programmatic
// scroll are dropped. Otherwise every intersecting entry becomes active in
// turn, so the last one in the batch wins.
func (t *Tracker) Handle(entries []Entry) {
	if t.guard.IsActive() {
		return
	}
	for _, e := range entries {
		if e.Intersecting {
			t.setActive(e.ID)
		}
	}
}
