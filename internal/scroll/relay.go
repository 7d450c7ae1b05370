package scroll

import "sync"

// RelayObserver forwards batches computed by the browser's own
// IntersectionObserver. Entries for ids outside the observed set are
// dropped.
type RelayObserver struct {
	mu  sync.Mutex
	ids []string
	set map[string]bool
	fn  func([]Entry)
}

func NewRelayObserver() *RelayObserver {
	return &RelayObserver{}
}

func (o *RelayObserver) Observe(ids []string, fn func([]Entry)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ids = append([]string(nil), ids...)
	o.set = make(map[string]bool, len(ids))
	for _, id := range ids {
		o.set[id] = true
	}
	o.fn = fn
}

func (o *RelayObserver) Unobserve() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ids = nil
	o.set = nil
	o.fn = nil
}

// Targets returns the observed ids in the order they were given.
func (o *RelayObserver) Targets() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.ids...)
}

// Deliver passes a browser batch to the subscriber.
func (o *RelayObserver) Deliver(entries []Entry) {
	o.mu.Lock()
	fn := o.fn
	var batch []Entry
	for _, e := range entries {
		if o.set[e.ID] {
			batch = append(batch, e)
		}
	}
	o.mu.Unlock()

	if fn == nil || len(batch) == 0 {
		return
	}
	fn(batch)
}
