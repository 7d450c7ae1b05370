package scroll

import "sync"

// Box is the vertical extent of a heading in content coordinates.
type Box struct {
	ID     string  `json:"id"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// BandObserver computes visibility itself from reported layout and scroll
// offsets. A heading intersects when its box overlaps the top band of the
// viewport, the equivalent of a root margin of "0px 0px -85% 0px" with a
// zero threshold. Like IntersectionObserver it delivers every observed
// target once on Observe and afterwards only targets whose state changed.
type BandObserver struct {
	mu       sync.Mutex
	band     float64
	boxes    map[string]Box
	viewport float64
	top      float64

	ids   []string
	state map[string]bool
	fn    func([]Entry)
}

func NewBandObserver(band float64) *BandObserver {
	if band <= 0 || band > 1 {
		band = DefaultBand
	}
	return &BandObserver{band: band, boxes: map[string]Box{}}
}

func (o *BandObserver) Observe(ids []string, fn func([]Entry)) {
	o.mu.Lock()
	o.ids = append([]string(nil), ids...)
	o.fn = fn
	o.state = make(map[string]bool, len(ids))
	batch := make([]Entry, 0, len(ids))
	for _, id := range o.ids {
		in := o.intersects(id)
		o.state[id] = in
		batch = append(batch, Entry{ID: id, Intersecting: in})
	}
	o.mu.Unlock()

	if len(batch) > 0 {
		fn(batch)
	}
}

func (o *BandObserver) Unobserve() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ids = nil
	o.state = nil
	o.fn = nil
}

// SetLayout replaces the known heading boxes and viewport height.
func (o *BandObserver) SetLayout(boxes []Box, viewport float64) {
	o.mu.Lock()
	o.boxes = make(map[string]Box, len(boxes))
	for _, b := range boxes {
		o.boxes[b.ID] = b
	}
	o.viewport = viewport
	fn, batch := o.changed()
	o.mu.Unlock()

	if fn != nil && len(batch) > 0 {
		fn(batch)
	}
}

// ScrollTo records the scroll offset of the content area.
func (o *BandObserver) ScrollTo(top float64) {
	o.mu.Lock()
	o.top = top
	fn, batch := o.changed()
	o.mu.Unlock()

	if fn != nil && len(batch) > 0 {
		fn(batch)
	}
}

func (o *BandObserver) changed() (func([]Entry), []Entry) {
	if o.fn == nil {
		return nil, nil
	}
	var batch []Entry
	for _, id := range o.ids {
		in := o.intersects(id)
		if in != o.state[id] {
			o.state[id] = in
			batch = append(batch, Entry{ID: id, Intersecting: in})
		}
	}
	return o.fn, batch
}

func (o *BandObserver) intersects(id string) bool {
	b, ok := o.boxes[id]
	if !ok || o.viewport <= 0 {
		return false
	}
	bandTop := o.top
	bandBottom := o.top + o.viewport*o.band
	return b.Top <= bandBottom && b.Top+b.Height >= bandTop
}
