package nav

import (
	"sync"
	"time"

	"github.com/dgallion1/docview/internal/clock"
)

// DefaultSettleDelay is how long a programmatic scroll suppresses the
// scroll tracker.
const DefaultSettleDelay = 1000 * time.Millisecond

// ScrollGuard marks a programmatic scroll in progress. While it is active
// viewport notifications must not change the active section.
type ScrollGuard struct {
	mu     sync.Mutex
	clock  clock.Clock
	active bool
	timer  clock.Timer
	gen    uint64
}

func NewScrollGuard(clk clock.Clock) *ScrollGuard {
	return &ScrollGuard{clock: clk}
}

// Set raises the guard.
func (g *ScrollGuard) Set() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = true
}

func (g *ScrollGuard) IsActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// ResetTimer cancels any pending clear and schedules a new one after d.
// Only the most recent timer can lower the guard.
func (g *ScrollGuard) ResetTimer(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.timer != nil {
		g.timer.Stop()
	}
	g.gen++
	gen := g.gen
	g.timer = g.clock.AfterFunc(d, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.gen != gen {
			return
		}
		g.active = false
		g.timer = nil
	})
}

// Stop cancels a pending clear without touching the flag.
func (g *ScrollGuard) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.gen++
}
