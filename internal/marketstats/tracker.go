// Package marketstats maintains rolling per-market trade size
// statistics used by the large-bet heuristic.
package marketstats

import (
	"sort"
	"sync"
)

// defaultReservoir is the number of recent trade sizes kept per market.
const defaultReservoir = 256

// Tracker holds a bounded reservoir of recent trade sizes per market.
type Tracker struct {
	reservoir int

	mu      sync.RWMutex
	markets map[string]*ring
}

type ring struct {
	sizes []float64
	next  int
	full  bool
}

// NewTracker creates a tracker. reservoir <= 0 selects the default.
func NewTracker(reservoir int) *Tracker {
	if reservoir <= 0 {
		reservoir = defaultReservoir
	}
	return &Tracker{
		reservoir: reservoir,
		markets:   make(map[string]*ring),
	}
}

// Observe records a trade size for a market.
func (t *Tracker) Observe(marketID string, size float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.markets[marketID]
	if !ok {
		r = &ring{sizes: make([]float64, t.reservoir)}
		t.markets[marketID] = r
	}
	r.sizes[r.next] = size
	r.next++
	if r.next == len(r.sizes) {
		r.next = 0
		r.full = true
	}
}

// Median returns the rolling median trade size for a market, or zero
// when no trades have been observed.
func (t *Tracker) Median(marketID string) float64 {
	t.mu.RLock()
	r, ok := t.markets[marketID]
	if !ok {
		t.mu.RUnlock()
		return 0
	}

	n := r.next
	if r.full {
		n = len(r.sizes)
	}
	values := make([]float64, n)
	copy(values, r.sizes[:n])
	t.mu.RUnlock()

	if n == 0 {
		return 0
	}
	sort.Float64s(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// Count returns how many sizes are currently held for a market.
func (t *Tracker) Count(marketID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.markets[marketID]
	if !ok {
		return 0
	}
	if r.full {
		return len(r.sizes)
	}
	return r.next
}
