// Package resolution feeds market outcomes back into wallet accuracy
// tallies.
package resolution

import (
	"log"
	"sync"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/profile"
)

// Tracker applies market resolutions to wallet profiles exactly once
// per market. Re-delivered resolutions are ignored so replays cannot
// double-count accuracy samples.
type Tracker struct {
	profiles *profile.Store
	logger   *log.Logger

	mu      sync.Mutex
	applied map[string]int64 // market id -> resolved at, unix ms
}

// Options configures the Tracker.
type Options struct {
	Profiles *profile.Store
	Logger   *log.Logger
}

// NewTracker creates a resolution tracker.
func NewTracker(opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Tracker{
		profiles: opts.Profiles,
		logger:   logger,
		applied:  make(map[string]int64),
	}
}

// Apply updates accuracy tallies for every wallet that traded the
// resolved market. Returns the number of profiles updated; zero with
// no error when the market was already applied.
func (t *Tracker) Apply(res *domain.MarketResolution) int {
	t.mu.Lock()
	if _, done := t.applied[res.MarketID]; done {
		t.mu.Unlock()
		return 0
	}
	t.applied[res.MarketID] = res.ResolvedAt
	t.mu.Unlock()

	updated := t.profiles.ApplyResolution(res)
	t.logger.Printf("INFO resolution applied market=%s outcome=%s wallets=%d",
		res.MarketID, res.Outcome, updated)
	return updated
}

// Applied reports whether a market's resolution has been applied.
func (t *Tracker) Applied(marketID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, done := t.applied[marketID]
	return done
}
