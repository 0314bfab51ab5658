// Package dedup suppresses repeat alerts for the same wallet set and
// market within a cooldown period.
package dedup

import (
	"sync"
	"time"
)

// Decision says whether an alert should be emitted and why.
type Decision struct {
	Emit      bool
	Escalated bool // emitted despite an active cooldown because the score jumped
}

type cooldownEntry struct {
	score     float64
	emittedAt int64 // unix ms
}

// Store tracks recently emitted alerts keyed by dedup key. An alert
// inside the cooldown window is suppressed unless its score exceeds the
// previously emitted score by more than the escalation delta; an
// escalated emission resets the cooldown timer.
type Store struct {
	cooldown   time.Duration
	escalation float64

	mu      sync.Mutex
	entries map[string]cooldownEntry
}

// Options configures the Store.
type Options struct {
	CooldownPeriod  time.Duration
	EscalationDelta float64
}

// NewStore creates a cooldown store.
func NewStore(opts Options) *Store {
	return &Store{
		cooldown:   opts.CooldownPeriod,
		escalation: opts.EscalationDelta,
		entries:    make(map[string]cooldownEntry),
	}
}

// Check records the alert if it should be emitted and returns the
// decision. now is the event-time of the triggering trade, unix ms.
func (s *Store) Check(key string, score float64, now int64) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.entries[key]
	if seen && now-prev.emittedAt < s.cooldown.Milliseconds() {
		if score <= prev.score+s.escalation {
			return Decision{}
		}
		s.entries[key] = cooldownEntry{score: score, emittedAt: now}
		return Decision{Emit: true, Escalated: true}
	}

	s.entries[key] = cooldownEntry{score: score, emittedAt: now}
	return Decision{Emit: true}
}

// Sweep drops entries whose cooldown elapsed before now. Returns the
// number removed.
func (s *Store) Sweep(now int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if now-e.emittedAt >= s.cooldown.Milliseconds() {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
