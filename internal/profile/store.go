// Package profile keeps bounded per-wallet behavioral state. The store
// is shared across market shards, so every mutation runs under that
// wallet's lock.
package profile

import (
	"log"
	"sync"
	"time"

	"polymarket-watch/internal/domain"
)

// seenLimitFactor bounds the duplicate-detection ring relative to the
// history limit. Like idle eviction, this bounds memory at the cost of
// completeness: a duplicate delivered more than historyLimit*4 trades
// after the original has left the ring and is merged again.
const seenLimitFactor = 4

// Store owns all wallet profiles.
type Store struct {
	historyLimit int
	idleEviction time.Duration
	logger       *log.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	evicted int64
}

type entry struct {
	mu      sync.Mutex
	profile *domain.WalletProfile

	// Duplicate-detection ring over recently merged trade refs.
	seen      map[domain.TradeRef]struct{}
	seenOrder []domain.TradeRef
}

// Options configures the Store.
type Options struct {
	HistoryLimit int           // trades kept per wallet
	IdleEviction time.Duration // wallets idle longer than this are evicted
	Logger       *log.Logger
}

// NewStore creates a profile store.
func NewStore(opts Options) *Store {
	historyLimit := opts.HistoryLimit
	if historyLimit == 0 {
		historyLimit = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		historyLimit: historyLimit,
		idleEviction: opts.IdleEviction,
		logger:       logger,
		entries:      make(map[string]*entry),
	}
}

// GetOrCreate returns a snapshot of the wallet's profile, creating an
// empty one if the wallet has not been seen. A wallet evicted earlier
// comes back as newly fresh; that is a documented trade-off of bounding
// memory by idle eviction.
func (s *Store) GetOrCreate(walletID string) domain.WalletProfile {
	e := s.entry(walletID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.profile)
}

// Update merges a trade into the wallet's profile and returns the
// post-update snapshot. The second return is false when the trade's
// (market, sequence_no) was already merged; duplicates leave the
// profile untouched.
func (s *Store) Update(trade *domain.TradeEvent) (domain.WalletProfile, bool) {
	e := s.entry(trade.WalletID)
	e.mu.Lock()
	defer e.mu.Unlock()

	ref := trade.Ref()
	if _, dup := e.seen[ref]; dup {
		return snapshot(e.profile), false
	}
	e.remember(ref, s.historyLimit*seenLimitFactor)

	p := e.profile
	if p.FirstSeen == 0 || trade.Timestamp < p.FirstSeen {
		p.FirstSeen = trade.Timestamp
	}
	if trade.Timestamp > p.LastActivity {
		p.LastActivity = trade.Timestamp
	}
	p.TradeCount++
	p.CumulativeVolume += trade.Size
	p.RollingAvgSize = p.CumulativeVolume / float64(p.TradeCount)

	p.History = append(p.History, domain.ProfileTrade{
		MarketID:   trade.MarketID,
		SequenceNo: trade.SequenceNo,
		Side:       trade.Side,
		Size:       trade.Size,
		Price:      trade.Price,
		Timestamp:  trade.Timestamp,
	})
	if len(p.History) > s.historyLimit {
		p.History = p.History[len(p.History)-s.historyLimit:]
	}

	return snapshot(p), true
}

// ApplyResolution updates directional-accuracy tallies for every wallet
// holding history trades in the resolved market. Returns the number of
// wallets whose tally changed.
func (s *Store) ApplyResolution(res *domain.MarketResolution) int {
	s.mu.RLock()
	all := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	s.mu.RUnlock()

	updated := 0
	for _, e := range all {
		e.mu.Lock()
		changed := false
		for _, h := range e.profile.History {
			if h.MarketID != res.MarketID {
				continue
			}
			e.profile.ResolvedSamples++
			if h.Side == res.Outcome {
				e.profile.ResolvedCorrect++
			}
			changed = true
		}
		e.mu.Unlock()
		if changed {
			updated++
		}
	}
	return updated
}

// Restore installs a checkpointed profile, replacing any in-memory
// state for the wallet. The duplicate-detection ring is seeded from the
// restored history so a feed replayed across a restart stays idempotent.
func (s *Store) Restore(p *domain.WalletProfile) {
	e := s.entry(p.WalletID)
	e.mu.Lock()
	defer e.mu.Unlock()

	restored := snapshot(p)
	e.profile = &restored
	e.seen = make(map[domain.TradeRef]struct{})
	e.seenOrder = nil
	for _, h := range restored.History {
		e.remember(domain.TradeRef{MarketID: h.MarketID, SequenceNo: h.SequenceNo}, s.historyLimit*seenLimitFactor)
	}
}

// SnapshotAll returns deep copies of every active profile, for
// checkpointing.
func (s *Store) SnapshotAll() []*domain.WalletProfile {
	s.mu.RLock()
	all := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	s.mu.RUnlock()

	out := make([]*domain.WalletProfile, 0, len(all))
	for _, e := range all {
		e.mu.Lock()
		p := snapshot(e.profile)
		e.mu.Unlock()
		out = append(out, &p)
	}
	return out
}

// Sweep evicts wallets idle beyond the configured period. Eviction is
// capacity management, not an error; it is logged as a warning because
// a re-appearing wallet will be re-detected as fresh.
func (s *Store) Sweep(now time.Time) int {
	if s.idleEviction <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idleEviction).UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.entries {
		e.mu.Lock()
		idle := e.profile.LastActivity != 0 && e.profile.LastActivity < cutoff
		e.mu.Unlock()
		if idle {
			delete(s.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.evicted += int64(evicted)
		s.logger.Printf("WARN profile store evicted %d idle wallets (total %d)", evicted, s.evicted)
	}
	return evicted
}

// Len returns the number of active (non-evicted) wallets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) entry(walletID string) *entry {
	s.mu.RLock()
	e, ok := s.entries[walletID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[walletID]; ok {
		return e
	}
	e = &entry{
		profile: &domain.WalletProfile{WalletID: walletID},
		seen:    make(map[domain.TradeRef]struct{}),
	}
	s.entries[walletID] = e
	return e
}

func (e *entry) remember(ref domain.TradeRef, limit int) {
	e.seen[ref] = struct{}{}
	e.seenOrder = append(e.seenOrder, ref)
	if len(e.seenOrder) > limit {
		drop := e.seenOrder[0]
		e.seenOrder = e.seenOrder[1:]
		delete(e.seen, drop)
	}
}

func snapshot(p *domain.WalletProfile) domain.WalletProfile {
	out := *p
	out.History = make([]domain.ProfileTrade, len(p.History))
	copy(out.History, p.History)
	return out
}
