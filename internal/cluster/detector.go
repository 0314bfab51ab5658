// Package cluster detects coordinated entry: several distinct wallets
// taking the same side of one market within a short time window.
//
// Each market keeps an expiring window of recent trades with
// incremental wallet/side counters, so insert and evict are amortized
// O(1) per event and no rescans happen under sustained volume.
package cluster

import (
	"sort"
	"sync"
	"time"

	"polymarket-watch/internal/domain"
)

// Detector holds per-market sliding windows.
type Detector struct {
	window       time.Duration
	minWallets   int
	minAlignment float64

	mu      sync.Mutex
	markets map[string]*marketWindow
}

// Options configures the Detector.
type Options struct {
	CoordinationWindow time.Duration
	ClusterMinWallets  int
	MinAlignment       float64
}

// NewDetector creates a cluster detector.
func NewDetector(opts Options) *Detector {
	return &Detector{
		window:       opts.CoordinationWindow,
		minWallets:   opts.ClusterMinWallets,
		minAlignment: opts.MinAlignment,
		markets:      make(map[string]*marketWindow),
	}
}

type windowEntry struct {
	wallet string
	side   domain.Side
	ref    domain.TradeRef
	ts     int64
	fresh  bool
}

type marketWindow struct {
	entries []windowEntry // FIFO, oldest first
	head    int           // index of the oldest live entry

	walletCounts map[string]int
	sideCounts   map[domain.Side]int
	freshCounts  map[string]int
}

// Observe inserts an in-order trade into its market window, evicts
// expired entries, and returns a ClusterCandidate when the window holds
// enough aligned distinct wallets. fresh marks whether the wallet was
// independently flagged fresh or low-history for this trade.
//
// Late trades must not be passed here; the caller excludes them.
func (d *Detector) Observe(trade *domain.TradeEvent, fresh bool) *domain.ClusterCandidate {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.markets[trade.MarketID]
	if !ok {
		w = &marketWindow{
			walletCounts: make(map[string]int),
			sideCounts:   make(map[domain.Side]int),
			freshCounts:  make(map[string]int),
		}
		d.markets[trade.MarketID] = w
	}

	w.evictBefore(trade.Timestamp - d.window.Milliseconds())
	w.insert(windowEntry{
		wallet: trade.WalletID,
		side:   trade.Side,
		ref:    trade.Ref(),
		ts:     trade.Timestamp,
		fresh:  fresh,
	})

	return w.candidate(trade.MarketID, d.minWallets, d.minAlignment)
}

// WindowSize returns the number of live entries for a market.
func (d *Detector) WindowSize(marketID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.markets[marketID]
	if !ok {
		return 0
	}
	return len(w.entries) - w.head
}

func (w *marketWindow) insert(e windowEntry) {
	w.entries = append(w.entries, e)
	w.walletCounts[e.wallet]++
	w.sideCounts[e.side]++
	if e.fresh {
		w.freshCounts[e.wallet]++
	}
}

// evictBefore drops entries strictly older than cutoff, decrementing
// the incremental counters. Compacts the backing slice once more than
// half of it is dead.
func (w *marketWindow) evictBefore(cutoff int64) {
	for w.head < len(w.entries) && w.entries[w.head].ts < cutoff {
		e := w.entries[w.head]
		w.head++

		w.walletCounts[e.wallet]--
		if w.walletCounts[e.wallet] == 0 {
			delete(w.walletCounts, e.wallet)
		}
		w.sideCounts[e.side]--
		if w.sideCounts[e.side] == 0 {
			delete(w.sideCounts, e.side)
		}
		if e.fresh {
			w.freshCounts[e.wallet]--
			if w.freshCounts[e.wallet] == 0 {
				delete(w.freshCounts, e.wallet)
			}
		}
	}

	if w.head > len(w.entries)/2 {
		w.entries = append([]windowEntry(nil), w.entries[w.head:]...)
		w.head = 0
	}
}

func (w *marketWindow) candidate(marketID string, minWallets int, minAlignment float64) *domain.ClusterCandidate {
	distinct := len(w.walletCounts)
	if distinct < minWallets {
		return nil
	}

	total := len(w.entries) - w.head
	if total == 0 {
		return nil
	}

	var dominant domain.Side
	dominantCount := 0
	for side, n := range w.sideCounts {
		if n > dominantCount {
			dominant = side
			dominantCount = n
		}
	}
	alignment := float64(dominantCount) / float64(total)
	if alignment < minAlignment {
		return nil
	}

	wallets := make([]string, 0, distinct)
	for wallet := range w.walletCounts {
		wallets = append(wallets, wallet)
	}
	sort.Strings(wallets)

	refs := make([]domain.TradeRef, 0, total)
	for i := w.head; i < len(w.entries); i++ {
		refs = append(refs, w.entries[i].ref)
	}

	freshWallets := len(w.freshCounts)

	return &domain.ClusterCandidate{
		MarketID:       marketID,
		Wallets:        wallets,
		TradeRefs:      refs,
		Side:           dominant,
		AlignmentRatio: alignment,
		WindowStart:    w.entries[w.head].ts,
		WindowEnd:      w.entries[len(w.entries)-1].ts,
		FreshMajority:  2*freshWallets >= distinct,
	}
}
