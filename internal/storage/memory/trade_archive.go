package memory

import (
	"context"
	"sort"
	"sync"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/storage"
)

// TradeArchive is an in-memory implementation of storage.TradeArchive.
// Duplicate (market_id, sequence_no) rows overwrite silently, matching
// the read-side dedup contract of the columnar backend.
type TradeArchive struct {
	mu   sync.RWMutex
	data map[domain.TradeRef]*domain.TradeEvent
}

// NewTradeArchive creates a new in-memory trade archive.
func NewTradeArchive() *TradeArchive {
	return &TradeArchive{
		data: make(map[domain.TradeRef]*domain.TradeEvent),
	}
}

var _ storage.TradeArchive = (*TradeArchive)(nil)

// InsertBatch appends a batch of trades.
func (s *TradeArchive) InsertBatch(_ context.Context, trades []*domain.TradeEvent) error {
	for _, t := range trades {
		if t == nil || t.MarketID == "" || t.WalletID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range trades {
		copy := *t
		s.data[t.Ref()] = &copy
	}
	return nil
}

// GetByMarket retrieves trades for a market within [start, end]
// (inclusive), ordered by sequence_no ASC.
func (s *TradeArchive) GetByMarket(_ context.Context, marketID string, start, end int64) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeEvent
	for _, t := range s.data {
		if t.MarketID == marketID && t.Timestamp >= start && t.Timestamp <= end {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SequenceNo < result[j].SequenceNo
	})
	return result, nil
}

// Len reports the number of archived trades.
func (s *TradeArchive) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
