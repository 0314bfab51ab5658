// Package memory provides in-memory storage backends, used in tests
// and single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
type AlertStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AlertRecord // keyed by alert ID
}

// NewAlertStore creates a new in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		data: make(map[string]*domain.AlertRecord),
	}
}

var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds a new alert. Returns ErrDuplicateKey if the ID exists.
func (s *AlertStore) Insert(_ context.Context, a *domain.AlertRecord) error {
	if a == nil || a.ID == "" || a.MarketID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := cloneAlert(a)
	s.data[a.ID] = copy
	return nil
}

// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(_ context.Context, id string) (*domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneAlert(a), nil
}

// GetByMarket retrieves all alerts for a market, ordered by created_at ASC.
func (s *AlertStore) GetByMarket(_ context.Context, marketID string) ([]*domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AlertRecord
	for _, a := range s.data {
		if a.MarketID == marketID {
			result = append(result, cloneAlert(a))
		}
	}
	sortAlerts(result)
	return result, nil
}

// GetByTimeRange retrieves alerts created within [start, end] (inclusive).
func (s *AlertStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AlertRecord
	for _, a := range s.data {
		if a.CreatedAt >= start && a.CreatedAt <= end {
			result = append(result, cloneAlert(a))
		}
	}
	sortAlerts(result)
	return result, nil
}

func sortAlerts(alerts []*domain.AlertRecord) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].CreatedAt != alerts[j].CreatedAt {
			return alerts[i].CreatedAt < alerts[j].CreatedAt
		}
		return alerts[i].ID < alerts[j].ID
	})
}

func cloneAlert(a *domain.AlertRecord) *domain.AlertRecord {
	out := *a
	out.Wallets = append([]string(nil), a.Wallets...)
	out.TradeRefs = append([]domain.TradeRef(nil), a.TradeRefs...)
	out.Flags = append([]domain.HeuristicFlag(nil), a.Flags...)
	return &out
}
