package memory

import (
	"context"
	"sync"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/storage"
)

// ProfileCheckpointStore is an in-memory implementation of
// storage.ProfileCheckpointStore.
type ProfileCheckpointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletProfile // keyed by wallet ID
}

// NewProfileCheckpointStore creates a new in-memory checkpoint store.
func NewProfileCheckpointStore() *ProfileCheckpointStore {
	return &ProfileCheckpointStore{
		data: make(map[string]*domain.WalletProfile),
	}
}

var _ storage.ProfileCheckpointStore = (*ProfileCheckpointStore)(nil)

// Upsert writes a profile snapshot, replacing any previous one.
func (s *ProfileCheckpointStore) Upsert(_ context.Context, p *domain.WalletProfile) error {
	if p == nil || p.WalletID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[p.WalletID] = cloneProfile(p)
	return nil
}

// UpsertBulk writes multiple snapshots atomically.
func (s *ProfileCheckpointStore) UpsertBulk(_ context.Context, profiles []*domain.WalletProfile) error {
	for _, p := range profiles {
		if p == nil || p.WalletID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range profiles {
		s.data[p.WalletID] = cloneProfile(p)
	}
	return nil
}

// GetByWallet retrieves one snapshot. Returns ErrNotFound if not exists.
func (s *ProfileCheckpointStore) GetByWallet(_ context.Context, walletID string) (*domain.WalletProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[walletID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneProfile(p), nil
}

// LoadAll streams every stored snapshot to fn.
func (s *ProfileCheckpointStore) LoadAll(_ context.Context, fn func(*domain.WalletProfile) error) error {
	s.mu.RLock()
	snapshots := make([]*domain.WalletProfile, 0, len(s.data))
	for _, p := range s.data {
		snapshots = append(snapshots, cloneProfile(p))
	}
	s.mu.RUnlock()

	for _, p := range snapshots {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func cloneProfile(p *domain.WalletProfile) *domain.WalletProfile {
	out := *p
	out.History = append([]domain.ProfileTrade(nil), p.History...)
	return &out
}
