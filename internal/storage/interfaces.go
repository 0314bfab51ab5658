package storage

import (
	"context"

	"polymarket-watch/internal/domain"
)

// AlertStore provides access to emitted alert storage.
type AlertStore interface {
	// Insert adds a new alert. Returns ErrDuplicateKey if the alert ID exists.
	Insert(ctx context.Context, a *domain.AlertRecord) error

	// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.AlertRecord, error)

	// GetByMarket retrieves all alerts for a market, ordered by created_at ASC.
	GetByMarket(ctx context.Context, marketID string) ([]*domain.AlertRecord, error)

	// GetByTimeRange retrieves alerts created within [start, end] (inclusive, unix ms).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.AlertRecord, error)
}

// ProfileCheckpointStore persists wallet profile snapshots so the
// engine can restart without losing accuracy history.
type ProfileCheckpointStore interface {
	// Upsert writes a profile snapshot, replacing any previous one for the wallet.
	Upsert(ctx context.Context, p *domain.WalletProfile) error

	// UpsertBulk writes multiple snapshots atomically.
	UpsertBulk(ctx context.Context, profiles []*domain.WalletProfile) error

	// GetByWallet retrieves one snapshot. Returns ErrNotFound if not exists.
	GetByWallet(ctx context.Context, walletID string) (*domain.WalletProfile, error)

	// LoadAll streams every stored snapshot to fn; a non-nil return stops the scan.
	LoadAll(ctx context.Context, fn func(*domain.WalletProfile) error) error
}

// TradeArchive is the append-only archive of normalized trades, used
// for offline replay and audit.
type TradeArchive interface {
	// InsertBatch appends a batch of trades. Duplicate (market_id, sequence_no)
	// rows are tolerated; the archive deduplicates on read.
	InsertBatch(ctx context.Context, trades []*domain.TradeEvent) error

	// GetByMarket retrieves trades for a market within [start, end]
	// (inclusive, unix ms), ordered by sequence_no ASC.
	GetByMarket(ctx context.Context, marketID string, start, end int64) ([]*domain.TradeEvent, error)
}
