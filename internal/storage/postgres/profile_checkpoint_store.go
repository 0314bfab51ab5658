package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/storage"
)

// ProfileCheckpointStore implements storage.ProfileCheckpointStore
// using PostgreSQL. Snapshots are upserts keyed by wallet ID.
type ProfileCheckpointStore struct {
	pool *Pool
}

// NewProfileCheckpointStore creates a new ProfileCheckpointStore.
func NewProfileCheckpointStore(pool *Pool) *ProfileCheckpointStore {
	return &ProfileCheckpointStore{pool: pool}
}

var _ storage.ProfileCheckpointStore = (*ProfileCheckpointStore)(nil)

const upsertProfile = `
	INSERT INTO profile_checkpoints (
		wallet_id, first_seen, last_activity, trade_count, cumulative_volume,
		rolling_avg_size, history, resolved_samples, resolved_correct
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (wallet_id) DO UPDATE SET
		first_seen = EXCLUDED.first_seen,
		last_activity = EXCLUDED.last_activity,
		trade_count = EXCLUDED.trade_count,
		cumulative_volume = EXCLUDED.cumulative_volume,
		rolling_avg_size = EXCLUDED.rolling_avg_size,
		history = EXCLUDED.history,
		resolved_samples = EXCLUDED.resolved_samples,
		resolved_correct = EXCLUDED.resolved_correct
`

// Upsert writes a profile snapshot, replacing any previous one.
func (s *ProfileCheckpointStore) Upsert(ctx context.Context, p *domain.WalletProfile) error {
	if p == nil || p.WalletID == "" {
		return storage.ErrInvalidInput
	}

	history, err := json.Marshal(p.History)
	if err != nil {
		return fmt.Errorf("marshal profile history: %w", err)
	}

	_, err = s.pool.Exec(ctx, upsertProfile,
		p.WalletID,
		p.FirstSeen,
		p.LastActivity,
		p.TradeCount,
		p.CumulativeVolume,
		p.RollingAvgSize,
		history,
		p.ResolvedSamples,
		p.ResolvedCorrect,
	)
	if err != nil {
		return fmt.Errorf("upsert profile checkpoint: %w", err)
	}
	return nil
}

// UpsertBulk writes multiple snapshots atomically.
func (s *ProfileCheckpointStore) UpsertBulk(ctx context.Context, profiles []*domain.WalletProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range profiles {
		if p == nil || p.WalletID == "" {
			return storage.ErrInvalidInput
		}
		history, err := json.Marshal(p.History)
		if err != nil {
			return fmt.Errorf("marshal profile history: %w", err)
		}
		_, err = tx.Exec(ctx, upsertProfile,
			p.WalletID,
			p.FirstSeen,
			p.LastActivity,
			p.TradeCount,
			p.CumulativeVolume,
			p.RollingAvgSize,
			history,
			p.ResolvedSamples,
			p.ResolvedCorrect,
		)
		if err != nil {
			return fmt.Errorf("upsert profile checkpoint in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const selectProfiles = `
	SELECT wallet_id, first_seen, last_activity, trade_count, cumulative_volume,
		rolling_avg_size, history, resolved_samples, resolved_correct
	FROM profile_checkpoints
`

// GetByWallet retrieves one snapshot. Returns ErrNotFound if not exists.
func (s *ProfileCheckpointStore) GetByWallet(ctx context.Context, walletID string) (*domain.WalletProfile, error) {
	row := s.pool.QueryRow(ctx, selectProfiles+` WHERE wallet_id = $1`, walletID)
	p, err := scanProfile(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get profile checkpoint: %w", err)
	}
	return p, nil
}

// LoadAll streams every stored snapshot to fn.
func (s *ProfileCheckpointStore) LoadAll(ctx context.Context, fn func(*domain.WalletProfile) error) error {
	rows, err := s.pool.Query(ctx, selectProfiles+` ORDER BY wallet_id ASC`)
	if err != nil {
		return fmt.Errorf("load profile checkpoints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return fmt.Errorf("scan profile checkpoint row: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate profile checkpoint rows: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*domain.WalletProfile, error) {
	var p domain.WalletProfile
	var history []byte

	err := row.Scan(
		&p.WalletID,
		&p.FirstSeen,
		&p.LastActivity,
		&p.TradeCount,
		&p.CumulativeVolume,
		&p.RollingAvgSize,
		&history,
		&p.ResolvedSamples,
		&p.ResolvedCorrect,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &p.History); err != nil {
		return nil, fmt.Errorf("unmarshal profile history: %w", err)
	}
	return &p, nil
}
