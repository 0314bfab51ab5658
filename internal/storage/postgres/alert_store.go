package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
//
// Flags and trade refs are stored as JSONB; the wallet set as a text
// array so alerts can be queried by participating wallet.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

var _ storage.AlertStore = (*AlertStore)(nil)

// Insert adds a new alert. Returns ErrDuplicateKey if the ID exists.
func (s *AlertStore) Insert(ctx context.Context, a *domain.AlertRecord) error {
	if a == nil || a.ID == "" || a.MarketID == "" {
		return storage.ErrInvalidInput
	}

	flags, err := json.Marshal(a.Flags)
	if err != nil {
		return fmt.Errorf("marshal alert flags: %w", err)
	}
	refs, err := json.Marshal(a.TradeRefs)
	if err != nil {
		return fmt.Errorf("marshal alert trade refs: %w", err)
	}

	query := `
		INSERT INTO alerts (
			id, market_id, market_question, wallets, trade_refs, flags, score, explanation, dedup_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		a.ID,
		a.MarketID,
		a.MarketQuestion,
		a.Wallets,
		refs,
		flags,
		a.Score,
		a.Explanation,
		a.DedupKey,
		a.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert by its ID. Returns ErrNotFound if not exists.
func (s *AlertStore) GetByID(ctx context.Context, id string) (*domain.AlertRecord, error) {
	query := selectAlerts + ` WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	a, err := scanAlert(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get alert by id: %w", err)
	}
	return a, nil
}

// GetByMarket retrieves all alerts for a market, ordered by created_at ASC.
func (s *AlertStore) GetByMarket(ctx context.Context, marketID string) ([]*domain.AlertRecord, error) {
	query := selectAlerts + ` WHERE market_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("get alerts by market: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetByTimeRange retrieves alerts created within [start, end] (inclusive).
func (s *AlertStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.AlertRecord, error) {
	query := selectAlerts + ` WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get alerts by time range: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

const selectAlerts = `
	SELECT id, market_id, market_question, wallets, trade_refs, flags, score, explanation, dedup_key, created_at
	FROM alerts
`

func scanAlert(row pgx.Row) (*domain.AlertRecord, error) {
	var a domain.AlertRecord
	var refs, flags []byte

	err := row.Scan(
		&a.ID,
		&a.MarketID,
		&a.MarketQuestion,
		&a.Wallets,
		&refs,
		&flags,
		&a.Score,
		&a.Explanation,
		&a.DedupKey,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(refs, &a.TradeRefs); err != nil {
		return nil, fmt.Errorf("unmarshal alert trade refs: %w", err)
	}
	if err := json.Unmarshal(flags, &a.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal alert flags: %w", err)
	}
	return &a, nil
}

func scanAlerts(rows pgx.Rows) ([]*domain.AlertRecord, error) {
	var alerts []*domain.AlertRecord

	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}
	return alerts, nil
}
