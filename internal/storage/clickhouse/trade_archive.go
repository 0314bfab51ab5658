package clickhouse

import (
	"context"
	"fmt"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/storage"
)

// TradeArchive implements storage.TradeArchive on ClickHouse.
//
// The backing table is a ReplacingMergeTree ordered by
// (market_id, sequence_no): duplicate appends from replays collapse at
// merge time, and reads deduplicate with FINAL.
type TradeArchive struct {
	conn *Conn
}

// NewTradeArchive creates a new TradeArchive.
func NewTradeArchive(conn *Conn) *TradeArchive {
	return &TradeArchive{conn: conn}
}

var _ storage.TradeArchive = (*TradeArchive)(nil)

// InsertBatch appends a batch of trades using the native batch API.
func (s *TradeArchive) InsertBatch(ctx context.Context, trades []*domain.TradeEvent) error {
	if len(trades) == 0 {
		return nil
	}
	for _, t := range trades {
		if t == nil || t.MarketID == "" || t.WalletID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade_archive (market_id, sequence_no, wallet_id, side, size, price, timestamp_ms)
	`)
	if err != nil {
		return fmt.Errorf("prepare trade batch: %w", err)
	}

	for _, t := range trades {
		err := batch.Append(
			t.MarketID,
			t.SequenceNo,
			t.WalletID,
			string(t.Side),
			t.Size,
			t.Price,
			t.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("append trade to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send trade batch: %w", err)
	}
	return nil
}

// GetByMarket retrieves trades for a market within [start, end]
// (inclusive), ordered by sequence_no ASC.
func (s *TradeArchive) GetByMarket(ctx context.Context, marketID string, start, end int64) ([]*domain.TradeEvent, error) {
	query := `
		SELECT market_id, sequence_no, wallet_id, side, size, price, timestamp_ms
		FROM trade_archive FINAL
		WHERE market_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY sequence_no ASC
	`

	rows, err := s.conn.Query(ctx, query, marketID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query trade archive: %w", err)
	}
	defer rows.Close()

	var trades []*domain.TradeEvent
	for rows.Next() {
		var t domain.TradeEvent
		var side string

		err := rows.Scan(
			&t.MarketID,
			&t.SequenceNo,
			&t.WalletID,
			&side,
			&t.Size,
			&t.Price,
			&t.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Side = domain.Side(side)
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
