// Package ingestion pulls raw trade records from the exchange feed,
// either by polling the data API or by streaming over WebSocket.
package ingestion

import (
	"context"

	"polymarket-watch/internal/normalize"
)

// TradeSource delivers raw trade records to the out channel until the
// context is canceled or an unrecoverable error occurs. Sources handle
// transient failures (disconnects, HTTP errors) internally.
type TradeSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Run blocks, sending records to out. Returns nil on context
	// cancellation.
	Run(ctx context.Context, out chan<- normalize.RawTrade) error
}
