// Package dispatch delivers emitted alerts to configured sinks.
package dispatch

import (
	"context"

	"polymarket-watch/internal/domain"
)

// Sink delivers one alert to a destination. Delivery failures are
// reported, not retried; the dispatcher logs and counts them.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Deliver sends the alert.
	Deliver(ctx context.Context, a *domain.AlertRecord) error
}
