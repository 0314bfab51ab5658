// Package normalize converts raw feed records into canonical trade
// events. Malformed records are rejected with a typed error and never
// abort the stream.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"polymarket-watch/internal/domain"
)

// Reason codes for malformed events.
const (
	ReasonMissingWallet = "missing_wallet"
	ReasonMissingMarket = "missing_market"
	ReasonBadSide       = "bad_side"
	ReasonBadSize       = "bad_size"
	ReasonBadPrice      = "bad_price"
	ReasonClockSkew     = "clock_skew"
)

// ErrMalformedEvent is the sentinel all normalization failures wrap.
var ErrMalformedEvent = errors.New("malformed trade event")

// MalformedEventError describes why a raw record was rejected.
type MalformedEventError struct {
	Reason string
	Detail string
}

func (e *MalformedEventError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("malformed trade event: %s", e.Reason)
	}
	return fmt.Sprintf("malformed trade event: %s (%s)", e.Reason, e.Detail)
}

func (e *MalformedEventError) Unwrap() error { return ErrMalformedEvent }

// RawTrade is the exchange-side record shape delivered by the feed.
type RawTrade struct {
	Wallet     string  `json:"proxyWallet"`
	MarketID   string  `json:"conditionId"`
	Outcome    string  `json:"outcome"`
	Size       float64 `json:"size"`
	Price      float64 `json:"price"`
	Timestamp  int64   `json:"timestamp"` // unix seconds from the feed
	SequenceNo int64   `json:"sequence"`
}

// Normalizer validates raw records and produces canonical TradeEvents.
type Normalizer struct {
	skewTolerance time.Duration
	now           func() time.Time

	dropped map[string]int64
}

// Options configures a Normalizer.
type Options struct {
	ClockSkewTolerance time.Duration
	Now                func() time.Time // test hook, defaults to time.Now
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		skewTolerance: opts.ClockSkewTolerance,
		now:           now,
		dropped:       make(map[string]int64),
	}
}

// Normalize converts a raw record into a canonical TradeEvent.
// On failure it returns a *MalformedEventError, counts the drop, and
// the caller continues with the next record.
func (n *Normalizer) Normalize(raw RawTrade) (*domain.TradeEvent, error) {
	if strings.TrimSpace(raw.Wallet) == "" {
		return nil, n.reject(ReasonMissingWallet, "")
	}
	if strings.TrimSpace(raw.MarketID) == "" {
		return nil, n.reject(ReasonMissingMarket, "")
	}

	side, ok := parseSide(raw.Outcome)
	if !ok {
		return nil, n.reject(ReasonBadSide, raw.Outcome)
	}
	if raw.Size <= 0 {
		return nil, n.reject(ReasonBadSize, fmt.Sprintf("size=%v", raw.Size))
	}
	if raw.Price <= 0 || raw.Price >= 1 {
		return nil, n.reject(ReasonBadPrice, fmt.Sprintf("price=%v", raw.Price))
	}

	ts := time.Unix(raw.Timestamp, 0)
	if n.skewTolerance > 0 {
		if d := ts.Sub(n.now()); d > n.skewTolerance {
			return nil, n.reject(ReasonClockSkew, fmt.Sprintf("ahead by %v", d))
		}
	}

	return &domain.TradeEvent{
		WalletID:   strings.ToLower(raw.Wallet),
		MarketID:   raw.MarketID,
		Side:       side,
		Size:       raw.Size * raw.Price, // notional USD
		Price:      raw.Price,
		Timestamp:  ts.UnixMilli(),
		SequenceNo: raw.SequenceNo,
	}, nil
}

// DroppedCounts returns a copy of per-reason drop counters.
func (n *Normalizer) DroppedCounts() map[string]int64 {
	out := make(map[string]int64, len(n.dropped))
	for k, v := range n.dropped {
		out[k] = v
	}
	return out
}

func (n *Normalizer) reject(reason, detail string) error {
	n.dropped[reason]++
	return &MalformedEventError{Reason: reason, Detail: detail}
}

func parseSide(outcome string) (domain.Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(outcome)) {
	case "YES", "UP", "BUY":
		return domain.SideYes, true
	case "NO", "DOWN", "SELL":
		return domain.SideNo, true
	default:
		return "", false
	}
}
