package heuristics

import (
	"fmt"
	"time"

	"polymarket-watch/internal/config"
	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/profile"
)

// FreshWallet flags trades from wallets with very low trade counts and
// very recent first activity. Evaluated against the trade's own
// timestamp so replays reproduce live decisions.
type FreshWallet struct {
	maxTrades int64
	maxAge    time.Duration
	weight    float64
}

// NewFreshWallet creates the fresh-wallet evaluator.
func NewFreshWallet(engine config.EngineConfig, weights config.WeightsConfig) *FreshWallet {
	return &FreshWallet{
		maxTrades: engine.FreshnessTradeThreshold,
		maxAge:    engine.FreshnessTimeThreshold,
		weight:    weights.FreshWallet,
	}
}

func (f *FreshWallet) Name() string { return domain.FlagFreshWallet }

func (f *FreshWallet) Evaluate(in Input) []domain.HeuristicFlag {
	now := time.UnixMilli(in.Trade.Timestamp)
	if !profile.IsFresh(in.Profile, now, f.maxTrades, f.maxAge) {
		return nil
	}

	ageHours := float64(in.Trade.Timestamp-in.Profile.FirstSeen) / float64(time.Hour.Milliseconds())
	return []domain.HeuristicFlag{{
		Name:   domain.FlagFreshWallet,
		Weight: f.weight,
		Rationale: fmt.Sprintf("wallet %s has %d trades and first appeared %.1fh ago",
			in.Trade.WalletID, in.Profile.TradeCount, ageHours),
	}}
}
