// Package heuristics holds the closed set of per-trade detectors. Each
// evaluator scores one trade from the wallet profile and market context
// and emits zero or more weighted flags.
package heuristics

import (
	"polymarket-watch/internal/config"
	"polymarket-watch/internal/domain"
)

// Input carries everything an evaluator may look at for one trade.
// All fields are read-only snapshots.
type Input struct {
	Trade   *domain.TradeEvent
	Profile *domain.WalletProfile
	Market  *domain.MarketContext

	// MarketMedian is the rolling median trade size for the market.
	MarketMedian float64

	// ReferencePrice is the tight-entry reference: the market consensus
	// price live, or the resolution price in replay. Zero when unknown.
	ReferencePrice float64
}

// Evaluator scores one trade. Implementations are pure: identical
// inputs yield identical flags.
type Evaluator interface {
	Name() string
	Evaluate(in Input) []domain.HeuristicFlag
}

// DefaultSet returns the evaluators in their registered order. New
// heuristics are added by extending this list.
func DefaultSet(engine config.EngineConfig, weights config.WeightsConfig) []Evaluator {
	return []Evaluator{
		NewFreshWallet(engine, weights),
		NewLargeBet(engine, weights),
		NewPrecisionHistory(engine, weights),
		NewMarketSensitivity(weights),
	}
}
