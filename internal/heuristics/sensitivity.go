package heuristics

import (
	"fmt"

	"polymarket-watch/internal/config"
	"polymarket-watch/internal/domain"
)

// MarketSensitivity contributes an additive bonus for consequential
// market categories. The per-tier scaling of large-bet and cluster
// flags is applied by the aggregator, not here.
type MarketSensitivity struct {
	tierBonus []float64
}

// NewMarketSensitivity creates the sensitivity evaluator.
func NewMarketSensitivity(weights config.WeightsConfig) *MarketSensitivity {
	return &MarketSensitivity{tierBonus: weights.TierBonus}
}

func (m *MarketSensitivity) Name() string { return domain.FlagMarketSensitivity }

func (m *MarketSensitivity) Evaluate(in Input) []domain.HeuristicFlag {
	tier := int(in.Market.SensitivityTier)
	if tier < 0 || tier >= len(m.tierBonus) {
		return nil
	}
	bonus := m.tierBonus[tier]
	if bonus <= 0 {
		return nil
	}

	return []domain.HeuristicFlag{{
		Name:   domain.FlagMarketSensitivity,
		Weight: bonus,
		Rationale: fmt.Sprintf("market category %s is sensitivity tier %d",
			in.Market.Category, tier),
	}}
}
