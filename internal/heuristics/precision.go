package heuristics

import (
	"fmt"
	"math"

	"polymarket-watch/internal/config"
	"polymarket-watch/internal/domain"
)

// PrecisionHistory flags wallets with a proven directional-accuracy
// record entering tight to the reference price. The minimum resolved
// sample gate guards against small-sample overconfidence.
type PrecisionHistory struct {
	accuracyThreshold float64
	minSample         int64
	priceBand         float64
	weight            float64
}

// NewPrecisionHistory creates the precision-history evaluator.
func NewPrecisionHistory(engine config.EngineConfig, weights config.WeightsConfig) *PrecisionHistory {
	return &PrecisionHistory{
		accuracyThreshold: engine.PrecisionAccuracy,
		minSample:         engine.PrecisionMinSample,
		priceBand:         engine.PrecisionPriceBand,
		weight:            weights.PrecisionHistory,
	}
}

func (p *PrecisionHistory) Name() string { return domain.FlagPrecisionHistory }

func (p *PrecisionHistory) Evaluate(in Input) []domain.HeuristicFlag {
	if in.Profile.ResolvedSamples < p.minSample {
		return nil
	}
	accuracy := in.Profile.AccuracyRatio()
	if accuracy < p.accuracyThreshold {
		return nil
	}
	if in.ReferencePrice <= 0 {
		return nil
	}
	if math.Abs(in.Trade.Price-in.ReferencePrice) > p.priceBand {
		return nil
	}

	return []domain.HeuristicFlag{{
		Name:   domain.FlagPrecisionHistory,
		Weight: p.weight,
		Rationale: fmt.Sprintf("wallet is %.0f%% directionally accurate over %d resolved markets and entered within %.2f of reference %.2f",
			100*accuracy, in.Profile.ResolvedSamples, p.priceBand, in.ReferencePrice),
	}}
}
