// Package scoring turns triggered heuristic flags into one
// deterministic confidence score.
package scoring

import (
	"fmt"

	"polymarket-watch/internal/config"
	"polymarket-watch/internal/domain"
)

// Result is the outcome of aggregating one trade's flags.
type Result struct {
	Flags     []domain.HeuristicFlag
	Score     float64
	Qualifies bool // score >= threshold (inclusive)
}

// Aggregator sums flag weights into a confidence score. Summation is
// commutative: the result depends only on the set of active flags.
type Aggregator struct {
	threshold         float64
	clusterWeight     float64
	clusterFreshBoost float64
	tierMultiplier    []float64
}

// NewAggregator creates an aggregator.
func NewAggregator(engine config.EngineConfig, weights config.WeightsConfig) *Aggregator {
	return &Aggregator{
		threshold:         engine.AlertThreshold,
		clusterWeight:     weights.Cluster,
		clusterFreshBoost: engine.ClusterFreshBoost,
		tierMultiplier:    weights.TierMultiplier,
	}
}

// Aggregate combines per-trade flags with an optional cluster candidate
// covering the trade. Large-bet and cluster weights scale with the
// market's sensitivity tier. A nil candidate means the trade is not
// inside any detected cluster.
//
// Returns an error only on an internal invariant violation (negative
// weight or score); the caller aborts that single trade's evaluation.
func (a *Aggregator) Aggregate(flags []domain.HeuristicFlag, cand *domain.ClusterCandidate, tier domain.SensitivityTier) (*Result, error) {
	mult := 1.0
	if t := int(tier); t >= 0 && t < len(a.tierMultiplier) {
		mult = a.tierMultiplier[t]
	}

	active := make([]domain.HeuristicFlag, 0, len(flags)+1)
	for _, f := range flags {
		if f.Weight < 0 {
			return nil, fmt.Errorf("invariant violation: flag %s has negative weight %f", f.Name, f.Weight)
		}
		if f.Name == domain.FlagLargeBet || f.Name == domain.FlagLargeBetOffPeak {
			f.Weight *= mult
		}
		active = append(active, f)
	}

	if cand != nil {
		w := a.clusterWeight * mult
		if cand.FreshMajority {
			w *= a.clusterFreshBoost
		}
		active = append(active, domain.HeuristicFlag{
			Name:   domain.FlagClusterActivity,
			Weight: w,
			Rationale: fmt.Sprintf("%d distinct wallets entered %s on %s within the window (alignment %.0f%%)",
				len(cand.Wallets), cand.MarketID, cand.Side, 100*cand.AlignmentRatio),
		})
	}

	var score float64
	for _, f := range active {
		score += f.Weight
	}
	if score < 0 {
		return nil, fmt.Errorf("invariant violation: negative score %f", score)
	}

	return &Result{
		Flags:     active,
		Score:     score,
		Qualifies: len(active) > 0 && score >= a.threshold,
	}, nil
}
