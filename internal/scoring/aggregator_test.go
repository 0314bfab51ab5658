package scoring

import (
	"testing"

	"polymarket-watch/internal/config"
	"polymarket-watch/internal/domain"
)

func newTestAggregator(threshold float64) *Aggregator {
	return NewAggregator(
		config.EngineConfig{AlertThreshold: threshold, ClusterFreshBoost: 1.5},
		config.WeightsConfig{
			Cluster:        25,
			TierMultiplier: []float64{1, 1, 1.25, 1.5},
		},
	)
}

func TestAggregate_SumEqualsWeights(t *testing.T) {
	a := newTestAggregator(60)

	flags := []domain.HeuristicFlag{
		{Name: domain.FlagFreshWallet, Weight: 25},
		{Name: domain.FlagPrecisionHistory, Weight: 20},
		{Name: domain.FlagMarketSensitivity, Weight: 15},
	}

	res, err := a.Aggregate(flags, nil, domain.TierNormal)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if res.Score != 60 {
		t.Errorf("expected score 60, got %f", res.Score)
	}
	if !res.Qualifies {
		t.Error("score exactly at threshold must qualify (inclusive)")
	}
}

func TestAggregate_BelowThresholdDiscarded(t *testing.T) {
	a := newTestAggregator(60)

	res, err := a.Aggregate([]domain.HeuristicFlag{
		{Name: domain.FlagFreshWallet, Weight: 25},
	}, nil, domain.TierNormal)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if res.Qualifies {
		t.Error("25 < 60 must not qualify")
	}
}

func TestAggregate_Commutative(t *testing.T) {
	a := newTestAggregator(10)

	flags := []domain.HeuristicFlag{
		{Name: domain.FlagFreshWallet, Weight: 25},
		{Name: domain.FlagLargeBet, Weight: 30},
		{Name: domain.FlagMarketSensitivity, Weight: 5},
	}
	reversed := []domain.HeuristicFlag{flags[2], flags[1], flags[0]}

	r1, err1 := a.Aggregate(flags, nil, domain.TierNormal)
	r2, err2 := a.Aggregate(reversed, nil, domain.TierNormal)
	if err1 != nil || err2 != nil {
		t.Fatalf("Aggregate failed: %v %v", err1, err2)
	}
	if r1.Score != r2.Score {
		t.Errorf("score must not depend on flag order: %f vs %f", r1.Score, r2.Score)
	}
}

func TestAggregate_TierScalesLargeBetAndCluster(t *testing.T) {
	a := newTestAggregator(0)

	flags := []domain.HeuristicFlag{
		{Name: domain.FlagFreshWallet, Weight: 25},
		{Name: domain.FlagLargeBet, Weight: 30},
	}
	cand := &domain.ClusterCandidate{
		MarketID: "m1", Wallets: []string{"a", "b", "c", "d"},
		Side: domain.SideYes, AlignmentRatio: 1.0,
	}

	res, err := a.Aggregate(flags, cand, domain.TierCritical)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	// fresh 25 (unscaled) + large 30*1.5 + cluster 25*1.5
	want := 25.0 + 45.0 + 37.5
	if res.Score != want {
		t.Errorf("expected score %f, got %f", want, res.Score)
	}
}

func TestAggregate_FreshMajorityBoostsCluster(t *testing.T) {
	a := newTestAggregator(0)

	cand := &domain.ClusterCandidate{
		MarketID: "m1", Wallets: []string{"a", "b", "c", "d"},
		Side: domain.SideYes, AlignmentRatio: 1.0, FreshMajority: true,
	}

	res, err := a.Aggregate(nil, cand, domain.TierNormal)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if want := 25.0 * 1.5; res.Score != want {
		t.Errorf("expected boosted cluster weight %f, got %f", want, res.Score)
	}
}

func TestAggregate_NoFlagsNeverQualifies(t *testing.T) {
	a := newTestAggregator(0)

	res, err := a.Aggregate(nil, nil, domain.TierNormal)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if res.Qualifies {
		t.Error("an empty flag set must not qualify even at threshold 0")
	}
}

func TestAggregate_NegativeWeightIsInvariantViolation(t *testing.T) {
	a := newTestAggregator(60)

	_, err := a.Aggregate([]domain.HeuristicFlag{
		{Name: domain.FlagFreshWallet, Weight: -1},
	}, nil, domain.TierNormal)
	if err == nil {
		t.Fatal("negative weight must abort this trade's evaluation")
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	a := newTestAggregator(50)

	flags := []domain.HeuristicFlag{
		{Name: domain.FlagFreshWallet, Weight: 25},
		{Name: domain.FlagLargeBet, Weight: 30},
	}

	first, err := a.Aggregate(flags, nil, domain.TierHigh)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		res, err := a.Aggregate(flags, nil, domain.TierHigh)
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		if res.Score != first.Score || res.Qualifies != first.Qualifies {
			t.Fatalf("run %d: result changed on identical input", i)
		}
	}
}
