package heuristics

import (
	"testing"
	"time"

	"polymarket-watch/internal/config"
	"polymarket-watch/internal/domain"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		MinBetSize:              100,
		FreshnessTradeThreshold: 3,
		FreshnessTimeThreshold:  time.Hour,
		LargeBetMultiplier:      5,
		LargeBetLiquidityFrac:   0.05,
		OffPeakStartHour:        2,
		OffPeakEndHour:          6,
		PrecisionAccuracy:       0.7,
		PrecisionMinSample:      5,
		PrecisionPriceBand:      0.05,
	}
}

func testWeights() config.WeightsConfig {
	return config.WeightsConfig{
		FreshWallet:      25,
		LargeBet:         30,
		LargeBetOffPeak:  10,
		PrecisionHistory: 20,
		Cluster:          25,
		TierBonus:        []float64{0, 5, 10, 15},
		TierMultiplier:   []float64{1, 1, 1.25, 1.5},
	}
}

func baseInput() Input {
	return Input{
		Trade: &domain.TradeEvent{
			WalletID:   "w1",
			MarketID:   "m1",
			Side:       domain.SideYes,
			Size:       500,
			Price:      0.10,
			Timestamp:  base.UnixMilli(),
			SequenceNo: 1,
		},
		Profile: &domain.WalletProfile{
			WalletID:   "w1",
			FirstSeen:  base.Add(-time.Second).UnixMilli(),
			TradeCount: 1,
		},
		Market: &domain.MarketContext{
			MarketID:          "m1",
			Category:          domain.CategoryOther,
			SensitivityTier:   domain.TierNormal,
			LiquidityEstimate: 100000,
		},
		MarketMedian: 100,
	}
}

func flagNames(flags []domain.HeuristicFlag) map[string]bool {
	out := make(map[string]bool, len(flags))
	for _, f := range flags {
		out[f.Name] = true
	}
	return out
}

func TestFreshWallet_Triggers(t *testing.T) {
	// first_seen = T, one trade at T+1s, thresholds 3 trades / 1h.
	ev := NewFreshWallet(testEngineConfig(), testWeights())
	in := baseInput()
	in.Profile.FirstSeen = base.Add(-time.Second).UnixMilli()
	in.Profile.TradeCount = 1

	flags := ev.Evaluate(in)
	if len(flags) != 1 || flags[0].Name != domain.FlagFreshWallet {
		t.Fatalf("expected fresh-wallet flag, got %v", flags)
	}
	if flags[0].Weight != 25 {
		t.Errorf("expected weight 25, got %f", flags[0].Weight)
	}
}

func TestFreshWallet_AgedWalletDoesNotTrigger(t *testing.T) {
	ev := NewFreshWallet(testEngineConfig(), testWeights())
	in := baseInput()
	in.Profile.FirstSeen = base.Add(-2 * time.Hour).UnixMilli()

	if flags := ev.Evaluate(in); len(flags) != 0 {
		t.Errorf("aged wallet should not be fresh: %v", flags)
	}
}

func TestLargeBet_MedianMultiple(t *testing.T) {
	ev := NewLargeBet(testEngineConfig(), testWeights())

	// 10x the rolling median triggers at multiplier 5.
	in := baseInput()
	in.Trade.Size = 1000
	in.MarketMedian = 100
	flags := ev.Evaluate(in)
	if !flagNames(flags)[domain.FlagLargeBet] {
		t.Error("10x median should trigger the large-bet flag")
	}

	// 3x does not.
	in.Trade.Size = 300
	in.Market.LiquidityEstimate = 1e9 // keep the liquidity path out of it
	if flags := ev.Evaluate(in); len(flags) != 0 {
		t.Errorf("3x median should not trigger: %v", flags)
	}
}

func TestLargeBet_LiquidityFraction(t *testing.T) {
	ev := NewLargeBet(testEngineConfig(), testWeights())

	in := baseInput()
	in.Trade.Size = 6000
	in.MarketMedian = 10000 // median path does not trigger
	in.Market.LiquidityEstimate = 100000

	flags := ev.Evaluate(in)
	if !flagNames(flags)[domain.FlagLargeBet] {
		t.Error("6% of liquidity should trigger at fraction 0.05")
	}
}

func TestLargeBet_OffPeakSubFlag(t *testing.T) {
	ev := NewLargeBet(testEngineConfig(), testWeights())

	in := baseInput()
	in.Trade.Size = 1000
	in.Trade.Timestamp = time.Date(2025, 6, 1, 3, 30, 0, 0, time.UTC).UnixMilli()

	names := flagNames(ev.Evaluate(in))
	if !names[domain.FlagLargeBet] || !names[domain.FlagLargeBetOffPeak] {
		t.Errorf("off-peak large bet should carry both flags, got %v", names)
	}

	// Same trade at midday: no sub-flag.
	in.Trade.Timestamp = base.UnixMilli()
	names = flagNames(ev.Evaluate(in))
	if names[domain.FlagLargeBetOffPeak] {
		t.Error("midday trade should not carry the off-peak sub-flag")
	}
}

func TestLargeBet_BelowMinBetSize(t *testing.T) {
	ev := NewLargeBet(testEngineConfig(), testWeights())

	in := baseInput()
	in.Trade.Size = 50 // below min_bet_size 100
	in.MarketMedian = 1

	if flags := ev.Evaluate(in); len(flags) != 0 {
		t.Errorf("bets below min_bet_size never flag: %v", flags)
	}
}

func TestPrecisionHistory_Triggers(t *testing.T) {
	ev := NewPrecisionHistory(testEngineConfig(), testWeights())

	in := baseInput()
	in.Profile.ResolvedSamples = 10
	in.Profile.ResolvedCorrect = 8
	in.Trade.Price = 0.93
	in.ReferencePrice = 0.95

	flags := ev.Evaluate(in)
	if len(flags) != 1 || flags[0].Name != domain.FlagPrecisionHistory {
		t.Fatalf("expected precision flag, got %v", flags)
	}
}

func TestPrecisionHistory_Gates(t *testing.T) {
	ev := NewPrecisionHistory(testEngineConfig(), testWeights())

	// Sample gate: accurate but too few resolved markets.
	in := baseInput()
	in.Profile.ResolvedSamples = 3
	in.Profile.ResolvedCorrect = 3
	in.Trade.Price = 0.95
	in.ReferencePrice = 0.95
	if flags := ev.Evaluate(in); len(flags) != 0 {
		t.Error("sample gate should suppress small-sample overconfidence")
	}

	// Accuracy below threshold.
	in.Profile.ResolvedSamples = 10
	in.Profile.ResolvedCorrect = 5
	if flags := ev.Evaluate(in); len(flags) != 0 {
		t.Error("50% accuracy should not trigger at threshold 0.7")
	}

	// Loose entry.
	in.Profile.ResolvedCorrect = 9
	in.Trade.Price = 0.50
	if flags := ev.Evaluate(in); len(flags) != 0 {
		t.Error("entry outside the price band should not trigger")
	}

	// No reference price available.
	in.Trade.Price = 0.95
	in.ReferencePrice = 0
	if flags := ev.Evaluate(in); len(flags) != 0 {
		t.Error("missing reference price should suppress the flag")
	}
}

func TestMarketSensitivity_TierBonus(t *testing.T) {
	ev := NewMarketSensitivity(testWeights())

	in := baseInput()
	in.Market.SensitivityTier = domain.TierCritical
	in.Market.Category = domain.CategoryRegimeChange

	flags := ev.Evaluate(in)
	if len(flags) != 1 || flags[0].Weight != 15 {
		t.Fatalf("critical tier should add bonus 15, got %v", flags)
	}

	in.Market.SensitivityTier = domain.TierNormal
	if flags := ev.Evaluate(in); len(flags) != 0 {
		t.Error("normal tier has no bonus flag")
	}
}

func TestDefaultSet_OrderStable(t *testing.T) {
	set := DefaultSet(testEngineConfig(), testWeights())

	want := []string{
		domain.FlagFreshWallet,
		domain.FlagLargeBet,
		domain.FlagPrecisionHistory,
		domain.FlagMarketSensitivity,
	}
	if len(set) != len(want) {
		t.Fatalf("expected %d evaluators, got %d", len(want), len(set))
	}
	for i, ev := range set {
		if ev.Name() != want[i] {
			t.Errorf("evaluator %d: expected %s, got %s", i, want[i], ev.Name())
		}
	}
}
