package alert

import (
	"strings"
	"testing"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/idhash"
)

func fixedBuilder() *Builder {
	b := NewBuilder()
	b.newID = func() string { return "alert-1" }
	return b
}

func testTrade() *domain.TradeEvent {
	return &domain.TradeEvent{
		WalletID:   "w1",
		MarketID:   "m1",
		Side:       domain.SideYes,
		Size:       5000,
		Price:      0.12,
		Timestamp:  1_700_000_000_000,
		SequenceNo: 42,
	}
}

func testMarket() *domain.MarketContext {
	return &domain.MarketContext{
		MarketID: "m1",
		Question: "Will the ceasefire hold through June?",
	}
}

func TestBuild_FlagsSortedByWeightDescending(t *testing.T) {
	b := fixedBuilder()

	flags := []domain.HeuristicFlag{
		{Name: domain.FlagMarketSensitivity, Weight: 15, Rationale: "high-sensitivity market"},
		{Name: domain.FlagLargeBet, Weight: 45, Rationale: "10x rolling median"},
		{Name: domain.FlagFreshWallet, Weight: 25, Rationale: "wallet 1h old"},
	}

	rec := b.Build(testTrade(), testMarket(), flags, 85, nil, 1_700_000_000_000)

	want := []string{domain.FlagLargeBet, domain.FlagFreshWallet, domain.FlagMarketSensitivity}
	for i, f := range rec.Flags {
		if f.Name != want[i] {
			t.Fatalf("flag %d: expected %s, got %s", i, want[i], f.Name)
		}
	}
}

func TestBuild_EqualWeightsBreakTiesByName(t *testing.T) {
	b := fixedBuilder()

	flags := []domain.HeuristicFlag{
		{Name: domain.FlagPrecisionHistory, Weight: 20},
		{Name: domain.FlagFreshWallet, Weight: 20},
	}

	rec := b.Build(testTrade(), testMarket(), flags, 40, nil, 0)
	if rec.Flags[0].Name != domain.FlagFreshWallet {
		t.Errorf("ties break lexicographically, got %s first", rec.Flags[0].Name)
	}
}

func TestBuild_ClusterWalletsAndRefs(t *testing.T) {
	b := fixedBuilder()

	cand := &domain.ClusterCandidate{
		MarketID: "m1",
		Wallets:  []string{"w1", "w2", "w3", "w4"},
		TradeRefs: []domain.TradeRef{
			{MarketID: "m1", SequenceNo: 40},
			{MarketID: "m1", SequenceNo: 41},
			{MarketID: "m1", SequenceNo: 42},
			{MarketID: "m1", SequenceNo: 43},
		},
	}

	rec := b.Build(testTrade(), testMarket(), nil, 62, cand, 0)
	if len(rec.Wallets) != 4 {
		t.Fatalf("cluster alerts carry all participating wallets, got %v", rec.Wallets)
	}
	if len(rec.TradeRefs) != 4 {
		t.Fatalf("cluster alerts carry all contributing trade refs, got %v", rec.TradeRefs)
	}
	if rec.DedupKey != idhash.ComputeDedupKey("m1", cand.Wallets) {
		t.Error("dedup key must cover the full wallet set")
	}
}

func TestBuild_SingleWalletDedupKey(t *testing.T) {
	b := fixedBuilder()

	rec := b.Build(testTrade(), testMarket(), nil, 62, nil, 0)
	if rec.DedupKey != idhash.ComputeDedupKey("m1", []string{"w1"}) {
		t.Error("single-wallet alert keys on that wallet alone")
	}
	if len(rec.Wallets) != 1 || rec.Wallets[0] != "w1" {
		t.Errorf("expected [w1], got %v", rec.Wallets)
	}
}

func TestBuild_ExplanationListsEveryFlag(t *testing.T) {
	b := fixedBuilder()

	flags := []domain.HeuristicFlag{
		{Name: domain.FlagFreshWallet, Weight: 25, Rationale: "wallet first seen 2h ago"},
		{Name: domain.FlagLargeBet, Weight: 30, Rationale: "bet is 8x the market median"},
	}

	rec := b.Build(testTrade(), testMarket(), flags, 55, nil, 0)
	for _, f := range flags {
		if !strings.Contains(rec.Explanation, f.Rationale) {
			t.Errorf("explanation missing rationale %q:\n%s", f.Rationale, rec.Explanation)
		}
	}
	if !strings.Contains(rec.Explanation, "confidence 55.0") {
		t.Errorf("explanation missing total score:\n%s", rec.Explanation)
	}
	if !strings.Contains(rec.Explanation, testMarket().Question) {
		t.Error("explanation should lead with the market question")
	}
}

func TestBuild_DeterministicApartFromID(t *testing.T) {
	b := fixedBuilder()

	flags := []domain.HeuristicFlag{
		{Name: domain.FlagLargeBet, Weight: 30, Rationale: "r"},
		{Name: domain.FlagFreshWallet, Weight: 25, Rationale: "r"},
	}

	r1 := b.Build(testTrade(), testMarket(), flags, 55, nil, 123)
	r2 := b.Build(testTrade(), testMarket(), flags, 55, nil, 123)
	if r1.Explanation != r2.Explanation || r1.DedupKey != r2.DedupKey {
		t.Error("identical inputs must produce identical records")
	}
}
