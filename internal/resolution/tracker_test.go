package resolution

import (
	"io"
	"log"
	"testing"
	"time"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/profile"
)

func newTestTracker(t *testing.T) (*Tracker, *profile.Store) {
	t.Helper()
	profiles := profile.NewStore(profile.Options{
		HistoryLimit: 64,
		IdleEviction: 72 * time.Hour,
		Logger:       log.New(io.Discard, "", 0),
	})
	tracker := NewTracker(Options{
		Profiles: profiles,
		Logger:   log.New(io.Discard, "", 0),
	})
	return tracker, profiles
}

func TestApply_UpdatesAccuracyOnce(t *testing.T) {
	tracker, profiles := newTestTracker(t)

	profiles.Update(&domain.TradeEvent{
		WalletID: "w1", MarketID: "m1", Side: domain.SideYes,
		Size: 100, Price: 0.3, Timestamp: 1000, SequenceNo: 1,
	})

	res := &domain.MarketResolution{
		MarketID: "m1", Outcome: domain.SideYes,
		ResolutionPrice: 1.0, ResolvedAt: 2000,
	}

	if updated := tracker.Apply(res); updated != 1 {
		t.Fatalf("expected 1 profile updated, got %d", updated)
	}
	p := profiles.GetOrCreate("w1")
	if p.ResolvedSamples != 1 || p.ResolvedCorrect != 1 {
		t.Errorf("expected 1/1 accuracy tally, got %d/%d", p.ResolvedCorrect, p.ResolvedSamples)
	}

	// Redelivery must not double-count.
	if updated := tracker.Apply(res); updated != 0 {
		t.Errorf("re-applied resolution must be a no-op, got %d", updated)
	}
	p = profiles.GetOrCreate("w1")
	if p.ResolvedSamples != 1 {
		t.Errorf("samples double-counted: %d", p.ResolvedSamples)
	}
}

func TestApplied_TracksMarkets(t *testing.T) {
	tracker, _ := newTestTracker(t)

	if tracker.Applied("m1") {
		t.Error("unseen market should not be applied")
	}
	tracker.Apply(&domain.MarketResolution{MarketID: "m1", Outcome: domain.SideNo, ResolvedAt: 1})
	if !tracker.Applied("m1") {
		t.Error("applied market should be recorded")
	}
}
