package pipeline

import (
	"testing"
	"time"

	"polymarket-watch/internal/domain"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seqTrade(seq int64) *domain.TradeEvent {
	return &domain.TradeEvent{
		WalletID:   "w1",
		MarketID:   "m1",
		Side:       domain.SideYes,
		Size:       100,
		Price:      0.5,
		Timestamp:  t0.UnixMilli() + seq,
		SequenceNo: seq,
	}
}

func seqs(rel []releasedTrade) []int64 {
	out := make([]int64, len(rel))
	for i, r := range rel {
		out[i] = r.trade.SequenceNo
	}
	return out
}

func TestReorder_InOrderPassesThrough(t *testing.T) {
	b := newReorderBuffer(10 * time.Second)

	for i := int64(1); i <= 3; i++ {
		rel := b.add(seqTrade(i), t0)
		if len(rel) != 1 || rel[0].trade.SequenceNo != i || rel[0].late {
			t.Fatalf("seq %d: expected immediate in-order release, got %+v", i, rel)
		}
	}
}

func TestReorder_GapHeldThenFilled(t *testing.T) {
	b := newReorderBuffer(10 * time.Second)

	b.add(seqTrade(1), t0)

	// 3 and 4 arrive before 2: held.
	if rel := b.add(seqTrade(3), t0); len(rel) != 0 {
		t.Fatalf("gapped trade must be held, got %+v", rel)
	}
	if rel := b.add(seqTrade(4), t0); len(rel) != 0 {
		t.Fatalf("gapped trade must be held, got %+v", rel)
	}

	// 2 fills the gap: 2, 3, 4 release together in order, none late.
	rel := b.add(seqTrade(2), t0.Add(time.Second))
	got := seqs(rel)
	if len(got) != 3 || got[0] != 2 || got[1] != 3 || got[2] != 4 {
		t.Fatalf("expected [2 3 4], got %v", got)
	}
	for _, r := range rel {
		if r.late {
			t.Errorf("seq %d wrongly marked late", r.trade.SequenceNo)
		}
	}
}

func TestReorder_FlushSkipsGapAfterLag(t *testing.T) {
	b := newReorderBuffer(10 * time.Second)

	b.add(seqTrade(1), t0)
	b.add(seqTrade(3), t0) // 2 missing

	if rel := b.flush(t0.Add(5 * time.Second)); len(rel) != 0 {
		t.Fatalf("flush before the lag must hold, got %+v", rel)
	}

	rel := b.flush(t0.Add(11 * time.Second))
	if len(rel) != 1 || rel[0].trade.SequenceNo != 3 || rel[0].late {
		t.Fatalf("expected seq 3 released on-time by flush, got %+v", rel)
	}

	// The skipped sequence finally arrives: late.
	rel = b.add(seqTrade(2), t0.Add(12*time.Second))
	if len(rel) != 1 || !rel[0].late {
		t.Fatalf("skipped sequence must release late, got %+v", rel)
	}
}

func TestReorder_BelowWatermarkIsLate(t *testing.T) {
	b := newReorderBuffer(10 * time.Second)

	b.add(seqTrade(5), t0)
	rel := b.add(seqTrade(4), t0)
	if len(rel) != 1 || !rel[0].late {
		t.Fatalf("sequence below the watermark must be late, got %+v", rel)
	}
}

func TestReorder_DrainReleasesEverything(t *testing.T) {
	b := newReorderBuffer(10 * time.Second)

	b.add(seqTrade(1), t0)
	b.add(seqTrade(4), t0)
	b.add(seqTrade(3), t0)

	rel := b.drain()
	got := seqs(rel)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("expected drain [3 4], got %v", got)
	}
	if b.depth() != 0 {
		t.Errorf("buffer should be empty after drain, depth=%d", b.depth())
	}
}

func TestReorder_FirstTradeAnySequence(t *testing.T) {
	b := newReorderBuffer(10 * time.Second)

	// Streams join mid-feed; the first sequence seen sets the watermark.
	rel := b.add(seqTrade(1000), t0)
	if len(rel) != 1 || rel[0].late {
		t.Fatalf("first trade releases immediately, got %+v", rel)
	}
	if rel := b.add(seqTrade(1001), t0); len(rel) != 1 || rel[0].late {
		t.Fatalf("next sequence releases immediately, got %+v", rel)
	}
}
