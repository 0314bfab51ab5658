package normalize

import (
	"errors"
	"testing"
	"time"

	"polymarket-watch/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func validRaw() RawTrade {
	return RawTrade{
		Wallet:     "0xAbC123",
		MarketID:   "cond-42",
		Outcome:    "Yes",
		Size:       1000,
		Price:      0.12,
		Timestamp:  fixedNow().Add(-time.Minute).Unix(),
		SequenceNo: 7,
	}
}

func newTestNormalizer() *Normalizer {
	return New(Options{ClockSkewTolerance: 5 * time.Minute, Now: fixedNow})
}

func TestNormalize_Valid(t *testing.T) {
	n := newTestNormalizer()

	ev, err := n.Normalize(validRaw())
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if ev.WalletID != "0xabc123" {
		t.Errorf("wallet should be lowercased, got %s", ev.WalletID)
	}
	if ev.Side != domain.SideYes {
		t.Errorf("expected YES side, got %s", ev.Side)
	}
	if ev.Size != 1000*0.12 {
		t.Errorf("expected notional size 120, got %f", ev.Size)
	}
	if ev.SequenceNo != 7 {
		t.Errorf("expected sequence 7, got %d", ev.SequenceNo)
	}
}

func TestNormalize_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawTrade)
		reason string
	}{
		{"missing wallet", func(r *RawTrade) { r.Wallet = "  " }, ReasonMissingWallet},
		{"missing market", func(r *RawTrade) { r.MarketID = "" }, ReasonMissingMarket},
		{"unknown outcome", func(r *RawTrade) { r.Outcome = "MAYBE" }, ReasonBadSide},
		{"zero size", func(r *RawTrade) { r.Size = 0 }, ReasonBadSize},
		{"negative size", func(r *RawTrade) { r.Size = -5 }, ReasonBadSize},
		{"price at bound", func(r *RawTrade) { r.Price = 1.0 }, ReasonBadPrice},
		{"future timestamp", func(r *RawTrade) { r.Timestamp = fixedNow().Add(time.Hour).Unix() }, ReasonClockSkew},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := newTestNormalizer()
			raw := validRaw()
			tc.mutate(&raw)

			_, err := n.Normalize(raw)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !errors.Is(err, ErrMalformedEvent) {
				t.Errorf("error should wrap ErrMalformedEvent")
			}
			var mErr *MalformedEventError
			if !errors.As(err, &mErr) {
				t.Fatalf("expected *MalformedEventError, got %T", err)
			}
			if mErr.Reason != tc.reason {
				t.Errorf("expected reason %s, got %s", tc.reason, mErr.Reason)
			}
		})
	}
}

func TestNormalize_CountsDrops(t *testing.T) {
	n := newTestNormalizer()

	bad := validRaw()
	bad.Size = 0
	for i := 0; i < 3; i++ {
		n.Normalize(bad)
	}

	counts := n.DroppedCounts()
	if counts[ReasonBadSize] != 3 {
		t.Errorf("expected 3 bad_size drops, got %d", counts[ReasonBadSize])
	}
}

func TestNormalize_PastEventsTolerated(t *testing.T) {
	n := newTestNormalizer()

	raw := validRaw()
	raw.Timestamp = fixedNow().Add(-48 * time.Hour).Unix()

	if _, err := n.Normalize(raw); err != nil {
		t.Errorf("old events are late, not malformed: %v", err)
	}
}
