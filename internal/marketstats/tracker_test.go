package marketstats

import "testing"

func TestMedian_OddAndEven(t *testing.T) {
	tr := NewTracker(16)

	tr.Observe("m1", 10)
	tr.Observe("m1", 30)
	tr.Observe("m1", 20)
	if got := tr.Median("m1"); got != 20 {
		t.Errorf("odd count: expected median 20, got %f", got)
	}

	tr.Observe("m1", 40)
	if got := tr.Median("m1"); got != 25 {
		t.Errorf("even count: expected median 25, got %f", got)
	}
}

func TestMedian_UnknownMarket(t *testing.T) {
	tr := NewTracker(16)
	if got := tr.Median("nope"); got != 0 {
		t.Errorf("expected 0 for unknown market, got %f", got)
	}
}

func TestObserve_ReservoirWraps(t *testing.T) {
	tr := NewTracker(4)

	// Fill with small sizes, then overwrite with large ones.
	for i := 0; i < 4; i++ {
		tr.Observe("m1", 1)
	}
	for i := 0; i < 4; i++ {
		tr.Observe("m1", 100)
	}

	if got := tr.Median("m1"); got != 100 {
		t.Errorf("old sizes should have rolled out, median %f", got)
	}
	if got := tr.Count("m1"); got != 4 {
		t.Errorf("count should stay at reservoir size, got %d", got)
	}
}

func TestMarketsIndependent(t *testing.T) {
	tr := NewTracker(8)
	tr.Observe("m1", 10)
	tr.Observe("m2", 1000)

	if tr.Median("m1") != 10 || tr.Median("m2") != 1000 {
		t.Error("markets must not share reservoirs")
	}
}
