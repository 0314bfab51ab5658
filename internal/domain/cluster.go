package domain

// ClusterCandidate describes coordinated entry into one market: a set
// of distinct wallets trading the same side within a short window.
// Ephemeral; referenced by the aggregator for trades inside the window.
type ClusterCandidate struct {
	MarketID       string
	Wallets        []string // sorted, distinct
	TradeRefs      []TradeRef
	Side           Side    // dominant direction
	AlignmentRatio float64 // fraction of window trades on the dominant side
	WindowStart    int64   // unix ms
	WindowEnd      int64   // unix ms
	FreshMajority  bool    // at least half the wallets are fresh/low-history
}
