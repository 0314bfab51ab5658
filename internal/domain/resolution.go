package domain

// MarketResolution records the settled outcome of a market, supplied by
// the resolution feed. Drives directional-accuracy tallies.
type MarketResolution struct {
	MarketID        string
	Outcome         Side
	ResolutionPrice float64 // price of the winning side at settlement
	ResolvedAt      int64   // unix ms
}
