package domain

// ProfileTrade is one entry of a wallet's bounded trade history.
type ProfileTrade struct {
	MarketID   string
	SequenceNo int64
	Side       Side
	Size       float64
	Price      float64
	Timestamp  int64
}

// WalletProfile is the mutable behavioral state kept per wallet.
// Mutated only by the profile store; evicted after an idle period.
type WalletProfile struct {
	WalletID         string
	FirstSeen        int64 // unix ms of first observed trade
	LastActivity     int64 // unix ms of most recent trade
	TradeCount       int64
	CumulativeVolume float64
	RollingAvgSize   float64

	// History holds the last N trades, oldest first.
	History []ProfileTrade

	// Directional accuracy from resolved markets.
	ResolvedSamples int64
	ResolvedCorrect int64
}

// AccuracyRatio returns the fraction of resolved-market trades whose
// side matched the resolution. Zero when no samples exist.
func (p *WalletProfile) AccuracyRatio() float64 {
	if p.ResolvedSamples == 0 {
		return 0
	}
	return float64(p.ResolvedCorrect) / float64(p.ResolvedSamples)
}
