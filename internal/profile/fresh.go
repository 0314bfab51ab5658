package profile

import (
	"time"

	"polymarket-watch/internal/domain"
)

// IsFresh reports whether a wallet still counts as fresh: at most
// maxTrades processed AND first activity within maxAge of now.
func IsFresh(p *domain.WalletProfile, now time.Time, maxTrades int64, maxAge time.Duration) bool {
	if p.TradeCount == 0 || p.FirstSeen == 0 {
		return true
	}
	if p.TradeCount > maxTrades {
		return false
	}
	age := now.UnixMilli() - p.FirstSeen
	return age <= maxAge.Milliseconds()
}
