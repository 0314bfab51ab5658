// Package sanity vetoes alerts that pattern-match to known
// false-positive noise: thin markets, odds moved by a single whale
// print, and wallets trading too fast to be acting on information.
package sanity

import (
	"math"
	"sync"
	"time"

	"polymarket-watch/internal/domain"
)

// Veto reason codes, used as metric labels.
const (
	ReasonLowLiquidity = "low_liquidity"
	ReasonPriceJump    = "single_trade_price_jump"
	ReasonHighFreq     = "high_frequency_trader"
)

// jumpSizeMultiple: a price jump only counts as single-trade-driven
// when the trade is this many times the recent average size.
const jumpSizeMultiple = 5

// defaultRecentDepth bounds the per-market price/size window.
const defaultRecentDepth = 16

// Options configures a Filter. A zero value disables the corresponding
// check.
type Options struct {
	MinLiquidity  float64       // USD floor for the market
	MaxPriceJump  float64       // absolute price move vs the recent average
	HFTTradeLimit int           // trades per HFTWindow that mark a wallet high-frequency
	HFTWindow     time.Duration // lookback for the trade-rate check
	RecentDepth   int           // per-market window length, defaults to 16
}

// Filter holds per-market recent price/size windows. Checks read the
// window as it stood before the trade under test; Observe folds the
// trade in afterwards.
type Filter struct {
	minLiquidity  float64
	maxPriceJump  float64
	hftTradeLimit int
	hftWindow     time.Duration
	recentDepth   int

	mu      sync.Mutex
	markets map[string]*recentWindow
}

type recentWindow struct {
	prices []float64
	sizes  []float64
}

// NewFilter creates a sanity filter.
func NewFilter(opts Options) *Filter {
	depth := opts.RecentDepth
	if depth <= 0 {
		depth = defaultRecentDepth
	}
	return &Filter{
		minLiquidity:  opts.MinLiquidity,
		maxPriceJump:  opts.MaxPriceJump,
		hftTradeLimit: opts.HFTTradeLimit,
		hftWindow:     opts.HFTWindow,
		recentDepth:   depth,
		markets:       make(map[string]*recentWindow),
	}
}

// Check runs all enabled vetoes and returns the first reason that
// fires, or "" when the alert should go out.
func (f *Filter) Check(trade *domain.TradeEvent, prof *domain.WalletProfile, market *domain.MarketContext) string {
	if f.lowLiquidity(market) {
		return ReasonLowLiquidity
	}
	if f.singleTradeJump(trade) {
		return ReasonPriceJump
	}
	if f.highFrequency(trade, prof) {
		return ReasonHighFreq
	}
	return ""
}

// Observe folds one trade into its market's window.
func (f *Filter) Observe(trade *domain.TradeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.markets[trade.MarketID]
	if !ok {
		w = &recentWindow{}
		f.markets[trade.MarketID] = w
	}
	w.prices = append(w.prices, trade.Price)
	w.sizes = append(w.sizes, trade.Size)
	if len(w.prices) > f.recentDepth {
		w.prices = w.prices[1:]
		w.sizes = w.sizes[1:]
	}
}

// lowLiquidity vetoes thin markets. An unknown liquidity estimate
// (zero) passes; the feed does not report it for every market.
func (f *Filter) lowLiquidity(market *domain.MarketContext) bool {
	if f.minLiquidity <= 0 || market.LiquidityEstimate <= 0 {
		return false
	}
	return market.LiquidityEstimate < f.minLiquidity
}

// singleTradeJump vetoes trades where the price moved past the jump
// threshold versus the recent average AND the trade itself dwarfs the
// recent average size, meaning the print is the move.
func (f *Filter) singleTradeJump(trade *domain.TradeEvent) bool {
	if f.maxPriceJump <= 0 {
		return false
	}

	f.mu.Lock()
	w, ok := f.markets[trade.MarketID]
	var avgPrice, avgSize float64
	n := 0
	if ok {
		n = len(w.prices)
		for i := 0; i < n; i++ {
			avgPrice += w.prices[i]
			avgSize += w.sizes[i]
		}
	}
	f.mu.Unlock()

	if n < 2 {
		return false
	}
	avgPrice /= float64(n)
	avgSize /= float64(n)

	if math.Abs(trade.Price-avgPrice) <= f.maxPriceJump {
		return false
	}
	return trade.Size > jumpSizeMultiple*avgSize
}

// highFrequency vetoes wallets whose bounded profile history shows at
// least the configured number of trades inside the lookback ending at
// the trade's own event time. The history cap means extreme rates are
// undercounted, never overcounted.
func (f *Filter) highFrequency(trade *domain.TradeEvent, prof *domain.WalletProfile) bool {
	if f.hftTradeLimit <= 0 || f.hftWindow <= 0 {
		return false
	}
	cutoff := trade.Timestamp - f.hftWindow.Milliseconds()

	count := 0
	for _, h := range prof.History {
		if h.Timestamp >= cutoff {
			count++
		}
	}
	return count >= f.hftTradeLimit
}
