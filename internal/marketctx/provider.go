// Package marketctx serves read-mostly snapshots of per-market
// metadata. Snapshots are replaced wholesale on refresh; readers never
// see a partially updated view.
package marketctx

import (
	"sync"

	"polymarket-watch/internal/domain"
)

// Provider holds the current market context snapshot.
type Provider struct {
	mu       sync.RWMutex
	snapshot map[string]*domain.MarketContext
	version  int64
}

// NewProvider creates an empty Provider.
func NewProvider() *Provider {
	return &Provider{snapshot: make(map[string]*domain.MarketContext)}
}

// Update replaces the snapshot with the given contexts. Categories and
// sensitivity tiers are filled in when the feed left them unset.
// The version increases by one per refresh.
func (p *Provider) Update(contexts []*domain.MarketContext) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.version++
	next := make(map[string]*domain.MarketContext, len(contexts))
	for _, c := range contexts {
		if c == nil || c.MarketID == "" {
			continue
		}
		cc := *c
		if cc.Category == "" {
			cc.Category = CategorizeQuestion(cc.Question)
		}
		cc.SensitivityTier = domain.TierForCategory(cc.Category)
		cc.Version = p.version
		next[cc.MarketID] = &cc
	}
	p.snapshot = next
	return p.version
}

// Get returns the context for a market, or a zero-tier fallback when
// the market is unknown. The returned value must not be mutated.
func (p *Provider) Get(marketID string) *domain.MarketContext {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if c, ok := p.snapshot[marketID]; ok {
		return c
	}
	return &domain.MarketContext{
		MarketID:        marketID,
		Category:        domain.CategoryOther,
		SensitivityTier: domain.TierNormal,
		Version:         p.version,
	}
}

// Version returns the current snapshot version.
func (p *Provider) Version() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Len returns the number of markets in the current snapshot.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.snapshot)
}
