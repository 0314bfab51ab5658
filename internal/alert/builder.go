// Package alert assembles qualified evaluations into explainable,
// deterministic alert records.
package alert

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/idhash"
)

// Builder turns a scored trade (optionally with its cluster) into an
// AlertRecord. Apart from the generated ID and creation time, identical
// inputs build byte-identical records.
type Builder struct {
	newID func() string
}

// NewBuilder creates a builder using random UUIDs for alert IDs.
func NewBuilder() *Builder {
	return &Builder{newID: func() string { return uuid.NewString() }}
}

// Build assembles an alert for one qualified trade. cand may be nil
// when no cluster covers the trade. createdAt is unix ms.
func (b *Builder) Build(trade *domain.TradeEvent, market *domain.MarketContext, flags []domain.HeuristicFlag, score float64, cand *domain.ClusterCandidate, createdAt int64) *domain.AlertRecord {
	wallets := []string{trade.WalletID}
	refs := []domain.TradeRef{trade.Ref()}
	if cand != nil {
		wallets = append([]string(nil), cand.Wallets...)
		refs = append([]domain.TradeRef(nil), cand.TradeRefs...)
	}
	sort.Strings(wallets)

	sorted := append([]domain.HeuristicFlag(nil), flags...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Weight != sorted[j].Weight {
			return sorted[i].Weight > sorted[j].Weight
		}
		return sorted[i].Name < sorted[j].Name
	})

	return &domain.AlertRecord{
		ID:             b.newID(),
		MarketID:       trade.MarketID,
		MarketQuestion: market.Question,
		Wallets:        wallets,
		TradeRefs:      refs,
		Flags:          sorted,
		Score:          score,
		Explanation:    explanation(market, sorted, score),
		DedupKey:       idhash.ComputeDedupKey(trade.MarketID, wallets),
		CreatedAt:      createdAt,
	}
}

// explanation renders the human-readable summary: one line per flag in
// descending weight order, then the total.
func explanation(market *domain.MarketContext, flags []domain.HeuristicFlag, score float64) string {
	var sb strings.Builder
	if market.Question != "" {
		fmt.Fprintf(&sb, "%s\n", market.Question)
	}
	for _, f := range flags {
		fmt.Fprintf(&sb, "[%s +%.1f] %s\n", f.Name, f.Weight, f.Rationale)
	}
	fmt.Fprintf(&sb, "confidence %.1f", score)
	return sb.String()
}
