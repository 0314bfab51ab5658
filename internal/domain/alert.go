package domain

// AlertRecord is the final explainable alert candidate. Immutable once
// built; ordering of Flags and Wallets is deterministic.
type AlertRecord struct {
	ID             string
	MarketID       string
	MarketQuestion string
	Wallets        []string // stable lexicographic order
	TradeRefs      []TradeRef
	Flags          []HeuristicFlag // descending weight, name tiebreak
	Score          float64
	Explanation    string
	DedupKey       string
	CreatedAt      int64 // unix ms
}
