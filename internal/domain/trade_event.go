package domain

// Side is the outcome side a trade was placed on.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Valid reports whether the side is one of the known outcome sides.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// TradeEvent is the canonical representation of one accepted trade.
// Immutable once produced by the normalizer.
type TradeEvent struct {
	WalletID   string
	MarketID   string
	Side       Side
	Size       float64 // notional USD
	Price      float64 // 0..1 outcome probability
	Timestamp  int64   // unix ms
	SequenceNo int64   // strictly increasing per market
}

// TradeRef identifies a processed trade without carrying its payload.
type TradeRef struct {
	MarketID   string
	SequenceNo int64
}

// Ref returns the reference key of the trade.
func (t *TradeEvent) Ref() TradeRef {
	return TradeRef{MarketID: t.MarketID, SequenceNo: t.SequenceNo}
}
