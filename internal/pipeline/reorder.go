package pipeline

import (
	"sort"
	"time"

	"polymarket-watch/internal/domain"
)

// releasedTrade is a trade leaving the reorder buffer. Late trades
// still update profiles but are excluded from cluster detection.
type releasedTrade struct {
	trade *domain.TradeEvent
	late  bool
}

// reorderBuffer restores per-market sequence order for trades that
// arrive slightly shuffled. A trade whose sequence leaves a gap is
// held until the gap fills or the flush lag expires; anything arriving
// below the released watermark is passed through marked late.
//
// Owned by a single shard worker, so no locking.
type reorderBuffer struct {
	flushLag time.Duration

	lastSeq  int64 // highest released sequence
	released bool  // false until the first release
	pending  []pendingTrade
}

type pendingTrade struct {
	trade   *domain.TradeEvent
	arrival time.Time
}

func newReorderBuffer(flushLag time.Duration) *reorderBuffer {
	return &reorderBuffer{flushLag: flushLag}
}

// add accepts one trade and returns everything releasable in sequence
// order.
func (b *reorderBuffer) add(tr *domain.TradeEvent, arrival time.Time) []releasedTrade {
	if b.released && tr.SequenceNo <= b.lastSeq {
		return []releasedTrade{{trade: tr, late: true}}
	}

	if !b.released || tr.SequenceNo == b.lastSeq+1 {
		out := []releasedTrade{{trade: tr}}
		b.lastSeq = tr.SequenceNo
		b.released = true
		return append(out, b.releaseConsecutive()...)
	}

	// Gap: hold until the missing sequence arrives or the lag expires.
	b.pending = append(b.pending, pendingTrade{trade: tr, arrival: arrival})
	sort.Slice(b.pending, func(i, j int) bool {
		return b.pending[i].trade.SequenceNo < b.pending[j].trade.SequenceNo
	})
	return nil
}

// releaseConsecutive drains pending trades that now follow the
// watermark directly.
func (b *reorderBuffer) releaseConsecutive() []releasedTrade {
	var out []releasedTrade
	for len(b.pending) > 0 {
		next := b.pending[0]
		switch {
		case next.trade.SequenceNo <= b.lastSeq:
			// A flush released past this one while it waited.
			out = append(out, releasedTrade{trade: next.trade, late: true})
		case next.trade.SequenceNo == b.lastSeq+1:
			out = append(out, releasedTrade{trade: next.trade})
			b.lastSeq = next.trade.SequenceNo
		default:
			return out
		}
		b.pending = b.pending[1:]
	}
	return out
}

// flush releases pending trades that waited past the flush lag,
// skipping over the gaps in front of them. Skipped sequences arriving
// afterwards are marked late by add.
func (b *reorderBuffer) flush(now time.Time) []releasedTrade {
	var out []releasedTrade
	for len(b.pending) > 0 {
		next := b.pending[0]
		if now.Sub(next.arrival) < b.flushLag {
			break
		}
		out = append(out, releasedTrade{trade: next.trade})
		b.lastSeq = next.trade.SequenceNo
		b.released = true
		b.pending = b.pending[1:]
		out = append(out, b.releaseConsecutive()...)
	}
	return out
}

// drain releases everything still pending, in sequence order.
func (b *reorderBuffer) drain() []releasedTrade {
	var out []releasedTrade
	for len(b.pending) > 0 {
		next := b.pending[0]
		out = append(out, releasedTrade{trade: next.trade})
		b.lastSeq = next.trade.SequenceNo
		b.released = true
		b.pending = b.pending[1:]
	}
	return out
}

// depth reports the number of held trades.
func (b *reorderBuffer) depth() int { return len(b.pending) }
