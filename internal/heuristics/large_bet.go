package heuristics

import (
	"fmt"
	"time"

	"polymarket-watch/internal/config"
	"polymarket-watch/internal/domain"
)

// LargeBet flags trades that dwarf either the market's rolling median
// size or its liquidity estimate. Off-peak entries add a sub-flag.
type LargeBet struct {
	minBetSize     float64
	medianMultiple float64
	liquidityFrac  float64
	offPeakStart   int // UTC hour, inclusive
	offPeakEnd     int // UTC hour, exclusive
	weight         float64
	offPeakWeight  float64
}

// NewLargeBet creates the large-bet evaluator.
func NewLargeBet(engine config.EngineConfig, weights config.WeightsConfig) *LargeBet {
	return &LargeBet{
		minBetSize:     engine.MinBetSize,
		medianMultiple: engine.LargeBetMultiplier,
		liquidityFrac:  engine.LargeBetLiquidityFrac,
		offPeakStart:   engine.OffPeakStartHour,
		offPeakEnd:     engine.OffPeakEndHour,
		weight:         weights.LargeBet,
		offPeakWeight:  weights.LargeBetOffPeak,
	}
}

func (l *LargeBet) Name() string { return domain.FlagLargeBet }

func (l *LargeBet) Evaluate(in Input) []domain.HeuristicFlag {
	size := in.Trade.Size
	if size < l.minBetSize {
		return nil
	}

	var rationale string
	switch {
	case in.MarketMedian > 0 && size >= l.medianMultiple*in.MarketMedian:
		rationale = fmt.Sprintf("size $%.0f is %.1fx the market's rolling median $%.0f",
			size, size/in.MarketMedian, in.MarketMedian)
	case in.Market.LiquidityEstimate > 0 && size/in.Market.LiquidityEstimate >= l.liquidityFrac:
		rationale = fmt.Sprintf("size $%.0f is %.1f%% of market liquidity $%.0f",
			size, 100*size/in.Market.LiquidityEstimate, in.Market.LiquidityEstimate)
	default:
		return nil
	}

	flags := []domain.HeuristicFlag{{
		Name:      domain.FlagLargeBet,
		Weight:    l.weight,
		Rationale: rationale,
	}}

	if l.isOffPeak(in.Trade.Timestamp) {
		flags = append(flags, domain.HeuristicFlag{
			Name:   domain.FlagLargeBetOffPeak,
			Weight: l.offPeakWeight,
			Rationale: fmt.Sprintf("entered during the %02d:00-%02d:00 UTC low-volume bucket",
				l.offPeakStart, l.offPeakEnd),
		})
	}
	return flags
}

func (l *LargeBet) isOffPeak(tsMilli int64) bool {
	if l.offPeakStart == l.offPeakEnd {
		return false
	}
	h := time.UnixMilli(tsMilli).UTC().Hour()
	if l.offPeakStart < l.offPeakEnd {
		return h >= l.offPeakStart && h < l.offPeakEnd
	}
	// Bucket wraps midnight.
	return h >= l.offPeakStart || h < l.offPeakEnd
}
