// Package pipeline wires the full trade path: normalize, reorder,
// profile, evaluate, cluster, score, dedup, build, dispatch.
package pipeline

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"polymarket-watch/internal/alert"
	"polymarket-watch/internal/cluster"
	"polymarket-watch/internal/config"
	"polymarket-watch/internal/dedup"
	"polymarket-watch/internal/dispatch"
	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/heuristics"
	"polymarket-watch/internal/idhash"
	"polymarket-watch/internal/marketctx"
	"polymarket-watch/internal/marketstats"
	"polymarket-watch/internal/normalize"
	"polymarket-watch/internal/observability"
	"polymarket-watch/internal/profile"
	"polymarket-watch/internal/resolution"
	"polymarket-watch/internal/sanity"
	"polymarket-watch/internal/scoring"
	"polymarket-watch/internal/storage"
)

// Engine runs the streaming detection pipeline. Trades enter through
// Run's input channel; alerts leave through the configured sinks.
//
// Work is sharded by market ID hash so all trades of one market are
// processed by one worker in order. The profile store is shared across
// shards because wallets trade many markets.
type Engine struct {
	cfg     config.EngineConfig
	logger  *log.Logger
	metrics *observability.Metrics

	normalizer  *normalize.Normalizer
	markets     *marketctx.Provider
	profiles    *profile.Store
	stats       *marketstats.Tracker
	evaluators  []heuristics.Evaluator
	clusters    *cluster.Detector
	scorer      *scoring.Aggregator
	cooldowns   *dedup.Store
	builder     *alert.Builder
	resolutions *resolution.Tracker
	filter      *sanity.Filter

	refPrices map[string]float64

	alertStore storage.AlertStore // optional
	archive    storage.TradeArchive
	sinks      []dispatch.Sink

	shardCount int
	queueCap   int
	shards     []chan tradeMsg
	alertQueue chan *domain.AlertRecord

	now func() time.Time
}

type tradeMsg struct {
	trade   *domain.TradeEvent
	arrival time.Time
}

// Options configures an Engine. Markets, Sinks and the durable stores
// are optional; everything else defaults sensibly.
type Options struct {
	Config  config.EngineConfig
	Weights config.WeightsConfig
	Logger  *log.Logger
	Metrics *observability.Metrics

	Markets    *marketctx.Provider
	AlertStore storage.AlertStore
	Archive    storage.TradeArchive
	Sinks      []dispatch.Sink

	// ReferencePrices overrides the tight-entry reference per market.
	// Replay runs load known resolution prices here; live runs leave it
	// nil and use the consensus price from the market context.
	ReferencePrices map[string]float64

	Now func() time.Time // test hook
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	markets := opts.Markets
	if markets == nil {
		markets = marketctx.NewProvider()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	shardCount := opts.Config.ShardCount
	if shardCount <= 0 {
		shardCount = 8
	}
	queueCap := opts.Config.AlertQueueCapacity
	if queueCap <= 0 {
		queueCap = 256
	}

	profiles := profile.NewStore(profile.Options{
		HistoryLimit: opts.Config.ProfileHistoryLimit,
		IdleEviction: opts.Config.ProfileIdleEviction,
		Logger:       logger,
	})

	return &Engine{
		cfg:        opts.Config,
		logger:     logger,
		metrics:    metrics,
		normalizer: normalize.New(normalize.Options{ClockSkewTolerance: opts.Config.ClockSkewTolerance, Now: now}),
		markets:    markets,
		profiles:   profiles,
		stats:      marketstats.NewTracker(0),
		evaluators: heuristics.DefaultSet(opts.Config, opts.Weights),
		clusters: cluster.NewDetector(cluster.Options{
			CoordinationWindow: opts.Config.CoordinationWindow,
			ClusterMinWallets:  opts.Config.ClusterMinWallets,
			MinAlignment:       opts.Config.ClusterMinAlignment,
		}),
		scorer: scoring.NewAggregator(opts.Config, opts.Weights),
		cooldowns: dedup.NewStore(dedup.Options{
			CooldownPeriod:  opts.Config.CooldownPeriod,
			EscalationDelta: opts.Config.EscalationDelta,
		}),
		builder: alert.NewBuilder(),
		resolutions: resolution.NewTracker(resolution.Options{
			Profiles: profiles,
			Logger:   logger,
		}),
		filter: sanity.NewFilter(sanity.Options{
			MinLiquidity:  opts.Config.SanityMinLiquidity,
			MaxPriceJump:  opts.Config.SanityMaxPriceJump,
			HFTTradeLimit: opts.Config.SanityHFTTrades,
			HFTWindow:     opts.Config.SanityHFTWindow,
		}),
		refPrices:  opts.ReferencePrices,
		alertStore: opts.AlertStore,
		archive:    opts.Archive,
		sinks:      opts.Sinks,
		shardCount: shardCount,
		queueCap:   queueCap,
		now:        now,
	}
}

// Profiles exposes the shared profile store for checkpointing.
func (e *Engine) Profiles() *profile.Store { return e.profiles }

// ApplyResolution feeds a market outcome back into accuracy tallies.
func (e *Engine) ApplyResolution(res *domain.MarketResolution) int {
	return e.resolutions.Apply(res)
}

// Run consumes raw trades until in closes or ctx is canceled, then
// flushes the reorder buffers, drains the dispatch queue and returns.
func (e *Engine) Run(ctx context.Context, in <-chan normalize.RawTrade) error {
	e.shards = make([]chan tradeMsg, e.shardCount)
	for i := range e.shards {
		e.shards[i] = make(chan tradeMsg, 64)
	}
	e.alertQueue = make(chan *domain.AlertRecord, e.queueCap)

	var workers sync.WaitGroup
	for i := range e.shards {
		workers.Add(1)
		go func(shard chan tradeMsg) {
			defer workers.Done()
			e.shardWorker(ctx, shard)
		}(e.shards[i])
	}

	var dispatcher sync.WaitGroup
	dispatcher.Add(1)
	go func() {
		defer dispatcher.Done()
		e.dispatchLoop(ctx)
	}()

	e.ingestLoop(ctx, in)

	// Flush-then-halt: closing the shard channels makes workers drain
	// their reorder buffers before exiting.
	for _, shard := range e.shards {
		close(shard)
	}
	workers.Wait()
	close(e.alertQueue)
	dispatcher.Wait()
	return nil
}

// ingestLoop normalizes raw records, archives them and hands them to
// the owning shard.
func (e *Engine) ingestLoop(ctx context.Context, in <-chan normalize.RawTrade) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-in:
			if !ok {
				return
			}
			trade, err := e.normalizer.Normalize(raw)
			if err != nil {
				reason := "unknown"
				var malformed *normalize.MalformedEventError
				if errors.As(err, &malformed) {
					reason = malformed.Reason
				}
				e.metrics.TradesDropped.WithLabelValues(reason).Inc()
				continue
			}
			e.metrics.TradesIngested.Inc()
			e.metrics.LastTradeTimestamp.Set(float64(trade.Timestamp))

			if e.archive != nil {
				if err := e.archive.InsertBatch(ctx, []*domain.TradeEvent{trade}); err != nil {
					e.logger.Printf("WARN trade archive write failed: %v", err)
					observability.RecordDBQuery("clickhouse", "insert_trade", 0, err)
				}
			}

			msg := tradeMsg{trade: trade, arrival: e.now()}
			select {
			case e.shards[e.shardFor(trade.MarketID)] <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (e *Engine) shardFor(marketID string) int {
	h := fnv.New32a()
	h.Write([]byte(marketID))
	return int(h.Sum32() % uint32(e.shardCount))
}

// shardWorker serializes all trades of its markets through per-market
// reorder buffers, flushing on a timer.
func (e *Engine) shardWorker(ctx context.Context, in <-chan tradeMsg) {
	buffers := make(map[string]*reorderBuffer)
	flushEvery := e.cfg.ReorderFlushLag / 2
	if flushEvery <= 0 {
		flushEvery = time.Second
	}
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-in:
			if !ok {
				for _, b := range buffers {
					for _, rel := range b.drain() {
						e.handleTrade(ctx, rel.trade, rel.late)
					}
				}
				return
			}
			b, ok := buffers[msg.trade.MarketID]
			if !ok {
				b = newReorderBuffer(e.cfg.ReorderFlushLag)
				buffers[msg.trade.MarketID] = b
			}
			released := b.add(msg.trade, msg.arrival)
			if len(released) > 1 {
				e.metrics.ReorderedTrades.Add(float64(len(released) - 1))
			}
			for _, rel := range released {
				if rel.late {
					e.metrics.TradesLate.Inc()
				}
				e.handleTrade(ctx, rel.trade, rel.late)
			}
		case <-ticker.C:
			now := e.now()
			for _, b := range buffers {
				for _, rel := range b.flush(now) {
					e.handleTrade(ctx, rel.trade, rel.late)
				}
			}
		}
	}
}

// handleTrade runs one ordered trade through the detection path. late
// trades update profiles and stats but never join clusters.
func (e *Engine) handleTrade(ctx context.Context, trade *domain.TradeEvent, late bool) {
	started := e.now()

	prof, fresh := e.updateProfile(trade)
	if prof == nil {
		return // duplicate (market, sequence): already processed
	}

	market := e.markets.Get(trade.MarketID)
	median := e.stats.Median(trade.MarketID)
	e.stats.Observe(trade.MarketID, trade.Size)

	// Live runs reference the consensus price; replays substitute the
	// known resolution price when one was loaded for the market.
	refPrice := market.ConsensusPrice
	if p, ok := e.refPrices[trade.MarketID]; ok {
		refPrice = p
	}

	in := heuristics.Input{
		Trade:          trade,
		Profile:        prof,
		Market:         market,
		MarketMedian:   median,
		ReferencePrice: refPrice,
	}

	var flags []domain.HeuristicFlag
	for _, ev := range e.evaluators {
		flags = append(flags, ev.Evaluate(in)...)
	}
	for _, f := range flags {
		e.metrics.FlagsRaised.WithLabelValues(f.Name).Inc()
	}

	var cand *domain.ClusterCandidate
	if !late {
		cand = e.clusters.Observe(trade, fresh)
		if cand != nil {
			e.metrics.ClustersDetected.Inc()
		}
	}

	result, err := e.scorer.Aggregate(flags, cand, market.SensitivityTier)
	if err != nil {
		e.logger.Printf("ERROR evaluation aborted market=%s seq=%d: %v", trade.MarketID, trade.SequenceNo, err)
		e.metrics.EvaluationErrors.Inc()
		return
	}
	e.metrics.TradesEvaluated.Inc()
	e.metrics.EvaluationLatency.Observe(e.now().Sub(started).Seconds())

	// Sanity-check qualifying trades against the window as it stood
	// before this trade, then fold the trade into the window either way.
	veto := ""
	if result.Qualifies {
		veto = e.filter.Check(trade, prof, market)
	}
	e.filter.Observe(trade)

	if !result.Qualifies {
		return
	}
	if veto != "" {
		e.metrics.AlertsFiltered.WithLabelValues(veto).Inc()
		e.logger.Printf("INFO alert vetoed market=%s wallet=%s reason=%s", trade.MarketID, trade.WalletID, veto)
		return
	}

	wallets := []string{trade.WalletID}
	if cand != nil {
		wallets = cand.Wallets
	}
	key := idhash.ComputeDedupKey(trade.MarketID, wallets)

	decision := e.cooldowns.Check(key, result.Score, trade.Timestamp)
	if !decision.Emit {
		e.metrics.AlertsSuppressed.Inc()
		return
	}
	if decision.Escalated {
		e.metrics.AlertsEscalated.Inc()
	}

	rec := e.builder.Build(trade, market, result.Flags, result.Score, cand, e.now().UnixMilli())
	e.enqueueAlert(rec)
}

// updateProfile applies the trade and reports freshness as of the
// trade's own event time, so replays score identically to live runs.
func (e *Engine) updateProfile(trade *domain.TradeEvent) (*domain.WalletProfile, bool) {
	snapshot, ok := e.profiles.Update(trade)
	if !ok {
		return nil, false
	}
	e.metrics.TrackedWallets.Set(float64(e.profiles.Len()))

	fresh := profile.IsFresh(&snapshot, time.UnixMilli(trade.Timestamp),
		e.cfg.FreshnessTradeThreshold, e.cfg.FreshnessTimeThreshold)
	return &snapshot, fresh
}

// enqueueAlert adds to the bounded dispatch queue, dropping the oldest
// waiting alert when full.
func (e *Engine) enqueueAlert(rec *domain.AlertRecord) {
	for {
		select {
		case e.alertQueue <- rec:
			e.metrics.AlertQueueDepth.Set(float64(len(e.alertQueue)))
			return
		default:
		}
		select {
		case <-e.alertQueue:
			e.metrics.AlertQueueDropped.Inc()
		default:
		}
	}
}

// dispatchLoop persists and delivers queued alerts until the queue
// closes. Sink failures are logged and counted, never retried. The
// delivery context is detached from the run context so a cancel-driven
// shutdown still flushes the queue to stores and sinks.
func (e *Engine) dispatchLoop(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for rec := range e.alertQueue {
		e.metrics.AlertQueueDepth.Set(float64(len(e.alertQueue)))

		if e.alertStore != nil {
			if err := e.alertStore.Insert(ctx, rec); err != nil {
				e.logger.Printf("WARN alert store write failed id=%s: %v", rec.ID, err)
				observability.RecordDBQuery("postgres", "insert_alert", 0, err)
			}
		}

		for _, sink := range e.sinks {
			if err := sink.Deliver(ctx, rec); err != nil {
				e.logger.Printf("WARN alert dispatch failed sink=%s id=%s: %v", sink.Name(), rec.ID, err)
				e.metrics.AlertDispatchErrors.WithLabelValues(sink.Name()).Inc()
			}
		}
		e.metrics.AlertsEmitted.Inc()
	}
}

// SweepIdleState evicts idle wallet profiles and expired cooldown
// entries. Called periodically by the runner.
func (e *Engine) SweepIdleState(now time.Time) {
	evicted := e.profiles.Sweep(now)
	if evicted > 0 {
		e.metrics.ProfilesEvicted.Add(float64(evicted))
		e.metrics.TrackedWallets.Set(float64(e.profiles.Len()))
	}
	e.cooldowns.Sweep(now.UnixMilli())
}
