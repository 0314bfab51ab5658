package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"polymarket-watch/internal/config"
	"polymarket-watch/internal/dispatch"
	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/marketctx"
	"polymarket-watch/internal/normalize"
	"polymarket-watch/internal/pipeline"
	chstore "polymarket-watch/internal/storage/clickhouse"
	"polymarket-watch/internal/storage/memory"
	"polymarket-watch/internal/storage/migrations"
)

// replay re-runs detection over archived or captured trades without
// touching any live feed. Same input, same alerts, every time.
func main() {
	configPath := flag.String("config", "", "Path to config file (optional; env vars apply on top)")
	input := flag.String("input", "", "JSON file of raw feed records (alternative to the archive)")
	marketsFlag := flag.String("markets", "", "Comma-separated market IDs to replay from the archive")
	marketsFile := flag.String("markets-file", "", "JSON file of market contexts (question, liquidity, price)")
	resolutionsFile := flag.String("resolutions", "", "JSON file of market resolutions to apply after the feed")
	fromTime := flag.String("from-time", "", "Window start (RFC3339), archive replay")
	toTime := flag.String("to-time", "", "Window end (RFC3339), archive replay")
	flag.Parse()

	logger := log.New(os.Stderr, "[replay] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if *input == "" && *marketsFlag == "" {
		logger.Fatal("either -input or -markets is required")
	}

	ctx := context.Background()

	var raws []normalize.RawTrade
	if *input != "" {
		raws, err = loadRawTrades(*input)
		if err != nil {
			logger.Fatalf("load input: %v", err)
		}
	} else {
		from, to, err := parseWindow(*fromTime, *toTime)
		if err != nil {
			logger.Fatal(err)
		}
		raws, err = loadFromArchive(ctx, cfg, strings.Split(*marketsFlag, ","), from, to)
		if err != nil {
			logger.Fatalf("load archive: %v", err)
		}
	}
	logger.Printf("INFO replaying %d trades", len(raws))

	markets := marketctx.NewProvider()
	if *marketsFile != "" {
		contexts, err := decodeFile[[]*domain.MarketContext](*marketsFile)
		if err != nil {
			logger.Fatalf("load markets file: %v", err)
		}
		markets.Update(contexts)
	}

	// Known resolution prices become the tight-entry reference during
	// the replay; the same records feed accuracy tallies afterwards.
	var resolutions []*domain.MarketResolution
	refPrices := map[string]float64{}
	if *resolutionsFile != "" {
		resolutions, err = decodeFile[[]*domain.MarketResolution](*resolutionsFile)
		if err != nil {
			logger.Fatalf("load resolutions: %v", err)
		}
		for _, res := range resolutions {
			if res.ResolutionPrice > 0 {
				refPrices[res.MarketID] = res.ResolutionPrice
			}
		}
	}

	alertStore := memory.NewAlertStore()
	engine := pipeline.NewEngine(pipeline.Options{
		Config:          cfg.Engine,
		Weights:         cfg.Weights,
		Logger:          logger,
		Markets:         markets,
		AlertStore:      alertStore,
		Archive:         memory.NewTradeArchive(),
		Sinks:           []dispatch.Sink{dispatch.NewLogSink(log.New(os.Stdout, "", 0))},
		ReferencePrices: refPrices,
	})

	feed := make(chan normalize.RawTrade)
	go func() {
		defer close(feed)
		for _, r := range raws {
			feed <- r
		}
	}()
	if err := engine.Run(ctx, feed); err != nil {
		logger.Fatalf("engine: %v", err)
	}

	for _, res := range resolutions {
		updated := engine.ApplyResolution(res)
		logger.Printf("INFO resolution %s=%s updated %d wallet tallies", res.MarketID, res.Outcome, updated)
	}

	alerts, err := alertStore.GetByTimeRange(ctx, 0, time.Now().UnixMilli())
	if err != nil {
		logger.Fatalf("read alerts: %v", err)
	}

	fmt.Printf("\n=== Replay Summary ===\n")
	fmt.Printf("Trades Replayed: %d\n", len(raws))
	fmt.Printf("Alerts Emitted:  %d\n", len(alerts))
	fmt.Printf("Wallets Tracked: %d\n", engine.Profiles().Len())
}

// loadRawTrades reads a JSON array of feed-shaped records.
func loadRawTrades(path string) ([]normalize.RawTrade, error) {
	return decodeFile[[]normalize.RawTrade](path)
}

// loadFromArchive pulls normalized trades back out of clickhouse and
// rewinds them to feed shape, so the replay walks the same path as
// live ingestion.
func loadFromArchive(ctx context.Context, cfg *config.Config, marketIDs []string, from, to int64) ([]normalize.RawTrade, error) {
	if cfg.Storage.ClickHouseDSN == "" {
		return nil, fmt.Errorf("archive replay needs storage.clickhouse_dsn")
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
	if err != nil {
		return nil, fmt.Errorf("clickhouse: %w", err)
	}
	defer conn.Close()

	archive := chstore.NewTradeArchive(conn)
	var raws []normalize.RawTrade
	for _, marketID := range marketIDs {
		marketID = strings.TrimSpace(marketID)
		if marketID == "" {
			continue
		}
		trades, err := archive.GetByMarket(ctx, marketID, from, to)
		if err != nil {
			return nil, fmt.Errorf("archive read %s: %w", marketID, err)
		}
		for _, t := range trades {
			raws = append(raws, rewind(t))
		}
	}
	return raws, nil
}

// rewind converts an archived trade back to the feed record shape the
// normalizer expects: share quantity instead of notional, seconds
// instead of milliseconds.
func rewind(t *domain.TradeEvent) normalize.RawTrade {
	return normalize.RawTrade{
		Wallet:     t.WalletID,
		MarketID:   t.MarketID,
		Outcome:    string(t.Side),
		Size:       t.Size / t.Price,
		Price:      t.Price,
		Timestamp:  t.Timestamp / 1000,
		SequenceNo: t.SequenceNo,
	}
}

func decodeFile[T any](path string) (T, error) {
	var out T
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// parseWindow requires both bounds or neither; a half-open window makes
// replays non-repeatable.
func parseWindow(from, to string) (int64, int64, error) {
	if from == "" && to == "" {
		return 0, time.Now().UnixMilli(), nil
	}
	if from == "" || to == "" {
		return 0, 0, fmt.Errorf("-from-time and -to-time must be given together")
	}
	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return 0, 0, fmt.Errorf("parse -from-time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return 0, 0, fmt.Errorf("parse -to-time: %w", err)
	}
	return start.UnixMilli(), end.UnixMilli(), nil
}
