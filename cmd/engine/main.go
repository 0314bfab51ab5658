package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"polymarket-watch/internal/config"
	"polymarket-watch/internal/dispatch"
	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/ingestion"
	"polymarket-watch/internal/marketctx"
	"polymarket-watch/internal/normalize"
	"polymarket-watch/internal/observability"
	"polymarket-watch/internal/pipeline"
	"polymarket-watch/internal/storage"
	chstore "polymarket-watch/internal/storage/clickhouse"
	"polymarket-watch/internal/storage/memory"
	"polymarket-watch/internal/storage/migrations"
	pgstore "polymarket-watch/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional; env vars apply on top)")
	source := flag.String("source", "poll", "Trade source: poll or ws")
	flag.Parse()

	logger := log.New(os.Stderr, "[engine] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("INFO received %s, draining", sig)
		cancel()
	}()

	// Durable stores are optional; memory fallbacks keep a single
	// process self-contained.
	var alertStore storage.AlertStore = memory.NewAlertStore()
	var checkpoints storage.ProfileCheckpointStore
	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatalf("connect postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("postgres migrations: %v", err)
		}
		alertStore = pgstore.NewAlertStore(pool)
		checkpoints = pgstore.NewProfileCheckpointStore(pool)
		logger.Printf("INFO postgres alert storage enabled")
	}

	var archive storage.TradeArchive = memory.NewTradeArchive()
	if cfg.Storage.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			logger.Fatalf("clickhouse migrations: %v", err)
		}
		defer conn.Close()
		archive = chstore.NewTradeArchive(conn)
		logger.Printf("INFO clickhouse trade archive enabled")
	}

	sinks := []dispatch.Sink{dispatch.NewLogSink(logger)}
	if cfg.Telegram.Enabled {
		tg, err := dispatch.NewTelegramSink(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			logger.Fatalf("telegram sink: %v", err)
		}
		sinks = append(sinks, tg)
		logger.Printf("INFO telegram sink enabled chat=%d", cfg.Telegram.ChatID)
	}

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("INFO metrics listening on %s", cfg.Metrics.ListenAddr)
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
				logger.Printf("WARN metrics server: %v", err)
			}
		}()
	}

	markets := marketctx.NewProvider()
	poller := ingestion.NewMarketPoller(ingestion.MarketPollerOptions{
		BaseURL:      cfg.Feed.DataAPIURL + "/markets",
		ScanInterval: cfg.Feed.ScanInterval,
		Timeout:      cfg.Feed.Timeout,
		RateLimit:    cfg.Feed.RateLimit,
		BatchLimit:   cfg.Feed.BatchLimit,
		Provider:     markets,
		Logger:       logger,
	})

	engine := pipeline.NewEngine(pipeline.Options{
		Config:     cfg.Engine,
		Weights:    cfg.Weights,
		Logger:     logger,
		Markets:    markets,
		AlertStore: alertStore,
		Archive:    archive,
		Sinks:      sinks,
	})

	// Restore profile state from the last checkpoint.
	if checkpoints != nil {
		restored := 0
		err := checkpoints.LoadAll(ctx, func(p *domain.WalletProfile) error {
			engine.Profiles().Restore(p)
			restored++
			return nil
		})
		if err != nil {
			logger.Printf("WARN profile checkpoint restore: %v", err)
		} else if restored > 0 {
			logger.Printf("INFO restored %d wallet profiles", restored)
		}
	}

	var src ingestion.TradeSource
	switch *source {
	case "ws":
		src = ingestion.NewWSSource(ingestion.WSOptions{
			Endpoint:    cfg.Feed.WSURL,
			Logger:      logger,
			OnReconnect: observability.DefaultMetrics.FeedReconnects.Inc,
		})
	case "poll":
		src = ingestion.NewPollSource(ingestion.PollOptions{
			BaseURL:      cfg.Feed.DataAPIURL + "/trades",
			ScanInterval: cfg.Feed.ScanInterval,
			Timeout:      cfg.Feed.Timeout,
			RateLimit:    cfg.Feed.RateLimit,
			BatchLimit:   cfg.Feed.BatchLimit,
			Logger:       logger,
		})
	default:
		logger.Fatalf("unknown source %q (want poll or ws)", *source)
	}
	logger.Printf("INFO trade source: %s", src.Name())

	feed := make(chan normalize.RawTrade, 1024)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := poller.Run(ctx); err != nil {
			logger.Printf("ERROR market poller stopped: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(feed)
		if err := src.Run(ctx, feed); err != nil {
			logger.Printf("ERROR trade source stopped: %v", err)
		}
	}()

	// Periodic housekeeping: idle profile eviction, cooldown sweeps,
	// profile checkpoints.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				engine.SweepIdleState(time.Now())
				if checkpoints != nil {
					checkpoint(ctx, logger, engine, checkpoints)
				}
			}
		}
	}()

	if err := engine.Run(ctx, feed); err != nil {
		logger.Fatalf("engine: %v", err)
	}
	wg.Wait()

	// Final checkpoint after the flush-then-halt drain.
	if checkpoints != nil {
		checkpoint(context.Background(), logger, engine, checkpoints)
	}
	logger.Printf("INFO shutdown complete")
}

func checkpoint(ctx context.Context, logger *log.Logger, engine *pipeline.Engine, store storage.ProfileCheckpointStore) {
	profiles := engine.Profiles().SnapshotAll()
	if len(profiles) == 0 {
		return
	}
	if err := store.UpsertBulk(ctx, profiles); err != nil {
		logger.Printf("WARN profile checkpoint failed: %v", err)
		return
	}
	logger.Printf("INFO checkpointed %d wallet profiles", len(profiles))
}
