package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete engine configuration. Loaded once per run and
// never mutated afterwards.
type Config struct {
	Feed      FeedConfig      `mapstructure:"feed"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Weights   WeightsConfig   `mapstructure:"weights"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// FeedConfig holds trade/metadata feed settings.
type FeedConfig struct {
	DataAPIURL   string        `mapstructure:"data_api_url"`
	WSURL        string        `mapstructure:"ws_url"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"` // requests per second
	BatchLimit   int           `mapstructure:"batch_limit"`
}

// EngineConfig holds all detection thresholds and windows.
type EngineConfig struct {
	MinBetSize              float64       `mapstructure:"min_bet_size"`
	FreshnessTradeThreshold int64         `mapstructure:"freshness_trade_threshold"`
	FreshnessTimeThreshold  time.Duration `mapstructure:"freshness_time_threshold"`
	LargeBetMultiplier      float64       `mapstructure:"large_bet_multiplier"`
	LargeBetLiquidityFrac   float64       `mapstructure:"large_bet_liquidity_fraction"`
	OffPeakStartHour        int           `mapstructure:"offpeak_start_hour"` // UTC, inclusive
	OffPeakEndHour          int           `mapstructure:"offpeak_end_hour"`   // UTC, exclusive
	PrecisionAccuracy       float64       `mapstructure:"precision_accuracy_threshold"`
	PrecisionMinSample      int64         `mapstructure:"precision_min_sample"`
	PrecisionPriceBand      float64       `mapstructure:"precision_price_band"`
	CoordinationWindow      time.Duration `mapstructure:"coordination_window"`
	ClusterMinWallets       int           `mapstructure:"cluster_min_wallets"`
	ClusterMinAlignment     float64       `mapstructure:"cluster_min_alignment"`
	ClusterFreshBoost       float64       `mapstructure:"cluster_fresh_boost"`
	AlertThreshold          float64       `mapstructure:"alert_threshold"`
	CooldownPeriod          time.Duration `mapstructure:"cooldown_period"`
	EscalationDelta         float64       `mapstructure:"escalation_delta"`
	ClockSkewTolerance      time.Duration `mapstructure:"clock_skew_tolerance"`
	ReorderFlushLag         time.Duration `mapstructure:"reorder_flush_lag"`
	SanityMinLiquidity      float64       `mapstructure:"sanity_min_liquidity"`
	SanityMaxPriceJump      float64       `mapstructure:"sanity_max_price_jump"`
	SanityHFTTrades         int           `mapstructure:"sanity_hft_trade_threshold"`
	SanityHFTWindow         time.Duration `mapstructure:"sanity_hft_window"`
	ProfileIdleEviction     time.Duration `mapstructure:"profile_idle_eviction"`
	ProfileHistoryLimit     int           `mapstructure:"profile_history_limit"`
	AlertQueueCapacity      int           `mapstructure:"alert_queue_capacity"`
	ShardCount              int           `mapstructure:"shard_count"`
}

// WeightsConfig holds heuristic weights and per-tier sensitivity bonuses.
type WeightsConfig struct {
	FreshWallet      float64 `mapstructure:"fresh_wallet"`
	LargeBet         float64 `mapstructure:"large_bet"`
	LargeBetOffPeak  float64 `mapstructure:"large_bet_offpeak"`
	PrecisionHistory float64 `mapstructure:"precision_history"`
	Cluster          float64 `mapstructure:"cluster"`

	// Per-tier additive bonus and scaling multiplier for large-bet and
	// cluster flags. Index is domain.SensitivityTier (0..3).
	TierBonus      []float64 `mapstructure:"tier_bonus"`
	TierMultiplier []float64 `mapstructure:"tier_multiplier"`
}

// StorageConfig holds optional durable backends. Empty DSN disables one.
type StorageConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickHouseDSN string `mapstructure:"clickhouse_dsn"`
}

// TelegramConfig holds the telegram alert sink settings.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

// MetricsConfig holds the prometheus endpoint settings.
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Enabled    bool   `mapstructure:"enabled"`
}

// Load reads configuration from an optional file plus environment
// variables prefixed with POLYWATCH.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("POLYWATCH")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.data_api_url", "https://data-api.polymarket.com")
	v.SetDefault("feed.ws_url", "wss://ws-subscriptions-clob.polymarket.com/ws/market")
	v.SetDefault("feed.scan_interval", "30s")
	v.SetDefault("feed.timeout", "30s")
	v.SetDefault("feed.rate_limit", 5.0)
	v.SetDefault("feed.batch_limit", 200)

	v.SetDefault("engine.min_bet_size", 500.0)
	v.SetDefault("engine.freshness_trade_threshold", 3)
	v.SetDefault("engine.freshness_time_threshold", "168h") // 7 days
	v.SetDefault("engine.large_bet_multiplier", 5.0)
	v.SetDefault("engine.large_bet_liquidity_fraction", 0.05)
	v.SetDefault("engine.offpeak_start_hour", 2)
	v.SetDefault("engine.offpeak_end_hour", 6)
	v.SetDefault("engine.precision_accuracy_threshold", 0.7)
	v.SetDefault("engine.precision_min_sample", 5)
	v.SetDefault("engine.precision_price_band", 0.05)
	v.SetDefault("engine.coordination_window", "2m")
	v.SetDefault("engine.cluster_min_wallets", 4)
	v.SetDefault("engine.cluster_min_alignment", 0.75)
	v.SetDefault("engine.cluster_fresh_boost", 1.5)
	v.SetDefault("engine.alert_threshold", 60.0)
	v.SetDefault("engine.cooldown_period", "1h")
	v.SetDefault("engine.escalation_delta", 15.0)
	v.SetDefault("engine.clock_skew_tolerance", "5m")
	v.SetDefault("engine.reorder_flush_lag", "10s")
	v.SetDefault("engine.sanity_min_liquidity", 10000.0)
	v.SetDefault("engine.sanity_max_price_jump", 0.15)
	v.SetDefault("engine.sanity_hft_trade_threshold", 50)
	v.SetDefault("engine.sanity_hft_window", "24h")
	v.SetDefault("engine.profile_idle_eviction", "72h")
	v.SetDefault("engine.profile_history_limit", 64)
	v.SetDefault("engine.alert_queue_capacity", 256)
	v.SetDefault("engine.shard_count", 8)

	v.SetDefault("weights.fresh_wallet", 25.0)
	v.SetDefault("weights.large_bet", 30.0)
	v.SetDefault("weights.large_bet_offpeak", 10.0)
	v.SetDefault("weights.precision_history", 20.0)
	v.SetDefault("weights.cluster", 25.0)
	v.SetDefault("weights.tier_bonus", []float64{0, 5, 10, 15})
	v.SetDefault("weights.tier_multiplier", []float64{1.0, 1.0, 1.25, 1.5})

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9090")
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Feed.ScanInterval <= 0 {
		return fmt.Errorf("feed.scan_interval must be positive")
	}
	if c.Engine.FreshnessTradeThreshold < 0 {
		return fmt.Errorf("engine.freshness_trade_threshold must not be negative")
	}
	if c.Engine.LargeBetMultiplier <= 0 {
		return fmt.Errorf("engine.large_bet_multiplier must be positive")
	}
	if c.Engine.LargeBetLiquidityFrac <= 0 || c.Engine.LargeBetLiquidityFrac > 1 {
		return fmt.Errorf("engine.large_bet_liquidity_fraction must be in (0, 1]")
	}
	if c.Engine.PrecisionAccuracy < 0 || c.Engine.PrecisionAccuracy > 1 {
		return fmt.Errorf("engine.precision_accuracy_threshold must be in [0, 1]")
	}
	if c.Engine.PrecisionPriceBand <= 0 || c.Engine.PrecisionPriceBand >= 1 {
		return fmt.Errorf("engine.precision_price_band must be in (0, 1)")
	}
	if c.Engine.CoordinationWindow <= 0 {
		return fmt.Errorf("engine.coordination_window must be positive")
	}
	if c.Engine.ClusterMinWallets < 2 {
		return fmt.Errorf("engine.cluster_min_wallets must be at least 2")
	}
	if c.Engine.ClusterMinAlignment <= 0.5 || c.Engine.ClusterMinAlignment > 1 {
		return fmt.Errorf("engine.cluster_min_alignment must be in (0.5, 1]")
	}
	if c.Engine.AlertThreshold < 0 {
		return fmt.Errorf("engine.alert_threshold must not be negative")
	}
	if c.Engine.CooldownPeriod <= 0 {
		return fmt.Errorf("engine.cooldown_period must be positive")
	}
	if c.Engine.EscalationDelta < 0 {
		return fmt.Errorf("engine.escalation_delta must not be negative")
	}
	if h := c.Engine.OffPeakStartHour; h < 0 || h > 23 {
		return fmt.Errorf("engine.offpeak_start_hour must be in [0, 23]")
	}
	if h := c.Engine.OffPeakEndHour; h < 0 || h > 24 {
		return fmt.Errorf("engine.offpeak_end_hour must be in [0, 24]")
	}
	if c.Engine.SanityMinLiquidity < 0 {
		return fmt.Errorf("engine.sanity_min_liquidity must not be negative")
	}
	if j := c.Engine.SanityMaxPriceJump; j < 0 || j >= 1 {
		return fmt.Errorf("engine.sanity_max_price_jump must be in [0, 1)")
	}
	if c.Engine.SanityHFTTrades < 0 {
		return fmt.Errorf("engine.sanity_hft_trade_threshold must not be negative")
	}
	if c.Engine.ProfileHistoryLimit < 1 {
		return fmt.Errorf("engine.profile_history_limit must be at least 1")
	}
	if c.Engine.AlertQueueCapacity < 1 {
		return fmt.Errorf("engine.alert_queue_capacity must be at least 1")
	}
	if c.Engine.ShardCount < 1 {
		return fmt.Errorf("engine.shard_count must be at least 1")
	}
	if len(c.Weights.TierBonus) != 4 {
		return fmt.Errorf("weights.tier_bonus must have exactly 4 entries")
	}
	if len(c.Weights.TierMultiplier) != 4 {
		return fmt.Errorf("weights.tier_multiplier must have exactly 4 entries")
	}
	for i, m := range c.Weights.TierMultiplier {
		if m < 1.0 {
			return fmt.Errorf("weights.tier_multiplier[%d] must be at least 1.0", i)
		}
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}
