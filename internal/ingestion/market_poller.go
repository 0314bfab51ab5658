package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"polymarket-watch/internal/domain"
	"polymarket-watch/internal/marketctx"
)

// rawMarket is one record from the markets endpoint.
type rawMarket struct {
	MarketID  string  `json:"market_id"`
	Question  string  `json:"question"`
	Category  string  `json:"category"`
	Liquidity float64 `json:"liquidity"`
	YesPrice  float64 `json:"yes_price"`
	Active    bool    `json:"active"`
}

// MarketPoller refreshes the market context snapshot from the data API.
// Each successful fetch replaces the whole snapshot; a failed fetch
// keeps the previous one.
type MarketPoller struct {
	baseURL    string
	interval   time.Duration
	batchLimit int
	client     *http.Client
	limiter    *rate.Limiter
	provider   *marketctx.Provider
	logger     *log.Logger
}

// MarketPollerOptions configures a MarketPoller.
type MarketPollerOptions struct {
	BaseURL      string
	ScanInterval time.Duration
	Timeout      time.Duration
	RateLimit    float64 // requests per second
	BatchLimit   int
	Provider     *marketctx.Provider
	Logger       *log.Logger
}

// NewMarketPoller creates a market metadata poller.
func NewMarketPoller(opts MarketPollerOptions) *MarketPoller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	limit := rate.Limit(opts.RateLimit)
	if opts.RateLimit <= 0 {
		limit = rate.Inf
	}
	batchLimit := opts.BatchLimit
	if batchLimit <= 0 {
		batchLimit = 500
	}
	return &MarketPoller{
		baseURL:    opts.BaseURL,
		interval:   opts.ScanInterval,
		batchLimit: batchLimit,
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		provider:   opts.Provider,
		logger:     logger,
	}
}

// Run refreshes the snapshot once immediately, then on every tick until
// the context is canceled.
func (p *MarketPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Printf("WARN market refresh failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *MarketPoller) refresh(ctx context.Context) error {
	var contexts []*domain.MarketContext
	offset := 0
	for {
		batch, err := p.fetch(ctx, offset)
		if err != nil {
			return err
		}
		for _, m := range batch {
			if !m.Active {
				continue
			}
			contexts = append(contexts, &domain.MarketContext{
				MarketID:          m.MarketID,
				Question:          m.Question,
				Category:          domain.Category(m.Category),
				LiquidityEstimate: m.Liquidity,
				ConsensusPrice:    m.YesPrice,
			})
		}
		if len(batch) < p.batchLimit {
			break
		}
		offset += len(batch)
	}

	version := p.provider.Update(contexts)
	p.logger.Printf("INFO market snapshot v%d: %d active markets", version, len(contexts))
	return nil
}

func (p *MarketPoller) fetch(ctx context.Context, offset int) ([]rawMarket, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse markets url: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(p.batchLimit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build markets request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch markets: unexpected status %d", resp.StatusCode)
	}

	var batch []rawMarket
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode markets response: %w", err)
	}
	return batch, nil
}
