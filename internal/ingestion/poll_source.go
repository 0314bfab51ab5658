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

	"polymarket-watch/internal/normalize"
)

// PollSource fetches trades from the data API on a fixed interval,
// advancing a timestamp cursor so each scan only asks for new records.
type PollSource struct {
	baseURL    string
	interval   time.Duration
	batchLimit int
	client     *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	cursor int64 // last seen feed timestamp, unix seconds
}

// PollOptions configures a PollSource.
type PollOptions struct {
	BaseURL      string
	ScanInterval time.Duration
	Timeout      time.Duration
	RateLimit    float64 // requests per second
	BatchLimit   int
	Logger       *log.Logger

	// StartCursor resumes from a known feed timestamp; zero starts
	// from the present scan.
	StartCursor int64
}

// NewPollSource creates a polling source.
func NewPollSource(opts PollOptions) *PollSource {
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
	return &PollSource{
		baseURL:    opts.BaseURL,
		interval:   opts.ScanInterval,
		batchLimit: batchLimit,
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
		cursor:     opts.StartCursor,
	}
}

// Name identifies the source.
func (s *PollSource) Name() string { return "poll" }

// Run polls until the context is canceled. A failed scan is logged and
// retried on the next tick; the cursor only advances on success.
func (s *PollSource) Run(ctx context.Context, out chan<- normalize.RawTrade) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.scan(ctx, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Printf("WARN poll scan failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// scan pages through the API until a page comes back short.
func (s *PollSource) scan(ctx context.Context, out chan<- normalize.RawTrade) error {
	for {
		batch, err := s.fetch(ctx)
		if err != nil {
			return err
		}

		for _, raw := range batch {
			select {
			case out <- raw:
			case <-ctx.Done():
				return ctx.Err()
			}
			if raw.Timestamp > s.cursor {
				s.cursor = raw.Timestamp
			}
		}

		if len(batch) < s.batchLimit {
			return nil
		}
	}
}

func (s *PollSource) fetch(ctx context.Context) ([]normalize.RawTrade, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse data api url: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(s.batchLimit))
	if s.cursor > 0 {
		q.Set("after", strconv.FormatInt(s.cursor, 10))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build trades request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch trades: unexpected status %d", resp.StatusCode)
	}

	var batch []normalize.RawTrade
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode trades response: %w", err)
	}
	return batch, nil
}

// Cursor returns the last seen feed timestamp.
func (s *PollSource) Cursor() int64 { return s.cursor }
