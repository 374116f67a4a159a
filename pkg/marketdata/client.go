// Package marketdata provides the cache-first market data client used by the
// backtest engine and the download tooling.
package marketdata

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mysingle-lab/quant-backtest/internal/logger"
	"github.com/mysingle-lab/quant-backtest/internal/types"
	"github.com/mysingle-lab/quant-backtest/internal/utils"
	"github.com/mysingle-lab/quant-backtest/pkg/errors"
	"github.com/mysingle-lab/quant-backtest/pkg/marketdata/provider"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// BarCache is the local bar store the client consults before going to the
// network. Its absence or failure costs latency, never correctness.
type BarCache interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error)
	SaveBars(ctx context.Context, bars []types.Bar) error
}

// OnDownloadProgress reports per-symbol download progress.
type OnDownloadProgress func(current int, total int, symbol string)

// Client fetches daily bars cache-first: a cache hit returns immediately,
// a miss goes to the provider behind a rate limiter with retries and the
// result is written back to the cache. Implements the engine's DataProvider
// contract.
type Client struct {
	provider    provider.Provider
	cache       BarCache
	limiter     *utils.RateLimiter
	logger      *logger.Logger
	maxAttempts int
	baseDelay   time.Duration
}

// NewClient wires a client. cache may be nil, which disables caching.
// requestsPerMinute paces provider calls; pass 0 to disable pacing.
func NewClient(p provider.Provider, cache BarCache, requestsPerMinute int, l *logger.Logger) *Client {
	var limiter *utils.RateLimiter
	if requestsPerMinute > 0 {
		limiter = utils.NewRateLimiter(requestsPerMinute)
	}

	return &Client{
		provider:    p,
		cache:       cache,
		limiter:     limiter,
		logger:      l,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
}

// GetBars returns the daily bars of one symbol in the range, ordered by
// date. An empty result is not an error.
func (c *Client) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	if c.cache != nil {
		cached, err := c.cache.GetBars(ctx, symbol, start, end)
		if err != nil {
			c.logger.Warn("bar cache read failed, falling through to provider",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		} else if len(cached) > 0 {
			return cached, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataFetchFailed, err, "rate limit wait aborted for %s", symbol)
		}
	}

	var bars []types.Bar

	err := utils.Retry(ctx, c.maxAttempts, c.baseDelay, func() error {
		fetched, err := c.provider.GetBars(ctx, symbol, start, end)
		if err != nil {
			return err
		}

		bars = fetched

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataFetchFailed, err, "failed to fetch bars for %s", symbol)
	}

	if c.cache != nil && len(bars) > 0 {
		if err := c.cache.SaveBars(ctx, bars); err != nil {
			c.logger.Warn("bar cache write failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}

	return bars, nil
}

// Download warms the cache for a list of symbols and reports per-symbol
// progress. Symbols that fail or return no data are skipped; the count of
// symbols that produced bars is returned.
func (c *Client) Download(ctx context.Context, symbols []string, start, end time.Time, onProgress OnDownloadProgress) (int, error) {
	downloaded := 0

	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return downloaded, err
		}

		bars, err := c.GetBars(ctx, symbol, start, end)
		if err != nil {
			c.logger.Warn("download failed for symbol",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		} else if len(bars) > 0 {
			downloaded++
		}

		if onProgress != nil {
			onProgress(i+1, len(symbols), symbol)
		}
	}

	return downloaded, nil
}
