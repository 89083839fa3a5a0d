package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PatternSentinel/internal/model"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RetryFetcher throttles and retries another Fetcher. Errors wrapping
// ErrPermanent are returned immediately.
type RetryFetcher struct {
	Fetcher    Fetcher
	Limiter    *rate.Limiter
	MaxRetries int
	// InitialBackoff doubles on every retry.
	InitialBackoff time.Duration
	Logger         *zap.Logger
}

// NewRetryFetcher allows perMinute requests with a burst of one and retries up to maxRetries times.
func NewRetryFetcher(f Fetcher, perMinute float64, maxRetries int, logger *zap.Logger) *RetryFetcher {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60.0)
	}
	return &RetryFetcher{
		Fetcher:        f,
		Limiter:        rate.NewLimiter(limit, 1),
		MaxRetries:     maxRetries,
		InitialBackoff: 5 * time.Second,
		Logger:         logger,
	}
}

func (r *RetryFetcher) Name() string { return r.Fetcher.Name() }

func (r *RetryFetcher) FetchHistory(ctx context.Context, symbol string, intervalMinutes int) (model.PriceHistory, error) {
	var history model.PriceHistory
	op := func() error {
		if err := r.Limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		h, err := r.Fetcher.FetchHistory(ctx, symbol, intervalMinutes)
		if err != nil {
			if errors.Is(err, ErrPermanent) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		history = h
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.InitialBackoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	var b backoff.BackOff = &backoff.StopBackOff{}
	if r.MaxRetries > 0 {
		b = backoff.WithMaxRetries(eb, uint64(r.MaxRetries))
	}
	policy := backoff.WithContext(b, ctx)

	notify := func(err error, wait time.Duration) {
		r.Logger.Warn("quote fetch failed, retrying",
			zap.String("source", r.Fetcher.Name()),
			zap.String("symbol", symbol),
			zap.Int("interval", intervalMinutes),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, fmt.Errorf("%s fetch %s/%dm: %w", r.Fetcher.Name(), symbol, intervalMinutes, err)
	}
	return history, nil
}
