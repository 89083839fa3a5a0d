package main

import (
	"fmt"

	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/config"
	"PatternSentinel/internal/model"
	"PatternSentinel/internal/projector"

	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildFetcher picks the configured quote source. Network sources are
// throttled and retried.
func buildFetcher(cfg *config.Config, logger *zap.Logger) (collector.Fetcher, error) {
	ds := cfg.DataSource
	var f collector.Fetcher
	switch ds.Provider {
	case "kraken":
		f = collector.NewKrakenFetcher(ds.BaseURL, ds.Proxy)
	case "yahoo":
		f = collector.NewYahooFetcher(ds.BaseURL, ds.Proxy)
	case "mock":
		return &collector.MockFetcher{}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
	}
	retries := 0
	if ds.MaxRetries != nil {
		retries = *ds.MaxRetries
	}
	return collector.NewRetryFetcher(f, ds.RatePerMinute, retries, logger), nil
}

func buildPolicy(cfg *config.Config, name string) (projector.MatchPolicy, error) {
	if name == "" {
		name = cfg.Projection.Policy
	}
	p := cfg.Projection
	return projector.ParsePolicy(name, p.PatternLength, p.MaxLength, p.MinLength)
}

func seriesFromConfig(cfg *config.Config) []model.SeriesKey {
	keys := make([]model.SeriesKey, 0, len(cfg.Watch))
	seen := make(map[model.SeriesKey]bool)
	for _, w := range cfg.Watch {
		k := model.SeriesKey{Symbol: w.Symbol, Interval: w.Interval}
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
