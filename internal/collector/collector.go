package collector

import (
	"context"
	"fmt"
	"time"

	"PatternSentinel/internal/model"
	"PatternSentinel/internal/projector"

	"github.com/google/uuid"
)

// Settings are the projection parameters applied to every collected series.
type Settings struct {
	Policy  projector.MatchPolicy
	Horizon int
	Lines   int
}

// Collection is one fetched series and the projections derived from it.
type Collection struct {
	History model.PriceHistory
	Batch   *model.Batch
}

// Collector orchestrates data fetching and projection.
type Collector struct {
	Fetcher  Fetcher
	Settings Settings
	Clock    func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, settings Settings) *Collector {
	return &Collector{Fetcher: fetcher, Settings: settings, Clock: time.Now}
}

// Collect fetches the latest history for symbol and projects from its last bar.
// A series without a recurring pattern yields a batch with no lines.
func (c *Collector) Collect(ctx context.Context, symbol string, intervalMinutes int) (*Collection, error) {
	history, err := c.Fetcher.FetchHistory(ctx, symbol, intervalMinutes)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("fetch history: %s returned no points for %s", c.Fetcher.Name(), symbol)
	}

	res, err := projector.Generate(history, projector.Options{
		Policy:   c.Settings.Policy,
		QueryEnd: -1,
		Horizon:  c.Settings.Horizon,
		MaxLines: c.Settings.Lines,
		Step:     projector.StepForInterval(intervalMinutes),
	})
	if err != nil {
		return &Collection{History: history}, fmt.Errorf("project %s: %w", symbol, err)
	}

	return &Collection{
		History: history,
		Batch: &model.Batch{
			ID:          uuid.NewString(),
			Symbol:      symbol,
			Interval:    intervalMinutes,
			Source:      c.Fetcher.Name(),
			CreatedAt:   c.Clock(),
			AnchorTime:  res.Anchor.Time,
			AnchorClose: res.Anchor.Close,
			Pattern:     res.Pattern,
			HistoryLen:  len(history),
			Lines:       res.Lines,
		},
	}, nil
}
