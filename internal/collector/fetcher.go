package collector

import (
	"context"
	"errors"
	"math"
	"sort"

	"PatternSentinel/internal/model"
)

// ErrPermanent marks quote-source failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent quote source error")

// Fetcher defines the interface for fetching close history.
// Implementations return points ascending by time without duplicate timestamps.
type Fetcher interface {
	FetchHistory(ctx context.Context, symbol string, intervalMinutes int) (model.PriceHistory, error)
	Name() string
}

// normalize drops closes that are not positive finite numbers, sorts ascending
// and keeps the last point seen for each timestamp.
func normalize(points []model.PricePoint) model.PriceHistory {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	out := make(model.PriceHistory, 0, len(points))
	for _, p := range points {
		if !validClose(p.Close) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Time.Equal(p.Time) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

func validClose(c float64) bool {
	return c > 0 && !math.IsInf(c, 0) && !math.IsNaN(c)
}
