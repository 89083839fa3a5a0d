package projector

import (
	"fmt"
	"math"
	"time"

	"PatternSentinel/internal/model"
)

const labelDateLayout = "02-Jan-2006"

// Project replays up to horizon historical changes that followed match onto
// anchorPrice, one point per step starting at anchorTime.
//
// Each step applies (close[j]-close[j+1])/close[j+1] with j walking forward
// from the end of the matched pattern. The line is truncated, not rejected,
// once j+1 runs past the history or reaches a close that is not a positive
// finite number.
func Project(history model.PriceHistory, anchorIndex int, anchorPrice float64, anchorTime time.Time,
	match model.PatternMatch, horizon int, step time.Duration) (model.ProjectionLine, error) {
	n := len(history)
	if anchorIndex < 0 || anchorIndex >= n {
		return model.ProjectionLine{}, fmt.Errorf("anchor index %d of %d points: %w", anchorIndex, n, ErrInvalidIndex)
	}
	if match.StartIndex < 0 || match.StartIndex >= n {
		return model.ProjectionLine{}, fmt.Errorf("match index %d of %d points: %w", match.StartIndex, n, ErrInvalidIndex)
	}
	if match.PatternLength <= 0 || horizon < 0 || step <= 0 {
		return model.ProjectionLine{}, fmt.Errorf("pattern length %d, horizon %d, step %s: %w",
			match.PatternLength, horizon, step, ErrInvalidParameter)
	}

	steps := 0
	if rest := n - match.StartIndex - 1; match.PatternLength < rest {
		steps = min(rest-match.PatternLength, horizon)
	}

	points := make([]model.ProjectionPoint, 1, steps+1)
	points[0] = model.ProjectionPoint{Time: anchorTime, Close: anchorPrice}
	price, ts := anchorPrice, anchorTime
	for i := 0; i < steps; i++ {
		j := match.StartIndex + match.PatternLength + i
		base := history[j+1].Close
		if base <= 0 || math.IsInf(base, 0) || math.IsNaN(base) {
			break
		}
		next := price * (1 + (history[j].Close-base)/base)
		if math.IsInf(next, 0) || math.IsNaN(next) {
			break
		}
		price = next
		ts = ts.Add(step)
		points = append(points, model.ProjectionPoint{Time: ts, Close: price})
	}

	return model.ProjectionLine{
		Label:         fmt.Sprintf("Projection (Match: %s)", history[match.StartIndex].Time.Format(labelDateLayout)),
		Points:        points,
		PatternLength: match.PatternLength,
		Match:         match,
	}, nil
}

// StepForInterval converts a bar interval in minutes to the projection step.
// Returns 0 for a non-positive interval.
func StepForInterval(intervalMinutes int) time.Duration {
	switch {
	case intervalMinutes <= 0:
		return 0
	case intervalMinutes == 60:
		return time.Hour
	case intervalMinutes == 1440:
		return 24 * time.Hour
	default:
		return time.Duration(intervalMinutes) * time.Minute
	}
}

// InferStep takes the spacing of the first two points, or one hour when that is unavailable.
func InferStep(history model.PriceHistory) time.Duration {
	if len(history) < 2 {
		return time.Hour
	}
	if d := history[1].Time.Sub(history[0].Time); d > 0 {
		return d
	}
	return time.Hour
}
