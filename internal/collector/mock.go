package collector

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"PatternSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Count   int
	History model.PriceHistory
	Err     error
	Now     func() time.Time

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many times FetchHistory ran.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

func (m *MockFetcher) FetchHistory(_ context.Context, _ string, intervalMinutes int) (model.PriceHistory, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.History != nil {
		return m.History, nil
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	count := m.Count
	if count == 0 {
		count = 720
	}
	return generateMockHistory(m.Price, count, intervalMinutes, now()), nil
}

// generateMockHistory builds a periodic series so movement patterns recur.
func generateMockHistory(basePrice float64, count, intervalMinutes int, now time.Time) model.PriceHistory {
	if basePrice == 0 {
		basePrice = 60000
	}
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	step := time.Duration(intervalMinutes) * time.Minute
	end := now.Truncate(step)
	h := make(model.PriceHistory, count)
	for i := 0; i < count; i++ {
		phase := float64(i) * 2 * math.Pi / 12
		p := basePrice * (1 + 0.01*math.Sin(phase) + 0.002*math.Sin(phase*5) + float64(i)*0.00005)
		h[i] = model.PricePoint{
			Time:  end.Add(-time.Duration(count-1-i) * step),
			Close: p,
		}
	}
	return h
}
