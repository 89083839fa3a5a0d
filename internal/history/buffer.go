package history

import (
	"sort"
	"sync"

	"PatternSentinel/internal/model"
)

// ring is a fixed-size circular buffer of batches for one series.
type ring struct {
	buf  []*model.Batch
	pos  int // next write position
	full bool
}

func (r *ring) push(b *model.Batch) {
	r.buf[r.pos] = b
	r.pos = (r.pos + 1) % len(r.buf)
	if r.pos == 0 && !r.full {
		r.full = true
	}
}

func (r *ring) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.pos
}

// newest returns the i-th newest entry (0 = latest).
func (r *ring) newest(i int) *model.Batch {
	idx := (r.pos - 1 - i + len(r.buf)) % len(r.buf)
	return r.buf[idx]
}

// Buffer keeps the most recent batches for every symbol/interval series.
// Pushing past capacity overwrites the oldest batch of that series.
//
// Thread-safe for concurrent writes and reads.
type Buffer struct {
	mu     sync.RWMutex
	keep   int
	series map[model.SeriesKey]*ring
	prices map[model.SeriesKey]model.PriceHistory
}

// NewBuffer creates a buffer holding up to keep batches per series.
func NewBuffer(keep int) *Buffer {
	if keep <= 0 {
		keep = 5
	}
	return &Buffer{
		keep:   keep,
		series: make(map[model.SeriesKey]*ring),
		prices: make(map[model.SeriesKey]model.PriceHistory),
	}
}

// Keep returns the per-series capacity.
func (b *Buffer) Keep() int { return b.keep }

// Push stores a batch under its series key. Nil batches are ignored.
func (b *Buffer) Push(batch *model.Batch) {
	if batch == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := batch.Key()
	r, ok := b.series[key]
	if !ok {
		r = &ring{buf: make([]*model.Batch, b.keep)}
		b.series[key] = r
	}
	r.push(batch)
}

// Snapshot returns the batches of one series, newest first.
func (b *Buffer) Snapshot(key model.SeriesKey) []*model.Batch {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.series[key]
	if !ok {
		return nil
	}
	n := r.len()
	out := make([]*model.Batch, n)
	for i := 0; i < n; i++ {
		out[i] = r.newest(i)
	}
	return out
}

// Latest returns the newest batch of a series.
func (b *Buffer) Latest(key model.SeriesKey) (*model.Batch, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.series[key]
	if !ok || r.len() == 0 {
		return nil, false
	}
	return r.newest(0), true
}

// SetPrices replaces the price history last fetched for a series.
func (b *Buffer) SetPrices(key model.SeriesKey, h model.PriceHistory) {
	b.mu.Lock()
	b.prices[key] = h
	b.mu.Unlock()
}

// Prices returns the price history last fetched for a series.
func (b *Buffer) Prices(key model.SeriesKey) (model.PriceHistory, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.prices[key]
	return h, ok
}

// Keys lists every series with batches or prices, ordered by symbol then interval.
func (b *Buffer) Keys() []model.SeriesKey {
	b.mu.RLock()
	keys := make([]model.SeriesKey, 0, len(b.series))
	for k := range b.series {
		keys = append(keys, k)
	}
	for k := range b.prices {
		if _, ok := b.series[k]; !ok {
			keys = append(keys, k)
		}
	}
	b.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Symbol != keys[j].Symbol {
			return keys[i].Symbol < keys[j].Symbol
		}
		return keys[i].Interval < keys[j].Interval
	})
	return keys
}

// MinOpacity is the opacity of the oldest retained batch.
const MinOpacity = 0.2

// Opacity fades a batch by age: rank 0 (newest) is fully opaque and the
// oldest of keep batches sits at MinOpacity.
func Opacity(rank, keep int) float64 {
	if rank <= 0 || keep <= 1 {
		return 1
	}
	if rank >= keep-1 {
		return MinOpacity
	}
	return 1 - (1-MinOpacity)*float64(rank)/float64(keep-1)
}
