package model

import "time"

// PricePoint is a single closing observation.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// PriceHistory is an ascending, deduplicated sequence of closes. Owned by the caller.
type PriceHistory []PricePoint

// Closes extracts the close column.
func (h PriceHistory) Closes() []float64 {
	closes := make([]float64, len(h))
	for i, p := range h {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent point. Panics on an empty history.
func (h PriceHistory) Last() PricePoint {
	return h[len(h)-1]
}
