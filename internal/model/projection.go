package model

import "time"

// PatternMatch is a historical location whose movement equals the query pattern.
type PatternMatch struct {
	StartIndex    int `json:"start_index"`
	PatternLength int `json:"pattern_length"`
}

// ProjectionPoint is one synthetic future close.
type ProjectionPoint struct {
	Time  time.Time `json:"time"`
	Close float64   `json:"close"`
}

// ProjectionLine is a replay of historical changes onto an anchor price.
// Points[0] is always the anchor itself.
type ProjectionLine struct {
	Label         string            `json:"label"`
	Points        []ProjectionPoint `json:"points"`
	PatternLength int               `json:"pattern_length"`
	Match         PatternMatch      `json:"match"`
}

// Batch groups the projection lines produced by one refresh of a symbol.
type Batch struct {
	ID          string           `json:"id"`
	Symbol      string           `json:"symbol"`
	Interval    int              `json:"interval"`
	Source      string           `json:"source"`
	CreatedAt   time.Time        `json:"created_at"`
	AnchorTime  time.Time        `json:"anchor_time"`
	AnchorClose float64          `json:"anchor_close"`
	Pattern     string           `json:"pattern"`
	HistoryLen  int              `json:"history_len"`
	Lines       []ProjectionLine `json:"lines"`
}

// Key identifies the stream a batch belongs to.
func (b *Batch) Key() SeriesKey {
	return SeriesKey{Symbol: b.Symbol, Interval: b.Interval}
}

// SeriesKey identifies a (symbol, interval) price stream.
type SeriesKey struct {
	Symbol   string `json:"symbol"`
	Interval int    `json:"interval"`
}
