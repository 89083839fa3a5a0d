package recorder

import "time"

// RunEvent summarises one refresh that produced a batch.
type RunEvent struct {
	BatchID     string
	Symbol      string
	Interval    int
	Source      string
	Pattern     string
	HistoryLen  int
	Lines       int
	AnchorClose float64
	Consensus   string // "bullish", "bearish", "mixed" or "none"
	Duration    time.Duration
	At          time.Time
}

// FailureEvent records a refresh that could not produce a batch.
type FailureEvent struct {
	Symbol   string
	Interval int
	Source   string
	Stage    string // "fetch" or "project"
	Error    string
	At       time.Time
}

// Recorder persists refresh activity for later analysis.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	RecordFailure(evt *FailureEvent) error
	RecentRuns(limit int) ([]RunEvent, error)
	Close() error
}
