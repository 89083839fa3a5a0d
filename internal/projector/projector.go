package projector

import (
	"fmt"
	"time"

	"PatternSentinel/internal/model"
)

// Options controls Generate.
type Options struct {
	Policy MatchPolicy
	// QueryEnd is the history index the pattern leads into and the projection
	// starts from. Negative means the last point.
	QueryEnd int
	Horizon  int
	// MaxLines caps the number of projected matches; <= 0 projects all of them.
	MaxLines int
	// Step between projected points; zero infers it from the history.
	Step time.Duration
}

// DefaultOptions projects 3 lines of 10 hourly steps from the latest bar
// using a fixed 6-move pattern.
func DefaultOptions() Options {
	return Options{
		Policy:   DefaultFixed,
		QueryEnd: -1,
		Horizon:  10,
		MaxLines: 3,
		Step:     time.Hour,
	}
}

// Result is everything one Generate call derived.
type Result struct {
	AnchorIndex int
	Anchor      model.PricePoint
	Pattern     string
	Matches     []model.PatternMatch
	Lines       []model.ProjectionLine
}

// Generate encodes history, matches the pattern leading into the anchor and
// projects the first MaxLines matches from the anchor's price and time.
func Generate(history model.PriceHistory, opts Options) (*Result, error) {
	if opts.Policy == nil {
		opts.Policy = DefaultFixed
	}
	anchor := opts.QueryEnd
	if anchor < 0 {
		anchor = len(history) - 1
	}
	if anchor < 0 || anchor >= len(history) {
		return nil, fmt.Errorf("anchor %d of %d points: %w", anchor, len(history), ErrInvalidIndex)
	}
	step := opts.Step
	if step == 0 {
		step = InferStep(history)
	}

	movement, err := Encode(history)
	if err != nil {
		return nil, err
	}
	matches, err := FindMatches(movement, anchor, opts.Policy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Policy.Name(), err)
	}

	res := &Result{
		AnchorIndex: anchor,
		Anchor:      history[anchor],
		Matches:     matches,
		Lines:       make([]model.ProjectionLine, 0, len(matches)),
	}
	if len(matches) > 0 {
		res.Pattern = movement[anchor-matches[0].PatternLength : anchor].String()
	} else if lengths, _ := opts.Policy.Lengths(); len(lengths) > 0 {
		res.Pattern = movement[anchor-lengths[len(lengths)-1] : anchor].String()
	}

	selected := matches
	if opts.MaxLines > 0 && len(selected) > opts.MaxLines {
		selected = selected[:opts.MaxLines]
	}
	for _, m := range selected {
		line, err := Project(history, anchor, res.Anchor.Close, res.Anchor.Time, m, opts.Horizon, step)
		if err != nil {
			return nil, err
		}
		res.Lines = append(res.Lines, line)
	}
	return res, nil
}
