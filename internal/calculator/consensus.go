package calculator

import "PatternSentinel/internal/model"

// Direction is the combined outlook of a batch of projection lines.
type Direction string

const (
	DirectionNone    Direction = "none"
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionMixed   Direction = "mixed"
)

// Outlook aggregates the summaries of a batch.
type Outlook struct {
	Direction    Direction
	Up           int
	Down         int
	AvgChangePct float64
}

// Consensus is bullish when every line ends above its anchor, bearish when
// every line ends below it, and mixed otherwise. No lines means none.
func Consensus(lines []model.ProjectionLine) Outlook {
	out := Outlook{Direction: DirectionNone}
	var sum float64
	var n int
	for _, l := range lines {
		s, err := Summarize(l)
		if err != nil {
			continue
		}
		n++
		sum += s.ChangePct
		switch {
		case s.Final > s.Start:
			out.Up++
		case s.Final < s.Start:
			out.Down++
		}
	}
	if n == 0 {
		return out
	}
	out.AvgChangePct = sum / float64(n)
	switch {
	case out.Up == n:
		out.Direction = DirectionBullish
	case out.Down == n:
		out.Direction = DirectionBearish
	default:
		out.Direction = DirectionMixed
	}
	return out
}
