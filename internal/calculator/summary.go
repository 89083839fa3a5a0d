package calculator

import (
	"errors"
	"fmt"

	"PatternSentinel/internal/model"
)

// LineSummary condenses one projection line.
type LineSummary struct {
	Label     string
	Start     float64
	Final     float64
	ChangePct float64
	High      float64
	Low       float64
	Steps     int
}

// Summarize reports where a projection line ends relative to its anchor.
func Summarize(line model.ProjectionLine) (LineSummary, error) {
	if len(line.Points) == 0 {
		return LineSummary{}, errors.New("projection line has no points")
	}
	closes := make([]float64, len(line.Points))
	for i, p := range line.Points {
		closes[i] = p.Close
	}
	high, low, err := PriceRange(closes)
	if err != nil {
		return LineSummary{}, fmt.Errorf("range of %s: %w", line.Label, err)
	}

	s := LineSummary{
		Label: line.Label,
		Start: closes[0],
		Final: closes[len(closes)-1],
		High:  high,
		Low:   low,
		Steps: len(closes) - 1,
	}
	if s.Start != 0 {
		s.ChangePct = (s.Final - s.Start) / s.Start * 100
	}
	return s, nil
}
