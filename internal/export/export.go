// Package export writes projection lines as CSV, JSON or a terminal table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"PatternSentinel/internal/calculator"
	"PatternSentinel/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

// PricePlaces is the number of decimal places kept for exported prices.
const PricePlaces = 8

// Price converts a float close into a fixed-point value. NaN and infinities become zero.
func Price(v float64) decimal.Decimal {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(PricePlaces)
}

// Point is one exported projection point.
type Point struct {
	Time  time.Time       `json:"time"`
	Close decimal.Decimal `json:"close"`
}

// Line is the exported form of a projection line.
type Line struct {
	Label         string  `json:"label"`
	PatternLength int     `json:"pattern_length"`
	MatchStart    int     `json:"match_start"`
	Points        []Point `json:"points"`
}

// Lines converts projection lines into their exported form.
func Lines(lines []model.ProjectionLine) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		el := Line{
			Label:         l.Label,
			PatternLength: l.PatternLength,
			MatchStart:    l.Match.StartIndex,
			Points:        make([]Point, len(l.Points)),
		}
		for i, p := range l.Points {
			el.Points[i] = Point{Time: p.Time, Close: Price(p.Close)}
		}
		out = append(out, el)
	}
	return out
}

// WriteCSV writes one row per projected point: label,timestamp,close.
func WriteCSV(w io.Writer, lines []model.ProjectionLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"label", "timestamp", "close"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range lines {
		for _, p := range l.Points {
			row := []string{l.Label, p.Time.UTC().Format(time.RFC3339), Price(p.Close).String()}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the lines as an indented JSON array.
func WriteJSON(w io.Writer, lines []model.ProjectionLine) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Lines(lines)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// WriteTable writes one summary row per line for terminal output.
func WriteTable(w io.Writer, lines []model.ProjectionLine) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("LINE", "MATCH", "LEN", "START", "FINAL", "CHANGE", "HIGH", "LOW")
	for _, l := range lines {
		s, err := calculator.Summarize(l)
		if err != nil {
			return err
		}
		t.Row(
			l.Label,
			fmt.Sprintf("%d", l.Match.StartIndex),
			fmt.Sprintf("%d", l.PatternLength),
			Price(s.Start).StringFixed(2),
			Price(s.Final).StringFixed(2),
			fmt.Sprintf("%+.2f%%", s.ChangePct),
			Price(s.High).StringFixed(2),
			Price(s.Low).StringFixed(2),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
