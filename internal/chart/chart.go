// Package chart renders price history with projection overlays as an HTML page.
package chart

import (
	"fmt"
	"io"

	"PatternSentinel/internal/history"
	"PatternSentinel/internal/model"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorPrice      = "#e0e0e0"
	colorLatest     = "#ef5350"
	colorProjection = "#42a5f5"
	colorBackground = "#101418"
	colorText       = "#cfd8dc"
)

// Input is everything drawn on one chart.
type Input struct {
	Title   string
	History model.PriceHistory
	// Batches are newest first; older batches are drawn fainter.
	Batches []*model.Batch
	Keep    int
}

// Render writes a step line of closes, a marker on the latest close and every
// projection line of the given batches.
func Render(w io.Writer, in Input) error {
	if len(in.History) == 0 {
		return fmt.Errorf("render %s: no price history", in.Title)
	}
	keep := in.Keep
	if keep < len(in.Batches) {
		keep = len(in.Batches)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       in.Title,
			Theme:           types.ThemeWesteros,
			Width:           "1200px",
			Height:          "600px",
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      in.Title,
			Subtitle:   subtitle(in),
			TitleStyle: &opts.TextStyle{Color: colorText},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "time",
			AxisLabel: &opts.AxisLabel{Color: colorText},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "Price",
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorText},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Opacity: opts.Float(0.2)}},
		}),
	)

	last := in.History.Last()
	line.AddSeries("Price", priceData(in.History),
		charts.WithLineChartOpts(opts.LineChart{Step: "end", ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorPrice, Width: 2}),
		charts.WithMarkPointNameCoordItemOpts(opts.MarkPointNameCoordItem{
			Name:       "Latest",
			Coordinate: []interface{}{last.Time.UnixMilli(), last.Close},
			Value:      fmt.Sprintf("$%.2f", last.Close),
			ItemStyle:  &opts.ItemStyle{Color: colorLatest},
		}),
	)

	// Oldest first so the newest projections are drawn on top.
	for rank := len(in.Batches) - 1; rank >= 0; rank-- {
		b := in.Batches[rank]
		if b == nil {
			continue
		}
		alpha := float32(history.Opacity(rank, keep))
		for _, l := range b.Lines {
			line.AddSeries(l.Label, projectionData(l),
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
				charts.WithLineStyleOpts(opts.LineStyle{
					Color:   colorProjection,
					Width:   1.5,
					Type:    "dashed",
					Opacity: opts.Float(alpha),
				}),
			)
		}
	}

	return line.Render(w)
}

func subtitle(in Input) string {
	if len(in.Batches) == 0 || in.Batches[0] == nil {
		return "no projections"
	}
	b := in.Batches[0]
	return fmt.Sprintf("pattern %s | %d lines | %s", b.Pattern, len(b.Lines), b.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
}

func priceData(h model.PriceHistory) []opts.LineData {
	data := make([]opts.LineData, len(h))
	for i, p := range h {
		data[i] = opts.LineData{Value: []interface{}{p.Time.UnixMilli(), p.Close}}
	}
	return data
}

func projectionData(l model.ProjectionLine) []opts.LineData {
	data := make([]opts.LineData, len(l.Points))
	for i, p := range l.Points {
		data[i] = opts.LineData{Value: []interface{}{p.Time.UnixMilli(), p.Close}}
	}
	return data
}
