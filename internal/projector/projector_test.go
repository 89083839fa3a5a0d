package projector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_EndToEndScenario(t *testing.T) {
	h := hourly(scenarioCloses...)
	opts := DefaultOptions()
	opts.Horizon = 5

	res, err := Generate(h, opts)
	require.NoError(t, err)
	assert.Equal(t, 29, res.AnchorIndex)
	assert.Equal(t, "UUDUDD", res.Pattern)
	assert.Equal(t, []int{0, 15}, starts(res.Matches))
	require.Len(t, res.Lines, 2)

	// Replaying from j=21 telescopes: price[k] = 131 * close[21] / close[21+k].
	line := res.Lines[1]
	assert.Equal(t, "Projection (Match: 01-Mar-2024)", line.Label)
	want := []float64{131, 131 * 124.0 / 126, 131 * 124.0 / 128, 131 * 124.0 / 130, 131 * 124.0 / 132, 124}
	require.Len(t, line.Points, len(want))
	assert.Equal(t, 131.0, line.Points[0].Close)
	for i, w := range want {
		assert.InDelta(t, w, line.Points[i].Close, 1e-9, "point %d", i)
		assert.Equal(t, h.Last().Time.Add(time.Duration(i)*time.Hour), line.Points[i].Time)
	}
}

func TestGenerate_VariableFallsBackOnScenario(t *testing.T) {
	h := hourly(scenarioCloses...)
	opts := DefaultOptions()
	opts.Policy = DefaultVariable

	res, err := Generate(h, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 15}, starts(res.Matches))
	for _, l := range res.Lines {
		assert.Equal(t, 6, l.PatternLength)
	}
}

func TestGenerate_MaxLinesAndQueryEnd(t *testing.T) {
	h := hourly(scenarioCloses...)
	opts := DefaultOptions()
	opts.MaxLines = 1
	res, err := Generate(h, opts)
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Equal(t, 0, res.Lines[0].Match.StartIndex)

	// Anchoring at 21 uses the occurrence at 15 as the query itself; only the
	// one at 0 remains a candidate, while 23 still counts towards the threshold.
	opts = DefaultOptions()
	opts.QueryEnd = 21
	res, err = Generate(h, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, starts(res.Matches))
	assert.Equal(t, h[21].Close, res.Lines[0].Points[0].Close)
	assert.Equal(t, h[21].Time, res.Lines[0].Points[0].Time)
}

func TestGenerate_NoPatternIsNotAnError(t *testing.T) {
	res, err := Generate(hourly(1, 2, 3, 4, 5, 6, 7, 6, 5), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Empty(t, res.Lines)
	assert.NotNil(t, res.Lines)
}

func TestGenerate_InfersStep(t *testing.T) {
	h := hourly(scenarioCloses...)
	for i := range h {
		h[i].Time = testStart.Add(time.Duration(i) * 15 * time.Minute)
	}
	opts := DefaultOptions()
	opts.Step = 0
	res, err := Generate(h, opts)
	require.NoError(t, err)
	require.NotEmpty(t, res.Lines)
	pts := res.Lines[0].Points
	assert.Equal(t, 15*time.Minute, pts[1].Time.Sub(pts[0].Time))
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(hourly(1), DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Generate(hourly(1, 2, 3), DefaultOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Generate(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidIndex)

	opts := DefaultOptions()
	opts.QueryEnd = 40
	_, err = Generate(hourly(scenarioCloses...), opts)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}
