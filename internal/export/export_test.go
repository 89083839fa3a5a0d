package export

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"PatternSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLines() []model.ProjectionLine {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []model.ProjectionLine{{
		Label:         "Projection (Match: 01-Mar-2024)",
		PatternLength: 6,
		Match:         model.PatternMatch{StartIndex: 15, PatternLength: 6},
		Points: []model.ProjectionPoint{
			{Time: t0, Close: 131},
			{Time: t0.Add(time.Hour), Close: 128.92063492063492},
		},
	}}
}

func TestPrice(t *testing.T) {
	assert.Equal(t, "128.92063492", Price(128.92063492063492).String())
	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		assert.NotPanics(t, func() { assert.True(t, Price(v).IsZero()) })
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleLines()))

	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, rows, 3)
	assert.Equal(t, "label,timestamp,close", rows[0])
	assert.Equal(t, "Projection (Match: 01-Mar-2024),2024-03-01T12:00:00Z,131", rows[1])
	assert.Equal(t, "Projection (Match: 01-Mar-2024),2024-03-01T13:00:00Z,128.92063492", rows[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleLines()))

	var got []struct {
		Label      string `json:"label"`
		MatchStart int    `json:"match_start"`
		Points     []struct {
			Close string `json:"close"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 15, got[0].MatchStart)
	assert.Equal(t, "131", got[0].Points[0].Close)
	assert.Equal(t, "128.92063492", got[0].Points[1].Close)
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleLines()))
	out := buf.String()
	assert.Contains(t, out, "FINAL")
	assert.Contains(t, out, "131.00")
	assert.Contains(t, out, "128.92")
	assert.Contains(t, out, "-1.59%")
}
