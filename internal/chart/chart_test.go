package chart

import (
	"bytes"
	"testing"
	"time"

	"PatternSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	h := model.PriceHistory{{Time: t0, Close: 100}, {Time: t0.Add(time.Hour), Close: 101.5}}
	batch := &model.Batch{
		Pattern: "UUDUDD",
		Lines: []model.ProjectionLine{{
			Label:  "Projection (Match: 29-Feb-2024)",
			Points: []model.ProjectionPoint{{Time: t0.Add(time.Hour), Close: 101.5}, {Time: t0.Add(2 * time.Hour), Close: 102}},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Input{Title: "XXBTZUSD 60m", History: h, Batches: []*model.Batch{batch, batch}, Keep: 5}))
	out := buf.String()
	assert.Contains(t, out, "XXBTZUSD 60m")
	assert.Contains(t, out, "Projection (Match: 29-Feb-2024)")
	assert.Contains(t, out, "$101.50")
}

func TestRender_NoHistory(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, Input{Title: "empty"}))
}
