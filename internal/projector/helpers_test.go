package projector

import (
	"time"

	"PatternSentinel/internal/model"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func hourly(closes ...float64) model.PriceHistory {
	h := make(model.PriceHistory, len(closes))
	for i, c := range closes {
		h[i] = model.PricePoint{Time: testStart.Add(time.Duration(i) * time.Hour), Close: c}
	}
	return h
}

// scenarioCloses has movement UUDUDD at 0, 15 and 23 (+2 per Up, -1 per Down).
var scenarioCloses = []float64{
	100, 102, 104, 103, 105, 104, 103, 105, 107, 109,
	111, 113, 115, 117, 119, 121, 123, 125, 124, 126,
	125, 124, 126, 128, 130, 132, 131, 133, 132, 131,
}
