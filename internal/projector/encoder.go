package projector

import (
	"fmt"

	"PatternSentinel/internal/model"
)

// Encode converts consecutive closes into a movement string. Equal closes count as Up.
func Encode(history model.PriceHistory) (model.Movement, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("encode %d points: %w", len(history), ErrInsufficientData)
	}
	movement := make(model.Movement, len(history)-1)
	for i := 0; i < len(history)-1; i++ {
		if history[i+1].Close >= history[i].Close {
			movement[i] = model.Up
		} else {
			movement[i] = model.Down
		}
	}
	return movement, nil
}
