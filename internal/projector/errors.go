package projector

import "errors"

var (
	// ErrInsufficientData means there are too few points to encode or to build a query pattern.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidIndex means an anchor or query index lies outside the supplied history.
	ErrInvalidIndex = errors.New("index out of range")
	// ErrInvalidParameter covers non-positive lengths, steps and negative horizons.
	ErrInvalidParameter = errors.New("invalid parameter")
)
