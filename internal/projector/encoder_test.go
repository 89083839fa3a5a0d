package projector

import (
	"errors"
	"testing"

	"PatternSentinel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_StrictlyIncreasing(t *testing.T) {
	m, err := Encode(hourly(1, 2, 3, 4, 5, 6, 7))
	require.NoError(t, err)
	assert.Equal(t, "UUUUUU", m.String())
}

func TestEncode_EqualClosesCountAsUp(t *testing.T) {
	m, err := Encode(hourly(10, 10, 9, 9, 11))
	require.NoError(t, err)
	assert.Equal(t, "UDUU", m.String())
}

func TestEncode_LengthAndDeterminism(t *testing.T) {
	for n := 2; n <= len(scenarioCloses); n++ {
		h := hourly(scenarioCloses[:n]...)
		first, err := Encode(h)
		require.NoError(t, err)
		second, err := Encode(h)
		require.NoError(t, err)
		assert.Len(t, first, n-1)
		assert.Equal(t, first, second)
	}
}

func TestEncode_InsufficientData(t *testing.T) {
	for _, h := range []model.PriceHistory{nil, hourly(100)} {
		_, err := Encode(h)
		assert.True(t, errors.Is(err, ErrInsufficientData), "len %d: got %v", len(h), err)
	}
}
