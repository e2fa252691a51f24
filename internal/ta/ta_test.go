package ta

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nifty-meanrev/internal/types"
)

func series(vals ...float64) []types.NullFloat {
	out := make([]types.NullFloat, len(vals))
	for i, v := range vals {
		if v > 0 {
			out[i] = types.Float(v)
		}
	}
	return out
}

func TestSMA(t *testing.T) {
	v, ok := SMA([]float64{1, 2, 3, 4}, 2)
	assert.True(t, ok)
	assert.Equal(t, 3.5, v)

	_, ok = SMA([]float64{1}, 2)
	assert.False(t, ok)
	_, ok = SMA([]float64{1}, 0)
	assert.False(t, ok)
}

func TestMovingAverageUndefinedUntilWindowFilled(t *testing.T) {
	s := series(10, 20, 30, 40)
	for i := 0; i < 2; i++ {
		_, ok := MovingAverage(s, i, 3)
		assert.False(t, ok, "index %d", i)
	}
	v, ok := MovingAverage(s, 2, 3)
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)
	v, ok = MovingAverage(s, 3, 3)
	assert.True(t, ok)
	assert.Equal(t, 30.0, v)
}

func TestMovingAverageSkipsMissing(t *testing.T) {
	// zero marks a missing cell in this helper
	s := series(10, 0, 20, 0, 30)
	_, ok := MovingAverage(s, 3, 3)
	assert.False(t, ok)

	v, ok := MovingAverage(s, 4, 3)
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	v, ok = MovingAverage(s, 4, 2)
	assert.True(t, ok)
	assert.Equal(t, 25.0, v)
}

func TestDeviation(t *testing.T) {
	assert.InDelta(t, -0.1, Deviation(90, 100), 1e-12)
	assert.InDelta(t, 0.05, Deviation(105, 100), 1e-12)
}
