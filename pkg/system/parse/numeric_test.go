package parse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt64(t *testing.T) {
	for _, token := range []string{"max", "MAX", "Max"} {
		v, err := ToInt64(token)
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), v)
	}

	v, err := ToInt64("-42")
	require.NoError(t, err)
	assert.Equal(t, int64(-42), v)

	v, err = ToInt64("9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)

	_, err = ToInt64("not-a-number")
	assert.ErrorIs(t, err, ErrFormat)

	_, err = ToInt64("12.5")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestToFloat64(t *testing.T) {
	v, err := ToFloat64("max")
	require.NoError(t, err)
	assert.Equal(t, math.MaxFloat64, v)

	v, err = ToFloat64("0.87")
	require.NoError(t, err)
	assert.InDelta(t, 0.87, v, 1e-12)

	v, err = ToFloat64("NaN")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	v, err = ToFloat64("Infinity")
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))

	_, err = ToFloat64("watts")
	assert.ErrorIs(t, err, ErrFormat)
}
