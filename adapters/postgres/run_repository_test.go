package postgres

import (
	"database/sql"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullFloat(t *testing.T) {
	assert.Nil(t, nullFloat(math.NaN()))
	assert.Nil(t, nullFloat(math.Inf(1)))
	assert.Nil(t, nullFloat(math.Inf(-1)))
	assert.Equal(t, 0.0, nullFloat(0.0))
	assert.Equal(t, 4.889, nullFloat(4.889))
}

func TestFloatOrNaN(t *testing.T) {
	require.True(t, math.IsNaN(floatOrNaN(sql.NullFloat64{})))

	v := floatOrNaN(sql.NullFloat64{Float64: 2.5, Valid: true})
	assert.Equal(t, 2.5, v)
}

func TestNullFloatRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, 4.889, math.NaN()} {
		stored := nullFloat(v)
		var scanned sql.NullFloat64
		if stored != nil {
			scanned = sql.NullFloat64{Float64: stored.(float64), Valid: true}
		}
		got := floatOrNaN(scanned)
		if math.IsNaN(v) {
			require.True(t, math.IsNaN(got))
			continue
		}
		assert.Equal(t, v, got)
	}
}
