package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWilderRSI(t *testing.T) {
	t.Run("all gains saturate at 100", func(t *testing.T) {
		r := wilderRSI{length: 14}
		var v float64
		var ok bool
		for i := 0; i < 5; i++ {
			v, ok = r.update(1)
		}
		require.True(t, ok)
		assert.Equal(t, 100.0, v)
	})

	t.Run("all losses pin at 0", func(t *testing.T) {
		r := wilderRSI{length: 14}
		var v float64
		var ok bool
		for i := 0; i < 5; i++ {
			v, ok = r.update(-1)
		}
		require.True(t, ok)
		assert.Equal(t, 0.0, v)
	})

	t.Run("flat series is undefined", func(t *testing.T) {
		r := wilderRSI{length: 14}
		_, ok := r.update(0)
		assert.False(t, ok)
		_, ok = r.update(0)
		assert.False(t, ok)
	})

	t.Run("balanced averages give 50", func(t *testing.T) {
		r := wilderRSI{length: 2}
		r.update(1)
		v, ok := r.update(-1)
		require.True(t, ok)
		assert.InDelta(t, 50.0, v, 1e-12)
	})
}

func TestCBOEWarmupAndOdds(t *testing.T) {
	s := newCBOEState(DefaultParams())

	var rows []OscillatorOutputs
	for i := 0; i < 80; i++ {
		close := 100 + 10*math.Sin(float64(i)*0.7) + float64(i)*0.1
		volume := 50 + float64((i*7)%40)
		rows = append(rows, s.step(close, volume))
	}

	assert.Nil(t, rows[0].StochK, "stochastic defined before its window filled")
	assert.Nil(t, rows[1].OddBull)

	defined := 0
	for _, r := range rows {
		if r.OddBull == nil {
			continue
		}
		defined++
		require.NotNil(t, r.OddBear)
		require.NotNil(t, r.OddStagnant)
		sum := *r.OddBull + *r.OddBear + *r.OddStagnant
		assert.InDelta(t, 100.0, sum, 1e-9)
	}
	assert.Greater(t, defined, 0)

	kDefined := 0
	for _, r := range rows {
		if r.StochK != nil {
			kDefined++
			assert.GreaterOrEqual(t, *r.StochK, 0.0)
			assert.LessOrEqual(t, *r.StochK, 100.0)
		}
	}
	assert.Greater(t, kDefined, 0)
}
