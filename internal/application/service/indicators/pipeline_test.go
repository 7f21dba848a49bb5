package indicators

import (
	"math"
	"testing"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historySeries(n int) []marketdata.Candle {
	out := make([]marketdata.Candle, 0, n)
	for i := 0; i < n; i++ {
		close := 100 + 8*math.Sin(float64(i)*0.5) + float64(i)*0.05
		vol := int64(40 + (i*11)%60)
		c := testCandle(i, close+1, close-1, close)
		c.Volume = &vol
		out = append(out, c)
	}
	return out
}

func TestReplayMatchesStepByStep(t *testing.T) {
	params := DefaultParams()
	candles := historySeries(50)

	_, replayed := Replay(params, candles)

	st := NewState(params)
	manual := make([]marketdata.IndicatorBar, 0, len(candles))
	for _, c := range candles {
		bar := st.StepPrice(c)
		st.StepVolume(bar, *c.Volume)
		manual = append(manual, *bar)
	}

	require.Len(t, replayed, len(manual))
	assert.Equal(t, manual, replayed)
}

func TestPipelineDropResetsState(t *testing.T) {
	p := NewPipeline(DefaultParams())
	uid := uuid.New()

	c0 := testCandle(0, 100, 98, 99)
	c0.InstrumentUID = uid
	c1 := testCandle(1, 104, 100, 103)
	c1.InstrumentUID = uid

	p.OnCandleClosed(c0)
	b1 := p.OnCandleClosed(c1)
	assert.Greater(t, b1.ATR, 0.0)

	p.Drop(uid)

	// a fresh state treats the next candle as bar zero again
	b := p.OnCandleClosed(c1)
	assert.Equal(t, 0.0, b.ATR)
	assert.Equal(t, c1.Close, b.MaxChannel)
	assert.Equal(t, c1.Close, b.MinChannel)
}

func TestPipelineInstallContinuesReplayedState(t *testing.T) {
	params := DefaultParams()
	params.ADXPeriod = 2
	p := NewPipeline(params)
	uid := uuid.New()

	candles := historySeries(2)
	for i := range candles {
		candles[i].InstrumentUID = uid
	}
	st, _ := Replay(params, candles)
	p.Install(uid, st)

	next := testCandle(2, 112, 108, 110)
	next.InstrumentUID = uid
	bar := p.OnCandleClosed(next)

	// the replayed state already covers the warm-up bars
	assert.NotNil(t, bar.DIPlus)
	assert.NotNil(t, bar.DIMinus)
}
