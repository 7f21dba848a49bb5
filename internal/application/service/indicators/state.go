package indicators

import (
	"math"

	marketdata "main/internal/domain/entity/marketdata"
)

// State carries the per-instrument recurrences of the whole chain. A state
// is seeded by replaying backfilled history, then advanced one bar at a
// time. It is discarded when its instrument is rotated out; history of a
// retired contract never leaks into its successor.
type State struct {
	params Params
	bars   int

	prevClose float64
	prevHigh  float64
	prevLow   float64

	atr   float64 // unmultiplied Wilder value
	trSum float64

	stUpper float64
	stLower float64
	os      int32
	maxCh   float64
	minCh   float64

	emaFast float64
	emaSlow float64

	adx  *adxState
	cboe *cboeState
}

// NewState returns an empty state positioned before the first bar.
func NewState(p Params) *State {
	return &State{params: p, adx: newADXState(p.ADXPeriod), cboe: newCBOEState(p)}
}

// StepPrice consumes one sealed candle and returns its bar with every
// price-chain column set. Oscillator columns stay nil until StepVolume.
func (s *State) StepPrice(c marketdata.Candle) *marketdata.IndicatorBar {
	bar := &marketdata.IndicatorBar{Candle: c}

	hl2 := (c.High + c.Low) / 2

	tr := 0.0
	if s.bars > 0 {
		tr = math.Max(c.High-c.Low, math.Max(math.Abs(c.High-s.prevClose), math.Abs(c.Low-s.prevClose)))
	}

	// Wilder ATR, seeded by the running mean of the first ATRLength ranges
	n := s.params.ATRLength
	switch {
	case s.bars == 0:
		s.atr, s.trSum = 0, 0
	case s.bars < n:
		s.trSum += tr
		s.atr = s.trSum / float64(s.bars+1)
	default:
		s.atr = (s.atr*float64(n-1) + tr) / float64(n)
	}
	band := s.atr * s.params.ATRMultiplier

	initialUpper := hl2 + band
	initialLower := hl2 - band

	if s.bars == 0 {
		s.stUpper = initialUpper
		s.stLower = initialLower
	} else {
		if s.prevClose < s.stUpper {
			s.stUpper = math.Min(initialUpper, s.stUpper)
		} else {
			s.stUpper = initialUpper
		}
		if s.prevClose >= s.stLower {
			s.stLower = math.Max(initialLower, s.stLower)
		} else {
			s.stLower = initialLower
		}
	}

	// the trend latch flips only on a strict band crossing
	switch {
	case c.Close > s.stUpper:
		s.os = 1
	case c.Close < s.stLower:
		s.os = 0
	}

	spt := s.stUpper
	if s.os == 1 {
		spt = s.stLower
	}

	if s.bars == 0 {
		s.maxCh, s.minCh = c.Close, c.Close
	} else {
		if c.Close > spt || s.os == 1 {
			s.maxCh = math.Max(s.maxCh, c.Close)
		} else {
			s.maxCh = math.Min(spt, s.maxCh)
		}
		if c.Close < spt || s.os == 0 {
			s.minCh = math.Min(s.minCh, c.Close)
		} else {
			s.minCh = math.Max(spt, s.minCh)
		}
	}

	if s.bars == 0 {
		s.emaFast, s.emaSlow = c.Close, c.Close
	} else {
		s.emaFast += 2 / float64(s.params.EMAFast+1) * (c.Close - s.emaFast)
		s.emaSlow += 2 / float64(s.params.EMASlow+1) * (c.Close - s.emaSlow)
	}

	bar.ADX, bar.DIPlus, bar.DIMinus = s.adx.step(s.bars, c.High, c.Low, s.prevHigh, s.prevLow, tr)

	bar.HL2 = hl2
	bar.ATR = band
	bar.InitialUpper = initialUpper
	bar.InitialLower = initialLower
	bar.SupertrendUpper = s.stUpper
	bar.SupertrendLower = s.stLower
	bar.OS = s.os
	bar.SPT = spt
	bar.MaxChannel = s.maxCh
	bar.MinChannel = s.minCh
	bar.ChannelAvg = (s.maxCh + s.minCh) / 2
	bar.EMAFast = s.emaFast
	bar.EMASlow = s.emaSlow

	s.prevClose, s.prevHigh, s.prevLow = c.Close, c.High, c.Low
	s.bars++
	return bar
}

// StepVolume advances the oscillator branch with the bar's settled volume
// and writes the oscillator columns onto the bar. Callers must feed bars in
// open-time order, one call per bar.
func (s *State) StepVolume(bar *marketdata.IndicatorBar, volume int64) {
	out := s.cboe.step(bar.Close, float64(volume))
	bar.StochK, bar.StochD = out.StochK, out.StochD
	bar.OddBull, bar.OddBear, bar.OddStagnant = out.OddBull, out.OddBear, out.OddStagnant
}
