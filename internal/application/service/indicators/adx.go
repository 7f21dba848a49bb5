package indicators

import "math"

// adxState is the Wilder directional-movement recurrence: smoothed true
// range and directional movement seeded by a plain sum over the first
// period bars, then `smooth = smooth - smooth/period + current`.
type adxState struct {
	period   int
	trS      float64
	dmPlusS  float64
	dmMinusS float64
	dxWin    *window
}

func newADXState(period int) *adxState {
	return &adxState{period: period, dxWin: newWindow(period)}
}

// step consumes bar i of the series (0-based). tr is the true range against
// the previous close. Returned values are nil while warming up or when a
// denominator collapses to zero.
func (a *adxState) step(i int, high, low, prevHigh, prevLow, tr float64) (adx, diPlus, diMinus *float64) {
	if i == 0 {
		return nil, nil, nil
	}

	upMove := high - prevHigh
	downMove := prevLow - low
	dmPlus, dmMinus := 0.0, 0.0
	if upMove > downMove && upMove > 0 {
		dmPlus = upMove
	}
	if downMove > upMove && downMove > 0 {
		dmMinus = downMove
	}

	p := float64(a.period)
	if i <= a.period {
		a.trS += tr
		a.dmPlusS += dmPlus
		a.dmMinusS += dmMinus
		if i < a.period {
			return nil, nil, nil
		}
	} else {
		a.trS += tr - a.trS/p
		a.dmPlusS += dmPlus - a.dmPlusS/p
		a.dmMinusS += dmMinus - a.dmMinusS/p
	}

	dx := math.NaN()
	if a.trS != 0 {
		dp := 100 * a.dmPlusS / a.trS
		dm := 100 * a.dmMinusS / a.trS
		diPlus, diMinus = &dp, &dm
		if dp+dm != 0 {
			dx = 100 * math.Abs(dp-dm) / (dp + dm)
		}
	}
	a.dxWin.push(dx)
	if v, ok := a.dxWin.mean(); ok {
		adx = &v
	}
	return adx, diPlus, diMinus
}
