package indicators

import "math"

// OscillatorOutputs are the volume-dependent columns of one bar.
type OscillatorOutputs struct {
	StochK      *float64
	StochD      *float64
	OddBull     *float64
	OddBear     *float64
	OddStagnant *float64
}

// cboeState drives the composite oscillator branch. It advances only when a
// bar's volume is known, strictly in open-time order, so its clock may lag
// the price chain by the in-flight volume fills.
type cboeState struct {
	bars      int
	prevClose float64
	rsiPrice  wilderRSI
	rsiFlow   wilderRSI
	priceWin  *window // rolling band of the price RSI for the stochastic
	kWin      *window
	dWin      *window
	flowWin   *window // rolling band of the flow RSI
	upWin     *window // volume-weighted up price flow
	downWin   *window
}

func newCBOEState(p Params) *cboeState {
	return &cboeState{
		rsiPrice: wilderRSI{length: p.RSILength},
		rsiFlow:  wilderRSI{length: p.FlowLength},
		priceWin: newWindow(p.StochLength),
		kWin:     newWindow(p.SmoothK),
		dWin:     newWindow(p.SmoothD),
		flowWin:  newWindow(p.FlowLength),
		upWin:    newWindow(p.FlowLength),
		downWin:  newWindow(p.FlowLength),
	}
}

// step consumes one completed bar. Undefined intermediate values propagate
// as NaN through the rolling windows and surface as nil outputs.
func (c *cboeState) step(close, volume float64) OscillatorOutputs {
	var out OscillatorOutputs

	rsiP, rsiF := math.NaN(), math.NaN()
	up, down := 0.0, 0.0
	if c.bars > 0 {
		delta := close - c.prevClose
		if v, ok := c.rsiPrice.update(delta); ok {
			rsiP = v
		}
		if v, ok := c.rsiFlow.update(delta); ok {
			rsiF = v
		}
		if delta > 0 {
			up = close
		}
		if delta < 0 {
			down = close
		}
	}
	c.priceWin.push(rsiP)
	c.flowWin.push(rsiF)
	c.upWin.push(volume * up)
	c.downWin.push(volume * down)

	// stochastic of the price RSI, double-smoothed into K and D
	stoch := math.NaN()
	if lo, ok := c.priceWin.min(); ok && !math.IsNaN(rsiP) {
		hi, _ := c.priceWin.max()
		if den := hi - lo; den != 0 {
			stoch = 100 * (rsiP - lo) / den
		}
	}
	c.kWin.push(stoch)
	k := math.NaN()
	if v, ok := c.kWin.mean(); ok {
		k = v
		out.StochK = &v
	}
	c.dWin.push(k)
	if v, ok := c.dWin.mean(); ok {
		out.StochD = &v
	}

	// volume-weighted market index from the up/down price-flow ratio
	mi := math.NaN()
	if dn, ok := c.downWin.sum(); ok && dn != 0 {
		upSum, _ := c.upWin.sum()
		r := upSum / dn
		mi = 100 - 100/(1+r)
	}

	// stochastic of the flow RSI, split into bull/bear/stagnant factors
	stch := math.NaN()
	if lo, ok := c.flowWin.min(); ok && !math.IsNaN(rsiF) {
		hi, _ := c.flowWin.max()
		if den := hi - lo; den != 0 {
			stch = 100 * (rsiF - lo) / den
		}
	}

	if !math.IsNaN(mi) && !math.IsNaN(stch) {
		bullGross := mi
		bearGross := 100 - mi
		stagnant := bullGross * bearGross / 100
		priceBull := bullGross - stagnant
		priceBear := bearGross - stagnant
		coeffPrice := (stagnant + priceBull + priceBear) / 100

		stch1 := 100 - stch
		f1 := stch * stch1 / 100
		f2 := stch - f1
		f3 := stch1 - f1
		f4 := f1 + f2 + f3

		if coeffPrice != 0 && f4 != 0 {
			bull := priceBull / coeffPrice
			bear := priceBear / coeffPrice
			stag := stagnant / coeffPrice
			tStag := stag * (1 + f3/f4)
			tBull := bull * (1 + f2/f4)
			tBear := bear * (1 + f3/f4)
			if coeff := (tStag + tBull + tBear) / 100; coeff != 0 {
				ob := tBull / coeff
				obr := tBear / coeff
				ost := tStag / coeff
				out.OddBull, out.OddBear, out.OddStagnant = &ob, &obr, &ost
			}
		}
	}

	c.prevClose = close
	c.bars++
	return out
}
