package indicators

// wilderRSI is a streaming RSI over close-to-close deltas with Wilder
// smoothing (alpha = 1/length, seeded by the first delta).
type wilderRSI struct {
	length  int
	avgGain float64
	avgLoss float64
	primed  bool
}

// update consumes one delta and returns the RSI value. ok is false while the
// value is undefined (both running averages still zero).
func (r *wilderRSI) update(delta float64) (float64, bool) {
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	}
	if delta < 0 {
		loss = -delta
	}
	if !r.primed {
		r.avgGain = gain
		r.avgLoss = loss
		r.primed = true
	} else {
		a := 1 / float64(r.length)
		r.avgGain += a * (gain - r.avgGain)
		r.avgLoss += a * (loss - r.avgLoss)
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 0, false
		}
		return 100, true
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs), true
}
