package indicators

import "math"

// window is a fixed-size ring of float64 samples. NaN marks an undefined
// sample; any aggregate over a window containing NaN is itself undefined,
// which mirrors how a rolling statistic behaves over a series with gaps.
type window struct {
	vals []float64
	next int
	n    int
}

func newWindow(size int) *window {
	return &window{vals: make([]float64, size)}
}

func (w *window) push(v float64) {
	w.vals[w.next] = v
	w.next = (w.next + 1) % len(w.vals)
	if w.n < len(w.vals) {
		w.n++
	}
}

func (w *window) full() bool {
	return w.n == len(w.vals)
}

func (w *window) sum() (float64, bool) {
	if !w.full() {
		return 0, false
	}
	s := 0.0
	for _, v := range w.vals {
		if math.IsNaN(v) {
			return 0, false
		}
		s += v
	}
	return s, true
}

func (w *window) mean() (float64, bool) {
	s, ok := w.sum()
	if !ok {
		return 0, false
	}
	return s / float64(len(w.vals)), true
}

func (w *window) min() (float64, bool) {
	if !w.full() {
		return 0, false
	}
	m := math.Inf(1)
	for _, v := range w.vals {
		if math.IsNaN(v) {
			return 0, false
		}
		m = math.Min(m, v)
	}
	return m, true
}

func (w *window) max() (float64, bool) {
	if !w.full() {
		return 0, false
	}
	m := math.Inf(-1)
	for _, v := range w.vals {
		if math.IsNaN(v) {
			return 0, false
		}
		m = math.Max(m, v)
	}
	return m, true
}
