package indicators

import (
	"sync"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/google/uuid"
)

// Pipeline owns the indicator state of every tracked instrument and fans
// sealed candles into the per-instrument recurrences.
type Pipeline struct {
	params Params

	mu     sync.Mutex
	states map[uuid.UUID]*State
}

func NewPipeline(params Params) *Pipeline {
	return &Pipeline{params: params, states: make(map[uuid.UUID]*State)}
}

func (p *Pipeline) state(uid uuid.UUID) *State {
	st, ok := p.states[uid]
	if !ok {
		st = NewState(p.params)
		p.states[uid] = st
	}
	return st
}

// OnCandleClosed runs the price chain for a freshly sealed candle.
func (p *Pipeline) OnCandleClosed(c marketdata.Candle) *marketdata.IndicatorBar {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state(c.InstrumentUID).StepPrice(c)
}

// OnVolumeComplete runs the oscillator branch once a bar's volume settled.
func (p *Pipeline) OnVolumeComplete(bar *marketdata.IndicatorBar, volume int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state(bar.InstrumentUID).StepVolume(bar, volume)
}

// Install replaces the state of uid, typically with one seeded by Replay.
func (p *Pipeline) Install(uid uuid.UUID, st *State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[uid] = st
}

// Drop forgets the state of a rotated-out instrument.
func (p *Pipeline) Drop(uid uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.states, uid)
}

// Replay seeds a fresh state from historical candles. Backfilled candles
// carry volume, so both branches advance together; a candle without volume
// feeds zero into the oscillator branch.
func Replay(params Params, candles []marketdata.Candle) (*State, []marketdata.IndicatorBar) {
	st := NewState(params)
	bars := make([]marketdata.IndicatorBar, 0, len(candles))
	for _, c := range candles {
		bar := st.StepPrice(c)
		vol := int64(0)
		if c.Volume != nil {
			vol = *c.Volume
		}
		st.StepVolume(bar, vol)
		bars = append(bars, *bar)
	}
	return st, bars
}
