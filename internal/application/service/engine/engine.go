package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"main/internal/application/service/aggregation"
	"main/internal/application/service/indicators"
	"main/internal/application/service/ingest"
	"main/internal/application/service/selector"
	instruments "main/internal/domain/entity/instruments"
	marketdata "main/internal/domain/entity/marketdata"
	"main/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// maxRetryBars caps the in-memory write-retry queue during storage outages;
// beyond it the oldest bars are shed.
const maxRetryBars = 4096

// Config bounds the driver loop.
type Config struct {
	Interval       time.Duration
	DriverPeriod   time.Duration
	PersistTimeout time.Duration
	SwitchTimeout  time.Duration
	Indicators     indicators.Params
}

// Deps are the collaborators the engine drives.
type Deps struct {
	Ingestor   *ingest.Ingestor
	Aggregator *aggregation.Aggregator
	Pipeline   *indicators.Pipeline
	Selector   *selector.Selector
	History    interfaces.CandleSource
	Bars       interfaces.BarRepository
	Tracked    interfaces.TrackedSetRepository
	Publisher  interfaces.BarPublisher // optional
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// Engine is the periodic driver: it seals closed buckets, advances the
// indicator chain, persists and publishes the resulting bars, and at every
// interval boundary re-evaluates which contracts should be tracked.
type Engine struct {
	cfg      Config
	deps     Deps
	calendar *Calendar
	log      *logrus.Entry
	clock    func() time.Time

	mu      sync.Mutex
	pending map[uuid.UUID]map[int64]*marketdata.IndicatorBar

	// driver-goroutine state
	current      *instruments.TrackedSet
	lastBoundary time.Time
	retry        []marketdata.IndicatorBar
}

func New(cfg Config, deps Deps, calendar *Calendar, log *logrus.Entry, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		deps:     deps,
		calendar: calendar,
		log:      log,
		clock:    time.Now,
		pending:  make(map[uuid.UUID]map[int64]*marketdata.IndicatorBar),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the ingestion, fill and driver loops and blocks until ctx is
// cancelled or one of them fails.
func (e *Engine) Run(ctx context.Context) error {
	// bind the initial set right away so ticks flow before the first
	// boundary; failures here are retried at boundaries
	e.evaluateSelection(ctx, e.clock())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.deps.Ingestor.Run(gctx) })
	g.Go(func() error { return e.deps.Aggregator.Run(gctx) })
	g.Go(func() error { return e.drive(gctx) })
	return g.Wait()
}

func (e *Engine) drive(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.DriverPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.cycle(ctx, e.clock())
		}
	}
}

// cycle is one driver pass. Sealing happens only after the clock has moved
// past a bucket's end, volume fills are folded in strictly per-instrument
// in order, and everything produced in the pass lands in one batched write.
func (e *Engine) cycle(ctx context.Context, now time.Time) {
	var batch []marketdata.IndicatorBar

	for _, c := range e.deps.Aggregator.SealClosed(now) {
		bar := e.deps.Pipeline.OnCandleClosed(c)
		e.stashPending(bar)
		e.deps.Aggregator.RequestVolume(c)
		batch = append(batch, *bar)
	}

drain:
	for {
		select {
		case f := <-e.deps.Aggregator.Fills():
			if bar := e.completeFill(f); bar != nil {
				batch = append(batch, *bar)
			}
		default:
			break drain
		}
	}

	e.flush(ctx, batch)

	boundary := marketdata.BucketStart(now, e.cfg.Interval)
	if boundary.After(e.lastBoundary) {
		e.lastBoundary = boundary
		if e.calendar.InSession(now) {
			e.evaluateSelection(ctx, now)
		}
	}
}

// completeFill folds a resolved volume fill into its pending bar. An
// abandoned fill leaves the stored bar provisional but still advances the
// oscillator clock with volume zero so later bars are not starved.
func (e *Engine) completeFill(f aggregation.Fill) *marketdata.IndicatorBar {
	bar := e.takePending(f.Candle.InstrumentUID, f.Candle.OpenTime)
	if bar == nil {
		e.log.WithFields(logrus.Fields{
			"instrument_uid": f.Candle.InstrumentUID,
			"open_time":      f.Candle.OpenTime,
		}).Warn("volume fill for unknown bar dropped")
		return nil
	}
	vol := int64(0)
	if !f.Abandoned && f.Candle.Volume != nil {
		vol = *f.Candle.Volume
		bar.Volume = f.Candle.Volume
	}
	e.deps.Pipeline.OnVolumeComplete(bar, vol)
	return bar
}

func (e *Engine) flush(ctx context.Context, bars []marketdata.IndicatorBar) {
	if len(e.retry) > 0 {
		bars = append(e.retry, bars...)
		e.retry = nil
	}
	if len(bars) == 0 {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.PersistTimeout)
	defer cancel()
	if err := e.deps.Bars.AddBars(cctx, bars); err != nil {
		e.log.WithError(err).WithField("bars", len(bars)).Error("bar batch write failed, queued for retry")
		if len(bars) > maxRetryBars {
			bars = bars[len(bars)-maxRetryBars:]
		}
		e.retry = bars
		return
	}

	if e.deps.Publisher == nil {
		return
	}
	for i := range bars {
		if err := e.deps.Publisher.PublishBar(ctx, &bars[i]); err != nil {
			e.log.WithError(err).Warn("bar publish failed")
		}
	}
}

func (e *Engine) evaluateSelection(ctx context.Context, now time.Time) {
	desired, err := e.deps.Selector.Desired(ctx, now)
	if err != nil {
		e.log.WithError(err).Warn("selection evaluation skipped")
		return
	}
	if e.current != nil && e.current.Matches(desired) {
		return
	}
	if err := e.switchTo(ctx, now, desired); err != nil {
		e.log.WithError(err).Error("switch aborted, previous set retained")
	}
}

// switchTo stages backfill and indicator replay for every changed role,
// persists the staged bars and the new binding, and only then commits the
// set in memory. Any failure before the commit leaves the previous set
// fully in effect.
func (e *Engine) switchTo(ctx context.Context, now time.Time, desired map[instruments.Role]instruments.OptionContract) error {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.SwitchTimeout)
	defer cancel()

	staged := make(map[uuid.UUID]*indicators.State)
	var stagedBars []marketdata.IndicatorBar
	bindings := make([]instruments.Binding, 0, len(desired))

	for _, role := range instruments.Roles {
		contract, ok := desired[role]
		if !ok {
			continue
		}
		bindings = append(bindings, instruments.Binding{Role: role, Contract: contract, UpdatedAt: now})

		if e.current != nil {
			if cur, bound := e.current.Contract(role); bound && cur.UID == contract.UID {
				continue // unchanged role keeps its live state
			}
		}

		from, to := e.calendar.BackfillRange(now)
		candles, err := e.deps.History.FetchCandles(cctx, contract.UID, e.cfg.Interval, from, to)
		if err != nil {
			return fmt.Errorf("backfill %s: %w", contract.Ticker, err)
		}
		st, bars := indicators.Replay(e.cfg.Indicators, candles)
		staged[contract.UID] = st
		stagedBars = append(stagedBars, bars...)
	}

	if len(stagedBars) > 0 {
		if err := e.deps.Bars.AddBars(cctx, stagedBars); err != nil {
			return fmt.Errorf("persist backfill: %w", err)
		}
	}

	set := instruments.NewTrackedSet(bindings...)
	if err := e.deps.Tracked.Replace(cctx, set); err != nil {
		return fmt.Errorf("persist tracked set: %w", err)
	}

	var retired []uuid.UUID
	if e.current != nil {
		keep := make(map[uuid.UUID]struct{}, len(desired))
		for _, id := range set.UIDs() {
			keep[id] = struct{}{}
		}
		for _, id := range e.current.UIDs() {
			if _, ok := keep[id]; !ok {
				retired = append(retired, id)
			}
		}
	}
	for uid, st := range staged {
		e.deps.Pipeline.Install(uid, st)
	}
	for _, uid := range retired {
		e.deps.Pipeline.Drop(uid)
		e.deps.Aggregator.DropInstrument(uid)
		e.dropPending(uid)
	}
	e.current = set

	if err := e.deps.Ingestor.SetTracked(set.UIDs()); err != nil {
		// the reconnect loop resubscribes the committed set
		e.log.WithError(err).Warn("subscription update failed")
	}

	tickers := make([]string, 0, len(bindings))
	for _, b := range bindings {
		tickers = append(tickers, b.Contract.Ticker)
	}
	e.log.WithField("contracts", tickers).Info("tracked set switched")
	return nil
}

func (e *Engine) stashPending(bar *marketdata.IndicatorBar) {
	e.mu.Lock()
	defer e.mu.Unlock()
	byTime, ok := e.pending[bar.InstrumentUID]
	if !ok {
		byTime = make(map[int64]*marketdata.IndicatorBar)
		e.pending[bar.InstrumentUID] = byTime
	}
	byTime[bar.OpenTime.Unix()] = bar
}

func (e *Engine) takePending(uid uuid.UUID, open time.Time) *marketdata.IndicatorBar {
	e.mu.Lock()
	defer e.mu.Unlock()
	byTime := e.pending[uid]
	bar, ok := byTime[open.Unix()]
	if !ok {
		return nil
	}
	delete(byTime, open.Unix())
	return bar
}

func (e *Engine) dropPending(uid uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, uid)
}
