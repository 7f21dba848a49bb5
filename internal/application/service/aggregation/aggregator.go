package aggregation

import (
	"context"
	"sync"
	"time"

	"main/internal/application/service/ingest"
	marketdata "main/internal/domain/entity/marketdata"
	"main/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config bounds the aggregator and its volume-fill worker.
type Config struct {
	Interval        time.Duration
	FillTimeout     time.Duration // per historical request
	MaxFillAttempts int           // attempts before a fill is abandoned
	PollPeriod      time.Duration // worker wake-up period
}

// Fill is the outcome of one volume backfill. When Abandoned is false the
// candle carries its settled volume; otherwise the retry ceiling was hit and
// the candle stays provisional.
type Fill struct {
	Candle    marketdata.Candle
	Abandoned bool
}

type pendingFill struct {
	candle   marketdata.Candle
	attempts int
}

// Aggregator seals tick buffers into candles and resolves their delayed
// volume through the historical candle API. Fills are processed strictly in
// open-time order per instrument: a later bucket's volume is never emitted
// while an earlier one is unresolved.
type Aggregator struct {
	cfg     Config
	ingest  *ingest.Ingestor
	history interfaces.CandleSource
	log     *logrus.Entry

	mu     sync.Mutex
	queues map[uuid.UUID][]pendingFill
	fills  chan Fill
}

func New(cfg Config, ing *ingest.Ingestor, history interfaces.CandleSource, log *logrus.Entry) *Aggregator {
	if cfg.PollPeriod <= 0 {
		cfg.PollPeriod = time.Second
	}
	return &Aggregator{
		cfg:     cfg,
		ingest:  ing,
		history: history,
		log:     log,
		queues:  make(map[uuid.UUID][]pendingFill),
		fills:   make(chan Fill, 256),
	}
}

// SealClosed finalizes every bucket that ended at or before now and returns
// the resulting candles. A bucket with no ticks yields no candle; the gap
// stays visible downstream.
func (a *Aggregator) SealClosed(now time.Time) []marketdata.Candle {
	buckets := a.ingest.SealClosed(now)
	candles := make([]marketdata.Candle, 0, len(buckets))
	for _, b := range buckets {
		if len(b.Ticks) == 0 {
			continue
		}
		c := marketdata.Candle{
			InstrumentUID:   b.InstrumentUID,
			IntervalSeconds: int64(a.cfg.Interval / time.Second),
			OpenTime:        b.OpenTime,
			Open:            b.Ticks[0].LastPrice,
			High:            b.Ticks[0].LastPrice,
			Low:             b.Ticks[0].LastPrice,
			Close:           b.Ticks[len(b.Ticks)-1].LastPrice,
		}
		for _, t := range b.Ticks[1:] {
			if t.LastPrice > c.High {
				c.High = t.LastPrice
			}
			if t.LastPrice < c.Low {
				c.Low = t.LastPrice
			}
		}
		candles = append(candles, c)
	}
	return candles
}

// RequestVolume enqueues the delayed volume fill for a sealed candle.
func (a *Aggregator) RequestVolume(c marketdata.Candle) {
	a.mu.Lock()
	a.queues[c.InstrumentUID] = append(a.queues[c.InstrumentUID], pendingFill{candle: c})
	a.mu.Unlock()
}

// Fills delivers resolved volume fills. The channel is never closed.
func (a *Aggregator) Fills() <-chan Fill {
	return a.fills
}

// DropInstrument discards pending fills of a rotated-out instrument.
func (a *Aggregator) DropInstrument(uid uuid.UUID) {
	a.mu.Lock()
	delete(a.queues, uid)
	a.mu.Unlock()
}

// Run processes fill queues until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.PollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.ProcessPending(ctx)
		}
	}
}

// ProcessPending attempts the head fill of every instrument queue once.
func (a *Aggregator) ProcessPending(ctx context.Context) {
	for _, uid := range a.queuedInstruments() {
		a.processHead(ctx, uid)
	}
}

func (a *Aggregator) queuedInstruments() []uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uuid.UUID, 0, len(a.queues))
	for uid, q := range a.queues {
		if len(q) > 0 {
			out = append(out, uid)
		}
	}
	return out
}

func (a *Aggregator) processHead(ctx context.Context, uid uuid.UUID) {
	a.mu.Lock()
	q := a.queues[uid]
	if len(q) == 0 {
		a.mu.Unlock()
		return
	}
	head := q[0]
	a.mu.Unlock()

	volume, err := a.fetchVolume(ctx, head.candle)
	if err == nil {
		head.candle.Volume = &volume
		a.resolveHead(uid, Fill{Candle: head.candle})
		return
	}

	a.mu.Lock()
	if q := a.queues[uid]; len(q) > 0 && q[0].candle.OpenTime.Equal(head.candle.OpenTime) {
		q[0].attempts++
		if q[0].attempts >= a.cfg.MaxFillAttempts {
			a.mu.Unlock()
			a.log.WithError(err).WithFields(logrus.Fields{
				"instrument_uid": uid,
				"open_time":      head.candle.OpenTime,
			}).Warn("volume fill abandoned")
			a.resolveHead(uid, Fill{Candle: head.candle, Abandoned: true})
			return
		}
	}
	a.mu.Unlock()
	a.log.WithError(err).WithFields(logrus.Fields{
		"instrument_uid": uid,
		"open_time":      head.candle.OpenTime,
	}).Debug("volume fill retry scheduled")
}

func (a *Aggregator) resolveHead(uid uuid.UUID, f Fill) {
	a.mu.Lock()
	if q := a.queues[uid]; len(q) > 0 {
		a.queues[uid] = q[1:]
	}
	a.mu.Unlock()
	a.fills <- f
}

func (a *Aggregator) fetchVolume(ctx context.Context, c marketdata.Candle) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, a.cfg.FillTimeout)
	defer cancel()

	candles, err := a.history.FetchCandles(cctx, c.InstrumentUID, c.Interval(), c.OpenTime, c.CloseTime())
	if err != nil {
		return 0, err
	}
	for _, h := range candles {
		if h.OpenTime.Equal(c.OpenTime) && h.Volume != nil {
			return *h.Volume, nil
		}
	}
	return 0, errBucketUnavailable
}
