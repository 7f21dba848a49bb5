package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	marketdata "main/internal/domain/entity/marketdata"
	"main/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReconnectConfig bounds the stream reconnect loop.
type ReconnectConfig struct {
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
	MaxAttempts int // consecutive failed connects before giving up
}

// BucketTicks is the raw content of one sealed bucket, ticks in arrival
// order.
type BucketTicks struct {
	InstrumentUID uuid.UUID
	OpenTime      time.Time
	Ticks         []marketdata.Tick
}

// Ingestor consumes the live last-price stream and buffers ticks per
// instrument and interval bucket until the aggregator seals them. Buffers
// survive reconnects; only a rotation of the tracked set drops them.
type Ingestor struct {
	stream    interfaces.TickStream
	interval  time.Duration
	reconnect ReconnectConfig
	log       *logrus.Entry

	mu         sync.Mutex
	tracked    map[uuid.UUID]struct{}
	buffers    map[uuid.UUID]map[int64][]marketdata.Tick
	sealCutoff time.Time // open time of the oldest bucket still accepting ticks
}

// New returns an ingestor with an empty tracked set.
func New(stream interfaces.TickStream, interval time.Duration, rc ReconnectConfig, log *logrus.Entry) *Ingestor {
	return &Ingestor{
		stream:    stream,
		interval:  interval,
		reconnect: rc,
		log:       log,
		tracked:   make(map[uuid.UUID]struct{}),
		buffers:   make(map[uuid.UUID]map[int64][]marketdata.Tick),
	}
}

// Run drives the connect/consume/reconnect loop until ctx is cancelled or
// the reconnect ceiling is hit.
func (g *Ingestor) Run(ctx context.Context) error {
	attempts := 0
	backoff := g.reconnect.MinBackoff
	for {
		ids := g.trackedIDs()
		if len(ids) == 0 {
			// nothing bound yet; poll until the first switch commits
			if err := sleepCtx(ctx, g.reconnect.MinBackoff); err != nil {
				return err
			}
			continue
		}

		ch, err := g.stream.Connect(ctx, ids)
		if err != nil {
			attempts++
			if g.reconnect.MaxAttempts > 0 && attempts >= g.reconnect.MaxAttempts {
				return fmt.Errorf("connect tick stream: %w", err)
			}
			g.log.WithError(err).WithField("attempt", attempts).Warn("tick stream connect failed")
			if err := sleepCtx(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, g.reconnect.MaxBackoff)
			continue
		}
		attempts = 0
		backoff = g.reconnect.MinBackoff

		if err := g.consume(ctx, ch); err != nil {
			return err
		}
		g.log.Warn("tick stream lost, reconnecting")
	}
}

func (g *Ingestor) consume(ctx context.Context, ch <-chan marketdata.Tick) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-ch:
			if !ok {
				return nil
			}
			g.Ingest(t)
		}
	}
}

// Ingest routes one tick into its bucket. Ticks for untracked instruments
// and ticks landing in an already sealed bucket are dropped.
func (g *Ingestor) Ingest(t marketdata.Tick) {
	bucket := marketdata.BucketStart(t.EventTime, g.interval)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tracked[t.InstrumentUID]; !ok {
		return
	}
	if bucket.Before(g.sealCutoff) {
		return
	}
	byBucket, ok := g.buffers[t.InstrumentUID]
	if !ok {
		byBucket = make(map[int64][]marketdata.Tick)
		g.buffers[t.InstrumentUID] = byBucket
	}
	key := bucket.Unix()
	byBucket[key] = append(byBucket[key], t)
}

// SealClosed removes and returns every buffered bucket that ended at or
// before now, oldest first per instrument. Buckets that received no ticks
// produce nothing. After sealing, late ticks for those buckets are dropped.
func (g *Ingestor) SealClosed(now time.Time) []BucketTicks {
	cutoff := marketdata.BucketStart(now, g.interval)

	g.mu.Lock()
	defer g.mu.Unlock()
	if !cutoff.After(g.sealCutoff) {
		return nil
	}
	g.sealCutoff = cutoff

	var out []BucketTicks
	for uid, byBucket := range g.buffers {
		for key, ticks := range byBucket {
			open := time.Unix(key, 0).UTC()
			if open.Before(cutoff) {
				out = append(out, BucketTicks{InstrumentUID: uid, OpenTime: open, Ticks: ticks})
				delete(byBucket, key)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InstrumentUID != out[j].InstrumentUID {
			return out[i].InstrumentUID.String() < out[j].InstrumentUID.String()
		}
		return out[i].OpenTime.Before(out[j].OpenTime)
	})
	return out
}

// SetTracked rebinds the subscription set: new instruments are subscribed,
// removed ones unsubscribed and their buffers discarded. Subscription errors
// are returned but the in-memory set is updated regardless; the reconnect
// loop resubscribes the whole set on the next connect.
func (g *Ingestor) SetTracked(ids []uuid.UUID) error {
	next := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	g.mu.Lock()
	var added, removed []uuid.UUID
	for id := range next {
		if _, ok := g.tracked[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range g.tracked {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
			delete(g.buffers, id)
		}
	}
	g.tracked = next
	g.mu.Unlock()

	var err error
	if len(removed) > 0 {
		if e := g.stream.Unsubscribe(removed); e != nil {
			err = fmt.Errorf("unsubscribe: %w", e)
		}
	}
	if len(added) > 0 {
		if e := g.stream.Subscribe(added); e != nil {
			err = fmt.Errorf("subscribe: %w", e)
		}
	}
	return err
}

func (g *Ingestor) trackedIDs() []uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]uuid.UUID, 0, len(g.tracked))
	for id := range g.tracked {
		out = append(out, id)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
