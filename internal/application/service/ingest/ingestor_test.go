package ingest

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	mu           sync.Mutex
	ch           chan marketdata.Tick
	subscribed   [][]uuid.UUID
	unsubscribed [][]uuid.UUID
	connectErr   error
}

func (f *fakeStream) Connect(_ context.Context, _ []uuid.UUID) (<-chan marketdata.Tick, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = make(chan marketdata.Tick, 64)
	return f.ch, nil
}

func (f *fakeStream) Subscribe(ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, ids)
	return nil
}

func (f *fakeStream) Unsubscribe(ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, ids)
	return nil
}

func (f *fakeStream) Close() {}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestIngestor(stream *fakeStream) *Ingestor {
	return New(stream, 5*time.Minute, ReconnectConfig{
		MinBackoff: time.Millisecond,
		MaxBackoff: 10 * time.Millisecond,
	}, testLogger())
}

func tick(uid uuid.UUID, at time.Time, price float64) marketdata.Tick {
	return marketdata.Tick{InstrumentUID: uid, EventTime: at, LastPrice: price}
}

func TestIngestorRoutesTrackedTicks(t *testing.T) {
	stream := &fakeStream{}
	g := newTestIngestor(stream)
	uid := uuid.New()
	other := uuid.New()
	require.NoError(t, g.SetTracked([]uuid.UUID{uid}))

	open := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	g.Ingest(tick(uid, open.Add(10*time.Second), 100))
	g.Ingest(tick(uid, open.Add(20*time.Second), 101))
	g.Ingest(tick(other, open.Add(30*time.Second), 999))

	buckets := g.SealClosed(open.Add(5 * time.Minute))
	require.Len(t, buckets, 1)
	assert.Equal(t, uid, buckets[0].InstrumentUID)
	assert.Equal(t, open, buckets[0].OpenTime)
	require.Len(t, buckets[0].Ticks, 2)
	assert.Equal(t, 100.0, buckets[0].Ticks[0].LastPrice)
	assert.Equal(t, 101.0, buckets[0].Ticks[1].LastPrice)
}

func TestIngestorDropsLateTicks(t *testing.T) {
	stream := &fakeStream{}
	g := newTestIngestor(stream)
	uid := uuid.New()
	require.NoError(t, g.SetTracked([]uuid.UUID{uid}))

	open := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	g.Ingest(tick(uid, open.Add(time.Minute), 100))
	require.Len(t, g.SealClosed(open.Add(5*time.Minute)), 1)

	// the bucket is sealed; a straggler must not resurrect it
	g.Ingest(tick(uid, open.Add(4*time.Minute), 100.5))
	assert.Empty(t, g.SealClosed(open.Add(10*time.Minute)))
}

func TestIngestorSealIsMonotonic(t *testing.T) {
	stream := &fakeStream{}
	g := newTestIngestor(stream)
	uid := uuid.New()
	require.NoError(t, g.SetTracked([]uuid.UUID{uid}))

	open := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	g.Ingest(tick(uid, open.Add(time.Minute), 100))
	require.Len(t, g.SealClosed(open.Add(5*time.Minute)), 1)

	// the same instant must not seal twice
	assert.Nil(t, g.SealClosed(open.Add(5*time.Minute)))
}

func TestIngestorSealsOldestFirst(t *testing.T) {
	stream := &fakeStream{}
	g := newTestIngestor(stream)
	uid := uuid.New()
	require.NoError(t, g.SetTracked([]uuid.UUID{uid}))

	open := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	g.Ingest(tick(uid, open.Add(6*time.Minute), 101))
	g.Ingest(tick(uid, open.Add(time.Minute), 100))

	buckets := g.SealClosed(open.Add(10 * time.Minute))
	require.Len(t, buckets, 2)
	assert.Equal(t, open, buckets[0].OpenTime)
	assert.Equal(t, open.Add(5*time.Minute), buckets[1].OpenTime)
}

func TestIngestorSetTrackedDiffs(t *testing.T) {
	stream := &fakeStream{}
	g := newTestIngestor(stream)
	a, b := uuid.New(), uuid.New()

	require.NoError(t, g.SetTracked([]uuid.UUID{a}))
	require.Len(t, stream.subscribed, 1)

	open := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	g.Ingest(tick(a, open.Add(time.Minute), 100))

	// rotating a out drops its buffered ticks
	require.NoError(t, g.SetTracked([]uuid.UUID{b}))
	require.Len(t, stream.unsubscribed, 1)
	assert.Equal(t, []uuid.UUID{a}, stream.unsubscribed[0])
	assert.Empty(t, g.SealClosed(open.Add(10*time.Minute)))
}

func TestIngestorRunConsumesStream(t *testing.T) {
	stream := &fakeStream{}
	g := newTestIngestor(stream)
	uid := uuid.New()
	require.NoError(t, g.SetTracked([]uuid.UUID{uid}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	open := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	var first chan marketdata.Tick
	require.Eventually(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		first = stream.ch
		return first != nil
	}, 2*time.Second, time.Millisecond, "stream never connected")

	// close after the send; once the ingestor reconnects, the tick is
	// guaranteed to have been consumed
	first <- tick(uid, open.Add(time.Minute), 100)
	close(first)
	require.Eventually(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.ch != first
	}, 2*time.Second, time.Millisecond, "stream never reconnected")

	assert.Len(t, g.SealClosed(open.Add(5*time.Minute)), 1)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
