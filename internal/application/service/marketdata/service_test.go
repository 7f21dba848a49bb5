package marketdata

import (
	"context"
	"testing"
	"time"

	instruments "main/internal/domain/entity/instruments"
	marketdata "main/internal/domain/entity/marketdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBars struct {
	bars     []marketdata.IndicatorBar
	lastArgs struct {
		from, to time.Time
		limit    int
	}
}

func (f *fakeBars) AddBar(context.Context, *marketdata.IndicatorBar) error    { return nil }
func (f *fakeBars) AddBars(context.Context, []marketdata.IndicatorBar) error  { return nil }
func (f *fakeBars) Close()                                                    {}

func (f *fakeBars) GetBarsBetween(_ context.Context, _ uuid.UUID, _ int64, from, to time.Time) ([]marketdata.IndicatorBar, error) {
	f.lastArgs.from, f.lastArgs.to = from, to
	return f.bars, nil
}

func (f *fakeBars) GetLastBars(_ context.Context, _ uuid.UUID, _ int64, limit int) ([]marketdata.IndicatorBar, error) {
	f.lastArgs.limit = limit
	return f.bars, nil
}

type fakeTracked struct {
	set *instruments.TrackedSet
}

func (f *fakeTracked) Current(context.Context) (*instruments.TrackedSet, error) { return f.set, nil }
func (f *fakeTracked) Replace(context.Context, *instruments.TrackedSet) error   { return nil }
func (f *fakeTracked) Close() error                                             { return nil }

func TestGetBarsBetweenValidation(t *testing.T) {
	s := NewService(&fakeBars{}, &fakeTracked{})
	uid := uuid.New()
	now := time.Now()

	_, err := s.GetBarsBetween(context.Background(), uid, 0, now, now)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestGetBarsBetweenSwapsReversedRange(t *testing.T) {
	bars := &fakeBars{}
	s := NewService(bars, &fakeTracked{})
	uid := uuid.New()
	from := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	_, err := s.GetBarsBetween(context.Background(), uid, 300, to, from)
	require.NoError(t, err)
	assert.Equal(t, from, bars.lastArgs.from)
	assert.Equal(t, to, bars.lastArgs.to)
}

func TestGetLastBarsValidation(t *testing.T) {
	s := NewService(&fakeBars{}, &fakeTracked{})
	uid := uuid.New()

	_, err := s.GetLastBars(context.Background(), uid, 300, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	_, err = s.GetLastBars(context.Background(), uid, -1, 5)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestCurrentTrackedSetEmpty(t *testing.T) {
	s := NewService(&fakeBars{}, &fakeTracked{})

	bindings, err := s.CurrentTrackedSet(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, bindings)
	assert.Empty(t, bindings)
}

func TestCurrentTrackedSetOrdered(t *testing.T) {
	set := instruments.NewTrackedSet(
		instruments.Binding{Role: instruments.RoleNearestOTMPut, Contract: instruments.OptionContract{UID: uuid.New()}},
		instruments.Binding{Role: instruments.RoleNearestOTMCall, Contract: instruments.OptionContract{UID: uuid.New()}},
	)
	s := NewService(&fakeBars{}, &fakeTracked{set: set})

	bindings, err := s.CurrentTrackedSet(context.Background())
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, instruments.RoleNearestOTMCall, bindings[0].Role)
	assert.Equal(t, instruments.RoleNearestOTMPut, bindings[1].Role)
}
