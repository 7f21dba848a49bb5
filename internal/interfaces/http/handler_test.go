package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appmarketdata "main/internal/application/service/marketdata"
	instruments "main/internal/domain/entity/instruments"
	marketdata "main/internal/domain/entity/marketdata"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBars struct {
	bars []marketdata.IndicatorBar
}

func (f *fakeBars) AddBar(context.Context, *marketdata.IndicatorBar) error   { return nil }
func (f *fakeBars) AddBars(context.Context, []marketdata.IndicatorBar) error { return nil }
func (f *fakeBars) Close()                                                   {}

func (f *fakeBars) GetBarsBetween(context.Context, uuid.UUID, int64, time.Time, time.Time) ([]marketdata.IndicatorBar, error) {
	return f.bars, nil
}

func (f *fakeBars) GetLastBars(context.Context, uuid.UUID, int64, int) ([]marketdata.IndicatorBar, error) {
	return f.bars, nil
}

type fakeTracked struct {
	set *instruments.TrackedSet
}

func (f *fakeTracked) Current(context.Context) (*instruments.TrackedSet, error) { return f.set, nil }
func (f *fakeTracked) Replace(context.Context, *instruments.TrackedSet) error   { return nil }
func (f *fakeTracked) Close() error                                             { return nil }

func newTestHandler(bars *fakeBars, tracked *fakeTracked) *Handler {
	gin.SetMode(gin.TestMode)
	return NewHandler(appmarketdata.NewService(bars, tracked), nil, 0)
}

func get(h *Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestGetBarsRange(t *testing.T) {
	uid := uuid.New()
	bar := marketdata.IndicatorBar{
		Candle: marketdata.Candle{
			InstrumentUID:   uid,
			IntervalSeconds: 300,
			OpenTime:        time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
			Open:            100, High: 103, Low: 100, Close: 103,
		},
	}
	h := newTestHandler(&fakeBars{bars: []marketdata.IndicatorBar{bar}}, &fakeTracked{})

	w := get(h, "/api/v1/marketdata/bars/?instrument_uid="+uid.String()+
		"&interval_seconds=300&from=2026-02-02T09:00:00Z&to=2026-02-02T10:00:00Z")
	require.Equal(t, http.StatusOK, w.Code)

	var got []marketdata.IndicatorBar
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, uid, got[0].InstrumentUID)
	assert.Equal(t, 103.0, got[0].Close)
}

func TestGetBarsRangeValidation(t *testing.T) {
	h := newTestHandler(&fakeBars{}, &fakeTracked{})

	t.Run("missing instrument", func(t *testing.T) {
		w := get(h, "/api/v1/marketdata/bars/?interval_seconds=300&from=2026-02-02T09:00:00Z&to=2026-02-02T10:00:00Z")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing range", func(t *testing.T) {
		w := get(h, "/api/v1/marketdata/bars/?instrument_uid="+uuid.NewString()+"&interval_seconds=300")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad uuid", func(t *testing.T) {
		w := get(h, "/api/v1/marketdata/bars/?instrument_uid=nope&interval_seconds=300&from=2026-02-02T09:00:00Z&to=2026-02-02T10:00:00Z")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetBarsLastValidation(t *testing.T) {
	h := newTestHandler(&fakeBars{}, &fakeTracked{})

	t.Run("ok", func(t *testing.T) {
		w := get(h, "/api/v1/marketdata/bars/last?instrument_uid="+uuid.NewString()+"&interval_seconds=300&limit=10")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-positive limit", func(t *testing.T) {
		w := get(h, "/api/v1/marketdata/bars/last?instrument_uid="+uuid.NewString()+"&interval_seconds=300&limit=0")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing limit", func(t *testing.T) {
		w := get(h, "/api/v1/marketdata/bars/last?instrument_uid="+uuid.NewString()+"&interval_seconds=300")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetTrackedSet(t *testing.T) {
	set := instruments.NewTrackedSet(
		instruments.Binding{
			Role:     instruments.RoleNearestOTMCall,
			Contract: instruments.OptionContract{UID: uuid.New(), Ticker: "C4300"},
		},
	)
	h := newTestHandler(&fakeBars{}, &fakeTracked{set: set})

	w := get(h, "/api/v1/marketdata/tracked")
	require.Equal(t, http.StatusOK, w.Code)

	var got []instruments.Binding
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "C4300", got[0].Contract.Ticker)
}

func TestGetTrackedSetEmpty(t *testing.T) {
	h := newTestHandler(&fakeBars{}, &fakeTracked{})

	w := get(h, "/api/v1/marketdata/tracked")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
