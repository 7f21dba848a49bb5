package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketStart(t *testing.T) {
	interval := 5 * time.Minute

	at := time.Date(2026, 2, 2, 9, 7, 42, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 2, 9, 5, 0, 0, time.UTC), BucketStart(at, interval))

	// an exact boundary starts its own bucket
	boundary := time.Date(2026, 2, 2, 9, 10, 0, 0, time.UTC)
	assert.Equal(t, boundary, BucketStart(boundary, interval))

	// non-UTC inputs normalize to the same bucket
	msk := time.FixedZone("MSK", 3*3600)
	assert.Equal(t,
		BucketStart(at, interval),
		BucketStart(at.In(msk), interval),
	)
}

func TestCandleCloseTime(t *testing.T) {
	c := Candle{
		OpenTime:        time.Date(2026, 2, 2, 9, 5, 0, 0, time.UTC),
		IntervalSeconds: 300,
	}
	assert.Equal(t, time.Date(2026, 2, 2, 9, 10, 0, 0, time.UTC), c.CloseTime())
	assert.Equal(t, 5*time.Minute, c.Interval())
}

func TestCandleComplete(t *testing.T) {
	c := Candle{}
	assert.False(t, c.Complete())
	v := int64(12)
	c.Volume = &v
	assert.True(t, c.Complete())
}
