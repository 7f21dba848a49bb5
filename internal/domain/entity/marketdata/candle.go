package marketdata

import (
	"time"

	"github.com/google/uuid"
)

// Candle is an immutable OHLC summary of one interval bucket.
//
// The live feed does not carry traded volume for option contracts, so Volume
// stays nil until the asynchronous historical fill for the bucket completes.
// That is the only amendment a finalized candle ever receives.
type Candle struct {
	InstrumentUID   uuid.UUID `json:"instrument_uid"`
	IntervalSeconds int64     `json:"interval_seconds"`
	OpenTime        time.Time `json:"open_time"`
	Open            float64   `json:"open"`
	High            float64   `json:"high"`
	Low             float64   `json:"low"`
	Close           float64   `json:"close"`
	Volume          *int64    `json:"volume,omitempty"`
}

// Interval returns the bucket length as a duration.
func (c Candle) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// CloseTime is the exclusive end of the bucket.
func (c Candle) CloseTime() time.Time {
	return c.OpenTime.Add(c.Interval())
}

// Complete reports whether the delayed volume fill has been applied.
func (c Candle) Complete() bool {
	return c.Volume != nil
}

// BucketStart aligns t down to the interval boundary in UTC.
func BucketStart(t time.Time, interval time.Duration) time.Time {
	return t.UTC().Truncate(interval)
}
