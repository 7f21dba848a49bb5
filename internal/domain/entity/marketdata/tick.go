package marketdata

import (
	"time"

	"github.com/google/uuid"
)

// Tick is a single last-price update pushed by the live feed. Ticks are
// transient: they live in the ingestion buffers only until their bucket is
// sealed into a candle, and are never persisted individually.
type Tick struct {
	InstrumentUID uuid.UUID `json:"instrument_uid"`
	EventTime     time.Time `json:"event_time"`
	LastPrice     float64   `json:"last_price"`
}
