package interfaces

import (
	"context"
	"time"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/google/uuid"
)

// TickStream is a live last-price feed. Connect opens a stream subscribed to
// ids and returns a channel that is closed when the connection is lost; the
// caller owns reconnecting. Subscribe and Unsubscribe adjust the live
// subscription without dropping the connection.
type TickStream interface {
	Connect(ctx context.Context, ids []uuid.UUID) (<-chan marketdata.Tick, error)
	Subscribe(ids []uuid.UUID) error
	Unsubscribe(ids []uuid.UUID) error
	Close()
}

// CandleSource serves historical interval candles. Used for the switch-time
// backfill and for the per-bucket volume fill.
type CandleSource interface {
	FetchCandles(ctx context.Context, instrumentUID uuid.UUID, interval time.Duration, from, to time.Time) ([]marketdata.Candle, error)
}
