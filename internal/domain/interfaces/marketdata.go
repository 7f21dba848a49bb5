package interfaces

import (
	"context"
	"time"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/google/uuid"
)

// BarRepository stores finalized indicator bars. Writes are idempotent on
// (instrument_uid, open_time): re-writing a bar replaces its row, so the
// volume amendment and crash-replay reuse the same path.
type BarRepository interface {
	AddBar(ctx context.Context, bar *marketdata.IndicatorBar) error
	AddBars(ctx context.Context, bars []marketdata.IndicatorBar) error
	GetBarsBetween(ctx context.Context, instrumentUID uuid.UUID, intervalSeconds int64, from, to time.Time) ([]marketdata.IndicatorBar, error)
	GetLastBars(ctx context.Context, instrumentUID uuid.UUID, intervalSeconds int64, limit int) ([]marketdata.IndicatorBar, error)
	Close()
}

// BarPublisher fans finalized and amended bars out to downstream consumers.
type BarPublisher interface {
	PublishBar(ctx context.Context, bar *marketdata.IndicatorBar) error
	Close()
}
