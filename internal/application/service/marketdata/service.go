package marketdata

import (
	"context"
	"errors"
	"time"

	instruments "main/internal/domain/entity/instruments"
	marketdata "main/internal/domain/entity/marketdata"
	interfaces "main/internal/domain/interfaces"

	"github.com/google/uuid"
)

var (
	ErrInvalidLimit    = errors.New("limit must be positive")
	ErrInvalidInterval = errors.New("interval seconds must be positive")
)

// Service is the read surface over stored bars and the current tracked set.
type Service struct {
	bars    interfaces.BarRepository
	tracked interfaces.TrackedSetRepository
}

func NewService(bars interfaces.BarRepository, tracked interfaces.TrackedSetRepository) *Service {
	return &Service{bars: bars, tracked: tracked}
}

func (s *Service) GetBarsBetween(ctx context.Context, instrumentUID uuid.UUID, intervalSeconds int64, from, to time.Time) ([]marketdata.IndicatorBar, error) {
	if intervalSeconds <= 0 {
		return nil, ErrInvalidInterval
	}
	if from.After(to) {
		from, to = to, from
	}
	return s.bars.GetBarsBetween(ctx, instrumentUID, intervalSeconds, from, to)
}

func (s *Service) GetLastBars(ctx context.Context, instrumentUID uuid.UUID, intervalSeconds int64, limit int) ([]marketdata.IndicatorBar, error) {
	if intervalSeconds <= 0 {
		return nil, ErrInvalidInterval
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.bars.GetLastBars(ctx, instrumentUID, intervalSeconds, limit)
}

// CurrentTrackedSet returns the persisted bindings, empty when nothing was
// ever bound.
func (s *Service) CurrentTrackedSet(ctx context.Context) ([]instruments.Binding, error) {
	set, err := s.tracked.Current(ctx)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return []instruments.Binding{}, nil
	}
	return set.Bindings(), nil
}

func (s *Service) Close() {
	s.bars.Close()
	_ = s.tracked.Close()
}
