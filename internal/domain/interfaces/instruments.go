package interfaces

import (
	"context"

	domain "main/internal/domain/entity/instruments"
)

// TrackedSetRepository persists the current role -> contract bindings.
type TrackedSetRepository interface {
	// Current returns the persisted set, or nil when nothing was ever bound.
	Current(ctx context.Context) (*domain.TrackedSet, error)
	// Replace swaps the whole set in one transaction.
	Replace(ctx context.Context, set *domain.TrackedSet) error
	Close() error
}

// OptionCatalog lists the option chain of the tracked underlying.
type OptionCatalog interface {
	ListOptions(ctx context.Context) ([]domain.OptionContract, error)
}

// ReferenceSource supplies the spot price of the underlying index used to
// pick strikes.
type ReferenceSource interface {
	ReferencePrice(ctx context.Context) (float64, error)
}
