package tracking

import (
	"context"
	"fmt"

	domain "main/internal/domain/entity/instruments"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&bindingModel{}); err != nil {
		return nil, fmt.Errorf("migrate tracked_contracts: %w", err)
	}
	return &Repository{db: db}, nil
}

// Current loads the persisted set, or nil when nothing was ever bound.
func (r *Repository) Current(ctx context.Context) (*domain.TrackedSet, error) {
	var rows []bindingModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load tracked contracts: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	bindings := make([]domain.Binding, 0, len(rows))
	for _, m := range rows {
		uid, err := uuid.Parse(m.InstrumentUID)
		if err != nil {
			return nil, fmt.Errorf("parse instrument uid %q: %w", m.InstrumentUID, err)
		}
		bindings = append(bindings, domain.Binding{
			Role: domain.Role(m.Role),
			Contract: domain.OptionContract{
				UID:    uid,
				Ticker: m.Ticker,
				Right:  domain.OptionRight(m.Right),
				Strike: m.Strike,
				Expiry: m.Expiry,
				Lot:    m.Lot,
			},
			UpdatedAt: m.UpdateTimestamp,
		})
	}
	return domain.NewTrackedSet(bindings...), nil
}

// Replace swaps the whole binding set in one transaction, so readers never
// observe a half-switched state.
func (r *Repository) Replace(ctx context.Context, set *domain.TrackedSet) error {
	bindings := set.Bindings()
	rows := make([]bindingModel, 0, len(bindings))
	for _, b := range bindings {
		rows = append(rows, bindingModel{
			Role:            string(b.Role),
			InstrumentUID:   b.Contract.UID.String(),
			Ticker:          b.Contract.Ticker,
			Right:           string(b.Contract.Right),
			Strike:          b.Contract.Strike,
			Expiry:          b.Contract.Expiry,
			Lot:             b.Contract.Lot,
			UpdateTimestamp: b.UpdatedAt,
		})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&bindingModel{}).Error; err != nil {
			return fmt.Errorf("clear tracked contracts: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert tracked contracts: %w", err)
		}
		return nil
	})
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
