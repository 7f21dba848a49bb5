package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "main/internal/domain/entity/marketdata"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

// upsertBarQuery keys on (instrument_uid, open_time): re-writing a bar
// replaces the row, which serves both the volume amendment and crash
// replay of already-stored history.
const upsertBarQuery = `
	INSERT INTO bars (
		instrument_uid, interval_seconds, open_time,
		open, high, low, close, volume,
		hl2, atr, initial_upper, initial_lower,
		supertrend_upper, supertrend_lower, os, spt,
		max_channel, min_channel, channel_avg,
		ema_fast, ema_slow,
		adx, di_plus, di_minus,
		stoch_k, stoch_d,
		odd_bull, odd_bear, odd_stagnant
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
		$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29
	)
	ON CONFLICT (instrument_uid, open_time) DO UPDATE SET
		interval_seconds = EXCLUDED.interval_seconds,
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		hl2 = EXCLUDED.hl2,
		atr = EXCLUDED.atr,
		initial_upper = EXCLUDED.initial_upper,
		initial_lower = EXCLUDED.initial_lower,
		supertrend_upper = EXCLUDED.supertrend_upper,
		supertrend_lower = EXCLUDED.supertrend_lower,
		os = EXCLUDED.os,
		spt = EXCLUDED.spt,
		max_channel = EXCLUDED.max_channel,
		min_channel = EXCLUDED.min_channel,
		channel_avg = EXCLUDED.channel_avg,
		ema_fast = EXCLUDED.ema_fast,
		ema_slow = EXCLUDED.ema_slow,
		adx = EXCLUDED.adx,
		di_plus = EXCLUDED.di_plus,
		di_minus = EXCLUDED.di_minus,
		stoch_k = EXCLUDED.stoch_k,
		stoch_d = EXCLUDED.stoch_d,
		odd_bull = EXCLUDED.odd_bull,
		odd_bear = EXCLUDED.odd_bear,
		odd_stagnant = EXCLUDED.odd_stagnant`

const selectBarColumns = `
	instrument_uid, interval_seconds, open_time,
	open, high, low, close, volume,
	hl2, atr, initial_upper, initial_lower,
	supertrend_upper, supertrend_lower, os, spt,
	max_channel, min_channel, channel_avg,
	ema_fast, ema_slow,
	adx, di_plus, di_minus,
	stoch_k, stoch_d,
	odd_bull, odd_bear, odd_stagnant`

func (r *Repository) AddBar(ctx context.Context, bar *domain.IndicatorBar) error {
	if bar == nil {
		return errors.New("nil bar")
	}
	_, err := r.pool.Exec(ctx, upsertBarQuery, barArgs(bar)...)
	return err
}

// AddBars writes the whole slice as one batch in a single round trip.
func (r *Repository) AddBars(ctx context.Context, bars []domain.IndicatorBar) error {
	if len(bars) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range bars {
		batch.Queue(upsertBarQuery, barArgs(&bars[i])...)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range bars {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert bar: %w", err)
		}
	}
	return results.Close()
}

func (r *Repository) GetBarsBetween(ctx context.Context, instrumentUID uuid.UUID, intervalSeconds int64, from, to time.Time) ([]domain.IndicatorBar, error) {
	query := `
		SELECT ` + selectBarColumns + `
		FROM bars
		WHERE instrument_uid=$1
		  AND interval_seconds=$2
		  AND open_time >= $3
		  AND open_time <= $4
		ORDER BY open_time ASC`
	rows, err := r.pool.Query(ctx, query, instrumentUID, intervalSeconds, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.IndicatorBar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

func (r *Repository) GetLastBars(ctx context.Context, instrumentUID uuid.UUID, intervalSeconds int64, limit int) ([]domain.IndicatorBar, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	query := `
		SELECT ` + selectBarColumns + `
		FROM bars
		WHERE instrument_uid=$1 AND interval_seconds=$2
		ORDER BY open_time DESC
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, instrumentUID, intervalSeconds, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.IndicatorBar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

func barArgs(bar *domain.IndicatorBar) []interface{} {
	return []interface{}{
		bar.InstrumentUID,
		bar.IntervalSeconds,
		bar.OpenTime,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		nullableInt64(bar.Volume),
		bar.HL2,
		bar.ATR,
		bar.InitialUpper,
		bar.InitialLower,
		bar.SupertrendUpper,
		bar.SupertrendLower,
		bar.OS,
		bar.SPT,
		bar.MaxChannel,
		bar.MinChannel,
		bar.ChannelAvg,
		bar.EMAFast,
		bar.EMASlow,
		nullableFloat64(bar.ADX),
		nullableFloat64(bar.DIPlus),
		nullableFloat64(bar.DIMinus),
		nullableFloat64(bar.StochK),
		nullableFloat64(bar.StochD),
		nullableFloat64(bar.OddBull),
		nullableFloat64(bar.OddBear),
		nullableFloat64(bar.OddStagnant),
	}
}

func scanBar(row pgx.Row) (domain.IndicatorBar, error) {
	var (
		volume      sql.NullInt64
		adx         sql.NullFloat64
		diPlus      sql.NullFloat64
		diMinus     sql.NullFloat64
		stochK      sql.NullFloat64
		stochD      sql.NullFloat64
		oddBull     sql.NullFloat64
		oddBear     sql.NullFloat64
		oddStagnant sql.NullFloat64
	)
	bar := domain.IndicatorBar{}
	err := row.Scan(
		&bar.InstrumentUID,
		&bar.IntervalSeconds,
		&bar.OpenTime,
		&bar.Open,
		&bar.High,
		&bar.Low,
		&bar.Close,
		&volume,
		&bar.HL2,
		&bar.ATR,
		&bar.InitialUpper,
		&bar.InitialLower,
		&bar.SupertrendUpper,
		&bar.SupertrendLower,
		&bar.OS,
		&bar.SPT,
		&bar.MaxChannel,
		&bar.MinChannel,
		&bar.ChannelAvg,
		&bar.EMAFast,
		&bar.EMASlow,
		&adx,
		&diPlus,
		&diMinus,
		&stochK,
		&stochD,
		&oddBull,
		&oddBear,
		&oddStagnant,
	)
	if err != nil {
		return domain.IndicatorBar{}, err
	}
	if volume.Valid {
		val := volume.Int64
		bar.Volume = &val
	}
	bar.ADX = floatPtr(adx)
	bar.DIPlus = floatPtr(diPlus)
	bar.DIMinus = floatPtr(diMinus)
	bar.StochK = floatPtr(stochK)
	bar.StochD = floatPtr(stochD)
	bar.OddBull = floatPtr(oddBull)
	bar.OddBear = floatPtr(oddBear)
	bar.OddStagnant = floatPtr(oddStagnant)
	return bar, nil
}

// Helpers

func nullableInt64(value *int64) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func nullableFloat64(value *float64) interface{} {
	if value == nil {
		return nil
	}
	return *value
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	val := v.Float64
	return &val
}
