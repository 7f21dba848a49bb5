package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_DSN", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost:5432/md")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, int64(300), cfg.Engine.IntervalSeconds)
	assert.Equal(t, 5*time.Minute, cfg.Engine.Interval())
	assert.Equal(t, 10, cfg.Engine.ATRLength)
	assert.Equal(t, 3.0, cfg.Engine.ATRMultiplier)
	assert.Equal(t, 9*time.Hour+15*time.Minute, cfg.Engine.SessionOpen)
	assert.Equal(t, 15*time.Hour+30*time.Minute, cfg.Engine.SessionClose)
	assert.Equal(t, "Europe/Moscow", cfg.Engine.Timezone)
	assert.Empty(t, cfg.RabbitMQ.URL)
	assert.Equal(t, "marketdata.bars", cfg.RabbitMQ.BarsExchange)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost:5432/md")
	t.Setenv("CANDLE_INTERVAL_SECONDS", "60")
	t.Setenv("STRIKE_STEP", "25")
	t.Setenv("SESSION_OPEN", "10:00")
	t.Setenv("MARKET_HOLIDAYS", "2026-01-01, 2026-01-02")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Engine.Interval())
	assert.Equal(t, 25.0, cfg.Engine.StrikeStep)
	assert.Equal(t, 10*time.Hour, cfg.Engine.SessionOpen)
	assert.Equal(t, []string{"2026-01-01", "2026-01-02"}, cfg.Engine.Holidays)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost:5432/md")

	t.Run("non-numeric interval", func(t *testing.T) {
		t.Setenv("CANDLE_INTERVAL_SECONDS", "abc")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative interval", func(t *testing.T) {
		t.Setenv("CANDLE_INTERVAL_SECONDS", "-5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("malformed session clock", func(t *testing.T) {
		t.Setenv("SESSION_OPEN", "25:99")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestParseClock(t *testing.T) {
	d, err := parseClock("09:15")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+15*time.Minute, d)

	_, err = parseClock("9")
	assert.Error(t, err)
	_, err = parseClock("24:00")
	assert.Error(t, err)
}
