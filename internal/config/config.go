package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnv             = "development"
	defaultHTTPHost        = "0.0.0.0"
	defaultHTTPPort        = 8080
	defaultRedisAddr       = "localhost:6379"
	defaultRedisDB         = 0
	defaultCacheTTLSeconds = 30

	defaultInvestEndpoint = "https://invest-public-api.tinkoff.ru:443"
	defaultAppName        = "options-aggregation-engine"
	defaultBarsExchange   = "marketdata.bars"

	defaultIntervalSeconds = 300
	defaultDriverPeriod    = time.Second
	defaultStrikeStep      = 50
	defaultSessionOpen     = "09:15"
	defaultSessionClose    = "15:30"
	defaultTimezone        = "Europe/Moscow"
)

// Config keeps the runtime configuration for both binaries.
type Config struct {
	Env      string
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Invest   InvestConfig
	RabbitMQ RabbitMQConfig
	Engine   EngineConfig
}

// HTTPConfig holds HTTP server related settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr renders the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// PostgresConfig stores database connection parameters.
type PostgresConfig struct {
	DSN string
}

// RedisConfig stores Redis connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig stores cache behavior.
type CacheConfig struct {
	TTLSeconds int
}

// InvestConfig stores broker API connection parameters plus the identities
// the selector needs: the reference index and the options' underlying asset.
type InvestConfig struct {
	Token         string
	Endpoint      string
	AppName       string
	SkipTLSVerify bool
	ReferenceUID  string
	UnderlyingUID string
}

// RabbitMQConfig stores publisher settings. An empty URL disables
// publication.
type RabbitMQConfig struct {
	URL          string
	BarsExchange string
}

// EngineConfig stores the aggregation and indicator settings.
type EngineConfig struct {
	IntervalSeconds int64
	DriverPeriod    time.Duration
	PersistTimeout  time.Duration
	SwitchTimeout   time.Duration

	StrikeStep float64

	FillTimeout     time.Duration
	MaxFillAttempts int

	ReconnectMinBackoff  time.Duration
	ReconnectMaxBackoff  time.Duration
	ReconnectMaxAttempts int

	ATRLength     int
	ATRMultiplier float64
	ADXPeriod     int
	EMAFast       int
	EMASlow       int
	RSILength     int
	StochLength   int
	SmoothK       int
	SmoothD       int
	FlowLength    int

	SessionOpen  time.Duration // offset from venue midnight
	SessionClose time.Duration
	Timezone     string
	Holidays     []string // yyyy-mm-dd
}

// Interval returns the bucket length as a duration.
func (e EngineConfig) Interval() time.Duration {
	return time.Duration(e.IntervalSeconds) * time.Second
}

// Load builds Config from environment variables.
func Load() (*Config, error) {
	host := getString("HTTP_HOST", defaultHTTPHost)
	port, err := getInt("HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return nil, fmt.Errorf("parse HTTP_PORT: %w", err)
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is required")
	}

	redisDB, err := getInt("REDIS_DB", defaultRedisDB)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_DB: %w", err)
	}

	cacheTTL, err := getInt("CACHE_TTL_SECONDS", defaultCacheTTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("parse CACHE_TTL_SECONDS: %w", err)
	}

	engine, err := loadEngine()
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:  getString("APP_ENV", defaultEnv),
		HTTP: HTTPConfig{Host: host, Port: port},
		Postgres: PostgresConfig{
			DSN: dsn,
		},
		Redis: RedisConfig{
			Addr:     getString("REDIS_ADDR", defaultRedisAddr),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Cache: CacheConfig{
			TTLSeconds: cacheTTL,
		},
		Invest: InvestConfig{
			Token:         strings.TrimSpace(os.Getenv("INVEST_TOKEN")),
			Endpoint:      getString("INVEST_ENDPOINT", defaultInvestEndpoint),
			AppName:       getString("INVEST_APP_NAME", defaultAppName),
			SkipTLSVerify: getBool("INVEST_INSECURE_SKIP_VERIFY", true),
			ReferenceUID:  strings.TrimSpace(os.Getenv("REFERENCE_INSTRUMENT_UID")),
			UnderlyingUID: strings.TrimSpace(os.Getenv("UNDERLYING_ASSET_UID")),
		},
		RabbitMQ: RabbitMQConfig{
			URL:          strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
			BarsExchange: getString("RABBITMQ_BARS_EXCHANGE", defaultBarsExchange),
		},
		Engine: engine,
	}, nil
}

func loadEngine() (EngineConfig, error) {
	intervalSeconds, err := getInt("CANDLE_INTERVAL_SECONDS", defaultIntervalSeconds)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("parse CANDLE_INTERVAL_SECONDS: %w", err)
	}
	if intervalSeconds <= 0 {
		return EngineConfig{}, errors.New("CANDLE_INTERVAL_SECONDS must be positive")
	}

	strikeStep, err := getFloat("STRIKE_STEP", defaultStrikeStep)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("parse STRIKE_STEP: %w", err)
	}

	atrMultiplier, err := getFloat("ATR_MULTIPLIER", 3)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("parse ATR_MULTIPLIER: %w", err)
	}

	ints := map[string]*intSetting{
		"ATR_LENGTH":             {fallback: 10},
		"ADX_PERIOD":             {fallback: 2},
		"EMA_FAST":               {fallback: 22},
		"EMA_SLOW":               {fallback: 33},
		"RSI_LENGTH":             {fallback: 14},
		"STOCH_LENGTH":           {fallback: 14},
		"STOCH_SMOOTH_K":         {fallback: 3},
		"STOCH_SMOOTH_D":         {fallback: 3},
		"FLOW_LENGTH":            {fallback: 7},
		"MAX_FILL_ATTEMPTS":      {fallback: 5},
		"RECONNECT_MAX_ATTEMPTS": {fallback: 0},
	}
	for key, setting := range ints {
		setting.value, err = getInt(key, setting.fallback)
		if err != nil {
			return EngineConfig{}, fmt.Errorf("parse %s: %w", key, err)
		}
	}

	sessionOpen, err := parseClock(getString("SESSION_OPEN", defaultSessionOpen))
	if err != nil {
		return EngineConfig{}, fmt.Errorf("parse SESSION_OPEN: %w", err)
	}
	sessionClose, err := parseClock(getString("SESSION_CLOSE", defaultSessionClose))
	if err != nil {
		return EngineConfig{}, fmt.Errorf("parse SESSION_CLOSE: %w", err)
	}

	return EngineConfig{
		IntervalSeconds:      int64(intervalSeconds),
		DriverPeriod:         getDuration("DRIVER_PERIOD", defaultDriverPeriod),
		PersistTimeout:       getDuration("PERSIST_TIMEOUT", 10*time.Second),
		SwitchTimeout:        getDuration("SWITCH_TIMEOUT", time.Minute),
		StrikeStep:           strikeStep,
		FillTimeout:          getDuration("FILL_TIMEOUT", 5*time.Second),
		MaxFillAttempts:      ints["MAX_FILL_ATTEMPTS"].value,
		ReconnectMinBackoff:  getDuration("RECONNECT_MIN_BACKOFF", time.Second),
		ReconnectMaxBackoff:  getDuration("RECONNECT_MAX_BACKOFF", 30*time.Second),
		ReconnectMaxAttempts: ints["RECONNECT_MAX_ATTEMPTS"].value,
		ATRLength:            ints["ATR_LENGTH"].value,
		ATRMultiplier:        atrMultiplier,
		ADXPeriod:            ints["ADX_PERIOD"].value,
		EMAFast:              ints["EMA_FAST"].value,
		EMASlow:              ints["EMA_SLOW"].value,
		RSILength:            ints["RSI_LENGTH"].value,
		StochLength:          ints["STOCH_LENGTH"].value,
		SmoothK:              ints["STOCH_SMOOTH_K"].value,
		SmoothD:              ints["STOCH_SMOOTH_D"].value,
		FlowLength:           ints["FLOW_LENGTH"].value,
		SessionOpen:          sessionOpen,
		SessionClose:         sessionClose,
		Timezone:             getString("MARKET_TIMEZONE", defaultTimezone),
		Holidays:             getStringSlice("MARKET_HOLIDAYS"),
	}, nil
}

type intSetting struct {
	fallback int
	value    int
}

func getString(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to int: %w", key, value, err)
	}
	return parsed, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("convert %s value %q to float: %w", key, value, err)
	}
	return parsed, nil
}

func getBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getStringSlice(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseClock converts "HH:MM" into an offset from midnight.
func parseClock(value string) (time.Duration, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", value)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}
