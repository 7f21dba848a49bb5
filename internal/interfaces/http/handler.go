package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	appmarketdata "main/internal/application/service/marketdata"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const marketdataBasePath = "/api/v1/marketdata"

var (
	errMissingInstrument = errors.New("instrument_uid query param required")
	errMissingRange      = errors.New("from/to query params required")
)

type Handler struct {
	router     *gin.Engine
	marketdata *appmarketdata.Service
	cache      *redis.Client
	cacheTTL   time.Duration
}

func NewHandler(md *appmarketdata.Service, cache *redis.Client, cacheTTL time.Duration) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router:     router,
		marketdata: md,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	md := h.router.Group(marketdataBasePath)
	if h.cache != nil {
		md.Use(h.cacheMiddleware())
	}
	{
		bars := md.Group("/bars")
		{
			bars.GET("/", h.getBarsRange)
			bars.GET("/last", h.getBarsLast)
		}
		md.GET("/tracked", h.getTrackedSet)
	}
}

// getBarsRange returns indicator bars for an instrument inside [from, to].
func (h *Handler) getBarsRange(c *gin.Context) {
	instrumentUID, err := parseUUIDQuery(c, "instrument_uid")
	if err != nil {
		writeError(c, http.StatusBadRequest, errMissingInstrument)
		return
	}
	from, to, err := parseTimeRange(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, errMissingRange)
		return
	}
	intervalSeconds, err := parseInt64Query(c, "interval_seconds")
	if err != nil {
		writeError(c, http.StatusBadRequest, fmt.Errorf("interval_seconds query param required"))
		return
	}
	bars, err := h.marketdata.GetBarsBetween(c.Request.Context(), instrumentUID, intervalSeconds, from, to)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, bars)
}

// getBarsLast returns the last N indicator bars for an instrument.
func (h *Handler) getBarsLast(c *gin.Context) {
	instrumentUID, limit, interval, err := h.parseInstrumentLimitInterval(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	bars, err := h.marketdata.GetLastBars(c.Request.Context(), instrumentUID, interval, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, bars)
}

// getTrackedSet returns the currently bound contracts per role.
func (h *Handler) getTrackedSet(c *gin.Context) {
	bindings, err := h.marketdata.CurrentTrackedSet(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, bindings)
}

// Helpers

func (h *Handler) parseInstrumentLimitInterval(c *gin.Context) (uuid.UUID, int, int64, error) {
	instrumentUID, err := parseUUIDQuery(c, "instrument_uid")
	if err != nil {
		return uuid.UUID{}, 0, 0, errMissingInstrument
	}
	limit, err := parseIntQuery(c, "limit")
	if err != nil {
		return uuid.UUID{}, 0, 0, fmt.Errorf("limit query param required")
	}
	if limit <= 0 {
		return uuid.UUID{}, 0, 0, fmt.Errorf("limit must be positive")
	}
	intervalSeconds, err := parseInt64Query(c, "interval_seconds")
	if err != nil {
		return uuid.UUID{}, 0, 0, fmt.Errorf("interval_seconds query param required")
	}
	return instrumentUID, limit, intervalSeconds, nil
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// cacheMiddleware caches GET responses in Redis.
func (h *Handler) cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cache == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := h.cacheKey(c)
		ctx := c.Request.Context()

		if cached, err := h.cache.Get(ctx, key).Result(); err == nil {
			c.Data(http.StatusOK, "application/json", []byte(cached))
			c.Abort()
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: c.Writer,
			status:         http.StatusOK,
			body:           &bytes.Buffer{},
		}
		c.Writer = recorder

		c.Next()

		if recorder.status >= 200 && recorder.status < 300 && recorder.body.Len() > 0 {
			_ = h.cache.Set(ctx, key, recorder.body.Bytes(), h.cacheTTL).Err()
		}
	}
}

type responseRecorder struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if len(data) > 0 {
		r.body.Write(data)
	}
	return r.ResponseWriter.Write(data)
}

func (h *Handler) cacheKey(c *gin.Context) string {
	return fmt.Sprintf("cache:%s:%s?%s", c.Request.Method, c.FullPath(), c.Request.URL.RawQuery)
}

func parseUUIDQuery(c *gin.Context, key string) (uuid.UUID, error) {
	value := c.Query(key)
	if value == "" {
		return uuid.Nil, fmt.Errorf("%s query param required", key)
	}
	return uuid.Parse(value)
}

func parseIntQuery(c *gin.Context, key string) (int, error) {
	value := c.Query(key)
	if value == "" {
		return 0, fmt.Errorf("%s query param required", key)
	}
	return strconv.Atoi(value)
}

func parseInt64Query(c *gin.Context, key string) (int64, error) {
	value := c.Query(key)
	if value == "" {
		return 0, fmt.Errorf("%s query param required", key)
	}
	return strconv.ParseInt(value, 10, 64)
}

func parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errMissingRange
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}
