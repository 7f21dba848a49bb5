package invest

import (
	"context"
	"errors"
	"fmt"
	"time"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/google/uuid"
	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
)

// History serves historical candles and the reference index price through
// the SDK market data service.
type History struct {
	md           *investgo.MarketDataServiceClient
	referenceUID string
}

func NewHistory(client *Client, referenceUID string) *History {
	return &History{md: client.sdk.NewMarketDataServiceClient(), referenceUID: referenceUID}
}

// FetchCandles returns completed candles of the interval inside [from, to).
// Candles still forming are skipped.
func (h *History) FetchCandles(ctx context.Context, instrumentUID uuid.UUID, interval time.Duration, from, to time.Time) ([]marketdata.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pbInterval, err := candleInterval(interval)
	if err != nil {
		return nil, err
	}
	historic, err := h.md.GetHistoricCandles(&investgo.GetHistoricCandlesRequest{
		Instrument: instrumentUID.String(),
		Interval:   pbInterval,
		From:       from,
		To:         to,
	})
	if err != nil {
		return nil, fmt.Errorf("get historic candles: %w", err)
	}

	candles := make([]marketdata.Candle, 0, len(historic))
	for _, hc := range historic {
		if hc == nil || !hc.GetIsComplete() {
			continue
		}
		openTime := time.Time{}
		if ts := hc.GetTime(); ts != nil {
			openTime = ts.AsTime().UTC()
		}
		volume := hc.GetVolume()
		candles = append(candles, marketdata.Candle{
			InstrumentUID:   instrumentUID,
			IntervalSeconds: int64(interval / time.Second),
			OpenTime:        openTime,
			Open:            quotationToFloat(hc.GetOpen()),
			High:            quotationToFloat(hc.GetHigh()),
			Low:             quotationToFloat(hc.GetLow()),
			Close:           quotationToFloat(hc.GetClose()),
			Volume:          &volume,
		})
	}
	return candles, nil
}

// ReferencePrice returns the last price of the reference index.
func (h *History) ReferencePrice(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	resp, err := h.md.GetLastPrices([]string{h.referenceUID})
	if err != nil {
		return 0, fmt.Errorf("get last prices: %w", err)
	}
	prices := resp.GetLastPrices()
	if len(prices) == 0 {
		return 0, errors.New("empty last prices response")
	}
	return quotationToFloat(prices[0].GetPrice()), nil
}

func candleInterval(interval time.Duration) (pb.CandleInterval, error) {
	switch interval {
	case time.Minute:
		return pb.CandleInterval_CANDLE_INTERVAL_1_MIN, nil
	case 5 * time.Minute:
		return pb.CandleInterval_CANDLE_INTERVAL_5_MIN, nil
	case 15 * time.Minute:
		return pb.CandleInterval_CANDLE_INTERVAL_15_MIN, nil
	case time.Hour:
		return pb.CandleInterval_CANDLE_INTERVAL_HOUR, nil
	default:
		return pb.CandleInterval_CANDLE_INTERVAL_UNSPECIFIED, fmt.Errorf("unsupported candle interval: %s", interval)
	}
}
