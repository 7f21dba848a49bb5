package invest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	marketdata "main/internal/domain/entity/marketdata"

	"github.com/google/uuid"
	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/sirupsen/logrus"
)

// Feed adapts the SDK last-price stream to the tick stream port. One stream
// per connection; when the SDK closes its channel the outgoing channel
// closes too and the caller reconnects.
type Feed struct {
	client *Client
	logger *logrus.Logger

	mu     sync.Mutex
	stream *investgo.MarketDataStream
}

func NewFeed(client *Client, logger *logrus.Logger) *Feed {
	return &Feed{client: client, logger: logger}
}

func (f *Feed) Connect(ctx context.Context, ids []uuid.UUID) (<-chan marketdata.Tick, error) {
	mdClient := f.client.sdk.NewMarketDataStreamClient()
	stream, err := mdClient.MarketDataStream()
	if err != nil {
		return nil, fmt.Errorf("create market data stream: %w", err)
	}
	prices, err := stream.SubscribeLastPrice(uidsToStrings(ids))
	if err != nil {
		stream.Stop()
		return nil, fmt.Errorf("subscribe last prices: %w", err)
	}

	f.mu.Lock()
	if f.stream != nil {
		f.stream.Stop()
	}
	f.stream = stream
	f.mu.Unlock()

	go func() {
		if listenErr := stream.Listen(); listenErr != nil {
			f.logger.Errorf("market data stream closed: %v", listenErr)
		}
	}()

	out := make(chan marketdata.Tick, 1024)
	go func() {
		defer close(out)
		for p := range prices {
			tick, convErr := convertLastPrice(p)
			if convErr != nil {
				f.logger.Warnf("skip tick: %v", convErr)
				continue
			}
			select {
			case out <- tick:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Subscribe adds instruments to the live stream. Without a connection it is
// a no-op; the next Connect carries the full set.
func (f *Feed) Subscribe(ids []uuid.UUID) error {
	f.mu.Lock()
	stream := f.stream
	f.mu.Unlock()
	if stream == nil || len(ids) == 0 {
		return nil
	}
	if _, err := stream.SubscribeLastPrice(uidsToStrings(ids)); err != nil {
		return fmt.Errorf("subscribe last prices: %w", err)
	}
	return nil
}

func (f *Feed) Unsubscribe(ids []uuid.UUID) error {
	f.mu.Lock()
	stream := f.stream
	f.mu.Unlock()
	if stream == nil || len(ids) == 0 {
		return nil
	}
	if err := stream.UnSubscribeLastPrice(uidsToStrings(ids)); err != nil {
		return fmt.Errorf("unsubscribe last prices: %w", err)
	}
	return nil
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stream != nil {
		f.stream.Stop()
		f.stream = nil
	}
}

func convertLastPrice(msg *pb.LastPrice) (marketdata.Tick, error) {
	if msg == nil {
		return marketdata.Tick{}, errors.New("last price payload is nil")
	}
	uid, err := parseInstrumentUID(msg.GetInstrumentUid())
	if err != nil {
		return marketdata.Tick{}, err
	}
	eventTime := time.Time{}
	if ts := msg.GetTime(); ts != nil {
		eventTime = ts.AsTime().UTC()
	}
	return marketdata.Tick{
		InstrumentUID: uid,
		EventTime:     eventTime,
		LastPrice:     quotationToFloat(msg.GetPrice()),
	}, nil
}
