package invest

import (
	"context"
	"fmt"
	"time"

	instruments "main/internal/domain/entity/instruments"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/sirupsen/logrus"
)

// Catalog lists the option chain of the configured underlying asset.
type Catalog struct {
	instruments   *investgo.InstrumentsServiceClient
	basicAssetUID string
	logger        *logrus.Logger
}

func NewCatalog(client *Client, basicAssetUID string, logger *logrus.Logger) *Catalog {
	return &Catalog{
		instruments:   client.sdk.NewInstrumentsServiceClient(),
		basicAssetUID: basicAssetUID,
		logger:        logger,
	}
}

func (c *Catalog) ListOptions(ctx context.Context) ([]instruments.OptionContract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := c.instruments.OptionsBy(c.basicAssetUID, "")
	if err != nil {
		return nil, fmt.Errorf("options by asset: %w", err)
	}

	chain := resp.GetInstruments()
	out := make([]instruments.OptionContract, 0, len(chain))
	for _, opt := range chain {
		if opt == nil {
			continue
		}
		uid, err := parseInstrumentUID(opt.GetUid())
		if err != nil {
			c.logger.Warnf("skip option %s: %v", opt.GetTicker(), err)
			continue
		}
		right := instruments.OptionPut
		if opt.GetDirection() == pb.OptionDirection_OPTION_DIRECTION_CALL {
			right = instruments.OptionCall
		}
		expiry := time.Time{}
		if ts := opt.GetExpirationDate(); ts != nil {
			expiry = ts.AsTime().UTC()
		}
		out = append(out, instruments.OptionContract{
			UID:    uid,
			Ticker: opt.GetTicker(),
			Right:  right,
			Strike: moneyToFloat(opt.GetStrikePrice()),
			Expiry: expiry,
			Lot:    opt.GetLot(),
		})
	}
	return out, nil
}
