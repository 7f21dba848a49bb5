package invest

import (
	"context"
	"fmt"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	"github.com/sirupsen/logrus"
)

// Config mirrors the SDK connection settings.
type Config struct {
	Token         string
	Endpoint      string
	AppName       string
	SkipTLSVerify bool
}

// Client wraps the SDK connection shared by the feed, history and catalog
// adapters.
type Client struct {
	sdk *investgo.Client
}

func NewClient(ctx context.Context, cfg Config, logger *logrus.Logger) (*Client, error) {
	sdk, err := investgo.NewClient(ctx, investgo.Config{
		EndPoint:           cfg.Endpoint,
		Token:              cfg.Token,
		AppName:            cfg.AppName,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create invest api client: %w", err)
	}
	return &Client{sdk: sdk}, nil
}

func (c *Client) Stop() error {
	return c.sdk.Stop()
}
