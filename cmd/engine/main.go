package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"main/internal/application/service/aggregation"
	"main/internal/application/service/engine"
	"main/internal/application/service/indicators"
	"main/internal/application/service/ingest"
	"main/internal/application/service/selector"
	"main/internal/config"
	"main/internal/domain/interfaces"
	"main/internal/infrastructure/broker"
	"main/internal/infrastructure/invest"
	inframarketdata "main/internal/infrastructure/marketdata"
	"main/internal/infrastructure/tracking"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Invest.Token == "" {
		logger.Fatal("INVEST_TOKEN is required")
	}
	if cfg.Invest.ReferenceUID == "" {
		logger.Fatal("REFERENCE_INSTRUMENT_UID is required")
	}
	if cfg.Invest.UnderlyingUID == "" {
		logger.Fatal("UNDERLYING_ASSET_UID is required")
	}

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		logger.Fatalf("failed to load market timezone: %v", err)
	}

	barRepo, err := inframarketdata.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init bar repo: %v", err)
	}
	defer barRepo.Close()

	trackedRepo, err := tracking.NewRepository(cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("failed to init tracking repo: %v", err)
	}
	defer trackedRepo.Close()

	investClient, err := invest.NewClient(ctx, invest.Config{
		Token:         cfg.Invest.Token,
		Endpoint:      cfg.Invest.Endpoint,
		AppName:       cfg.Invest.AppName,
		SkipTLSVerify: cfg.Invest.SkipTLSVerify,
	}, logger)
	if err != nil {
		logger.Fatalf("failed to connect to invest api: %v", err)
	}
	defer func() {
		if err := investClient.Stop(); err != nil {
			logger.Errorf("invest client stop error: %v", err)
		}
	}()

	feed := invest.NewFeed(investClient, logger)
	defer feed.Close()
	history := invest.NewHistory(investClient, cfg.Invest.ReferenceUID)
	catalog := invest.NewCatalog(investClient, cfg.Invest.UnderlyingUID, logger)

	var publisher interfaces.BarPublisher
	if cfg.RabbitMQ.URL != "" {
		pub, err := broker.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.BarsExchange, logger)
		if err != nil {
			logger.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer pub.Close()
		publisher = pub
	}

	interval := cfg.Engine.Interval()
	params := indicators.Params{
		ATRLength:     cfg.Engine.ATRLength,
		ATRMultiplier: cfg.Engine.ATRMultiplier,
		ADXPeriod:     cfg.Engine.ADXPeriod,
		EMAFast:       cfg.Engine.EMAFast,
		EMASlow:       cfg.Engine.EMASlow,
		RSILength:     cfg.Engine.RSILength,
		StochLength:   cfg.Engine.StochLength,
		SmoothK:       cfg.Engine.SmoothK,
		SmoothD:       cfg.Engine.SmoothD,
		FlowLength:    cfg.Engine.FlowLength,
	}

	ingestor := ingest.New(feed, interval, ingest.ReconnectConfig{
		MinBackoff:  cfg.Engine.ReconnectMinBackoff,
		MaxBackoff:  cfg.Engine.ReconnectMaxBackoff,
		MaxAttempts: cfg.Engine.ReconnectMaxAttempts,
	}, logger.WithField("component", "ingest"))

	aggregator := aggregation.New(aggregation.Config{
		Interval:        interval,
		FillTimeout:     cfg.Engine.FillTimeout,
		MaxFillAttempts: cfg.Engine.MaxFillAttempts,
	}, ingestor, history, logger.WithField("component", "aggregation"))

	sel := selector.New(history, catalog, cfg.Engine.StrikeStep, logger.WithField("component", "selector"))
	calendar := engine.NewCalendar(cfg.Engine.SessionOpen, cfg.Engine.SessionClose, loc, cfg.Engine.Holidays)

	eng := engine.New(engine.Config{
		Interval:       interval,
		DriverPeriod:   cfg.Engine.DriverPeriod,
		PersistTimeout: cfg.Engine.PersistTimeout,
		SwitchTimeout:  cfg.Engine.SwitchTimeout,
		Indicators:     params,
	}, engine.Deps{
		Ingestor:   ingestor,
		Aggregator: aggregator,
		Pipeline:   indicators.NewPipeline(params),
		Selector:   sel,
		History:    history,
		Bars:       barRepo,
		Tracked:    trackedRepo,
		Publisher:  publisher,
	}, calendar, logger.WithField("component", "engine"))

	logger.Infof("aggregation engine started, interval %s", interval)
	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("engine error: %v", err)
	}
	logger.Info("engine stopped")
}
