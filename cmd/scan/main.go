package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"bondtrader/internal/application/service/trading"
	"bondtrader/internal/application/service/universe"
	"bondtrader/internal/config"
	"bondtrader/internal/domain/entity/bonds"
	"bondtrader/internal/domain/entity/marketdata"
	"bondtrader/internal/domain/interfaces"
	"bondtrader/internal/infrastructure/state"
	"bondtrader/internal/infrastructure/telegram"
	"bondtrader/internal/infrastructure/tinvest"
	"bondtrader/internal/logging"
)

// scan evaluates the whole universe once through the unary order book API.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bootstrap := logrus.New()
	bootstrap.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Fatalf("config error: %v", err)
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		bootstrap.Fatalf("init logger: %v", err)
	}
	defer closeLog()

	client, err := tinvest.Dial(ctx, cfg.Invest, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer func() {
		if stopErr := client.Stop(); stopErr != nil {
			logger.Errorf("stop invest api client: %v", stopErr)
		}
	}()
	api := tinvest.NewClient(client, cfg.Strategy.HomeCurrency, logger)

	notifier := telegram.NewNotifier(cfg.Telegram, nil, logger)
	engine := trading.NewEngine(trading.ConfigFrom(cfg.Strategy, cfg.Invest.AccountID), api, notifier, []interfaces.PurchaseSink{state.NewMemory()}, logger)
	builder := universe.NewBuilder(universe.ConfigFrom(cfg.Strategy, cfg.Session), api, api, logger)

	set, err := builder.Build(ctx)
	if err != nil {
		logger.Fatalf("build bond universe: %v", err)
	}

	summary := scan(ctx, set, api, engine, logger)
	logger.WithFields(logrus.Fields{
		"bonds":            set.Len(),
		"evaluated":        summary.evaluated,
		"bought":           summary.bought,
		"max_annual_yield": summary.maxYield,
		"max_yield_ticker": summary.maxTicker,
	}).Info("scan finished")
}

type scanSummary struct {
	evaluated int
	bought    int
	maxYield  float64
	maxTicker string
}

func scan(ctx context.Context, set *universe.WorkingSet, books interfaces.OrderBooks, engine *trading.Engine, logger *logrus.Logger) scanSummary {
	summary := scanSummary{}
	for _, bond := range set.Bonds() {
		if ctx.Err() != nil {
			break
		}
		book, err := books.OrderBook(ctx, bond.Figi, marketdata.TopOfBookDepth)
		if err != nil {
			logger.WithError(err).WithField("figi", bond.Figi).Warn("skip bond: fetch order book")
			continue
		}

		ask := book.BestAsk()
		_, val, _, _ := set.Apply(bond.Figi, bonds.Quote{PricePercent: ask.Price, Quantity: ask.Quantity}, time.Now())
		summary.evaluated++
		if val.AnnualYield > summary.maxYield {
			summary.maxYield = val.AnnualYield
			summary.maxTicker = bond.Ticker
		}

		if engine.Evaluate(ctx, bond, val).Bought() {
			summary.bought++
		}
	}
	return summary
}
