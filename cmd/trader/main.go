package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bondtrader/internal/application/service/streaming"
	"bondtrader/internal/application/service/trading"
	"bondtrader/internal/application/service/universe"
	"bondtrader/internal/config"
	"bondtrader/internal/domain/interfaces"
	"bondtrader/internal/infrastructure/broker"
	"bondtrader/internal/infrastructure/purchases"
	"bondtrader/internal/infrastructure/state"
	"bondtrader/internal/infrastructure/telegram"
	"bondtrader/internal/infrastructure/tinvest"
	infrahttp "bondtrader/internal/interfaces/http"
	"bondtrader/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	deals, sinks, journal, cleanup := setupSinks(ctx, cfg, logger)
	defer cleanup()

	notifier := telegram.NewNotifier(cfg.Telegram, nil, logger)
	engine := trading.NewEngine(trading.ConfigFrom(cfg.Strategy, cfg.Invest.AccountID), api, notifier, sinks, logger)
	builder := universe.NewBuilder(universe.ConfigFrom(cfg.Strategy, cfg.Session), api, api, logger)
	loop := streaming.NewLoop(streaming.ConfigFrom(cfg.Session), builder, tinvest.NewFeed(client, logger), engine, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	if cfg.HTTP.Enabled() {
		g.Go(func() error {
			return serveStatus(gctx, cfg.HTTP, infrahttp.NewHandler(deals, journal), logger)
		})
	}

	logger.WithFields(logrus.Fields{
		"env":              cfg.Env,
		"dry_run":          cfg.Strategy.DryRun,
		"annual_yield_min": cfg.Strategy.AnnualYieldMin,
		"annual_yield_max": cfg.Strategy.AnnualYieldMax,
		"refresh_interval": cfg.Session.RefreshInterval.String(),
	}).Info("trader started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("trader stopped with error: %v", err)
		return
	}
	logger.Info("trader stopped")
}

// setupSinks connects the optional purchase sinks. The last-deal store is
// always present; Postgres and RabbitMQ are used when configured.
func setupSinks(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (interfaces.DealStore, []interfaces.PurchaseSink, infrahttp.PurchaseReader, func()) {
	var (
		closers []func()
		sinks   []interfaces.PurchaseSink
		journal infrahttp.PurchaseReader
		deals   interfaces.DealStore
	)

	if cfg.Redis.Addr != "" {
		store, err := state.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalf("connect redis: %v", err)
		}
		closers = append(closers, func() { _ = store.Close() })
		deals = store
	} else {
		deals = state.NewMemory()
	}
	sinks = append(sinks, deals)

	if cfg.Postgres.DSN != "" {
		repo, err := purchases.NewRepository(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Fatalf("init purchase journal: %v", err)
		}
		closers = append(closers, repo.Close)
		sinks = append(sinks, repo)
		journal = repo
	}

	if cfg.RabbitMQ.URL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Fatalf("connect rabbitmq: %v", err)
		}
		pub, err := broker.NewPublisher(conn, cfg.RabbitMQ.PurchasesExchange, logger)
		if err != nil {
			_ = conn.Close()
			logger.Fatalf("init publisher: %v", err)
		}
		closers = append(closers, func() {
			pub.Close()
			_ = conn.Close()
		})
		sinks = append(sinks, pub)
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return deals, sinks, journal, cleanup
}

func serveStatus(ctx context.Context, cfg config.HTTPConfig, handler http.Handler, logger *logrus.Logger) error {
	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown error: %v", err)
	}
	logger.Info("server stopped")
	return nil
}
