package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"bondtrader/internal/config"
	"bondtrader/internal/infrastructure/broker"
	"bondtrader/internal/infrastructure/purchases"
	"bondtrader/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// journal drains purchase events from RabbitMQ into the Postgres journal.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bootstrap := logrus.New()
	bootstrap.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadJournal()
	if err != nil {
		bootstrap.Fatalf("config error: %v", err)
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		bootstrap.Fatalf("init logger: %v", err)
	}
	defer closeLog()

	repo, err := purchases.NewRepository(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatalf("init purchase journal: %v", err)
	}
	defer repo.Close()

	consumer, err := broker.NewConsumer(cfg.RabbitMQ, repo, logger)
	if err != nil {
		logger.Fatalf("init consumer: %v", err)
	}
	if err := consumer.Start(ctx); err != nil {
		logger.Fatalf("start consumer: %v", err)
	}

	<-ctx.Done()
	logger.Info("shutting down journal consumer")

	// ctx is already cancelled; the final flush needs its own deadline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := consumer.Close(shutdownCtx); err != nil {
		logger.Errorf("flush pending purchases: %v", err)
	}
	logger.Info("journal consumer stopped")
}
