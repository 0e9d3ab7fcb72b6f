package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"splitride/internal/amqp"
	"splitride/internal/config"
	gsheet "splitride/internal/ledger/google"
	applog "splitride/internal/log"
	"splitride/internal/storage"
	"splitride/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentWorker
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	logger.Info("Starting splitride-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The sheets ledger is optional; without a spreadsheet ID events
	// are only logged.
	var ledger worker.LedgerAppender
	sheetsClient, err := gsheet.NewFromConfig(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if sheetsClient.Enabled() {
		ledger = sheetsClient
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	eventWorker := worker.NewEventWorker(ledger, repo, cfg.RequestMaxAge)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eventWorker.RunSweeper(gctx, cfg.SweepInterval)
	})

	if cfg.AMQPURL != "" {
		g.Go(func() error {
			return amqp.ConsumeWithReconnect(gctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, func(e *amqp.Event) error {
				return eventWorker.HandleEvent(gctx, e)
			})
		})
		logger.Info("Consuming events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - running sweeper only")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
