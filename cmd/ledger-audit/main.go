package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting ledger-audit")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	db, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store", applog.FieldError, err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := cli.GracefulShutdown()
	defer stop()

	audit := worker.NewAuditWorker(db)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeEvents(gctx, audit.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.AuditSummaryInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.AuditSummaryInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if err := audit.LogSummary(gctx, cfg.AuditSummaryInterval); err != nil {
						logger.Error("Failed to summarize ledger events", applog.FieldError, err)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Event consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("ledger-audit stopped")
}
