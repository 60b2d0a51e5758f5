package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
)

const janitorInterval = time.Minute

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)

	ctx, stop := cli.GracefulShutdown()
	defer stop()

	res := cli.OpenBackend(logger, cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close storage", applog.FieldError, err)
		}
	}()

	l, err := cli.LoadLedger(ctx, res.Store, cfg)
	if err != nil {
		logger.Error("Failed to load ledger", applog.FieldError, err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", applog.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}
	opts := []services.Option{
		services.WithProjectionCache(cfg.ProjectionCacheSize, cfg.ProjectionCacheTTL),
		services.WithLocation(loc),
	}
	if publisher := cli.NewPublisher(logger, cfg); publisher != nil {
		defer publisher.Close()
		opts = append(opts, services.WithPublisher(publisher))
	}
	svc := services.NewLedgerService(l.Store, opts...)

	limiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute)
	janitor := cache.NewJanitor(janitorInterval, svc.ProjectionCache())
	if limiter != nil {
		janitor.Register(limiter)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithReadiness(res),
		apphttp.WithRateLimit(limiter))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return l.Writer.Run(gctx) })
	g.Go(func() error { return janitor.Run(gctx) })
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.StorageBackend,
			"events", cfg.AMQPURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
	}

	// Everything the ledger accepted must reach storage before exit.
	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := l.Writer.Flush(flushCtx); err != nil {
		logger.Error("Failed to flush ledger on shutdown", applog.FieldError, err, "pending", l.Writer.Pending())
	}

	m := srv.Metrics()
	slog.Info("Server stopped gracefully",
		"requests", m.TotalRequests,
		"server_errors", m.ServerErrors)
}
