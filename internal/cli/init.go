// Package cli holds the start-up steps shared by cmd/ledger, cmd/ledgerctl
// and cmd/ledger-audit.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/persist"
	"fintrack/internal/storage"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger installs a text logger at info level until the configuration
// has been read.
func SetupLogger(component string) *slog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	return applog.Setup(cfg)
}

// ConfigureLogger replaces the default logger with one honouring LOG_LEVEL
// and LOG_FORMAT.
func ConfigureLogger(cfg *config.Config, component string) *slog.Logger {
	logCfg := applog.DefaultConfig()
	logCfg.Component = component
	logCfg.Format = cfg.LogFormat
	if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
		logCfg.Level = level
	}
	return applog.Setup(logCfg)
}

// LoadAndValidateConfig exits the process when the configuration is invalid.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap runs the common prologue: .env, config and logger.
func Bootstrap(component string) (*config.Config, *slog.Logger) {
	LoadEnvFile()
	logger := SetupLogger(component)
	cfg := LoadAndValidateConfig(logger)
	return cfg, ConfigureLogger(cfg, component)
}

// OpenBackend exits the process when the store cannot be opened.
func OpenBackend(logger *slog.Logger, cfg *config.Config) *backend.Result {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.Open(bcfg, logger)
	if err != nil {
		logger.Error("Failed to open storage backend", applog.FieldError, err, "backend", bcfg.Type)
		os.Exit(1)
	}
	return res
}

// Ledger is a store restored from durable storage with its write-behind
// writer attached.
type Ledger struct {
	Store  *ledger.Store
	Writer *persist.Writer
	Report persist.LoadReport
}

// LoadLedger restores the ledger from blobs. Corrupt data is backed up and
// replaced by an empty ledger; only storage failures are returned.
func LoadLedger(ctx context.Context, blobs storage.BlobStore, cfg *config.Config, opts ...ledger.Option) (*Ledger, error) {
	state, report, err := persist.Load(ctx, blobs, time.Now())
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if !report.CurrencyStored && cfg.DefaultCurrency != "" {
		state.Settings.Currency = cfg.DefaultCurrency
	}

	writer := persist.NewWriter(blobs, cfg.FlushInterval)
	store := ledger.New(append(opts, ledger.WithSink(writer))...)
	if _, err := store.Restore(state); err != nil {
		return nil, fmt.Errorf("restore ledger: %w", err)
	}

	slog.InfoContext(ctx, "Ledger loaded",
		"wallets", report.Wallets,
		"transactions", report.Transactions,
		"recomputed_balances", report.RecomputedBalances,
		"dropped_transactions", report.DroppedTransactions,
		"corrupt", report.Corrupt,
		"currency", state.Settings.Currency)
	return &Ledger{Store: store, Writer: writer, Report: report}, nil
}

// NewPublisher connects to the broker when AMQP_URL is set. It returns nil,
// and the ledger runs without events, when disabled or unreachable.
func NewPublisher(logger *slog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return nil
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
// Calling stop restores the default signal behaviour.
func GracefulShutdown() (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
