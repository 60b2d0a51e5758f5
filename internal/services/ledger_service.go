package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/errs"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/persist"
	"fintrack/internal/projection"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, e amqp.Event) error
}

// LedgerService is the entry point for the HTTP API and the CLI. It logs
// every mutation, announces it to the event publisher when one is set and
// caches projections per ledger version.
type LedgerService struct {
	store  *ledger.Store
	events EventPublisher
	charts *cache.LRUCache[[]projection.Point]
	loc    *time.Location
	now    func() time.Time
}

type Option func(*LedgerService)

func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.events = p }
}

func WithProjectionCache(size int, ttl time.Duration) Option {
	return func(s *LedgerService) { s.charts = cache.NewLRUCache[[]projection.Point](size, ttl) }
}

// WithLocation sets the zone chart buckets are laid out in.
func WithLocation(loc *time.Location) Option {
	return func(s *LedgerService) { s.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(store *ledger.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:  store,
		charts: cache.NewLRUCache[[]projection.Point](64, 5*time.Minute),
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProjectionCache exposes the cache so a janitor can sweep it.
func (s *LedgerService) ProjectionCache() *cache.LRUCache[[]projection.Point] {
	return s.charts
}

func (s *LedgerService) Wallets(_ context.Context) []core.Wallet {
	return s.store.Wallets()
}

func (s *LedgerService) CreateWallet(ctx context.Context, name, icon string) (core.Wallet, error) {
	w, err := s.store.CreateWallet(name, icon)
	if err != nil {
		slog.WarnContext(ctx, "Wallet rejected",
			applog.NewFields().Operation(applog.OpCreateWallet).Err(err).Slice()...)
		return core.Wallet{}, err
	}
	slog.InfoContext(ctx, "Wallet created",
		applog.NewFields().Operation(applog.OpCreateWallet).Wallet(w.ID).Slice()...)
	s.publish(ctx, amqp.Event{Type: amqp.EventWalletCreated, WalletID: w.ID, Balance: w.Balance.String()})
	return w, nil
}

func (s *LedgerService) Wallet(_ context.Context, id string) (core.WalletSummary, error) {
	return s.store.WalletSummary(id)
}

// DeleteWallet reports false when the wallet did not exist.
func (s *LedgerService) DeleteWallet(ctx context.Context, id string) (int, bool) {
	removed, ok := s.store.DeleteWallet(id)
	if !ok {
		slog.DebugContext(ctx, "Wallet already absent", applog.FieldWalletID, id)
		return 0, false
	}
	slog.InfoContext(ctx, "Wallet deleted",
		append(applog.NewFields().Operation(applog.OpDeleteWallet).Wallet(id), "removed_transactions", removed)...)
	s.publish(ctx, amqp.Event{Type: amqp.EventWalletDeleted, WalletID: id})
	return removed, true
}

// TxKind selects the sign of an unsigned amount.
type TxKind string

const (
	KindDeposit    TxKind = "deposit"
	KindWithdrawal TxKind = "withdrawal"
)

// SignedAmount applies kind to amount. With no kind the amount is taken as
// signed; with a kind it must be positive.
func SignedAmount(kind string, amount core.Amount) (core.Amount, error) {
	switch TxKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "":
		return amount, nil
	case KindDeposit:
		if !amount.IsPositive() {
			return core.Amount{}, errs.NewValidationError("deposit amount must be positive")
		}
		return amount, nil
	case KindWithdrawal:
		if !amount.IsPositive() {
			return core.Amount{}, errs.NewValidationError("withdrawal amount must be positive")
		}
		return amount.Neg(), nil
	default:
		return core.Amount{}, errs.NewValidationError("unknown transaction type %q", kind)
	}
}

func (s *LedgerService) CreateTransaction(ctx context.Context, walletID string, amount core.Amount, description string) (core.Transaction, error) {
	tx, err := s.store.CreateTransaction(walletID, amount, description)
	if err != nil {
		level := slog.LevelWarn
		if !errs.IsValidation(err) && !errs.IsNotFound(err) && !errs.IsInsufficientBalance(err) {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "Transaction rejected",
			applog.NewFields().Operation(applog.OpCreateTransaction).Wallet(walletID).Amount(amount.String()).Err(err).Slice()...)
		return core.Transaction{}, err
	}

	balance := ""
	if w, err := s.store.Wallet(walletID); err == nil {
		balance = w.Balance.String()
	}
	slog.InfoContext(ctx, "Transaction recorded",
		applog.NewFields().Operation(applog.OpCreateTransaction).Wallet(walletID).Transaction(tx.ID).
			Amount(tx.Amount.String()).Balance(balance).Slice()...)
	s.publish(ctx, amqp.Event{
		Type:          amqp.EventTransactionCreated,
		WalletID:      walletID,
		TransactionID: tx.ID,
		Amount:        tx.Amount.String(),
		Balance:       balance,
	})
	return tx, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) (core.Transaction, bool) {
	tx, ok := s.store.DeleteTransaction(id)
	if !ok {
		slog.DebugContext(ctx, "Transaction already absent", applog.FieldTransactionID, id)
		return core.Transaction{}, false
	}
	balance := ""
	if w, err := s.store.Wallet(tx.WalletID); err == nil {
		balance = w.Balance.String()
	}
	slog.InfoContext(ctx, "Transaction deleted",
		applog.NewFields().Operation(applog.OpDeleteTransaction).Wallet(tx.WalletID).Transaction(id).
			Amount(tx.Amount.String()).Balance(balance).Slice()...)
	s.publish(ctx, amqp.Event{
		Type:          amqp.EventTransactionDeleted,
		WalletID:      tx.WalletID,
		TransactionID: id,
		Amount:        tx.Amount.String(),
		Balance:       balance,
	})
	return tx, true
}

// Transactions returns the newest transactions first; limit <= 0 returns all.
func (s *LedgerService) Transactions(_ context.Context, limit int) []core.Transaction {
	txs := core.NewestFirst(s.store.Transactions())
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs
}

// WalletTransactions returns one wallet's transactions, newest first.
func (s *LedgerService) WalletTransactions(_ context.Context, walletID string) ([]core.Transaction, error) {
	txs, err := s.store.WalletTransactions(walletID)
	if err != nil {
		return nil, err
	}
	return core.NewestFirst(txs), nil
}

func (s *LedgerService) Dashboard(_ context.Context) core.DashboardSummary {
	return s.store.Dashboard()
}

// Projection returns the chart for the whole ledger, or for one wallet when
// walletID is set. Both start from a zero balance.
func (s *LedgerService) Projection(ctx context.Context, b projection.Bucketing, walletID string) ([]projection.Point, error) {
	if walletID != "" {
		if _, err := s.store.Wallet(walletID); err != nil {
			return nil, err
		}
	}
	now := s.now().In(s.loc)
	scope := "all"
	if walletID != "" {
		scope = "wallet:" + walletID
	}
	key := fmt.Sprintf("%s|%s|%s|%d", scope, b, now.Format(time.DateOnly), s.store.Version())
	if points, ok := s.charts.Get(key); ok {
		return slices.Clone(points), nil
	}

	txs := s.store.Transactions()
	if walletID != "" {
		txs = projection.ForWallet(txs, walletID)
	}
	points := projection.Project(txs, core.Zero, b, now)
	s.charts.Set(key, points)
	slog.DebugContext(ctx, "Projection computed",
		applog.FieldOperation, applog.OpProject,
		applog.FieldBucketing, b.String(),
		applog.FieldWalletID, walletID,
		"transactions", len(txs))
	return slices.Clone(points), nil
}

// Export renders the export document and its suggested file name.
func (s *LedgerService) Export(ctx context.Context) ([]byte, string, error) {
	snap := s.store.ExportSnapshot()
	data, err := persist.MarshalExport(snap)
	if err != nil {
		return nil, "", fmt.Errorf("marshal export: %w", err)
	}
	slog.InfoContext(ctx, "Ledger exported",
		applog.FieldOperation, applog.OpExport,
		"wallets", len(snap.Wallets),
		"transactions", len(snap.Transactions))
	return data, persist.ExportFilename(s.now()), nil
}

// Import replaces the ledger with an export document. Nothing changes unless
// the whole document is valid.
func (s *LedgerService) Import(ctx context.Context, data []byte) (ledger.Normalized, error) {
	snap, err := persist.DecodeImport(data)
	if err != nil {
		slog.WarnContext(ctx, "Import rejected", applog.NewFields().Operation(applog.OpImport).Err(err).Slice()...)
		return ledger.Normalized{}, err
	}
	n, err := s.store.ImportSnapshot(snap)
	if err != nil {
		slog.WarnContext(ctx, "Import rejected", applog.NewFields().Operation(applog.OpImport).Err(err).Slice()...)
		return ledger.Normalized{}, err
	}
	s.charts.Purge()
	slog.InfoContext(ctx, "Ledger imported",
		applog.FieldOperation, applog.OpImport,
		"wallets", len(n.Wallets),
		"transactions", len(n.Transactions),
		"recomputed_balances", n.RecomputedBalances)
	s.publish(ctx, amqp.Event{Type: amqp.EventLedgerImported})
	return n, nil
}

func (s *LedgerService) Clear(ctx context.Context) (wallets, txs int) {
	wallets, txs = s.store.Clear()
	s.charts.Purge()
	slog.InfoContext(ctx, "Ledger cleared",
		applog.FieldOperation, applog.OpClear,
		"wallets", wallets,
		"transactions", txs)
	s.publish(ctx, amqp.Event{Type: amqp.EventLedgerCleared})
	return wallets, txs
}

func (s *LedgerService) Settings(_ context.Context) core.Settings {
	return s.store.Settings()
}

// UpdateSettings changes the fields that are non-nil. Both are validated
// before either is applied.
func (s *LedgerService) UpdateSettings(ctx context.Context, currency, theme *string) (core.Settings, error) {
	if currency != nil {
		if _, err := core.ParseCurrency(*currency); err != nil {
			return core.Settings{}, err
		}
	}
	if theme != nil {
		if _, err := core.ParseTheme(*theme); err != nil {
			return core.Settings{}, err
		}
	}
	if currency != nil {
		if _, err := s.store.SetCurrency(*currency); err != nil {
			return core.Settings{}, err
		}
	}
	if theme != nil {
		if _, err := s.store.SetTheme(*theme); err != nil {
			return core.Settings{}, err
		}
	}
	settings := s.store.Settings()
	slog.InfoContext(ctx, "Settings updated",
		applog.FieldOperation, applog.OpSettings,
		"currency", settings.Currency,
		"theme", settings.Theme)
	return settings, nil
}

// Format renders an amount in the configured display currency.
func (s *LedgerService) Format(a core.Amount) string {
	return core.FormatAmount(a, s.store.Settings().Currency)
}

// publish is fire-and-forget: the mutation already happened.
func (s *LedgerService) publish(ctx context.Context, e amqp.Event) {
	if s.events == nil {
		return
	}
	e.Timestamp = s.now().UTC()
	if err := s.events.PublishEvent(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", e.Type,
			applog.FieldWalletID, e.WalletID,
			applog.FieldError, err)
	}
}
