package persist

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Writer is a write-behind ledger.Sink. Each change replaces the pending value
// for its key, so a burst of mutations costs one write per key. Callers never
// block on storage; Run or Flush do the writes. Everything pending is written
// in one PutMany, so wallets and transactions on disk always come from the
// same mutation.
type Writer struct {
	store    storage.BlobStore
	interval time.Duration

	mu      sync.Mutex
	pending map[string][]byte

	// drainMu keeps Run and Flush from writing the same key out of order.
	drainMu sync.Mutex
	signal  chan struct{}
}

// NewWriter returns a writer for store. With interval > 0, Run waits that long
// after the first change before writing so that bursts coalesce.
func NewWriter(store storage.BlobStore, interval time.Duration) *Writer {
	return &Writer{
		store:    store,
		interval: interval,
		pending:  map[string][]byte{},
		signal:   make(chan struct{}, 1),
	}
}

// LedgerChanged queues the collections that are non-nil.
func (w *Writer) LedgerChanged(wallets []core.Wallet, txs []core.Transaction) {
	entries := make(map[string][]byte, 2)
	if wallets != nil {
		data, err := EncodeWallets(wallets)
		if err != nil {
			slog.Error("Failed to encode wallets", "error", err)
			return
		}
		entries[KeyWallets] = data
	}
	if txs != nil {
		data, err := EncodeTransactions(txs)
		if err != nil {
			slog.Error("Failed to encode transactions", "error", err)
			return
		}
		entries[KeyTransactions] = data
	}
	w.enqueue(entries)
}

func (w *Writer) SettingsChanged(settings core.Settings) {
	w.enqueue(map[string][]byte{
		KeyCurrency: EncodeCurrency(settings.Currency),
		KeyTheme:    EncodeTheme(settings.Theme),
	})
}

func (w *Writer) enqueue(entries map[string][]byte) {
	if len(entries) == 0 {
		return
	}
	w.mu.Lock()
	maps.Copy(w.pending, entries)
	w.mu.Unlock()
	w.notify()
}

func (w *Writer) notify() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Pending reports how many keys wait to be written.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Run writes pending changes until ctx is done. Failures are logged and the
// batch stays queued for the next attempt, minus keys that got newer values.
func (w *Writer) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Persistence writer started", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Persistence writer stopping", "pending", w.Pending())
			return nil
		case <-w.signal:
		}

		if w.interval > 0 {
			t := time.NewTimer(w.interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		}

		if err := w.drain(ctx); err != nil {
			slog.ErrorContext(ctx, "Persisting ledger failed", "error", err)
		}
	}
}

// Flush writes everything pending before returning.
func (w *Writer) Flush(ctx context.Context) error {
	return w.drain(ctx)
}

func (w *Writer) drain(ctx context.Context) error {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string][]byte, len(batch))
	w.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := w.store.PutMany(ctx, batch); err != nil {
		w.requeue(batch)
		return fmt.Errorf("persist %d entries: %w", len(batch), err)
	}
	slog.DebugContext(ctx, "Persisted ledger", "entries", len(batch))
	return nil
}

func (w *Writer) requeue(batch map[string][]byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, data := range batch {
		if _, newer := w.pending[key]; !newer {
			w.pending[key] = data
		}
	}
}
