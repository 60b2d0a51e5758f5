package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/storage"
)

// EventLog is the slice of storage.SQLiteStore the worker needs.
type EventLog interface {
	AppendEvent(ctx context.Context, rec storage.EventRecord) (int64, error)
	ListEvents(ctx context.Context, f storage.EventFilter) ([]storage.EventRecord, error)
}

// AuditWorker records ledger events delivered over AMQP.
type AuditWorker struct {
	log EventLog
	now func() time.Time
}

func NewAuditWorker(log EventLog) *AuditWorker {
	return &AuditWorker{log: log, now: time.Now}
}

// HandleEvent stores one event. A returned error makes the consumer requeue it.
func (w *AuditWorker) HandleEvent(ctx context.Context, e *amqp.Event) error {
	occurred := e.Timestamp
	if occurred.IsZero() {
		occurred = w.now()
	}
	id, err := w.log.AppendEvent(ctx, storage.EventRecord{
		Type:          string(e.Type),
		WalletID:      e.WalletID,
		TransactionID: e.TransactionID,
		Amount:        e.Amount,
		Balance:       e.Balance,
		OccurredAt:    occurred,
		ReceivedAt:    w.now(),
	})
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	slog.InfoContext(ctx, "Recorded ledger event",
		"id", id,
		"type", e.Type,
		"wallet_id", e.WalletID,
		"transaction_id", e.TransactionID)
	return nil
}

// Summarize counts the events recorded since the given time, by type.
func (w *AuditWorker) Summarize(ctx context.Context, since time.Time) (map[string]int, error) {
	events, err := w.log.ListEvents(ctx, storage.EventFilter{Since: since})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	counts := map[string]int{}
	for _, e := range events {
		counts[e.Type]++
	}
	return counts, nil
}

// LogSummary writes the counts of the last window to the log.
func (w *AuditWorker) LogSummary(ctx context.Context, window time.Duration) error {
	counts, err := w.Summarize(ctx, w.now().Add(-window))
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		slog.InfoContext(ctx, "No ledger events in window", "window", window)
		return nil
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	args := []any{"window", window}
	for _, t := range types {
		args = append(args, t, counts[t])
	}
	slog.InfoContext(ctx, "Ledger activity", args...)
	return nil
}
