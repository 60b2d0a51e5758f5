package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"fintrack/internal/errs"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between the writer and the audit worker.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.NewDatabaseError("get "+key, err)
	}
	return value, true, nil
}

const upsertKV = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertKV, key, value, s.now().UnixMilli()); err != nil {
		return errs.NewDatabaseError("put "+key, err)
	}
	slog.DebugContext(ctx, "Stored entry", "key", key, "bytes", len(value))
	return nil
}

// PutMany upserts all entries in one transaction.
func (s *SQLiteStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.NewDatabaseError("begin put", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertKV)
	if err != nil {
		return errs.NewDatabaseError("prepare put", err)
	}
	defer stmt.Close()

	now := s.now().UnixMilli()
	keys := slices.Sorted(maps.Keys(entries))
	for _, key := range keys {
		if _, err := stmt.ExecContext(ctx, key, entries[key], now); err != nil {
			return errs.NewDatabaseError("put "+key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.NewDatabaseError("commit put", err)
	}
	slog.DebugContext(ctx, "Stored entries", "keys", keys)
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return errs.NewDatabaseError("delete "+key, err)
	}
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, errs.NewDatabaseError("list keys", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errs.NewDatabaseError("scan key", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDatabaseError("list keys", err)
	}
	return keys, nil
}

// AppendEvent stores one audit record and returns its row ID.
func (s *SQLiteStore) AppendEvent(ctx context.Context, rec EventRecord) (int64, error) {
	received := rec.ReceivedAt
	if received.IsZero() {
		received = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_events (type, wallet_id, transaction_id, amount, balance, occurred_at, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Type, rec.WalletID, rec.TransactionID, rec.Amount, rec.Balance,
		rec.OccurredAt.UnixMilli(), received.UnixMilli())
	if err != nil {
		return 0, errs.NewDatabaseError("append event", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.NewDatabaseError("append event", err)
	}
	return id, nil
}

// ListEvents returns audit records oldest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, f EventFilter) ([]EventRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.WalletID != "" {
		where = append(where, "wallet_id = ?")
		args = append(args, f.WalletID)
	}
	if !f.Since.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.Since.UnixMilli())
	}
	q := `SELECT id, type, wallet_id, transaction_id, amount, balance, occurred_at, received_at FROM ledger_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY occurred_at, id"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errs.NewDatabaseError("list events", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			rec                  EventRecord
			occurred, receivedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.WalletID, &rec.TransactionID,
			&rec.Amount, &rec.Balance, &occurred, &receivedAt); err != nil {
			return nil, errs.NewDatabaseError("scan event", err)
		}
		rec.OccurredAt = time.UnixMilli(occurred).UTC()
		rec.ReceivedAt = time.UnixMilli(receivedAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDatabaseError("list events", err)
	}
	return out, nil
}
