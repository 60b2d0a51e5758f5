// Package persist maps the ledger onto four independent durable entries and
// handles the export/import document format.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/errs"
	"fintrack/internal/ledger"
	"fintrack/internal/storage"
)

const (
	KeyWallets      = "finance-manager-wallets"
	KeyTransactions = "finance-manager-transactions"
	KeyCurrency     = "finance-manager-currency"
	KeyTheme        = "finance-manager-theme"
)

func EncodeWallets(wallets []core.Wallet) ([]byte, error) {
	if wallets == nil {
		wallets = []core.Wallet{}
	}
	return json.Marshal(wallets)
}

func EncodeTransactions(txs []core.Transaction) ([]byte, error) {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return json.Marshal(txs)
}

// Currency and theme are stored as bare strings, not JSON.
func EncodeCurrency(code string) []byte  { return []byte(code) }
func EncodeTheme(theme core.Theme) []byte { return []byte(theme) }

// LoadReport describes what Load found.
type LoadReport struct {
	Wallets            int
	Transactions       int
	RecomputedBalances int
	// DroppedTransactions counts stored transactions whose wallet no longer
	// exists. They are left out of the restored ledger.
	DroppedTransactions int
	// CurrencyStored is false when no valid currency was found and the
	// default was used.
	CurrencyStored bool
	// Corrupt is set when the stored collections were unusable and the ledger
	// started empty. Reason says why; BackupKeys lists where the raw data went.
	Corrupt    bool
	Reason     string
	BackupKeys []string
}

// Load reads the durable entries. Missing entries yield empty collections and
// default settings. Transactions pointing at a missing wallet are dropped and
// balances recomputed. Collections that cannot be decoded or that break any
// other ledger rule are backed up under "<key>.corrupt-<unix>" and replaced by
// an empty ledger. Only store failures are returned as errors.
func Load(ctx context.Context, store storage.BlobStore, now time.Time) (ledger.State, LoadReport, error) {
	state := ledger.State{
		Wallets:      []core.Wallet{},
		Transactions: []core.Transaction{},
		Settings:     core.DefaultSettings(),
	}
	var report LoadReport

	rawCurrency, ok, err := store.Get(ctx, KeyCurrency)
	if err != nil {
		return state, report, fmt.Errorf("load currency: %w", err)
	}
	if ok {
		if code, err := core.ParseCurrency(unquote(rawCurrency)); err == nil {
			state.Settings.Currency = code
			report.CurrencyStored = true
		} else {
			slog.WarnContext(ctx, "Stored currency invalid, using default", "value", string(rawCurrency), "error", err)
		}
	}

	rawTheme, ok, err := store.Get(ctx, KeyTheme)
	if err != nil {
		return state, report, fmt.Errorf("load theme: %w", err)
	}
	if ok {
		if th, err := core.ParseTheme(unquote(rawTheme)); err == nil {
			state.Settings.Theme = th
		} else {
			slog.WarnContext(ctx, "Stored theme invalid, using default", "value", string(rawTheme), "error", err)
		}
	}

	rawWallets, hasWallets, err := store.Get(ctx, KeyWallets)
	if err != nil {
		return state, report, fmt.Errorf("load wallets: %w", err)
	}
	rawTxs, hasTxs, err := store.Get(ctx, KeyTransactions)
	if err != nil {
		return state, report, fmt.Errorf("load transactions: %w", err)
	}

	snap, reason := decodeCollections(rawWallets, hasWallets, rawTxs, hasTxs)
	var norm ledger.Normalized
	if reason == "" {
		snap, report.DroppedTransactions = dropOrphans(snap)
		norm, err = ledger.ValidateSnapshot(snap)
		if err != nil {
			reason = err.Error()
		}
	}
	if reason != "" {
		report.Corrupt = true
		report.Reason = reason
		report.DroppedTransactions = 0
		suffix := fmt.Sprintf(".corrupt-%d", now.Unix())
		for _, b := range []struct {
			key string
			raw []byte
			ok  bool
		}{{KeyWallets, rawWallets, hasWallets}, {KeyTransactions, rawTxs, hasTxs}} {
			if !b.ok {
				continue
			}
			if err := store.Put(ctx, b.key+suffix, b.raw); err != nil {
				return state, report, fmt.Errorf("back up %s: %w", b.key, err)
			}
			report.BackupKeys = append(report.BackupKeys, b.key+suffix)
		}
		slog.WarnContext(ctx, "Stored ledger is corrupt, starting empty",
			"reason", reason, "backups", report.BackupKeys)
		return state, report, nil
	}

	state.Wallets = norm.Wallets
	state.Transactions = norm.Transactions
	report.Wallets = len(norm.Wallets)
	report.Transactions = len(norm.Transactions)
	report.RecomputedBalances = norm.RecomputedBalances
	if report.DroppedTransactions > 0 {
		slog.WarnContext(ctx, "Dropped transactions of deleted wallets", "transactions", report.DroppedTransactions)
	}
	if norm.RecomputedBalances > 0 {
		slog.WarnContext(ctx, "Recomputed wallet balances from transactions", "wallets", norm.RecomputedBalances)
	}
	return state, report, nil
}

func decodeCollections(rawWallets []byte, hasWallets bool, rawTxs []byte, hasTxs bool) (ledger.Snapshot, string) {
	snap := ledger.Snapshot{Wallets: []core.Wallet{}, Transactions: []core.Transaction{}}
	if hasWallets {
		if !isJSONArray(rawWallets) {
			return snap, "wallets entry is not a JSON array"
		}
		if err := json.Unmarshal(rawWallets, &snap.Wallets); err != nil {
			return snap, fmt.Sprintf("decode wallets: %v", err)
		}
	}
	if hasTxs {
		if !isJSONArray(rawTxs) {
			return snap, "transactions entry is not a JSON array"
		}
		if err := json.Unmarshal(rawTxs, &snap.Transactions); err != nil {
			return snap, fmt.Sprintf("decode transactions: %v", err)
		}
	}
	return snap, ""
}

func dropOrphans(snap ledger.Snapshot) (ledger.Snapshot, int) {
	known := make(map[string]struct{}, len(snap.Wallets))
	for _, w := range snap.Wallets {
		known[w.ID] = struct{}{}
	}
	kept := make([]core.Transaction, 0, len(snap.Transactions))
	for _, tx := range snap.Transactions {
		if _, ok := known[tx.WalletID]; ok {
			kept = append(kept, tx)
		}
	}
	dropped := len(snap.Transactions) - len(kept)
	snap.Transactions = kept
	return snap, dropped
}

func isJSONArray(raw []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

// unquote accepts both a bare value and a JSON string.
func unquote(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if json.Unmarshal([]byte(s), &v) == nil {
			return v
		}
	}
	return s
}

// MarshalExport renders the export document with two-space indentation.
func MarshalExport(snap ledger.Snapshot) ([]byte, error) {
	if snap.Wallets == nil {
		snap.Wallets = []core.Wallet{}
	}
	if snap.Transactions == nil {
		snap.Transactions = []core.Transaction{}
	}
	return json.MarshalIndent(snap, "", "  ")
}

// ExportFilename is finance-data-YYYY-MM-DD.json for the UTC date of t.
func ExportFilename(t time.Time) string {
	return "finance-data-" + t.UTC().Format(time.DateOnly) + ".json"
}

// DecodeImport parses an export document. The top level must be an object
// with "wallets" and "transactions" arrays; "currency" is optional. Entry
// rules are checked later by ledger.ValidateSnapshot.
func DecodeImport(data []byte) (ledger.Snapshot, error) {
	var doc struct {
		Wallets      json.RawMessage `json:"wallets"`
		Transactions json.RawMessage `json:"transactions"`
		Currency     json.RawMessage `json:"currency"`
	}
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("{")) {
		return ledger.Snapshot{}, errs.NewValidationError("import must be a JSON object")
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return ledger.Snapshot{}, errs.NewValidationError("invalid JSON: %v", err)
	}
	if !isJSONArray(doc.Wallets) {
		return ledger.Snapshot{}, errs.NewValidationError("import needs a wallets array")
	}
	if !isJSONArray(doc.Transactions) {
		return ledger.Snapshot{}, errs.NewValidationError("import needs a transactions array")
	}

	snap := ledger.Snapshot{Wallets: []core.Wallet{}, Transactions: []core.Transaction{}}
	if err := json.Unmarshal(doc.Wallets, &snap.Wallets); err != nil {
		return ledger.Snapshot{}, errs.NewValidationError("invalid wallets: %v", err)
	}
	if err := json.Unmarshal(doc.Transactions, &snap.Transactions); err != nil {
		return ledger.Snapshot{}, errs.NewValidationError("invalid transactions: %v", err)
	}

	if len(doc.Currency) > 0 && string(doc.Currency) != "null" {
		var code string
		if err := json.Unmarshal(doc.Currency, &code); err != nil {
			return ledger.Snapshot{}, errs.NewValidationError("currency must be a string")
		}
		if code != "" {
			c, err := core.ParseCurrency(code)
			if err != nil {
				return ledger.Snapshot{}, err
			}
			snap.Currency = c
		}
	}
	return snap, nil
}
