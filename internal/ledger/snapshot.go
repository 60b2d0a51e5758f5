package ledger

import (
	"slices"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/errs"
)

// Snapshot is the portable ledger document used for export and import.
type Snapshot struct {
	Wallets      []core.Wallet      `json:"wallets"`
	Transactions []core.Transaction `json:"transactions"`
	Currency     string             `json:"currency,omitempty"`
}

// State is everything the store holds, as restored at startup.
type State struct {
	Wallets      []core.Wallet
	Transactions []core.Transaction
	Settings     core.Settings
}

// Normalized is a validated snapshot ready to replace the store contents.
type Normalized struct {
	Snapshot
	// RecomputedBalances counts wallets whose stored balance disagreed with
	// the sum of their transactions and was replaced by that sum.
	RecomputedBalances int
}

// ValidateSnapshot checks a whole snapshot without touching any store.
//
// Wallets need a unique non-empty ID and a non-blank name; transactions need a
// unique non-empty ID, a non-zero amount, a date and an existing wallet.
// Balances are caches and are recomputed from the transactions. Missing
// colors are filled from the palette by position.
func ValidateSnapshot(snap Snapshot) (Normalized, error) {
	if snap.Wallets == nil {
		return Normalized{}, errs.NewValidationError("snapshot is missing wallets")
	}
	if snap.Transactions == nil {
		return Normalized{}, errs.NewValidationError("snapshot is missing transactions")
	}
	if snap.Currency != "" {
		code, err := core.ParseCurrency(snap.Currency)
		if err != nil {
			return Normalized{}, err
		}
		snap.Currency = code
	}

	wallets := make([]core.Wallet, len(snap.Wallets))
	index := make(map[string]int, len(snap.Wallets))
	for i, w := range snap.Wallets {
		if strings.TrimSpace(w.ID) == "" {
			return Normalized{}, errs.NewValidationError("wallet #%d has no id", i)
		}
		if _, dup := index[w.ID]; dup {
			return Normalized{}, errs.NewValidationError("duplicate wallet id %q", w.ID)
		}
		if strings.TrimSpace(w.Name) == "" {
			return Normalized{}, errs.NewValidationError("wallet %q has an empty name", w.ID)
		}
		if w.Color == "" {
			w.Color = core.ColorAt(i)
		}
		index[w.ID] = i
		wallets[i] = w
	}

	txs := make([]core.Transaction, len(snap.Transactions))
	seen := make(map[string]struct{}, len(snap.Transactions))
	sums := make([]core.Amount, len(wallets))
	for i, tx := range snap.Transactions {
		if strings.TrimSpace(tx.ID) == "" {
			return Normalized{}, errs.NewValidationError("transaction #%d has no id", i)
		}
		if _, dup := seen[tx.ID]; dup {
			return Normalized{}, errs.NewValidationError("duplicate transaction id %q", tx.ID)
		}
		wi, ok := index[tx.WalletID]
		if !ok {
			return Normalized{}, errs.NewValidationError("transaction %q references unknown wallet %q", tx.ID, tx.WalletID)
		}
		if tx.Amount.IsZero() {
			return Normalized{}, errs.NewValidationError("transaction %q has a zero amount", tx.ID)
		}
		if tx.Date.IsZero() {
			return Normalized{}, errs.NewValidationError("transaction %q has no date", tx.ID)
		}
		seen[tx.ID] = struct{}{}
		sums[wi] = sums[wi].Add(tx.Amount)
		txs[i] = tx
	}

	out := Normalized{Snapshot: Snapshot{Wallets: wallets, Transactions: txs, Currency: snap.Currency}}
	for i := range wallets {
		if !wallets[i].Balance.Equal(sums[i]) {
			wallets[i].Balance = sums[i]
			out.RecomputedBalances++
		}
	}
	return out, nil
}

// ExportSnapshot returns the wallets, transactions and currency.
func (s *Store) ExportSnapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Wallets:      slices.Clone(s.wallets),
		Transactions: slices.Clone(s.txs),
		Currency:     s.settings.Currency,
	}
}

// ImportSnapshot replaces the whole ledger with snap. The snapshot is fully
// validated first; on error the store is left untouched. The currency is only
// replaced when the snapshot carries one.
func (s *Store) ImportSnapshot(snap Snapshot) (Normalized, error) {
	n, err := ValidateSnapshot(snap)
	if err != nil {
		return Normalized{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallets, s.txs = slices.Clone(n.Wallets), slices.Clone(n.Transactions)
	s.reindex()
	s.changed(true, true)
	if n.Currency != "" && n.Currency != s.settings.Currency {
		s.settings.Currency = n.Currency
		s.settingsChanged()
	}
	return n, nil
}

// Restore loads state read at startup. Nothing is sent to the sink since the
// state came from it.
func (s *Store) Restore(state State) (Normalized, error) {
	snap := Snapshot{Wallets: state.Wallets, Transactions: state.Transactions}
	if snap.Wallets == nil {
		snap.Wallets = []core.Wallet{}
	}
	if snap.Transactions == nil {
		snap.Transactions = []core.Transaction{}
	}
	n, err := ValidateSnapshot(snap)
	if err != nil {
		return Normalized{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallets, s.txs = slices.Clone(n.Wallets), slices.Clone(n.Transactions)
	if state.Settings.Currency != "" {
		s.settings.Currency = state.Settings.Currency
	}
	if state.Settings.Theme != "" {
		s.settings.Theme = state.Settings.Theme
	}
	s.reindex()
	s.version++
	return n, nil
}
