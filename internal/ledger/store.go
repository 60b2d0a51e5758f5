// Package ledger owns wallets and transactions and keeps wallet balances
// consistent with the transaction history.
//
// Every mutation runs inside one critical section: the transaction set and the
// owning wallet balance change together, and a wallet delete removes its
// transactions in the same step. After each mutation the changed collections
// are handed to a Sink, still under the lock, so that the sink observes
// snapshots in mutation order. Sinks must not block.
package ledger

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/errs"
	"fintrack/internal/ident"
)

// maxIDAttempts bounds the redraws when a generated ID is already taken.
const maxIDAttempts = 32

var ErrIDExhausted = errors.New("could not allocate a unique id")

// Sink receives full copies of what a mutation changed, in one call per
// mutation. A nil collection was not changed.
type Sink interface {
	LedgerChanged(wallets []core.Wallet, txs []core.Transaction)
	SettingsChanged(settings core.Settings)
}

type Store struct {
	mu       sync.RWMutex
	wallets  []core.Wallet
	walletAt map[string]int
	txs      []core.Transaction
	txAt     map[string]int
	settings core.Settings
	version  uint64

	ids  ident.Generator
	now  func() time.Time
	sink Sink
}

type Option func(*Store)

// WithIDGenerator replaces the random identifier generator.
func WithIDGenerator(g ident.Generator) Option {
	return func(s *Store) { s.ids = g }
}

// WithClock replaces time.Now for transaction dates.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSink registers the write-through target.
func WithSink(sink Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// WithSettings sets the initial display settings.
func WithSettings(settings core.Settings) Option {
	return func(s *Store) { s.settings = settings }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		wallets:  []core.Wallet{},
		walletAt: map[string]int{},
		txs:      []core.Transaction{},
		txAt:     map[string]int{},
		settings: core.DefaultSettings(),
		ids:      ident.Random{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateWallet adds a wallet with a zero balance and the next palette color.
func (s *Store) CreateWallet(name, icon string) (core.Wallet, error) {
	name, err := core.ValidateWalletName(name)
	if err != nil {
		return core.Wallet{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.newID()
	if err != nil {
		return core.Wallet{}, err
	}
	w := core.Wallet{
		ID:      id,
		Name:    name,
		Icon:    strings.TrimSpace(icon),
		Balance: core.Zero,
		Color:   ident.ColorFor(len(s.wallets)),
	}
	s.walletAt[w.ID] = len(s.wallets)
	s.wallets = append(s.wallets, w)
	s.changed(true, false)
	return w, nil
}

// DeleteWallet removes the wallet and every transaction that references it.
// Deleting an unknown wallet is a no-op and reports false.
func (s *Store) DeleteWallet(id string) (removedTxs int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.walletAt[id]
	if !ok {
		return 0, false
	}
	s.wallets = slices.Delete(s.wallets, i, i+1)

	before := len(s.txs)
	s.txs = slices.DeleteFunc(s.txs, func(tx core.Transaction) bool { return tx.WalletID == id })
	removedTxs = before - len(s.txs)

	s.reindex()
	s.changed(true, removedTxs > 0)
	return removedTxs, true
}

// CreateTransaction records a deposit (amount > 0) or withdrawal (amount < 0)
// and applies it to the wallet balance. A withdrawal larger than the current
// balance fails with InsufficientBalanceError and changes nothing.
func (s *Store) CreateTransaction(walletID string, amount core.Amount, description string) (core.Transaction, error) {
	if err := amount.ValidateNonZero(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wi, ok := s.walletAt[walletID]
	if !ok {
		return core.Transaction{}, errs.NewNotFoundError("wallet %q not found", walletID)
	}
	w := &s.wallets[wi]
	if amount.IsNegative() && amount.Abs().GreaterThan(w.Balance) {
		return core.Transaction{}, errs.NewInsufficientBalanceError(walletID,
			"insufficient balance: cannot withdraw %s from %s", amount.Abs(), w.Balance)
	}

	id, err := s.newID()
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:          id,
		WalletID:    walletID,
		Amount:      amount,
		Description: strings.TrimSpace(description),
		Date:        core.NewTimestamp(s.now()),
	}
	s.txAt[tx.ID] = len(s.txs)
	s.txs = append(s.txs, tx)
	w.Balance = w.Balance.Add(amount)
	s.changed(true, true)
	return tx, nil
}

// DeleteTransaction removes the transaction and reverses its effect on the
// wallet balance. Deleting an unknown transaction is a no-op.
func (s *Store) DeleteTransaction(id string) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.txAt[id]
	if !ok {
		return core.Transaction{}, false
	}
	tx := s.txs[i]
	s.txs = slices.Delete(s.txs, i, i+1)
	if wi, ok := s.walletAt[tx.WalletID]; ok {
		s.wallets[wi].Balance = s.wallets[wi].Balance.Sub(tx.Amount)
	}
	s.reindex()
	s.changed(true, true)
	return tx, true
}

// Clear removes every wallet and transaction. Settings are kept.
func (s *Store) Clear() (wallets, txs int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallets, txs = len(s.wallets), len(s.txs)
	s.wallets, s.txs = []core.Wallet{}, []core.Transaction{}
	s.reindex()
	s.changed(true, true)
	return wallets, txs
}

func (s *Store) SetCurrency(code string) (core.Settings, error) {
	code, err := core.ParseCurrency(code)
	if err != nil {
		return core.Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Currency = code
	s.settingsChanged()
	return s.settings, nil
}

func (s *Store) SetTheme(theme string) (core.Settings, error) {
	th, err := core.ParseTheme(theme)
	if err != nil {
		return core.Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Theme = th
	s.settingsChanged()
	return s.settings, nil
}

func (s *Store) Settings() core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Wallets returns the wallets in creation order.
func (s *Store) Wallets() []core.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.wallets)
}

func (s *Store) Wallet(id string) (core.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.walletAt[id]
	if !ok {
		return core.Wallet{}, errs.NewNotFoundError("wallet %q not found", id)
	}
	return s.wallets[i], nil
}

// Transactions returns every transaction in insertion order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.txs)
}

// WalletTransactions returns the transactions of one wallet in insertion order.
func (s *Store) WalletTransactions(walletID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.walletAt[walletID]; !ok {
		return nil, errs.NewNotFoundError("wallet %q not found", walletID)
	}
	return s.walletTxs(walletID), nil
}

func (s *Store) Dashboard() core.DashboardSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.Summarize(s.wallets, s.txs)
}

func (s *Store) WalletSummary(walletID string) (core.WalletSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.walletAt[walletID]
	if !ok {
		return core.WalletSummary{}, errs.NewNotFoundError("wallet %q not found", walletID)
	}
	return core.SummarizeWallet(s.wallets[i], s.walletTxs(walletID)), nil
}

func (s *Store) walletTxs(walletID string) []core.Transaction {
	out := []core.Transaction{}
	for _, tx := range s.txs {
		if tx.WalletID == walletID {
			out = append(out, tx)
		}
	}
	return out
}

// newID draws identifiers until one is unused by either collection.
func (s *Store) newID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.ids.NewID()
		_, w := s.walletAt[id]
		_, t := s.txAt[id]
		if id != "" && !w && !t {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

func (s *Store) reindex() {
	s.walletAt = make(map[string]int, len(s.wallets))
	for i, w := range s.wallets {
		s.walletAt[w.ID] = i
	}
	s.txAt = make(map[string]int, len(s.txs))
	for i, tx := range s.txs {
		s.txAt[tx.ID] = i
	}
}

// changed bumps the version and notifies the sink. Callers hold s.mu.
func (s *Store) changed(wallets, txs bool) {
	s.version++
	if s.sink == nil {
		return
	}
	var ws []core.Wallet
	var ts []core.Transaction
	if wallets {
		ws = append([]core.Wallet{}, s.wallets...)
	}
	if txs {
		ts = append([]core.Transaction{}, s.txs...)
	}
	s.sink.LedgerChanged(ws, ts)
}

func (s *Store) settingsChanged() {
	s.version++
	if s.sink != nil {
		s.sink.SettingsChanged(s.settings)
	}
}

