package persist

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/errs"
	"fintrack/internal/ident"
	"fintrack/internal/ledger"
	"fintrack/internal/storage/memory"
)

var loadTime = time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)

func assertSameJSON(t *testing.T, want, got any) {
	t.Helper()
	w, err := json.Marshal(want)
	require.NoError(t, err)
	g, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(w), string(g))
}

func put(t *testing.T, s *memory.Store, key, value string) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), key, []byte(value)))
}

func TestLoadEmptyStore(t *testing.T) {
	state, report, err := Load(context.Background(), memory.New(), loadTime)
	require.NoError(t, err)
	assert.NotNil(t, state.Wallets)
	assert.NotNil(t, state.Transactions)
	assert.Empty(t, state.Wallets)
	assert.Equal(t, core.DefaultSettings(), state.Settings)
	assert.False(t, report.Corrupt)
	assert.False(t, report.CurrencyStored)
}

func TestLoadValidData(t *testing.T) {
	s := memory.New()
	put(t, s, KeyWallets, `[{"id":"w1","name":"Cash","icon":"cash","balance":999,"color":"#ef4444"}]`)
	put(t, s, KeyTransactions, `[{"id":"t1","walletId":"w1","amount":12.5,"description":"","date":"2025-01-01T10:00:00.000Z"},
		{"id":"t2","walletId":"w1","amount":-2.5,"description":"x","date":"2025-01-02T10:00:00.000Z"}]`)
	put(t, s, KeyCurrency, "eur")
	put(t, s, KeyTheme, "light")

	state, report, err := Load(context.Background(), s, loadTime)
	require.NoError(t, err)
	require.False(t, report.Corrupt)
	require.Len(t, state.Wallets, 1)
	assert.Equal(t, "10", state.Wallets[0].Balance.String())
	assert.Equal(t, 1, report.RecomputedBalances)
	assert.Equal(t, 2, report.Transactions)
	assert.Equal(t, "EUR", state.Settings.Currency)
	assert.True(t, report.CurrencyStored)
	assert.Equal(t, core.ThemeLight, state.Settings.Theme)
}

func TestLoadCorruptFallsBackAndBacksUp(t *testing.T) {
	cases := map[string]struct{ wallets, txs string }{
		"bad json":       {`[{"id":`, `[]`},
		"not an array":   {`{"id":"w1"}`, `[]`},
		"zero amount":    {`[{"id":"w1","name":"A"}]`, `[{"id":"t1","walletId":"w1","amount":0,"date":"2025-01-01T00:00:00.000Z"}]`},
		"duplicate id":   {`[{"id":"w1","name":"A"},{"id":"w1","name":"B"}]`, `[]`},
		"invalid amount": {`[{"id":"w1","name":"A"}]`, `[{"id":"t1","walletId":"w1","amount":"abc","date":"2025-01-01T00:00:00.000Z"}]`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := memory.New()
			put(t, s, KeyWallets, tc.wallets)
			put(t, s, KeyTransactions, tc.txs)
			put(t, s, KeyCurrency, "GBP")

			state, report, err := Load(ctx, s, loadTime)
			require.NoError(t, err)
			assert.True(t, report.Corrupt)
			assert.NotEmpty(t, report.Reason)
			assert.Empty(t, state.Wallets)
			assert.Empty(t, state.Transactions)
			assert.Equal(t, "GBP", state.Settings.Currency)

			suffix := ".corrupt-1743580800"
			assert.Equal(t, []string{KeyWallets + suffix, KeyTransactions + suffix}, report.BackupKeys)
			backup, ok, _ := s.Get(ctx, KeyWallets+suffix)
			require.True(t, ok)
			assert.Equal(t, tc.wallets, string(backup))
		})
	}
}

func TestLoadInvalidSettingsUseDefaults(t *testing.T) {
	s := memory.New()
	put(t, s, KeyCurrency, "not-a-currency")
	put(t, s, KeyTheme, `"sepia"`)
	state, report, err := Load(context.Background(), s, loadTime)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultSettings(), state.Settings)
	assert.False(t, report.CurrencyStored)
}

func TestLoadDropsTransactionsOfMissingWallets(t *testing.T) {
	s := memory.New()
	put(t, s, KeyWallets, `[{"id":"w2","name":"Kept","balance":80}]`)
	put(t, s, KeyTransactions, `[{"id":"t1","walletId":"gone","amount":100,"date":"2025-01-01T00:00:00.000Z"},
		{"id":"t2","walletId":"w2","amount":50,"date":"2025-01-02T00:00:00.000Z"}]`)

	state, report, err := Load(context.Background(), s, loadTime)
	require.NoError(t, err)
	assert.False(t, report.Corrupt)
	assert.Equal(t, 1, report.DroppedTransactions)
	assert.Equal(t, 1, report.RecomputedBalances)
	require.Len(t, state.Wallets, 1)
	assert.Equal(t, "50", state.Wallets[0].Balance.String())
	require.Len(t, state.Transactions, 1)
	assert.Equal(t, "t2", state.Transactions[0].ID)
}

// failingStore fails every write when fail is set, and any write that
// touches failKey.
type failingStore struct {
	*memory.Store
	mu      sync.Mutex
	fail    bool
	failKey string
	calls   int
}

func (f *failingStore) shouldFail(keys ...string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.fail || (f.failKey != "" && slices.Contains(keys, f.failKey))
}

func (f *failingStore) setFailKey(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failKey = key
}

func (f *failingStore) Put(ctx context.Context, key string, value []byte) error {
	if f.shouldFail(key) {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, value)
}

func (f *failingStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	if f.shouldFail(slices.Collect(maps.Keys(entries))...) {
		return errors.New("disk full")
	}
	return f.Store.PutMany(ctx, entries)
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, false, errors.New("disk unreadable")
	}
	return f.Store.Get(ctx, key)
}

func TestLoadReturnsStoreErrors(t *testing.T) {
	_, _, err := Load(context.Background(), &failingStore{Store: memory.New(), fail: true}, loadTime)
	require.Error(t, err)
}

func TestWriterCoalescesAndFlushes(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: memory.New()}
	w := NewWriter(fs, 0)

	w.LedgerChanged([]core.Wallet{{ID: "a", Name: "A"}}, nil)
	w.LedgerChanged([]core.Wallet{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}, []core.Transaction{})
	assert.Equal(t, 2, w.Pending())

	require.NoError(t, w.Flush(ctx))
	assert.Equal(t, 0, w.Pending())
	assert.Equal(t, 1, fs.calls, "one atomic write per flush")
	require.NoError(t, w.Flush(ctx))
	assert.Equal(t, 1, fs.calls, "nothing pending, nothing written")

	raw, ok, _ := fs.Get(ctx, KeyWallets)
	require.True(t, ok)
	var got []core.Wallet
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Len(t, got, 2)

	raw, _, _ = fs.Get(ctx, KeyTransactions)
	assert.Equal(t, "[]", string(raw))
}

func TestWriterRequeuesOnFailure(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: memory.New(), fail: true}
	w := NewWriter(fs, 0)

	w.SettingsChanged(core.Settings{Currency: "JPY", Theme: core.ThemeDark})
	require.Error(t, w.Flush(ctx))
	assert.Equal(t, 2, w.Pending())

	fs.mu.Lock()
	fs.fail = false
	fs.mu.Unlock()
	require.NoError(t, w.Flush(ctx))
	raw, _, _ := fs.Get(ctx, KeyCurrency)
	assert.Equal(t, "JPY", string(raw))
}

func TestWriterRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := memory.New()
	w := NewWriter(s, time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.LedgerChanged([]core.Wallet{}, nil)
	require.Eventually(t, func() bool {
		_, ok, _ := s.Get(context.Background(), KeyWallets)
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

// A failed write leaves the previous durable ledger whole: a wallet delete
// whose transactions entry cannot be written must not leave the surviving
// wallets unloadable.
func TestFailedFlushKeepsLastDurableLedger(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: memory.New()}
	w := NewWriter(fs, 0)
	st := ledger.New(ledger.WithSink(w), ledger.WithIDGenerator(ident.NewSequence("f")))

	a, err := st.CreateWallet("A", "bank")
	require.NoError(t, err)
	b, err := st.CreateWallet("B", "cash")
	require.NoError(t, err)
	_, err = st.CreateTransaction(a.ID, core.MustParseAmount("100"), "")
	require.NoError(t, err)
	_, err = st.CreateTransaction(b.ID, core.MustParseAmount("50"), "")
	require.NoError(t, err)
	require.NoError(t, w.Flush(ctx))

	fs.setFailKey(KeyTransactions)
	_, ok := st.DeleteWallet(a.ID)
	require.True(t, ok)
	require.Error(t, w.Flush(ctx))
	assert.Equal(t, 2, w.Pending(), "the whole batch stays queued")

	state, report, err := Load(ctx, fs.Store, loadTime)
	require.NoError(t, err)
	assert.False(t, report.Corrupt)
	assert.Len(t, state.Wallets, 2, "the store still holds the state before the delete")
	assert.Len(t, state.Transactions, 2)

	fs.setFailKey("")
	require.NoError(t, w.Flush(ctx))
	state, report, err = Load(ctx, fs.Store, loadTime)
	require.NoError(t, err)
	assert.False(t, report.Corrupt)
	require.Len(t, state.Wallets, 1)
	assert.Equal(t, b.ID, state.Wallets[0].ID)
	assert.Equal(t, "50", state.Wallets[0].Balance.String())
	require.Len(t, state.Transactions, 1)
}

// A ledger wired to a writer reloads to the same state.
func TestStoreRoundTripThroughWriter(t *testing.T) {
	ctx := context.Background()
	blobs := memory.New()
	w := NewWriter(blobs, 0)
	st := ledger.New(ledger.WithSink(w), ledger.WithIDGenerator(ident.NewSequence("x")))

	cash, err := st.CreateWallet("Cash", "cash")
	require.NoError(t, err)
	_, err = st.CreateTransaction(cash.ID, core.MustParseAmount("40"), "in")
	require.NoError(t, err)
	_, err = st.CreateTransaction(cash.ID, core.MustParseAmount("-15.5"), "out")
	require.NoError(t, err)
	_, err = st.SetCurrency("CHF")
	require.NoError(t, err)
	require.NoError(t, w.Flush(ctx))

	state, report, err := Load(ctx, blobs, loadTime)
	require.NoError(t, err)
	require.False(t, report.Corrupt)
	assert.Equal(t, 0, report.RecomputedBalances)

	restored := ledger.New()
	_, err = restored.Restore(state)
	require.NoError(t, err)
	assertSameJSON(t, st.Wallets(), restored.Wallets())
	assertSameJSON(t, st.Transactions(), restored.Transactions())
	assert.Equal(t, "CHF", restored.Settings().Currency)
}

func TestExportImportRoundTrip(t *testing.T) {
	st := ledger.New(ledger.WithIDGenerator(ident.NewSequence("e")))
	a, _ := st.CreateWallet("A", "bank")
	b, _ := st.CreateWallet("B", "piggy")
	_, _ = st.CreateTransaction(a.ID, core.MustParseAmount("10.01"), "x")
	_, _ = st.CreateTransaction(b.ID, core.MustParseAmount("3"), "")
	_, _ = st.SetCurrency("EUR")

	data, err := MarshalExport(st.ExportSnapshot())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"wallets\": [")

	snap, err := DecodeImport(data)
	require.NoError(t, err)

	other := ledger.New()
	_, err = other.ImportSnapshot(snap)
	require.NoError(t, err)
	assertSameJSON(t, st.Wallets(), other.Wallets())
	assertSameJSON(t, st.Transactions(), other.Transactions())
	assert.Equal(t, "EUR", other.Settings().Currency)
}

func TestDecodeImportRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":             `hello`,
		"array":                `[]`,
		"missing transactions": `{"wallets": []}`,
		"missing wallets":      `{"transactions": []}`,
		"wallets not array":    `{"wallets": {}, "transactions": []}`,
		"null transactions":    `{"wallets": [], "transactions": null}`,
		"bad currency":         `{"wallets": [], "transactions": [], "currency": "ZZZ"}`,
		"currency not string":  `{"wallets": [], "transactions": [], "currency": 3}`,
		"bad wallet entry":     `{"wallets": [1], "transactions": []}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeImport([]byte(doc))
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err), "got %T: %v", err, err)
		})
	}
}

func TestImportMissingTransactionsLeavesStateUnchanged(t *testing.T) {
	st := ledger.New()
	w, _ := st.CreateWallet("Keep", "")
	before := st.Version()

	_, err := DecodeImport([]byte(`{"wallets": [{"id":"z","name":"Z"}]}`))
	require.Error(t, err)

	assert.Equal(t, before, st.Version())
	got, err := st.Wallet(w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Name)
}

func TestExportFilename(t *testing.T) {
	ts := time.Date(2025, 12, 31, 23, 30, 0, 0, time.FixedZone("X", -3*3600))
	assert.Equal(t, "finance-data-2026-01-01.json", ExportFilename(ts))
	assert.True(t, strings.HasPrefix(ExportFilename(time.Now()), "finance-data-"))
}
