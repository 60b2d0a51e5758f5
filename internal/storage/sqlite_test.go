package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteStoreKV(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, ok, err := s.Get(ctx, "finance-manager-wallets")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "b", []byte(`"one"`)))
	require.NoError(t, s.Put(ctx, "a", []byte(`[]`)))
	require.NoError(t, s.Put(ctx, "b", []byte(`"two"`)))

	v, ok, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"two"`, string(v))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)
}

func TestSQLiteStoreEvents(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, rec := range []EventRecord{
		{Type: "wallet.created", WalletID: "w1", OccurredAt: base},
		{Type: "transaction.created", WalletID: "w1", TransactionID: "t1", Amount: "10", Balance: "10", OccurredAt: base.Add(time.Minute)},
		{Type: "wallet.created", WalletID: "w2", OccurredAt: base.Add(2 * time.Minute)},
	} {
		id, err := s.AppendEvent(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), id)
	}

	all, err := s.ListEvents(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "transaction.created", all[1].Type)
	assert.Equal(t, "10", all[1].Amount)
	assert.True(t, all[1].OccurredAt.Equal(base.Add(time.Minute)))
	assert.False(t, all[0].ReceivedAt.IsZero())

	w1, err := s.ListEvents(ctx, EventFilter{WalletID: "w1"})
	require.NoError(t, err)
	assert.Len(t, w1, 2)

	recent, err := s.ListEvents(ctx, EventFilter{Since: base.Add(time.Minute), Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "t1", recent[0].TransactionID)
}

func TestSQLiteStorePutMany(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Put(ctx, "wallets", []byte(`[1]`)))

	require.NoError(t, s.PutMany(ctx, map[string][]byte{
		"wallets":      []byte(`[]`),
		"transactions": []byte(`[]`),
	}))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"transactions", "wallets"}, keys)
	v, _, err := s.Get(ctx, "wallets")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))

	require.NoError(t, s.PutMany(ctx, nil))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, s.PutMany(cancelled, map[string][]byte{"wallets": []byte(`[2]`), "other": []byte(`x`)}))
	v, _, err = s.Get(ctx, "wallets")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v), "a failed batch writes nothing")
	_, ok, err := s.Get(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}
