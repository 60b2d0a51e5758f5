package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{StorageBackend: "memory", SeedDir: "seed"})
	require.NoError(t, err)
	assert.Equal(t, Config{Type: MemoryBackend, SeedDir: "seed"}, cfg)

	_, err = FromAppConfig(&config.Config{StorageBackend: "postgres"})
	assert.Error(t, err)
	_, err = FromAppConfig(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.Error(t, Config{Type: SQLiteBackend}.Validate())
	assert.NoError(t, Config{Type: MemoryBackend}.Validate())
	assert.Error(t, Config{Type: "redis"}.Validate())
}

func TestOpenMemorySeeded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "finance-manager-wallets.json"), []byte(`[]`), 0o644))

	res, err := Open(Config{Type: MemoryBackend, SeedDir: dir}, nil)
	require.NoError(t, err)
	defer res.Close()

	assert.Nil(t, res.SQLite)
	assert.NoError(t, res.Ping(context.Background()))
	data, ok, err := res.Store.Get(context.Background(), "finance-manager-wallets")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(data))
}

func TestOpenSQLite(t *testing.T) {
	res, err := Open(Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "db", "ledger.db")}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.SQLite)
	assert.NoError(t, res.Ping(context.Background()))
	require.NoError(t, res.Store.Put(context.Background(), "k", []byte("v")))
	assert.NoError(t, res.Close())
}

func TestTypes(t *testing.T) {
	for _, typ := range Types() {
		assert.True(t, typ.IsValid(), typ.String())
	}
	assert.False(t, Type("postgres").IsValid())
}
