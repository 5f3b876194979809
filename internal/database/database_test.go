package database

import (
	"context"
	"path/filepath"
	"testing"

	"faction-intel/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "roster:5", `{"faction_id":5}`))
	v, ok, err := kv.Get(ctx, "roster:5")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"faction_id":5}`, v)

	require.NoError(t, kv.Set(ctx, "roster:5", `{"faction_id":6}`))
	v, _, err = kv.Get(ctx, "roster:5")
	require.NoError(t, err)
	assert.Equal(t, `{"faction_id":6}`, v, "set overwrites")

	require.NoError(t, kv.Delete(ctx, "roster:5"))
	_, ok, err = kv.Get(ctx, "roster:5")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Delete(ctx, "never-set"))
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemory()
	exerciseKV(t, kv)

	require.NoError(t, kv.Close())
	_, _, err := kv.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, kv.Set(context.Background(), "x", "y"), ErrClosed)
}

func TestSQLiteKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intel.db")
	kv, err := NewSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	exerciseKV(t, kv)

	// values survive a reopen
	require.NoError(t, kv.Set(context.Background(), "setting:selected_team", "faction:5"))
	require.NoError(t, kv.Close())

	reopened, err := NewSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(context.Background(), "setting:selected_team")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "faction:5", v)
}

func TestLevelDBKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leveldb")
	kv, err := NewLevelDB(path, zerolog.Nop())
	require.NoError(t, err)
	exerciseKV(t, kv)

	require.NoError(t, kv.Close())
	_, _, err = kv.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewSelectsDriver(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDriver = config.DriverMemory
	kv, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	cfg.StoreDriver = config.DriverSQLite
	cfg.DBPath = filepath.Join(t.TempDir(), "intel.db")
	kv, err = New(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteKV{}, kv)
	require.NoError(t, kv.Close())

	cfg.StoreDriver = "etcd"
	_, err = New(cfg, zerolog.Nop())
	assert.Error(t, err)
}
