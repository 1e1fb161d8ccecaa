package stores

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskbook/internal/core/kv"
	"github.com/colonyops/taskbook/internal/data/db"
)

func newTestKVStore(t *testing.T) *KVStore {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewKVStore(database)
}

// runConformance exercises the kv.Store contract against any backend.
// Keys are derived from prefix so a shared server can be used.
func runConformance(t *testing.T, store kv.Store, prefix string) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, prefix+"a", []byte(`{"x":1}`)))

		got, err := store.Get(ctx, prefix+"a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"x":1}`, string(got))
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"missing")
		assert.ErrorIs(t, err, kv.ErrNotFound)
		assert.True(t, kv.IsNotFound(err))
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, prefix+"b", []byte("first")))
		require.NoError(t, store.Set(ctx, prefix+"b", []byte("second")))

		got, err := store.Get(ctx, prefix+"b")
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, prefix+"c", []byte("v")))
		require.NoError(t, store.Delete(ctx, prefix+"c"))

		_, err := store.Get(ctx, prefix+"c")
		assert.ErrorIs(t, err, kv.ErrNotFound)

		assert.NoError(t, store.Delete(ctx, prefix+"c"), "deleting a missing key is not an error")
	})

	t.Run("list keys by prefix", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, prefix+"list_z", []byte("1")))
		require.NoError(t, store.Set(ctx, prefix+"list_m", []byte("2")))
		require.NoError(t, store.Set(ctx, prefix+"other", []byte("3")))

		keys, err := store.ListKeys(ctx, prefix+"list_")
		require.NoError(t, err)
		assert.Equal(t, []string{prefix + "list_m", prefix + "list_z"}, keys)
	})

	t.Run("list keys treats pattern characters literally", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, prefix+"pct%_1", []byte("1")))
		require.NoError(t, store.Set(ctx, prefix+"pctX_2", []byte("2")))

		keys, err := store.ListKeys(ctx, prefix+"pct%")
		require.NoError(t, err)
		assert.Equal(t, []string{prefix + "pct%_1"}, keys)
	})
}

func TestKVStore(t *testing.T) {
	runConformance(t, newTestKVStore(t), "")
}

func TestKVStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	require.NoError(t, NewKVStore(database).Set(ctx, "app_tasks", []byte("[]")))
	require.NoError(t, database.Close())

	database, err = db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	got, err := NewKVStore(database).Get(ctx, "app_tasks")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestMemoryStore(t *testing.T) {
	runConformance(t, NewMemoryStore(), "")
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TASKBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TASKBOOK_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	store, err := OpenRedisStore(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	prefix := "taskbook_test_" + t.Name() + "_"
	t.Cleanup(func() {
		keys, _ := store.ListKeys(ctx, prefix)
		for _, k := range keys {
			_ = store.Delete(ctx, k)
		}
	})

	runConformance(t, store, prefix)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)
	err := store.Set(context.Background(), "k", []byte("v"))
	assert.Error(t, err)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `app_`, escapeGlob("app_"))
	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
}

func TestRecoverFromCorruption(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, db.FileName)
	require.NoError(t, os.WriteFile(dbPath, []byte("not a database"), 0o600))
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("wal"), 0o600))

	backup, err := RecoverFromCorruption(dir)
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "original file should be moved aside")
	_, err = os.Stat(backup)
	assert.NoError(t, err)
	_, err = os.Stat(backup + "-wal")
	assert.NoError(t, err)

	database, err := db.Open(dir, db.DefaultOpenOptions())
	require.NoError(t, err)
	_ = database.Close()
}

func TestIsCorruptionError(t *testing.T) {
	assert.False(t, IsCorruptionError(nil))
	assert.False(t, IsCorruptionError(assert.AnError))
	assert.True(t, IsCorruptionError(errString("database disk image is malformed")))
}

type errString string

func (e errString) Error() string { return string(e) }
