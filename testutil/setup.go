package testutil

import (
	"context"
	"testing"

	"github.com/duskhollow/server/cache"
	"github.com/duskhollow/server/config"
	dbadapter "github.com/duskhollow/server/db"
	"github.com/duskhollow/server/store"
	"github.com/stretchr/testify/require"
)

// SetupTestDB opens a private in-memory SQLite store with all tables
// migrated. It requires no external services and is safe to use in
// parallel tests.
func SetupTestDB(t *testing.T) store.Store {
	t.Helper()
	st, err := dbadapter.Open(context.Background(), config.DatabaseConfig{
		Mode: dbadapter.ModeSQLiteMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{} // empty RedisAddr → LocalCache
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}
