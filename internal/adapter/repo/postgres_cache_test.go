package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache connects to TEST_DATABASE_URL and starts from an empty table.
func newTestCache(t *testing.T) *PostgresCache {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE cache_entries`)
	require.NoError(t, err)
	return NewPostgresCache(pool)
}

func TestPostgresCache_PutGetRemove(t *testing.T) {
	c := newTestCache(t)

	_, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put("k", []byte("v1"), 0))
	require.NoError(t, c.Put("k", []byte("v2"), 0))
	v, ok, err := c.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", string(v))

	require.NoError(t, c.Remove("k"))
	_, ok, err = c.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresCache_ExpiryAndSnapshot(t *testing.T) {
	c := newTestCache(t)
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put("live", []byte("1"), time.Hour))
	require.NoError(t, c.Put("forever", []byte("2"), 0))
	require.NoError(t, c.Put("stale", []byte("3"), time.Second))

	now = now.Add(time.Minute)

	_, ok, err := c.Get("stale")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ttl, ok, err := c.GetWithTTL("live")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, float64(59*time.Minute), float64(ttl), float64(time.Second))

	_, ttl, ok, err = c.GetWithTTL("forever")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, ttl)

	_, _, ok, err = c.GetWithTTL("stale")
	require.NoError(t, err)
	assert.False(t, ok)

	loaded := map[string]time.Duration{}
	err = c.LoadAll(context.Background(), func(key string, _ []byte, ttl time.Duration) error {
		loaded[key] = ttl
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Zero(t, loaded["forever"])
	assert.InDelta(t, float64(59*time.Minute), float64(loaded["live"]), float64(time.Second))

	n, err := c.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
