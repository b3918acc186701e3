package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"appealdesk/db"
)

// TestRedis_Integration runs against a live server when REDIS_ADDR is set.
func TestRedis_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is empty; set it to a live Redis to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := DialRedis(ctx, RedisOptions{Addr: addr, Prefix: fmt.Sprintf("appealdesk-test-%d:", time.Now().UnixNano())})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, ctx, store)
}

// TestPostgres_Integration runs against a live database when DATABASE_URL is set.
func TestPostgres_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, dsn, db.PoolOptions{})
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, db.Migrate(ctx, pool))

	exerciseStore(t, ctx, NewPostgres(pool))
}

func exerciseStore(t *testing.T, ctx context.Context, store Store) {
	t.Helper()

	key := fmt.Sprintf("slot-%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = store.Delete(context.Background(), key) })

	_, err := store.Get(ctx, key)
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, store.Set(ctx, key, []byte(`[]`), 0))
	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, `[]`, string(got))

	require.NoError(t, store.Set(ctx, key, []byte(`[{"id":"a"}]`), time.Hour))
	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, `[{"id":"a"}]`, string(got))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	require.ErrorIs(t, err, ErrMiss)
}
