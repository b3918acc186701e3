package chaos

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"appealdesk/cache"
)

// ErrInjected is returned by FlakyStore instead of reaching the wrapped store.
var ErrInjected = errors.New("chaos: injected failure")

// FlakyStore wraps a slot cache with random latency and failures. An injected
// failure never reaches the wrapped store, so a failed Set writes nothing.
type FlakyStore struct {
	inner    cache.Store
	maxDelay time.Duration
	failRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewFlakyStore(inner cache.Store, seed int64, maxDelay time.Duration, failRate float64) *FlakyStore {
	return &FlakyStore{
		inner:    inner,
		maxDelay: maxDelay,
		failRate: failRate,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (f *FlakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.disturb(ctx); err != nil {
		return nil, err
	}
	return f.inner.Get(ctx, key)
}

func (f *FlakyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := f.disturb(ctx); err != nil {
		return err
	}
	return f.inner.Set(ctx, key, value, ttl)
}

func (f *FlakyStore) Delete(ctx context.Context, key string) error {
	if err := f.disturb(ctx); err != nil {
		return err
	}
	return f.inner.Delete(ctx, key)
}

func (f *FlakyStore) disturb(ctx context.Context) error {
	f.mu.Lock()
	var delay time.Duration
	if f.maxDelay > 0 {
		delay = time.Duration(f.rng.Int63n(int64(f.maxDelay)))
	}
	fail := f.rng.Float64() < f.failRate
	f.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if fail {
		return ErrInjected
	}
	return nil
}

// TerminateRandomBackend now and then kills one Postgres backend opened under
// the given application name.
func TerminateRandomBackend(ctx context.Context, pool *pgxpool.Pool, applicationName string, stop <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if rand.Intn(3) == 0 {
				_, _ = pool.Exec(ctx, `SELECT pg_terminate_backend(pid) FROM pg_stat_activity
                                       WHERE application_name = $1 AND pid <> pg_backend_pid()
                                       ORDER BY random() LIMIT 1`, applicationName)
			}
		}
	}
}
