package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool used by the Postgres backend.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres keeps slots in the cache_slots table created by db.Migrate.
// Expired rows are filtered on read and overwritten on the next Set.
type Postgres struct {
	db  Querier
	now func() time.Time
}

var _ Store = (*Postgres)(nil)

// NewPostgres wires a pgxpool-backed slot store.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db, now: time.Now}
}

// WithClock overrides the clock used to compute and check expiry.
func (p *Postgres) WithClock(now func() time.Time) *Postgres {
	p.now = now
	return p
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `
		SELECT value
		FROM cache_slots
		WHERE key = $1
		  AND (expires_at IS NULL OR expires_at > $2)
	`

	var value []byte
	if err := p.db.QueryRow(ctx, query, key, p.now().UTC()).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache: postgres get %s: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const query = `
		INSERT INTO cache_slots (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()
	`

	var expiresAt *time.Time
	if ttl > 0 {
		at := p.now().UTC().Add(ttl)
		expiresAt = &at
	}

	if _, err := p.db.Exec(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("cache: postgres set %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM cache_slots WHERE key = $1`, key); err != nil {
		return fmt.Errorf("cache: postgres delete %s: %w", key, err)
	}
	return nil
}
