package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appealdesk/cache"
	"appealdesk/db"
)

// ApplicationName tags every pooled connection so chaos can find them.
const ApplicationName = "appealdesk-stress"

// Harness owns the slot backend used by a stress run. With no Postgres
// reachable it falls back to the in-process memory cache.
type Harness struct {
	backend   string
	slots     cache.Store
	pool      *pgxpool.Pool
	container *PGContainer
	teardown  func(context.Context) error
}

// NewHarness picks a Postgres source in order: explicit DSN, the shared DSN
// variable, a docker container, a local server. Shared databases get an
// isolated schema that is dropped on Close.
func NewHarness(ctx context.Context, dsnOverride string) (*Harness, error) {
	h := &Harness{teardown: func(context.Context) error { return nil }}

	var (
		dsn     string
		isolate bool
		err     error
	)
	switch {
	case sharedDSN(dsnOverride) != "":
		dsn, isolate = sharedDSN(dsnOverride), true
	case DockerAvailable(ctx):
		h.container, dsn, err = StartPostgres16(ctx)
		if err != nil {
			return nil, fmt.Errorf("infra: start postgres: %w", err)
		}
	default:
		dsn, err = InitLocalDatabase(ctx)
		if errors.Is(err, errNoLocalPostgres) {
			h.backend = "memory"
			h.slots = cache.NewMemory()
			return h, nil
		}
		if err != nil {
			return nil, err
		}
	}

	pool, teardown, err := openMigrated(ctx, dsn, isolate)
	if err != nil {
		_ = h.container.Terminate(context.Background())
		return nil, err
	}
	h.backend = "postgres"
	h.pool = pool
	h.teardown = teardown
	h.slots = cache.NewPostgres(pool)
	return h, nil
}

// Backend names the slot backend in use: "postgres" or "memory".
func (h *Harness) Backend() string { return h.backend }

// Slots exposes the raw slot cache, without any chaos wrapping.
func (h *Harness) Slots() cache.Store { return h.slots }

// Pool is nil for the memory backend.
func (h *Harness) Pool() *pgxpool.Pool { return h.pool }

// Reset drops the slot so a run starts from an empty collection.
func (h *Harness) Reset(ctx context.Context, key string) error {
	if err := h.slots.Delete(ctx, key); err != nil {
		return fmt.Errorf("infra: reset %s: %w", key, err)
	}
	return nil
}

// Close tears down resources.
func (h *Harness) Close(ctx context.Context) error {
	if h.pool != nil {
		h.pool.Close()
	}
	err := h.teardown(ctx)
	if termErr := h.container.Terminate(ctx); termErr != nil && err == nil {
		err = termErr
	}
	return err
}

// openMigrated builds a pool tuned for contention and applies the embedded
// migrations. When isolate is set, a per-run schema is created and the
// returned teardown drops it.
func openMigrated(ctx context.Context, dsn string, isolate bool) (*pgxpool.Pool, func(context.Context) error, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("infra: parse pool config: %w", err)
	}
	cfg.MaxConns = 32
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	teardown := func(context.Context) error { return nil }
	if isolate {
		schema := fmt.Sprintf("appeals_stress_%d", time.Now().UnixNano())
		ident := pgx.Identifier{schema}.Sanitize()

		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("infra: connect for schema: %w", err)
		}
		_, err = conn.Exec(ctx, "CREATE SCHEMA "+ident)
		conn.Close(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("infra: create schema %s: %w", schema, err)
		}

		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+ident)
			return err
		}
		teardown = func(ctx context.Context) error {
			dropConn, err := pgx.Connect(ctx, dsn)
			if err != nil {
				return err
			}
			defer dropConn.Close(ctx)
			_, err = dropConn.Exec(ctx, "DROP SCHEMA IF EXISTS "+ident+" CASCADE")
			return err
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		_ = teardown(ctx)
		return nil, nil, fmt.Errorf("infra: connect pool: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		_ = teardown(ctx)
		return nil, nil, err
	}
	return pool, teardown, nil
}
