package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"appealdesk/appeal"
	"appealdesk/logging"
	"appealdesk/test/actors"
	"appealdesk/test/chaos"
	"appealdesk/test/infra"
	"appealdesk/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 5*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 4, "number of actors per role")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
	flFailRate    = flag.Float64("fail-rate", 0.05, "fraction of slot calls failed by chaos")
	flOrder       = flag.String("order", string(appeal.OrderLatestFirst), "listing order under test")
)

const stressSlotKey = "ActiveAppealsStress"

func TestAppealConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("stress run skipped in -short mode")
	}
	seed := *flSeed
	order, err := appeal.ParseListOrder(*flOrder)
	if err != nil {
		t.Fatalf("order flag: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+2*time.Minute)
	defer cancel()

	h, err := infra.NewHarness(ctx, *flDSN)
	if err != nil {
		t.Fatalf("harness: %v", err)
	}
	defer func() {
		if err := h.Close(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()
	if err := h.Reset(ctx, stressSlotKey); err != nil {
		t.Fatalf("reset: %v", err)
	}
	t.Logf("backend=%s seed=%d concurrency=%d", h.Backend(), seed, *flConcurrency)

	log, err := logging.New("appealdesk-stress", "warn", "text", os.Stderr)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	flaky := chaos.NewFlakyStore(h.Slots(), seed, 3*time.Millisecond, *flFailRate)
	svc := appeal.NewService(appeal.NewRepository(flaky, stressSlotKey, 0)).
		WithListOrder(order).
		WithLogger(log)

	// Oracles read through a clean repository so chaos cannot hide a state.
	cleanRepo := appeal.NewRepository(h.Slots(), stressSlotKey, 0)
	cleanSvc := appeal.NewService(cleanRepo).WithListOrder(order)

	env := actors.Env{Service: svc, Ledger: actors.NewLedger(), Gate: &sync.RWMutex{}}

	g, gctx := errgroup.WithContext(ctx)
	stop := make(chan struct{})
	for i := 0; i < *flConcurrency; i++ {
		base := seed + int64(i)*10
		g.Go(func() error { return actors.Creator(gctx, env, base+1, stop) })
		g.Go(func() error { return actors.Resolver(gctx, env, base+2, stop) })
		g.Go(func() error { return actors.Deleter(gctx, env, base+3, stop) })
		g.Go(func() error { return actors.Lister(gctx, env, order, base+4, stop) })
	}
	if pool := h.Pool(); pool != nil {
		go chaos.TerminateRandomBackend(gctx, pool, infra.ApplicationName, stop)
	}

	check := func(label string) {
		snap, err := snapshot(ctx, env, cleanRepo, cleanSvc, order)
		if err != nil {
			t.Fatalf("%s snapshot: %v", label, err)
		}
		if name, detail := oracles.Run(snap); name != "" {
			close(stop)
			_ = g.Wait()
			t.Fatalf("%s: oracle %s failed: %s (seed=%d)", label, name, detail, seed)
		}
	}

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

loop:
	for time.Now().Before(deadline) {
		select {
		case <-gctx.Done():
			break loop
		case <-ticker.C:
			check("periodic")
		}
	}

	close(stop)
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v (seed=%d)", err, seed)
		}
	}
	check("final")

	counts, failures := env.Ledger.Counts()
	t.Logf("live=%d resolved=%d deleted=%d uncertain=%d failed_calls=%d",
		counts[actors.Live], counts[actors.Resolved], counts[actors.Deleted], counts[actors.Uncertain], failures)
}

// snapshot blocks the actors, then reads the store directly. Reads are retried
// since chaos may have killed the connection underneath.
func snapshot(ctx context.Context, env actors.Env, repo *appeal.Repository, svc *appeal.Service, order appeal.ListOrder) (oracles.Snapshot, error) {
	env.Gate.Lock()
	defer env.Gate.Unlock()

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		stored, err := repo.Load(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		active, err := svc.ListActive(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		return oracles.Snapshot{
			Stored: stored,
			Active: active,
			Order:  order,
			Ledger: env.Ledger.Snapshot(),
		}, nil
	}
	return oracles.Snapshot{}, fmt.Errorf("after retries: %w", lastErr)
}
