package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"appealdesk/appeal"
	"appealdesk/cache"
	"appealdesk/config"
	"appealdesk/db"
	"appealdesk/logging"
	"appealdesk/metrics"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("APPEALS_CONFIG"), "path to a YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.NewDefault("appealdesk").WithError(err).Fatal("load config")
	}

	log, err := logging.New("appealdesk", cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		logging.NewDefault("appealdesk").WithError(err).Fatal("init logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("appealdesk stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	slots, closeSlots, err := openSlots(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSlots()

	order, err := appeal.ParseListOrder(cfg.ListOrder)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	m := metrics.New("appealdesk")
	repo := appeal.NewRepository(slots, cfg.SlotKey, cfg.SlotTTL)
	svc := appeal.NewService(repo).
		WithIgnoreMissing(cfg.IgnoreMissing).
		WithListOrder(order).
		WithLogger(log.WithField("component", "appeal")).
		WithRecorder(m)

	server := &Server{
		appealService: svc,
		log:           log.WithField("component", "http"),
		metrics:       m,
		location:      loc,
	}
	if cfg.RateLimit > 0 {
		server.limiter = newRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":     cfg.HTTPAddr,
			"backend":  cfg.Backend,
			"slot_key": repo.Key(),
			"slot_ttl": cfg.SlotTTL.String(),
		}).Info("appeal service ready")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	log.Info("appeal service stopped")
	return nil
}

// openSlots builds the configured cache backend and a func releasing it.
func openSlots(ctx context.Context, cfg config.Config) (cache.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendRedis:
		store, err := cache.DialRedis(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		return store, func() { _ = store.Close() }, nil

	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap database pool: %w", err)
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("bootstrap database schema: %w", err)
		}
		return cache.NewPostgres(pool), pool.Close, nil

	default:
		return cache.NewMemory(), func() {}, nil
	}
}
