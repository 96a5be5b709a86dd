package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/ares/internal/archive"
	"github.com/rickgao/ares/internal/cache"
	"github.com/rickgao/ares/internal/config"
	"github.com/rickgao/ares/internal/database"
	"github.com/rickgao/ares/internal/marketdata"
	"github.com/rickgao/ares/internal/metrics"
	"github.com/rickgao/ares/internal/poller"
	"github.com/rickgao/ares/internal/server"
	"github.com/rickgao/ares/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/ares.yaml", "path to config file")
	fetchID := flag.String("fetch", "", "fetch one market, print it as JSON and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *fetchID != "" {
		if err := fetchOnce(cfg, *fetchID, logger); err != nil {
			os.Exit(1)
		}
		return
	}

	logger.Info("starting ares",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("ares exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("ares stopped")
}

// fetchOnce fetches a single market and writes it to stdout.
// The client already logs failures.
func fetchOnce(cfg *config.Config, marketID string, logger *slog.Logger) error {
	client := marketdata.NewClient(cfg.Provider.APIKey,
		marketdata.WithBaseURL(cfg.Provider.BaseURL),
		marketdata.WithTimeout(cfg.Provider.Timeout),
		marketdata.WithLogger(logger),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snap, err := client.FetchMarketData(ctx, marketID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// run wires every component and blocks until a shutdown signal arrives.
func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("configuration loaded",
		"base_url", cfg.Provider.BaseURL,
		"api_key_set", cfg.Provider.APIKey != "",
		"cache_backend", cfg.Cache.Backend,
		"read_through", cfg.Cache.ReadThrough,
		"archive_enabled", cfg.Database.Enabled,
		"markets", len(cfg.Poller.Markets),
	)

	store, closeStore, err := newCacheStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.NewMetrics(metrics.DefaultConfig())

	opts := []marketdata.ClientOption{
		marketdata.WithBaseURL(cfg.Provider.BaseURL),
		marketdata.WithTimeout(cfg.Provider.Timeout),
		marketdata.WithLogger(logger),
		marketdata.WithMetrics(m),
		marketdata.WithReadThrough(cfg.Cache.ReadThrough),
	}
	if store != nil {
		opts = append(opts, marketdata.WithCache(store))
	}
	client := marketdata.NewClient(cfg.Provider.APIKey, opts...)

	deps := server.Deps{
		Fetcher:     client,
		Metrics:     m.Handler(),
		MetricsPath: cfg.Server.MetricsPath,
		Cache:       store,
		Logger:      logger,
	}

	var handler poller.SnapshotHandler
	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		logger.Info("database connected")

		writer := archive.NewSnapshotWriter(archive.Config{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
		}, pool, logger)
		if err := writer.Start(ctx); err != nil {
			return fmt.Errorf("start archive: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			writer.Stop(stopCtx)
		}()

		handler = writer
		deps.Database = pool
	}

	var p *poller.Poller
	if len(cfg.Poller.Markets) > 0 {
		p = poller.New(poller.Config{
			Interval:    cfg.Poller.Interval,
			Concurrency: cfg.Poller.Concurrency,
			Timeout:     cfg.Poller.Timeout,
		}, client, poller.StaticMarkets(cfg.Poller.Markets), handler, logger, poller.WithMetrics(m))
		deps.Poller = p
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if p != nil {
		if err := p.Start(ctx); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			p.Stop(stopCtx)
		}()
	}

	logger.Info("ares running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
	)

	// Wait for shutdown
	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		runErr = fmt.Errorf("http server: %w", err)
		cancel()
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	return runErr
}

// newCacheStore builds the configured snapshot cache. A nil store means caching is off.
func newCacheStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, func(), error) {
	switch cfg.Backend {
	case config.CacheBackendMemory:
		return cache.NewMemoryStore(cfg.MaxEntries, cfg.TTL, cfg.CleanupInterval), func() {}, nil
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := cache.NewRedisStore(client, cfg.TTL)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, func() { client.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
