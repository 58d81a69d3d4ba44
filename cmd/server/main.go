package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"transit-map-service/internal/adapters/cache"
	"transit-map-service/internal/adapters/directions"
	"transit-map-service/internal/adapters/repositories"
	"transit-map-service/internal/api"
	"transit-map-service/internal/config"
	"transit-map-service/internal/platform/db"
	"transit-map-service/internal/platform/logging"
	"transit-map-service/internal/ports"
	"transit-map-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (SQL store, directions provider, path caches)
// behind ports and starts the HTTP server.
func main() {
	foundEnv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.Init(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if !foundEnv {
		log.Info("no .env file found (using environment variables)")
	}

	if err := run(cfg, log); err != nil {
		log.Error(err, "server stopped")
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialect, err := repositories.ParseDialect(cfg.DBDriver)
	if err != nil {
		return err
	}

	conn, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Local SQLite runs get their schema and demo data on startup.
	if dialect == repositories.DialectSQLite {
		if err := initAndSeed(ctx, conn, dialect, cfg.SeedPath, log); err != nil {
			return err
		}
	}

	pathCache, closeCache, err := buildPathCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	repo := repositories.NewSQLRouteRepository(conn, dialect)
	resolver := services.NewPathResolver(provider, pathCache, services.PathResolverOptions{
		MaxStopovers: cfg.MaxStopovers,
		FallbackTTL:  cfg.PathFallbackTTL,
	})
	liveMap := services.NewLiveMap(
		services.NewRouteAggregator(repo),
		resolver,
		services.NewSnapper(cfg.SnapThresholdDegrees),
	)

	router := api.NewRouter(api.Deps{Map: liveMap, Positions: repo, DB: conn})

	// Write timeout covers a cold snapshot that resolves every route through
	// the directions provider.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "db", cfg.DBDriver, "directions", cfg.DirectionsProvider)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func initAndSeed(ctx context.Context, conn *sql.DB, dialect repositories.Dialect, seedPath string, log logging.Logger) error {
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if seedPath == "" {
		return nil
	}
	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		log.Warn("seed file not found, starting with existing data", "path", seedPath)
		return nil
	}

	if err := repositories.SeedFromYAML(ctx, conn, dialect, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	log.Info("database seeded", "path", seedPath)
	return nil
}

// buildPathCache returns the in-process LRU, fronting Redis when REDIS_URL
// is set.
func buildPathCache(ctx context.Context, cfg *config.Config, log logging.Logger) (ports.PathCache, func(), error) {
	local, err := cache.NewMemoryPathCache(cfg.PathCacheSize)
	if err != nil {
		return nil, nil, err
	}
	if cfg.RedisURL == "" {
		return local, func() {}, nil
	}

	client, err := cache.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	log.Info("shared path cache enabled", "backend", "redis")

	return cache.NewTieredPathCache(local, cache.NewRedisPathCache(client)), func() { _ = client.Close() }, nil
}

func buildProvider(cfg *config.Config) (ports.DirectionsProvider, error) {
	switch cfg.DirectionsProvider {
	case "ors":
		return directions.NewORSDirectionsProvider(directions.ORSOptions{
			APIKey:  cfg.ORSAPIKey,
			Profile: cfg.ORSProfile,
			Timeout: cfg.DirectionsTimeout,
		})
	case "google":
		return directions.NewGoogleDirectionsProvider(directions.GoogleOptions{
			APIKey:  cfg.GoogleMapsAPIKey,
			Timeout: cfg.DirectionsTimeout,
		})
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown directions provider %q", cfg.DirectionsProvider)
}
