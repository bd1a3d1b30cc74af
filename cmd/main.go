package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cuerank/internal/adapters/http/api"
	"github.com/okian/cuerank/internal/adapters/http/swagger"
	"github.com/okian/cuerank/internal/adapters/lock"
	"github.com/okian/cuerank/internal/adapters/repository"
	"github.com/okian/cuerank/internal/adapters/repository/migrations"
	app "github.com/okian/cuerank/internal/app"
	"github.com/okian/cuerank/internal/config"
	"github.com/okian/cuerank/internal/domain/tiers"
	"github.com/okian/cuerank/pkg/logger"
	"github.com/okian/cuerank/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 35 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	backendConnectTimeout = 10 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "cuerank exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("reinitialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts, cleanup, err := serviceOptions(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := app.New(opts...)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	var apiOpts []api.Option
	if cfg.RateLimitRPS > 0 {
		rl := api.NewRateLimiter(api.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		})
		defer rl.Stop()
		apiOpts = append(apiOpts, api.WithRateLimiter(rl))
	}

	router := chi.NewRouter()
	api.NewServer(svc, apiOpts...).Register(router)
	swagger.Register(router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// serviceOptions builds the service options for cfg and connects the
// configured backends. cleanup releases whatever the service does not own.
func serviceOptions(ctx context.Context, cfg *config.Config, log logger.Logger) ([]app.Option, func(), error) {
	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMaxStandingsLimit(cfg.MaxStandingsLimit),
		app.WithRecomputeTimeout(cfg.RecomputeTimeout()),
		app.WithWeights(cfg.Recommend),
	}
	cleanup := func() {}

	if cfg.TierTableFile != "" {
		table, err := tiers.Load(cfg.TierTableFile)
		if err != nil {
			return nil, cleanup, err
		}
		log.Info(ctx, "loaded tier table", logger.String("file", cfg.TierTableFile), logger.String("version", table.Version))
		opts = append(opts, app.WithTierTable(table))
	}

	connectCtx, cancel := context.WithTimeout(ctx, backendConnectTimeout)
	defer cancel()

	switch cfg.Store {
	case config.StorePostgres:
		db, err := repository.OpenPostgres(connectCtx, cfg.PostgresDSN)
		if err != nil {
			return nil, cleanup, err
		}
		group, err := migrations.Up(connectCtx, db)
		if err != nil {
			_ = db.Close()
			return nil, cleanup, err
		}
		log.Info(ctx, "using postgres store", logger.String("migrated", group.String()))
		opts = append(opts, app.WithStore(repository.NewPostgresStore(db)))
	default:
		opts = append(opts, app.WithStore(repository.NewMemoryStore(ctx)))
	}

	if cfg.Lock == config.LockRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(connectCtx).Err(); err != nil {
			_ = client.Close()
			return nil, cleanup, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		log.Info(ctx, "using redis lock", logger.String("addr", cfg.RedisAddr))
		opts = append(opts, app.WithLocker(lock.NewRedis(client,
			lock.WithTTL(cfg.LockTTL()),
			lock.WithLogger(log.Named("lock")),
		)))
		cleanup = func() { _ = client.Close() }
	}
	return opts, cleanup, nil
}

// startSystemMetricsUpdater refreshes the process gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}
