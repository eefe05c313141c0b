package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/library-lending/internal/config"
	"github.com/segyhp/library-lending/internal/database"
	"github.com/segyhp/library-lending/internal/handler"
	"github.com/segyhp/library-lending/internal/logger"
	"github.com/segyhp/library-lending/internal/metrics"
	"github.com/segyhp/library-lending/internal/notify"
	"github.com/segyhp/library-lending/internal/repository"
	"github.com/segyhp/library-lending/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to read .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.SetupDefault(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	// Initialize storage
	store, closeStore, err := initStore(ctx, cfg)
	if err != nil {
		appLogger.Error("failed to initialize storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	notifier, err := notify.NewRedisNotifier(redisClient, cfg.Redis.NotificationKey)
	if err != nil {
		appLogger.Error("failed to initialize notifier", "error", err)
		os.Exit(1)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Initialize service
	lendingService := service.NewLendingService(store, notifier, collector, service.PolicyFromConfig(cfg),
		service.WithLogger(appLogger),
	)

	rateLimiter := handler.NewRateLimiter(handler.RateLimiterConfigPerMinute(cfg.RateLimit.RequestsPerMinute))
	defer rateLimiter.Stop()

	healthHandler := handler.NewHealthHandler(cfg.GetHealthTimeout(), map[string]handler.Check{
		"store": lendingService.Ping,
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})

	router := handler.NewRouter(handler.RouterDeps{
		Lending:     handler.NewLendingHandler(lendingService),
		Health:      healthHandler,
		RateLimiter: rateLimiter,
		Metrics:     metrics.Handler(registry),
		Logger:      appLogger,
	})

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("server starting", "addr", server.Addr, "storage", cfg.Storage.Driver, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		return
	}

	appLogger.Info("server exited")
}

// initStore opens the configured storage backend. Postgres schemas are
// migrated before the store is handed out.
func initStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		slog.Warn("using in-memory storage; state is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	if err := database.MigrateUp(cfg.Database.DSN()); err != nil {
		return nil, nil, err
	}

	db, err := initDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresStore(db), func() { db.Close() }, nil
}

func initDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return database.Open(ctx, cfg.Database)
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
