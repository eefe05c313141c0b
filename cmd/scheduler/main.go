package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/segyhp/library-lending/internal/config"
	"github.com/segyhp/library-lending/internal/database"
	"github.com/segyhp/library-lending/internal/logger"
	"github.com/segyhp/library-lending/internal/notify"
	"github.com/segyhp/library-lending/internal/repository"
	"github.com/segyhp/library-lending/internal/service"
)

// jobTimeout bounds one reminder sweep
const jobTimeout = 10 * time.Minute

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
	appLogger.Info("starting reminder scheduler")

	if cfg.Storage.Driver != config.StorageDriverPostgres {
		appLogger.Error("the scheduler needs the postgres storage driver", "driver", cfg.Storage.Driver)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.Open(ctx, cfg.Database)
	cancel()
	if err != nil {
		appLogger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	notifier, err := notify.NewRedisNotifier(redisClient, cfg.Redis.NotificationKey)
	if err != nil {
		appLogger.Error("failed to initialize notifier", "error", err)
		os.Exit(1)
	}

	lendingService := service.NewLendingService(repository.NewPostgresStore(db), notifier, nil,
		service.PolicyFromConfig(cfg), service.WithLogger(appLogger))
	reminders := service.NewReminderService(lendingService, notifier, nil, appLogger, cfg.Scheduler.ReminderWindowDays)

	// Initialize cron scheduler
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if err := setupCronJobs(c, cfg, reminders, appLogger); err != nil {
		appLogger.Error("failed to schedule jobs", "error", err)
		os.Exit(1)
	}

	c.Start()
	appLogger.Info("scheduler started", "timezone", cfg.Scheduler.Timezone)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down scheduler")
	<-c.Stop().Done()
	appLogger.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, reminders *service.ReminderService, logger *slog.Logger) error {
	// Due date reminders, overdue loans included
	if _, err := c.AddFunc(cfg.Scheduler.DueReminderSpec, func() {
		runJob(logger, "due_date_reminders", reminders.SendDueDateReminders)
	}); err != nil {
		return err
	}

	// Unpaid fine reminders
	if _, err := c.AddFunc(cfg.Scheduler.FineReminderSpec, func() {
		runJob(logger, "fine_reminders", reminders.SendFineReminders)
	}); err != nil {
		return err
	}

	logger.Info("cron jobs scheduled",
		"due_reminder_spec", cfg.Scheduler.DueReminderSpec,
		"fine_reminder_spec", cfg.Scheduler.FineReminderSpec,
	)
	return nil
}

func runJob(logger *slog.Logger, name string, job func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	sent, err := job(ctx)
	if err != nil {
		logger.Error("job failed", "job", name, "error", err)
		return
	}
	logger.Info("job finished", "job", name, "sent", sent, "duration", time.Since(start))
}
