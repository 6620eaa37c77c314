package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ikjoobang/xivix-ai-core-sub000/cmd/mainconfig"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/app/bootstrap"
	appconfig "github.com/ikjoobang/xivix-ai-core-sub000/internal/config"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/reminders"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/stores"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting reminder worker", "env", cfg.Env, "interval", cfg.ReminderPollInterval.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("reminder worker failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		return errors.New("postgres is required (DATABASE_URL)")
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsHandler, workerMetrics := bootstrap.SetupMetrics()
	if addr := cfg.WorkerMetricsAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: metricsHandler, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	loc := bootstrap.LoadLocation(cfg.ReminderTimezone, logger)
	storeCache := stores.NewCachedRepository(stores.NewRepository(pool), redisClient, cfg.StoreCacheTTL, logger)

	sesClient, err := mainconfig.NewSESClient(ctx, cfg)
	if err != nil {
		return err
	}

	worker := reminders.NewWorker(reminders.WorkerConfig{
		Store:        reminders.NewStore(pool),
		Messenger:    bootstrap.BuildTalkTalkAdapter(cfg, nil, storeCache, logger, workerMetrics),
		Stores:       storeCache,
		Notifier:     bootstrap.BuildNotifier(cfg, sesClient, loc, logger),
		Location:     loc,
		MaxAttempts:  cfg.ReminderMaxAttempts,
		PollInterval: cfg.ReminderPollInterval,
		Logger:       logger.Component("reminders"),
		Metrics:      workerMetrics,
	})
	return worker.Run(ctx)
}
