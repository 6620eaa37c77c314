package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ikjoobang/xivix-ai-core-sub000/cmd/mainconfig"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/api/router"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/app/bootstrap"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/archive"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/auth"
	appconfig "github.com/ikjoobang/xivix-ai-core-sub000/internal/config"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/customers"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/ratelimit"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/reminders"
	"github.com/ikjoobang/xivix-ai-core-sub000/internal/stores"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting xivix API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("api server failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AdminJWTSecret == "" {
		return errors.New("ADMIN_JWT_SECRET is required")
	}

	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		return errors.New("postgres is required (DATABASE_URL)")
	}
	defer pool.Close()

	sqlDB, err := bootstrap.OpenSQL(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		return errors.New("redis is required (REDIS_ADDR)")
	}
	defer redisClient.Close()

	metricsHandler, convMetrics := bootstrap.SetupMetrics()
	limiter := ratelimit.New(redisClient)
	loc := bootstrap.LoadLocation(cfg.ReminderTimezone, logger)

	// Stores
	storeCache := stores.NewCachedRepository(stores.NewRepository(pool), redisClient, cfg.StoreCacheTTL, logger)

	// Admin auth
	authService := auth.NewService(
		auth.NewRepository(pool),
		auth.NewLockout(redisClient, cfg.LoginMaxFailures, cfg.LoginLockDuration),
		redisClient,
		auth.Config{Secret: cfg.AdminJWTSecret, SessionTTL: cfg.SessionTTL},
		logger,
	)

	// Conversation pipeline
	clients, err := bootstrap.BuildLLMClients(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if !clients.Configured() {
		logger.Warn("no LLM credentials configured; customers will get the not-configured reply")
	}
	classifier, err := bootstrap.LoadClassifier(cfg.KeywordsFile)
	if err != nil {
		return err
	}
	logStore := conversation.NewLogStore(sqlDB)
	convService, contexts, err := bootstrap.BuildConversationService(cfg, bootstrap.ConversationDeps{
		Router:  bootstrap.BuildRouter(cfg, clients, classifier, logger, convMetrics),
		Redis:   redisClient,
		Stores:  storeCache,
		Limiter: limiter,
		Logs:    logStore,
		Logger:  logger,
		Metrics: convMetrics,
	})
	if err != nil {
		return err
	}

	// TalkTalk channel
	adapter := bootstrap.BuildTalkTalkAdapter(cfg, convService, storeCache, logger, convMetrics)

	// Customers
	customerRepo := customers.NewRepository(sqlDB)
	customersHandler := customers.NewHandler(customerRepo, customers.NewImporter(customerRepo, loc, logger), logger)

	// Archive (Cloudflare R2)
	r2Client, err := mainconfig.NewR2Client(ctx, cfg)
	if err != nil {
		return err
	}
	var objectStore *archive.Store
	if r2Client != nil {
		objectStore = archive.NewStore(r2Client, cfg.R2Bucket, cfg.R2PublicBaseURL, logger.Component("archive"))
	} else {
		logger.Warn("R2 not configured; uploads and archival disabled")
		objectStore = archive.NewStore(nil, "", "", logger)
	}
	archiveHandler := archive.NewHandler(objectStore, archive.NewArchiver(objectStore, logStore, logger), logger)

	// Reservations and owner emails
	sesClient, err := mainconfig.NewSESClient(ctx, cfg)
	if err != nil {
		return err
	}
	notifier := bootstrap.BuildNotifier(cfg, sesClient, loc, logger)
	reminderStore := reminders.NewStore(pool)
	scheduler := reminders.NewScheduler(reminders.SchedulerConfig{
		Store:     reminderStore,
		Stores:    storeCache,
		Notifier:  notifier,
		LeadTimes: cfg.ReminderLeadTimes,
		Location:  loc,
		Logger:    logger.Component("reminders"),
	})

	handler := router.New(&router.Config{
		Logger:              logger,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		HealthCheck:         healthCheck(pool, redisClient),
		TalkTalk:            adapter,
		Sessions:            authService,
		Limiter:             limiter,
		RateLimitMax:        cfg.AdminRateLimitMax,
		RateLimitWindow:     cfg.RateLimitWindow,
		AuthHandler:         auth.NewHandler(authService, logger),
		StoresHandler:       stores.NewHandler(storeCache, logger),
		ConversationHandler: conversation.NewHandler(convService, contexts, logStore, logger),
		CustomersHandler:    customersHandler,
		RemindersHandler:    reminders.NewHandler(reminderStore, scheduler, logger),
		ArchiveHandler:      archiveHandler,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// healthCheck pings Postgres and Redis.
func healthCheck(pool *pgxpool.Pool, redisClient *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
