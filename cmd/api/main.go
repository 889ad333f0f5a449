package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/factory-report-service/internal/api/http"
	"github.com/spec-kit/factory-report-service/internal/api/http/handlers"
	"github.com/spec-kit/factory-report-service/internal/auth"
	"github.com/spec-kit/factory-report-service/internal/config"
	"github.com/spec-kit/factory-report-service/internal/events"
	"github.com/spec-kit/factory-report-service/internal/notify"
	"github.com/spec-kit/factory-report-service/internal/observability"
	"github.com/spec-kit/factory-report-service/internal/persistence"
	"github.com/spec-kit/factory-report-service/internal/repository"
	"github.com/spec-kit/factory-report-service/internal/service"
	"github.com/spec-kit/factory-report-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pg *persistence.Postgres
	reportRepo := repository.NewMemoryReportRepository()
	historyRepo := repository.NewMemoryReportHistoryRepository()
	if cfg.Store.Driver == config.StoreDriverPostgres {
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		reportRepo = repository.NewPostgresReportRepository(pg.PoolHandle())
		historyRepo = repository.NewPostgresReportHistoryRepository(pg.PoolHandle())
	}

	var redis *persistence.Redis
	if cfg.Redis.Enabled() {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
	}

	sessionRepo := repository.NewMemorySessionRepository(time.Now)
	if cfg.Auth.SessionStore == config.SessionStoreRedis {
		sessionRepo = repository.NewRedisSessionRepository(redis.Client)
	}

	credentials, err := auth.HashAccounts(auth.DefaultAccounts, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to hash credentials", zap.Error(err))
	}
	tokenMgr := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	dispatcher := events.NewInMemoryDispatcher()
	var publisher notify.WebhookPublisher
	var webhookWorker *worker.WebhookWorker
	if redis != nil && cfg.Notification.WebhookURL != "" {
		publisher = notify.NewRedisPublisher(redis.Client)
		webhookWorker = worker.NewWebhookWorker(redis.Client, logger, cfg.Notification)
	} else if cfg.Notification.WebhookURL != "" {
		logger.Warn("NOTIFY_WEBHOOK_URL set without REDIS_ADDR; webhooks disabled")
	}
	notificationService := service.NewNotificationService(dispatcher, publisher, logger, cfg.Notification)
	workerDone := worker.StartNotificationWorker(ctx, notificationService, webhookWorker)
	historyService := service.NewHistoryService(historyRepo, reportRepo, logger)
	historyService.RegisterHandlers(dispatcher)

	reportDeps := service.ReportDependencies{
		ReportRepo: reportRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	}
	reportService := service.NewReportService(reportDeps)
	lifecycleService := service.NewLifecycleService(reportDeps)
	authService := service.NewAuthService(service.AuthDependencies{
		CredentialRepo: repository.NewStaticCredentialRepository(credentials),
		SessionRepo:    sessionRepo,
		TokenManager:   tokenMgr,
		Logger:         logger,
	})

	if cfg.Store.SeedSampleData {
		if _, err := reportService.SeedSampleReports(ctx); err != nil {
			logger.Fatal("failed to seed sample reports", zap.Error(err))
		}
	}

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(cfg.App.Name, logger)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Store.Driver, pg, redis),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Reports:        handlers.NewReportsHandler(reportService, lifecycleService, historyService),
		AuthMiddleware: auth.NewAuthMiddleware(tokenMgr, sessionRepo),
	})

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("store", cfg.Store.Driver),
			zap.String("sessions", cfg.Auth.SessionStore))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-workerDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
