package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-triage/internal/api/http"
	"github.com/spec-kit/helpdesk-triage/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-triage/internal/config"
	"github.com/spec-kit/helpdesk-triage/internal/domain"
	"github.com/spec-kit/helpdesk-triage/internal/events"
	"github.com/spec-kit/helpdesk-triage/internal/observability"
	"github.com/spec-kit/helpdesk-triage/internal/persistence"
	"github.com/spec-kit/helpdesk-triage/internal/repository"
	"github.com/spec-kit/helpdesk-triage/internal/repository/memory"
	"github.com/spec-kit/helpdesk-triage/internal/service"
	"github.com/spec-kit/helpdesk-triage/internal/triage"
	"github.com/spec-kit/helpdesk-triage/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	defaults := domain.TriageSettings{
		AutoCloseEnabled:    cfg.Triage.DefaultAutoCloseEnabled,
		ConfidenceThreshold: cfg.Triage.DefaultConfidenceThreshold,
		SLAHours:            cfg.Triage.DefaultSLAHours,
	}
	var repos repository.Repositories
	if pg.Enabled() {
		repos = repository.NewPostgresRepositories(pg.Pool, defaults)
	} else {
		repos = memory.NewStore(defaults).Repositories()
	}
	repos.Settings = repository.NewCachedSettingsRepository(repos.Settings, redis.Client, cfg.Triage.SettingsCacheTTL(), logger)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	orchestrator := triage.NewPipeline(repos, triage.PipelineConfig{
		Logger:       logger,
		Metrics:      metrics,
		Tracer:       observability.NewTracer(),
		StageTimeout: cfg.Triage.StageTimeout(),
	})

	dispatcher := events.NewInMemoryDispatcher()
	pool := worker.NewPool(orchestrator, worker.PoolConfig{
		Workers:   cfg.Triage.Workers,
		QueueSize: cfg.Triage.QueueSize,
	}, dispatcher, logger, metrics)
	pool.Start(ctx)

	var enqueuer service.Enqueuer = pool
	if cfg.Triage.UseStream {
		if !redis.Enabled() {
			logger.Fatal("TRIAGE_USE_STREAM requires a reachable redis")
		}
		enqueuer = worker.NewStreamProducer(redis.Client, cfg.Triage.Stream, logger)
		consumer, err := worker.NewStreamConsumer(ctx, redis.Client, worker.StreamConfig{
			Stream:      cfg.Triage.Stream,
			Group:       cfg.Triage.ConsumerGroup,
			Consumer:    cfg.Triage.ConsumerName,
			DLQStream:   cfg.Triage.DeadLetterStream,
			MaxAttempts: cfg.Triage.StreamMaxAttempts,
		}, pool, logger)
		if err != nil {
			logger.Fatal("failed to start stream consumer", zap.Error(err))
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error("stream consumer stopped", zap.Error(err))
			}
		}()
	}

	notifications := service.NewNotificationService(dispatcher, enqueuer, logger, cfg.Notify)
	worker.StartNotificationWorker(ctx, notifications, pool.Errors())

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repos.Tickets,
		AuditRepo:  repos.Audit,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	agentService := service.NewAgentService(pool, repos.Suggestions, repos.Articles)
	settingsService := service.NewSettingsService(repos.Settings)
	articleService := service.NewArticleService(repos.Articles)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets:  handlers.NewTicketsHandler(ticketService),
		Agent:    handlers.NewAgentHandler(agentService),
		Config:   handlers.NewConfigHandler(settingsService),
		Articles: handlers.NewArticlesHandler(articleService),
		Gatherer: prometheus.DefaultGatherer,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		logger.Warn("triage pool shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
