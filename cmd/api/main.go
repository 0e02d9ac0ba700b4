package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/ai"
	httptransport "github.com/spec-kit/ticket-triage/internal/api/http"
	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
	"github.com/spec-kit/ticket-triage/internal/auth"
	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/helpdesk"
	"github.com/spec-kit/ticket-triage/internal/knowledge"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/persistence"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/service"
	"github.com/spec-kit/ticket-triage/internal/triage"
	"github.com/spec-kit/ticket-triage/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	embedder, err := ai.NewEmbedder(cfg.Embedding, logger)
	if err != nil {
		logger.Warn("embedding backend unavailable; continuing keyword-only", zap.Error(err))
		embedder = nil
	}

	store, err := knowledge.Load(ctx, cfg.Knowledge.DocsDir, embedder, logger)
	if err != nil {
		logger.Fatal("failed to load knowledge base", zap.Error(err))
	}

	classifier := triage.NewClassifier(cfg.Triage)
	retriever := triage.NewRetriever(store, embedder, cfg.Triage.RelevanceThreshold, logger)
	helpdeskClient := helpdesk.NewClient(cfg.Helpdesk, logger)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	triageService := service.NewTriageService(cfg.Triage, service.TriageDependencies{
		Classifier:  classifier,
		Retriever:   retriever,
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Helpdesk:    helpdeskClient,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	queue := worker.NewQueue(redis.Client, cfg.Worker.QueueKey, logger)
	worker.StartTriageWorkers(ctx, queue, triageService, cfg.Worker.Concurrency, logger)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, helpdeskClient),
		Webhook:        handlers.NewWebhookHandler(queue, cfg.Helpdesk.WebhookSecret, logger),
		Admin:          handlers.NewAdminHandler(triageService, tokenManager, cfg.Auth),
		Demo:           handlers.NewDemoHandler(classifier, retriever),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
