package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/wzatco/helpdesk-sla/internal/api/http"
	"github.com/wzatco/helpdesk-sla/internal/api/http/handlers"
	"github.com/wzatco/helpdesk-sla/internal/auth"
	"github.com/wzatco/helpdesk-sla/internal/config"
	"github.com/wzatco/helpdesk-sla/internal/events"
	"github.com/wzatco/helpdesk-sla/internal/notify"
	"github.com/wzatco/helpdesk-sla/internal/observability"
	"github.com/wzatco/helpdesk-sla/internal/persistence"
	"github.com/wzatco/helpdesk-sla/internal/repository"
	"github.com/wzatco/helpdesk-sla/internal/service"
	"github.com/wzatco/helpdesk-sla/internal/worker"
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

	pool := pg.PoolHandle()
	ticketStore := repository.NewTicketStore(pool)
	policyRepo := repository.NewPolicyRepository(pool)
	timerRepo := repository.NewTimerRepository(pool)
	breachRepo := repository.NewBreachRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	policyService := service.NewPolicyService(service.PolicyDependencies{
		PolicyRepo: policyRepo,
		TimerRepo:  timerRepo,
		Logger:     logger,
	})

	escalationService := service.NewEscalationService(service.EscalationDependencies{
		EscalationRepo: escalationRepo,
		Dedup:          persistence.NewEscalationDedup(redis, cfg.SLA.EscalationDedupWindow(), logger),
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
	})

	engine := service.NewTimerEngine(service.EngineDependencies{
		TicketStore: ticketStore,
		TimerRepo:   timerRepo,
		BreachRepo:  breachRepo,
		Policies:    policyService,
		Escalations: escalationService,
		Dispatcher:  dispatcher,
		ViewCache:   persistence.NewTimerViewCache(redis, cfg.SLA.TimerViewCacheTTL()),
		Logger:      logger,
		Metrics:     metrics,
	})

	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Notifier:   notify.NewLogNotifier(logger),
		Webhooks:   notify.NewHTTPWebhookDispatcher(cfg.Notification.WebhookURL, cfg.Notification.DispatchTimeout(), logger),
		Tickets:    ticketStore,
		Logger:     logger,
		Timeout:    cfg.Notification.DispatchTimeout(),
	})
	worker.StartNotificationWorker(notificationService)

	sweeper := worker.NewSweepWorker(engine, cfg.SLA.SweepInterval(), logger)
	go sweeper.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(auth.NewTokenVerifier(cfg.Auth.JWTSecret))

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Policies:       handlers.NewPoliciesHandler(policyService),
		SLA:            handlers.NewSLAHandler(engine),
		Lifecycle:      handlers.NewLifecycleHandler(engine),
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
