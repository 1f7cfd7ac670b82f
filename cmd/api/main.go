package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/escalation-engine/internal/api/http"
	"github.com/spec-kit/escalation-engine/internal/api/http/handlers"
	"github.com/spec-kit/escalation-engine/internal/auth"
	"github.com/spec-kit/escalation-engine/internal/config"
	"github.com/spec-kit/escalation-engine/internal/domain"
	"github.com/spec-kit/escalation-engine/internal/escalation"
	"github.com/spec-kit/escalation-engine/internal/events"
	"github.com/spec-kit/escalation-engine/internal/observability"
	"github.com/spec-kit/escalation-engine/internal/persistence"
	"github.com/spec-kit/escalation-engine/internal/repository"
	"github.com/spec-kit/escalation-engine/internal/service"
	"github.com/spec-kit/escalation-engine/internal/sla"
	"github.com/spec-kit/escalation-engine/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App.Name, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, observability.Component(logger, "postgres"))
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, observability.Component(logger, "redis"))
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(observability.Component(logger, "events"))

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	dependencyRepo := repository.NewTicketDependencyRepository(pool)
	ruleRepo := repository.NewEscalationRuleRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)

	var loadTracker service.AgentLoadTracker = persistence.NewMemoryAgentLoad()
	if redis.Enabled() {
		loadTracker = persistence.NewRedisAgentLoad(redis.Client)
	}
	tiers := persistence.NewTierCache(customerRepo, redis.Client, cfg.Customer.TierCacheTTL(), observability.Component(logger, "tier_cache"))

	calculator := sla.NewCalculator(slaPolicy(cfg.SLA))

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		AgentRepo:     agentRepo,
		TeamRepo:      teamRepo,
		TicketRepo:    ticketRepo,
		LoadTracker:   loadTracker,
		LoadThreshold: cfg.Escalation.AssignmentLoadThreshold,
		Logger:        observability.Component(logger, "assignment"),
	})
	if err := assignmentService.RebuildLoad(ctx); err != nil {
		logger.Fatal("failed to rebuild agent load", zap.Error(err))
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		HistoryRepo:    historyRepo,
		DependencyRepo: dependencyRepo,
		AgentRepo:      agentRepo,
		Assignment:     assignmentService,
		Calculator:     calculator,
		Dispatcher:     dispatcher,
		Logger:         observability.Component(logger, "tickets"),
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Repo:    notificationRepo,
		Metrics: metrics,
		Logger:  observability.Component(logger, "notifications"),
		Config:  cfg.Notification,
	})
	worker.StartNotificationWorker(dispatcher, notificationService, observability.Component(logger, "notification_worker"))

	ruleService := service.NewEscalationRuleService(ruleRepo, observability.Component(logger, "rules"))
	if cfg.Escalation.RulesFile != "" {
		seeds, err := escalation.LoadRulesFile(cfg.Escalation.RulesFile)
		if err != nil {
			logger.Fatal("failed to load escalation rules", zap.String("path", cfg.Escalation.RulesFile), zap.Error(err))
		}
		if err := ruleService.Seed(ctx, seeds); err != nil {
			logger.Fatal("failed to seed escalation rules", zap.Error(err))
		}
	}

	scanService := service.NewScanService(service.ScanDependencies{
		TicketRepo:  ticketRepo,
		RuleRepo:    ruleRepo,
		Tiers:       tiers,
		Lifecycle:   ticketService,
		Assignment:  assignmentService,
		Notifier:    notificationService,
		Calculator:  calculator,
		Metrics:     metrics,
		Logger:      observability.Component(logger, "scan"),
		Concurrency: cfg.Escalation.ScanConcurrency,
	})

	var scanWorker *worker.ScanWorker
	if cfg.Escalation.ScanEnabled {
		scanWorker = worker.NewScanWorker(scanService, cfg.Escalation.ScanInterval(), observability.Component(logger, "scan_worker"))
		if err := scanWorker.Start(); err != nil {
			logger.Fatal("failed to start scan worker", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, observability.Component(logger, "http"), metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:       handlers.NewTicketsHandler(ticketService),
		Notifications: handlers.NewNotificationsHandler(notificationService),
		Rules:         handlers.NewEscalationRulesHandler(ruleService, scanService),
		Actor:         auth.NewActorMiddleware(agentRepo),
		Metrics:       metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if scanWorker != nil {
		if err := scanWorker.Stop(shutdownCtx); err != nil {
			logger.Warn("scan worker did not stop cleanly", zap.Error(err))
		}
	}
	_ = app.ShutdownWithContext(shutdownCtx)
}

func slaPolicy(cfg config.SLAConfig) sla.Policy {
	offsets := map[domain.TicketPriority]time.Duration{
		domain.TicketPriorityHigh:   config.Hours(cfg.HighHours),
		domain.TicketPriorityMedium: config.Hours(cfg.MediumHours),
		domain.TicketPriorityLow:    config.Hours(cfg.LowHours),
	}
	if cfg.UrgentHours > 0 {
		offsets[domain.TicketPriorityUrgent] = config.Hours(cfg.UrgentHours)
	}
	return sla.Policy{Offsets: offsets, AtRiskWindow: config.Hours(cfg.AtRiskHours)}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
