package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-intake/internal/api/http"
	"github.com/spec-kit/ticket-intake/internal/api/http/handlers"
	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/mail"
	"github.com/spec-kit/ticket-intake/internal/mq"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/persistence"
	"github.com/spec-kit/ticket-intake/internal/repository"
	"github.com/spec-kit/ticket-intake/internal/service"
	"github.com/spec-kit/ticket-intake/internal/worker"
)

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

	ticketDB, err := persistence.NewTicketStore(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect ticket store", zap.Error(err))
	}
	defer ticketDB.Close()

	var store repository.TicketRepository
	if pool := ticketDB.Pool(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewTicketRepository(pool)
	} else {
		store = repository.NewTicketRepository(nil)
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	store = repository.NewCachedTicketRepository(store, redis.UniversalClient(), cfg.Redis.ListTTL(), logger)

	if !cfg.Mail.Enabled() {
		logger.Warn("EMAIL_USER/EMAIL_PASS not provided; ticket notifications will fail")
	}
	notifications := service.NewNotificationService(mail.NewSMTPMailer(cfg.Mail), logger)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	if cfg.Events.AMQPURL != "" {
		publisher, err := mq.NewRabbitPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable; ticket events not relayed", zap.Error(err))
		} else {
			defer publisher.Close() //nolint:errcheck
			relay := worker.StartEventRelay(dispatcher, publisher, logger)
			defer relay.Close()
		}
	}

	submissions := service.NewSubmissionService(service.SubmissionDependencies{
		Validator:     service.NewIntakeValidator(cfg.Intake),
		TicketRepo:    store,
		Notifier:      notifications,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
		StoreTimeout:  cfg.Postgres.StoreTimeout(),
		NotifyTimeout: cfg.Mail.Timeout(),
	})

	dependencies := map[string]handlers.Pinger{"postgres": ticketDB}
	if redis.Enabled() {
		dependencies["redis"] = redis
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.CORSAllowOrigins)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Tickets: handlers.NewTicketsHandler(submissions),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
