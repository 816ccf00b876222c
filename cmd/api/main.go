package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/leadflowhq/outreach-engine/internal/config"
	"github.com/leadflowhq/outreach-engine/internal/domain"
	"github.com/leadflowhq/outreach-engine/internal/handler"
	"github.com/leadflowhq/outreach-engine/internal/infra/postgresql"
	"github.com/leadflowhq/outreach-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/leadflowhq/outreach-engine/internal/infra/redis"
	"github.com/leadflowhq/outreach-engine/internal/observability"
	"github.com/leadflowhq/outreach-engine/internal/queue"
	"github.com/leadflowhq/outreach-engine/internal/repository"
	"github.com/leadflowhq/outreach-engine/internal/sender"
	"github.com/leadflowhq/outreach-engine/internal/service"
	"github.com/leadflowhq/outreach-engine/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("outreach-engine exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}

	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	defer rabbit.Close()

	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, 1, logger)

	rateLimiter, err := infraredis.NewRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		return fmt.Errorf("rate limiter initialization failed: %w", err)
	}
	lease, err := infraredis.NewSweepLease(rdb, 0)
	if err != nil {
		return fmt.Errorf("sweep lease initialization failed: %w", err)
	}

	router, err := buildSenderRouter(cfg)
	if err != nil {
		return fmt.Errorf("sender initialization failed: %w", err)
	}

	leadRepo := repository.NewGormLeadRepo(db)
	sequenceRepo := repository.NewGormSequenceRepo(db)
	enrollmentRepo := repository.NewGormEnrollmentRepo(db)
	templateRepo := repository.NewGormTemplateRepo(db)
	contactLogRepo := repository.NewGormContactLogRepo(db)
	jobRepo := repository.NewGormBulkJobRepo(db)

	metrics := observability.NewMetrics()

	scoring, err := service.NewScoringService(leadRepo, logger)
	if err != nil {
		return err
	}

	leadService, err := service.NewLeadService(leadRepo, enrollmentRepo, contactLogRepo, templateRepo, scoring, logger)
	if err != nil {
		return err
	}

	templateService, err := service.NewTemplateService(templateRepo)
	if err != nil {
		return err
	}

	selector, err := service.NewTemplateSelector(templateRepo, cfg.SelectorMinSamples)
	if err != nil {
		return err
	}

	decayService, err := service.NewDecayService(
		leadRepo,
		lease,
		cfg.StalenessWindow(),
		cfg.DecayDecrement,
		cfg.DecaySweepInterval(),
		logger,
	)
	if err != nil {
		return err
	}
	decayService.SetMetrics(metrics)

	sequenceService, err := service.NewSequenceService(service.SequenceServiceParams{
		Sequences:     sequenceRepo,
		Enrollments:   enrollmentRepo,
		Leads:         leadRepo,
		Templates:     templateRepo,
		ContactLogs:   contactLogRepo,
		Scoring:       scoring,
		Sender:        router,
		RateLimiter:   rateLimiter,
		Lease:         lease,
		Logger:        logger,
		SweepInterval: cfg.SequenceSweepInterval(),
		SweepLimit:    cfg.SequenceSweepLimit,
		MaxAttempts:   cfg.MaxStepSendAttempts,
		SendWait:      cfg.RateLimitWait(),
	})
	if err != nil {
		return err
	}
	sequenceService.SetMetrics(metrics)

	dispatchService, err := service.NewDispatchService(jobRepo, templateRepo, sequenceRepo, publisher, logger)
	if err != nil {
		return err
	}

	jobWorker, err := service.NewJobWorkerService(service.JobWorkerParams{
		Jobs:        jobRepo,
		Leads:       leadRepo,
		Templates:   templateRepo,
		Enrollments: enrollmentRepo,
		Sequences:   sequenceService,
		Selector:    selector,
		Scoring:     scoring,
		Consumer:    consumer,
		Sender:      router,
		ContactLogs: contactLogRepo,
		RateLimiter: rateLimiter,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		BatchSize:   cfg.DispatchBatchSize,
		BatchPause:  cfg.BatchPause(),
		SendWait:    cfg.RateLimitWait(),
	})
	if err != nil {
		return err
	}
	jobWorker.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "outreach-engine",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterLeadRoutes(app, leadService); err != nil {
		return err
	}
	if err := handler.RegisterTemplateRoutes(app, templateService); err != nil {
		return err
	}
	if err := handler.RegisterSequenceRoutes(app, sequenceService); err != nil {
		return err
	}
	if err := handler.RegisterDispatchRoutes(app, dispatchService); err != nil {
		return err
	}
	if err := handler.RegisterSweepRoutes(app, decayService, sequenceService); err != nil {
		return err
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("outreach-engine api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down api server")
		return app.Shutdown()
	})

	g.Go(func() error {
		return jobWorker.Start(groupCtx)
	})

	g.Go(func() error {
		return decayService.Start(groupCtx)
	})

	g.Go(func() error {
		return sequenceService.Start(groupCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("outreach-engine stopped")
	return nil
}

// buildSenderRouter wires one sender per configured channel. Unconfigured
// channels stay unrouted and fail sends with a permanent error.
func buildSenderRouter(cfg *config.Config) (*sender.Router, error) {
	senders := make(map[domain.Channel]sender.Sender)

	if cfg.WhatsAppGatewayURL != "" {
		s, err := sender.NewGatewaySender(cfg.WhatsAppGatewayURL)
		if err != nil {
			return nil, err
		}
		senders[domain.ChannelWhatsApp] = s
	}
	if cfg.SMSGatewayURL != "" {
		s, err := sender.NewGatewaySender(cfg.SMSGatewayURL)
		if err != nil {
			return nil, err
		}
		senders[domain.ChannelSMS] = s
	}
	if cfg.SMTPHost != "" {
		s, err := sender.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPSender)
		if err != nil {
			return nil, err
		}
		senders[domain.ChannelEmail] = s
	}

	return sender.NewRouter(senders)
}
