package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	apistorage "github.com/cuongbtq/property-be/internal/api/storage"
	"github.com/cuongbtq/property-be/internal/config"
	"github.com/cuongbtq/property-be/internal/mail"
	"github.com/cuongbtq/property-be/internal/queue"
	queuestorage "github.com/cuongbtq/property-be/internal/queue/storage"
	"github.com/cuongbtq/property-be/internal/worker"
	"github.com/cuongbtq/property-be/shared/logger"
	"github.com/cuongbtq/property-be/shared/postgresql"
	"github.com/cuongbtq/property-be/shared/rabbitmq"
	"github.com/cuongbtq/property-be/shared/scheduler"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	workerID := cfg.Worker.ID
	if workerID == "" {
		hostname, _ := os.Hostname()
		workerID = fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("worker_id", workerID),
	)

	dbClient, err := postgresql.NewClient(cfg.Database.PostgresConfig(), appLogger.Component("postgresql"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	var wakeups worker.WakeupSource
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQ.ClientConfig(), appLogger.Component("rabbitmq"))
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		wakeups = rabbitClient
		appLogger.Info("RabbitMQ connection established")
	}

	registry, err := initRegistry(cfg, dbClient, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to register job handlers: %w", err)
	}

	events := queue.MultiSink{queue.NewLogSink(appLogger.Component("queue")), queue.MetricsSink{}}

	prefetch := cfg.RabbitMQ.Consumer.PrefetchCount
	workerInstance, err := worker.NewWorker(&worker.Config{
		Logger:       appLogger.Component("worker"),
		Store:        queuestorage.NewStorage(dbClient.GetDB()),
		Registry:     registry,
		Events:       events,
		Wakeups:      wakeups,
		WorkerID:     workerID,
		Queues:       cfg.Worker.Queues,
		Concurrency:  cfg.Worker.Concurrency,
		PollInterval: cfg.Worker.PollInterval,
		Prefetch:     prefetch,
	})
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	sched := scheduler.New(appLogger.Component("scheduler"), cfg.Worker.LeaseSweepInterval)
	if err := sched.AddIntervalTask("sweep-expired-leases", cfg.Worker.LeaseSweepInterval, workerInstance.SweepExpiredLeases); err != nil {
		return fmt.Errorf("failed to schedule lease sweep: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerInstance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	sched.Start()

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	appLogger.Info("Received signal, shutting down gracefully",
		slog.String("signal", sig.String()),
	)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	sched.Stop(shutdownCtx)

	// In-flight jobs keep their context until they settle; Stop waits for them
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}
	cancel()

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initRegistry binds every job kind the worker can run to its handler
func initRegistry(cfg *config.Config, dbClient *postgresql.Client, log *slog.Logger) (*worker.Registry, error) {
	mailCfg := cfg.Mail.SenderConfig()
	sender := mail.NewSender(&mailCfg, log)
	templates := mail.NewTemplateService(mailCfg.TemplateDir, log)
	properties := apistorage.NewStorage(dbClient.GetDB())

	registry := worker.NewRegistry()

	if err := registry.Register(mail.KindPropertyCreated,
		mail.NewPropertyCreatedHandler(properties, sender, templates, mailCfg.ReleaseDelay, log)); err != nil {
		return nil, err
	}

	if err := registry.Register(mail.KindSendEmail,
		mail.NewGenericEmailHandler(sender, mailCfg.ReleaseDelay, log)); err != nil {
		return nil, err
	}

	return registry, nil
}
