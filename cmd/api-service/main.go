package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cuongbtq/property-be/internal/api/handler"
	"github.com/cuongbtq/property-be/internal/api/router"
	apistorage "github.com/cuongbtq/property-be/internal/api/storage"
	"github.com/cuongbtq/property-be/internal/config"
	"github.com/cuongbtq/property-be/internal/mail"
	"github.com/cuongbtq/property-be/internal/property"
	"github.com/cuongbtq/property-be/internal/queue"
	"github.com/cuongbtq/property-be/internal/queue/reporter"
	queuestorage "github.com/cuongbtq/property-be/internal/queue/storage"
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

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := postgresql.NewClient(cfg.Database.PostgresConfig(), appLogger.Component("postgresql"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	if cfg.Database.MigrationsPath != "" {
		if err := dbClient.Migrate(cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	appLogger.Info("Database connection established")

	// Wake-ups are optional; workers fall back to polling without them
	var publisher queue.WakeupPublisher
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQ.ClientConfig(), appLogger.Component("rabbitmq"))
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		publisher = rabbitClient
		appLogger.Info("RabbitMQ connection established")
	}

	events := queue.MultiSink{queue.NewLogSink(appLogger.Component("queue")), queue.MetricsSink{}}
	jobStore := queuestorage.NewStorage(dbClient.GetDB())
	producer := queue.NewProducer(jobStore, publisher, events)
	queueReporter := reporter.NewReporter(jobStore, cfg.Queue.ReporterConfig(), events)

	mailCfg := cfg.Mail.SenderConfig()
	sender := mail.NewSender(&mailCfg, appLogger.Logger)
	templates := mail.NewTemplateService(mailCfg.TemplateDir, appLogger.Logger)
	emailService := mail.NewEmailService(producer, sender, templates, cfg.Queue.RetryPolicy(), appLogger.Logger)

	properties := property.NewService(apistorage.NewStorage(dbClient.GetDB()), emailService, appLogger.Logger)

	sched := scheduler.New(appLogger.Component("scheduler"), 30*time.Second)
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		gauges := reporter.NewGauges(queueReporter, prometheus.DefaultRegisterer)
		interval := cfg.Metrics.RefreshInterval
		if interval <= 0 {
			interval = 15 * time.Second
		}
		if err := sched.AddIntervalTask("refresh-queue-gauges", interval, gauges.Refresh); err != nil {
			return fmt.Errorf("failed to schedule gauge refresh: %w", err)
		}
		metricsHandler = promhttp.Handler()
	}
	sched.Start()

	r := initRouter(cfg, &handler.Dependencies{
		Logger:      appLogger.Logger,
		DB:          dbClient,
		Properties:  properties,
		Mailer:      emailService,
		Reporter:    queueReporter,
		FailedJobs:  jobStore,
		Metrics:     metricsHandler,
		ServiceName: cfg.App.Name,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
		slog.String("mail_sender", sender.Name()),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		appLogger.Error("Server failed to start",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	sched.Stop(ctx)

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter sets the gin mode from the environment and builds the router
func initRouter(cfg *config.Config, deps *handler.Dependencies) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
