package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/sjperalta/fintera-cashflow/internal/config"
	"github.com/sjperalta/fintera-cashflow/internal/database"
	"github.com/sjperalta/fintera-cashflow/internal/events"
	"github.com/sjperalta/fintera-cashflow/internal/handlers"
	"github.com/sjperalta/fintera-cashflow/internal/jobs"
	"github.com/sjperalta/fintera-cashflow/internal/middleware"
	"github.com/sjperalta/fintera-cashflow/internal/repository"
	"github.com/sjperalta/fintera-cashflow/internal/repository/memory"
	"github.com/sjperalta/fintera-cashflow/internal/services"
	"github.com/sjperalta/fintera-cashflow/internal/storage"
	"github.com/sjperalta/fintera-cashflow/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	repos, err := openRepositories(cfg)
	if err != nil {
		logger.Error("Failed to open ledger store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	// Initialize storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized local storage", "path", cfg.StoragePath)

	publisher, err := events.Open(cfg.EventsBroker, events.Options{
		KafkaBrokers: cfg.KafkaBrokers,
		KafkaTopic:   cfg.KafkaTopic,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
	})
	if err != nil {
		logger.Error("Failed to open event publisher", "broker", cfg.EventsBroker, "error", err)
		os.Exit(1)
	}
	logger.Info("Event publisher ready", "broker", cfg.EventsBroker)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	svcs := services.NewServices(repos, worker, store, publisher, cfg)
	scheduleJobs(worker, svcs, cfg)

	router := setupRouter(handlers.NewHandlers(svcs), cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Pending events are delivered before the publisher closes
	worker.Shutdown()
	logger.Info("Background worker stopped")

	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close event publisher", "error", err)
	}

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func openRepositories(cfg *config.Config) (*repository.Repositories, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using in-memory ledger store; data is lost on restart")
		return &repository.Repositories{Ledger: memory.NewStore(), Audit: memory.NewAuditLog()}, nil
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return repository.NewRepositories(db), nil
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	handlers.RegisterRoutes(router, h, cfg.JWTSecret)
	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	worker.ScheduleEvery("overdue digest", cfg.OverdueCheckInterval, func(ctx context.Context) error {
		logger.Info("[Job] Publishing overdue digests...")
		return svcs.Overdue.Run(ctx)
	})

	logger.Info("Scheduled recurring jobs", "overdue_interval", cfg.OverdueCheckInterval.String())
}
