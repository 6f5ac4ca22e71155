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

	"github.com/cuongbtq/clipsight-be/internal/api/handler"
	"github.com/cuongbtq/clipsight-be/internal/api/router"
	"github.com/cuongbtq/clipsight-be/internal/config"
	"github.com/cuongbtq/clipsight-be/internal/jobs"
	"github.com/cuongbtq/clipsight-be/internal/media"
	"github.com/cuongbtq/clipsight-be/internal/notify"
	"github.com/cuongbtq/clipsight-be/internal/pipeline"
	"github.com/cuongbtq/clipsight-be/internal/service"
	"github.com/cuongbtq/clipsight-be/shared/logger"
	"github.com/cuongbtq/clipsight-be/shared/postgresql"
	"github.com/cuongbtq/clipsight-be/shared/rabbitmq"
	"github.com/cuongbtq/clipsight-be/shared/redisclient"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
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

	// Parse command-line flags
	defaultConfigPath := os.Getenv("CLIPSIGHT_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("store_backend", cfg.Store.Backend),
	)

	// Initialize job store
	store, closeStore, err := initStore(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize job store: %w", err)
	}
	defer closeStore()

	// Initialize optional job event publisher
	var notifier pipeline.Notifier
	var rabbitClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = rabbitmq.NewClient(&rabbitmq.Config{
			Host:          cfg.RabbitMQ.Host,
			Port:          cfg.RabbitMQ.Port,
			User:          cfg.RabbitMQ.User,
			Password:      cfg.RabbitMQ.Password,
			VHost:         cfg.RabbitMQ.VHost,
			Exchange:      cfg.RabbitMQ.Exchange,
			RoutingKey:    cfg.RabbitMQ.RoutingKey,
			RetryAttempts: cfg.RabbitMQ.RetryAttempts,
			RetryInterval: cfg.RabbitMQ.RetryInterval,
		}, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		notifier = notify.NewPublisher(rabbitClient, appLogger.Logger)
	}

	// Initialize pipeline stages
	stages, err := initStages(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline stages: %w", err)
	}

	executor := pipeline.NewExecutor(&pipeline.Config{
		Store:              store,
		Stages:             stages,
		Logger:             appLogger.Logger,
		Notifier:           notifier,
		StatusWriteRetries: cfg.Pipeline.StatusWriteRetries,
		StatusRetryDelay:   cfg.Pipeline.StatusRetryDelay,
	})

	submitter := service.NewSubmitter(store, executor, appLogger.Logger)
	query := service.NewQuery(store, appLogger.Logger)

	// Initialize router
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := router.SetupRouter(&handler.Dependencies{
		Logger:       appLogger.Logger,
		Submitter:    submitter,
		Query:        query,
		StoreBackend: cfg.Store.Backend,
	})

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	// Drain in-flight pipelines up to the shutdown deadline
	drained := make(chan struct{})
	go func() {
		executor.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		appLogger.Info("All in-flight jobs finished")
	case <-ctx.Done():
		appLogger.Warn("Shutdown deadline reached with jobs still in flight")
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initStore builds the configured job store backend and returns a close
// function for its underlying connection.
func initStore(cfg *config.Config, logger *slog.Logger) (jobs.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := redisclient.NewClient(&redisclient.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		store := jobs.NewRedisStore(client.Get(), cfg.Store.TTL, logger)
		return store, func() { client.Close() }, nil

	case config.BackendPostgres:
		client, err := postgresql.NewClient(&postgresql.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		store := jobs.NewPostgresStore(client.GetDB(), logger)
		if err := store.EnsureSchema(context.Background()); err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil

	default:
		return jobs.NewMemoryStore(), func() {}, nil
	}
}

// initStages builds the ordered stage sequence from configured collaborators.
func initStages(cfg *config.Config, logger *slog.Logger) ([]pipeline.Stage, error) {
	downloader, err := media.NewDownloader(cfg.Pipeline.YtdlpPath, cfg.Pipeline.VideoOutputDir, logger)
	if err != nil {
		return nil, err
	}

	transcriber := media.NewTranscriber(cfg.Pipeline.Transcriber.URL, cfg.Pipeline.Transcriber.Timeout, logger)
	ocr := media.NewOCRClient(cfg.Pipeline.OCR.URL, cfg.Pipeline.OCR.Timeout, logger)
	if ocr == nil {
		logger.Warn("OCR url not set - text extraction will be skipped")
	}

	apiKey := cfg.Pipeline.Summarizer.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	summarizer, err := media.NewSummarizer(&media.SummarizerConfig{
		APIKey:  apiKey,
		BaseURL: cfg.Pipeline.Summarizer.BaseURL,
		Model:   cfg.Pipeline.Summarizer.Model,
		Timeout: cfg.Pipeline.Summarizer.Timeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	return []pipeline.Stage{
		&media.FetchStage{Downloader: downloader},
		&media.TranscribeStage{Transcriber: transcriber},
		&media.ExtractTextStage{OCR: ocr, Logger: logger},
		&media.SummarizeStage{Summarizer: summarizer},
	}, nil
}
