package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xanderle/aiboard/internal/generator"
	"github.com/xanderle/aiboard/internal/heat"
	"github.com/xanderle/aiboard/internal/notify"
	"github.com/xanderle/aiboard/internal/provider"
	"github.com/xanderle/aiboard/internal/scheduler"
	"github.com/xanderle/aiboard/internal/server"
	"github.com/xanderle/aiboard/internal/storage"
	"github.com/xanderle/aiboard/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the content provider and generator
	contentProvider := provider.NewOpenAIProvider(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		logger,
	)
	gen := generator.New(contentProvider, store, generator.Config{
		CallDelay: cfg.Generation.CallDelay,
	}, logger)

	// Initialize the heat calculator
	heatSvc := heat.NewService(store, logger)

	// Optional Telegram ops notifier
	var notifier scheduler.Notifier
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Error("Failed to create telegram notifier, continuing without it", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	// Scheduler with the five community jobs
	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal("Failed to load timezone", zap.Error(err), zap.String("timezone", cfg.Scheduler.Timezone))
	}
	sched := scheduler.New(location, notifier, logger)
	scheduler.RegisterCommunityJobs(sched, gen, heatSvc, store, scheduler.Config{
		GenerationHour: cfg.Scheduler.GenerationHour,
		DecayHour:      cfg.Scheduler.DecayHour,
	}, logger)
	sched.Start()

	// Boundary HTTP API
	srv := server.New(store, heatSvc, cfg.Server.RequestsPerMinute, logger)
	go func() {
		if err := srv.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()
	logger.Info("aiboard started", zap.Int("port", cfg.Server.Port))

	waitForShutdown(logger)

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", zap.Error(err))
	}
	logger.Info("aiboard stopped")
}

func waitForShutdown(logger *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
}
