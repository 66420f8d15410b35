package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"problem-relay/config"
	"problem-relay/database"
	"problem-relay/llmclient"
	"problem-relay/metrics"
	"problem-relay/web"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.APIKey == "" {
		logger.Warn("YUN_API_KEY is not set, completion requests will fail")
	}

	store, err := database.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open session store",
			zap.String("backend", cfg.SessionBackend),
			zap.Error(err))
	}
	defer store.Close()

	llm := llmclient.New(cfg, logger)
	prom := metrics.NewProm("relay")

	cleanupService := web.NewCleanupService(store, logger)
	go web.StartSessionCleanup(ctx, cfg, cleanupService, logger)

	webServer, err := web.NewServer(cfg, logger, store, llm, prom)
	if err != nil {
		logger.Fatal("Failed to initialize web server", zap.Error(err))
	}

	port := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting problem relay server",
		zap.String("port", port),
		zap.String("model", cfg.DefaultModel),
		zap.String("session_backend", cfg.SessionBackend))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
