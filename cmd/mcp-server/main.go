// Package main runs the MCP server with the layered viper configuration and
// either feedback backend.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opioid-rotation-mcp-server/internal/cache"
	"github.com/opioid-rotation-mcp-server/internal/config"
	"github.com/opioid-rotation-mcp-server/internal/database"
	"github.com/opioid-rotation-mcp-server/internal/health"
	"github.com/opioid-rotation-mcp-server/internal/mcp"
	"github.com/opioid-rotation-mcp-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := database.OpenFeedbackStore(ctx, cfg.Feedback, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}
	defer closeStore()

	resultCache := cache.New(cfg.Cache, logger)
	if resultCache != nil {
		defer resultCache.Close()
	}

	checker := health.NewChecker(health.Config{
		Version:       cfg.MCP.ServerVersion,
		Timeout:       5 * time.Second,
		CheckInterval: time.Minute,
	}, logger)
	checker.Register(health.TablesCheck{})
	checker.Register(health.NewPingCheck("feedback_store", store, time.Second))
	if resultCache != nil {
		checker.Register(health.NewCacheCheck(resultCache))
	}
	checker.Start(ctx)
	defer checker.Stop()

	server, err := mcp.NewServer(mcp.Options{
		Name:          cfg.MCP.ServerName,
		Version:       cfg.MCP.ServerVersion,
		Calculator:    service.NewCalculatorService(logger, resultCache, cfg.Calculator),
		FeedbackStore: store,
		Health:        checker,
		Logger:        logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	logger.WithFields(logrus.Fields{
		"transport":       cfg.MCP.TransportType,
		"feedback_driver": cfg.Feedback.Driver,
	}).Info("Starting opioid rotation MCP server")

	if err := server.Run(ctx, cfg.MCP.TransportType, cfg.MCP.HTTPHost, cfg.MCP.HTTPPort); err != nil {
		logger.WithError(err).Error("MCP server failed")
		os.Exit(1)
	}
	logger.Info("MCP server stopped")
}
