// Package main provides the standalone entry point for the opioid rotation
// MCP server. It needs no external services: results are cached in memory
// and clinician feedback is kept in SQLite under the data directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opioid-rotation-mcp-server/internal/cache"
	"github.com/opioid-rotation-mcp-server/internal/config"
	"github.com/opioid-rotation-mcp-server/internal/feedback"
	"github.com/opioid-rotation-mcp-server/internal/health"
	"github.com/opioid-rotation-mcp-server/internal/mcp"
	"github.com/opioid-rotation-mcp-server/internal/service"
	"github.com/opioid-rotation-mcp-server/internal/setup"
)

var version = "v0.1.0"

func main() {
	cfg := config.LoadLiteConfig()

	rootCmd := &cobra.Command{
		Use:          "mcp-server-lite",
		Short:        "Opioid rotation MCP server (standalone)",
		SilenceUsage: true,
		Version:      version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}
	rootCmd.AddCommand(setup.NewCommand(cfg.DataDir))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.LiteConfig) error {
	logger, err := config.NewLogger(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := feedback.NewSQLiteStore(cfg.FeedbackDBPath())
	if err != nil {
		return fmt.Errorf("failed to open feedback store: %w", err)
	}
	defer store.Close()

	resultCache := cache.New(cfg.CacheConfig(), logger)
	if resultCache != nil {
		defer resultCache.Close()
	}

	checker := health.NewChecker(health.Config{Version: version, Timeout: 5 * time.Second}, logger)
	checker.Register(health.TablesCheck{})
	checker.Register(health.NewPingCheck("feedback_store", store, time.Second))
	if resultCache != nil {
		checker.Register(health.NewCacheCheck(resultCache))
	}

	server, err := mcp.NewServer(mcp.Options{
		Version:       version,
		Calculator:    service.NewCalculatorService(logger, resultCache, cfg.CalculatorConfig()),
		FeedbackStore: store,
		Health:        checker,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"transport": cfg.Transport,
		"data_dir":  cfg.DataDir,
	}).Info("Starting opioid rotation MCP server (lite)")

	if err := server.Run(ctx, cfg.Transport, "", cfg.HTTPPort); err != nil {
		logger.WithError(err).Error("MCP server failed")
		return err
	}
	logger.Info("MCP server stopped")
	return nil
}
