// Package main runs the REST API with the MCP streamable HTTP endpoint
// mounted at /mcp, and manages the PostgreSQL feedback schema.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opioid-rotation-mcp-server/internal/api"
	"github.com/opioid-rotation-mcp-server/internal/cache"
	"github.com/opioid-rotation-mcp-server/internal/config"
	"github.com/opioid-rotation-mcp-server/internal/database"
	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/health"
	"github.com/opioid-rotation-mcp-server/internal/mcp"
	"github.com/opioid-rotation-mcp-server/internal/metrics"
	"github.com/opioid-rotation-mcp-server/internal/service"
)

func main() {
	var configDir string

	rootCmd := &cobra.Command{
		Use:          "opioid-server",
		Short:        "Opioid rotation calculator API server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory containing config.yaml")

	rootCmd.AddCommand(serveCmd(&configDir))
	rootCmd.AddCommand(migrateCmd(&configDir))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(configDir string) (*config.Manager, error) {
	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	manager, err := config.NewManager(paths...)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return manager, nil
}

func serveCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			return serve(manager)
		},
	}
}

func serve(manager *config.Manager) error {
	cfg := manager.GetConfig()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := database.OpenFeedbackStore(ctx, cfg.Feedback, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	resultCache := cache.New(cfg.Cache, logger)
	if resultCache != nil {
		defer resultCache.Close()
	}

	checker := health.NewChecker(health.Config{
		Version:       cfg.MCP.ServerVersion,
		Timeout:       5 * time.Second,
		CheckInterval: 30 * time.Second,
	}, logger)
	checker.Register(health.TablesCheck{})
	checker.Register(health.NewPingCheck("feedback_store", store, time.Second))
	if resultCache != nil {
		checker.Register(health.NewCacheCheck(resultCache))
	}
	checker.Start(ctx)
	defer checker.Stop()

	calc := service.NewCalculatorService(logger, resultCache, cfg.Calculator)
	appMetrics := metrics.New()

	mcpServer, err := mcp.NewServer(mcp.Options{
		Name:          cfg.MCP.ServerName,
		Version:       cfg.MCP.ServerVersion,
		Calculator:    calc,
		FeedbackStore: store,
		Health:        checker,
		Metrics:       appMetrics,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	server := api.NewServer(api.Options{
		Config:        cfg.Server,
		RateLimit:     cfg.RateLimit,
		Debug:         manager.IsDevelopment() && cfg.Logging.Level == "debug",
		Calculator:    calc,
		FeedbackStore: store,
		Health:        checker,
		MCPHandler:    mcpServer.HTTPHandler(),
		Metrics:       appMetrics,
		Logger:        logger,
	})

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func migrateCmd(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL feedback schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrations(*configDir, func(mr *database.MigrationRunner) error {
				return mr.Up()
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrations(*configDir, func(mr *database.MigrationRunner) error {
				return mr.Down()
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrations(*configDir, func(mr *database.MigrationRunner) error {
				version, dirty, err := mr.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			})
		},
	})
	return cmd
}

func withMigrations(configDir string, fn func(*database.MigrationRunner) error) error {
	manager, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()
	if cfg.Feedback.Driver != "postgres" {
		return fmt.Errorf("migrations apply to the postgres feedback driver, not %q", cfg.Feedback.Driver)
	}

	logger, err := config.NewLogger(domain.LoggingConfig{Level: cfg.Logging.Level, Format: "text", Output: "stderr"})
	if err != nil {
		return err
	}
	runner, err := database.NewMigrationRunner(cfg.Feedback.DSN, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return fn(runner)
}
