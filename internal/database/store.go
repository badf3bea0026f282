package database

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/opioid-rotation-mcp-server/internal/domain"
	"github.com/opioid-rotation-mcp-server/internal/feedback"
)

// FeedbackDBFile is the SQLite file name inside the feedback data directory.
const FeedbackDBFile = "feedback.db"

// OpenFeedbackStore opens the configured feedback backend. For postgres the
// pgx pool is created first and migrations run when AutoMigrate is set. The
// returned close function releases the store and any pool behind it.
func OpenFeedbackStore(ctx context.Context, cfg domain.FeedbackConfig, logger *logrus.Logger) (feedback.Store, func(), error) {
	switch cfg.Driver {
	case "", "sqlite":
		path := filepath.Join(cfg.DataDir, FeedbackDBFile)
		store, err := feedback.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite feedback store: %w", err)
		}
		logger.WithField("path", path).Info("Using SQLite feedback store")
		return store, func() { store.Close() }, nil

	case "postgres":
		if cfg.AutoMigrate {
			runner, err := NewMigrationRunner(cfg.DSN, logger)
			if err != nil {
				return nil, nil, err
			}
			err = runner.Up()
			runner.Close()
			if err != nil {
				return nil, nil, err
			}
		}

		db, err := NewConnection(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := feedback.NewPostgresStore(ctx, db.SQLDB())
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to open postgres feedback store: %w", err)
		}
		logger.Info("Using PostgreSQL feedback store")
		return store, func() {
			store.Close()
			db.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported feedback driver %q", cfg.Driver)
	}
}
