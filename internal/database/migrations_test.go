package database

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opioid-rotation-mcp-server/internal/domain"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestFeedbackMigrationMatchesStoreKey(t *testing.T) {
	data, err := migrationFiles.ReadFile("migrations/000001_create_feedback.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "UNIQUE (calculation, input_summary)")
}

func TestNewConnection_RequiresDSN(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewConnection(context.Background(), domain.FeedbackConfig{Driver: "postgres"}, logger)
	assert.ErrorContains(t, err, "dsn is required")
}

func TestNewConnection_InvalidDSN(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewConnection(context.Background(), domain.FeedbackConfig{DSN: "postgres://host:notaport/db"}, logger)
	assert.ErrorContains(t, err, "parsing database config")
}

func TestNewMigrationRunner_InvalidURL(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := NewMigrationRunner("unknown-scheme://nowhere", logger)
	assert.Error(t, err)
}
