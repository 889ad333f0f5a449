package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/factory-report-service/internal/config"
)

func TestNewPostgresRequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestUnconfiguredClientsFailPing(t *testing.T) {
	var pg *Postgres
	assert.Error(t, pg.Ping(context.Background()))
	assert.Nil(t, pg.PoolHandle())

	var rd *Redis
	assert.Error(t, rd.Ping(context.Background()))
	_, err := rd.QueueDepth(context.Background(), "factory_report_webhooks")
	assert.Error(t, err)
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, "does-not-exist", zap.NewNop()))
}

func TestPendingMigrationsSkipsAppliedAndNonSQL(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_create_report_history.sql", "001_create_reports.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_nested.sql"), 0o700))

	pending, err := pendingMigrations(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_reports.sql", "002_create_report_history.sql"}, pending)

	pending, err = pendingMigrations(dir, map[string]bool{"001_create_reports.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_create_report_history.sql"}, pending)
}

func TestPendingMigrationsMissingDir(t *testing.T) {
	_, err := pendingMigrations(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestShippedMigrationsCreateReportTables(t *testing.T) {
	pending, err := pendingMigrations(filepath.Join("..", "..", "migrations"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, pending)

	var schema string
	for _, name := range pending {
		content, err := os.ReadFile(filepath.Join("..", "..", "migrations", name))
		require.NoError(t, err)
		schema += string(content)
	}
	for _, table := range ReportTables {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
