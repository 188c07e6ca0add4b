package datastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsci/fractal/pkg/config"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseFolder = t.TempDir()
	cfg.Database.Backend = config.BackendSQLite
	return cfg
}

func TestSQLiteInitializeCreatesDataDir(t *testing.T) {
	cfg := sqliteConfig(t)
	s := NewSQLite()

	require.NoError(t, s.Initialize(context.Background(), cfg, true))

	info, err := os.Stat(cfg.DatabasePath())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent on an existing directory.
	require.NoError(t, s.Initialize(context.Background(), cfg, true))
}

func TestSQLiteDatabaseFile(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Database.DatabaseName = "benzene_scan"

	s := NewSQLite()
	want := filepath.Join(cfg.DatabasePath(), "benzene_scan.db")
	assert.Equal(t, want, s.DatabaseFile(cfg))
}

func TestSQLiteDestroyData(t *testing.T) {
	cfg := sqliteConfig(t)
	s := NewSQLite()
	require.NoError(t, s.Initialize(context.Background(), cfg, true))
	require.NoError(t, os.WriteFile(s.DatabaseFile(cfg), []byte("data"), 0o600))

	require.NoError(t, s.DestroyData(cfg.DatabasePath()))
	_, err := os.Stat(cfg.DatabasePath())
	assert.True(t, os.IsNotExist(err))
}

func TestForBackend(t *testing.T) {
	pg, err := ForBackend(config.BackendPostgres)
	require.NoError(t, err)
	assert.IsType(t, &Postgres{}, pg)

	lite, err := ForBackend(config.BackendSQLite)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, lite)

	_, err = ForBackend("oracle")
	var cerr *config.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "database.backend", cerr.Field)
}
