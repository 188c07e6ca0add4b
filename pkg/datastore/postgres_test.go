package datastore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molsci/fractal/pkg/config"
)

// fakeRunner scripts per-command outcomes and records every invocation.
type fakeRunner struct {
	invocations [][]string

	// errFor maps a command name (or "name subcommand") to a scripted
	// failure with stderr output.
	errFor map[string]scriptedError
}

type scriptedError struct {
	stderr string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	f.invocations = append(f.invocations, append([]string{name}, args...))

	key := name
	if len(args) > 0 {
		if s, ok := f.errFor[name+" "+args[len(args)-1]]; ok {
			return "", s.stderr, s.err
		}
	}
	if s, ok := f.errFor[key]; ok {
		return "", s.stderr, s.err
	}
	return "", "", nil
}

func (f *fakeRunner) commands() []string {
	out := make([]string, len(f.invocations))
	for i, inv := range f.invocations {
		out[i] = inv[0] + " " + inv[len(inv)-1]
	}
	return out
}

func pgConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseFolder = t.TempDir()
	cfg.Database.DatabaseName = "fractal_test"
	return cfg
}

func newFakePostgres(run *fakeRunner) *Postgres {
	return &Postgres{
		run: run,
		openAdmin: func(dsn string) (*sql.DB, error) {
			return nil, errors.New("no admin connection in this test")
		},
	}
}

func markClusterInitialized(t *testing.T, cfg *config.Config) {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.DatabasePath(), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DatabasePath(), "PG_VERSION"), []byte("16\n"), 0o600))
}

func TestPostgresInitializeRunsInitdbOnFreshDir(t *testing.T) {
	cfg := pgConfig(t)
	run := &fakeRunner{errFor: map[string]scriptedError{
		// Not running yet; the start itself succeeds.
		"pg_ctl status": {err: errors.New("pg_ctl: no server running")},
	}}
	p := newFakePostgres(run)

	// ensureDatabase fails by construction; the process bring-up before it
	// is what this test checks.
	err := p.Initialize(context.Background(), cfg, true)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "admin connect", derr.Op)

	assert.Equal(t, []string{"initdb UTF8", "pg_ctl status", "pg_ctl start"}, run.commands())
}

func TestPostgresInitializeSkipsInitdbWhenClusterExists(t *testing.T) {
	cfg := pgConfig(t)
	markClusterInitialized(t, cfg)

	run := &fakeRunner{}
	p := newFakePostgres(run)

	p.Initialize(context.Background(), cfg, true)

	for _, inv := range run.invocations {
		assert.NotEqual(t, "initdb", inv[0], "initdb must not run on an existing cluster")
	}
	// Already running per the scripted status, so no start either.
	assert.Equal(t, []string{"pg_ctl status"}, run.commands())
}

func TestPostgresInitializePassesUsername(t *testing.T) {
	cfg := pgConfig(t)
	cfg.Database.Username = "fractal_admin"

	run := &fakeRunner{errFor: map[string]scriptedError{
		"pg_ctl status": {err: errors.New("not running")},
	}}
	p := newFakePostgres(run)

	p.Initialize(context.Background(), cfg, true)

	require.NotEmpty(t, run.invocations)
	initdb := run.invocations[0]
	assert.Contains(t, initdb, "-U")
	assert.Contains(t, initdb, "fractal_admin")
}

func TestPostgresInitializeSurfacesInitdbStderr(t *testing.T) {
	cfg := pgConfig(t)
	run := &fakeRunner{errFor: map[string]scriptedError{
		"initdb": {stderr: "initdb: error: directory not empty", err: errors.New("exit status 1")},
	}}
	p := newFakePostgres(run)

	err := p.Initialize(context.Background(), cfg, true)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "initdb", derr.Op)
	assert.Contains(t, err.Error(), "directory not empty")
}

func TestPostgresShutdownStopsRunningInstance(t *testing.T) {
	cfg := pgConfig(t)
	markClusterInitialized(t, cfg)

	run := &fakeRunner{}
	p := newFakePostgres(run)

	require.NoError(t, p.Shutdown(context.Background(), cfg))
	assert.Equal(t, []string{"pg_ctl status", "pg_ctl stop"}, run.commands())
}

func TestPostgresShutdownToleratesStopped(t *testing.T) {
	cfg := pgConfig(t)
	markClusterInitialized(t, cfg)

	run := &fakeRunner{errFor: map[string]scriptedError{
		"pg_ctl status": {err: errors.New("no server running")},
	}}
	p := newFakePostgres(run)

	require.NoError(t, p.Shutdown(context.Background(), cfg))
	assert.Equal(t, []string{"pg_ctl status"}, run.commands())
}

func TestPostgresShutdownToleratesMissingCluster(t *testing.T) {
	cfg := pgConfig(t)
	run := &fakeRunner{}
	p := newFakePostgres(run)

	require.NoError(t, p.Shutdown(context.Background(), cfg))
	assert.Empty(t, run.invocations)
}

func TestPostgresDestroyData(t *testing.T) {
	cfg := pgConfig(t)
	markClusterInitialized(t, cfg)

	p := newFakePostgres(&fakeRunner{})
	require.NoError(t, p.DestroyData(cfg.DatabasePath()))

	_, err := os.Stat(cfg.DatabasePath())
	assert.True(t, os.IsNotExist(err), "data directory must be gone")
}

func TestAdminDSN(t *testing.T) {
	cfg := pgConfig(t)
	cfg.Database.Host = "db.internal"
	cfg.Database.Port = 5433
	cfg.Database.Username = "fractal"
	cfg.Database.Password = "hunter2"

	dsn := adminDSN(cfg)
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "dbname=postgres")
	assert.Contains(t, dsn, "user=fractal")
	assert.Contains(t, dsn, "password=hunter2")
}

func TestAdminDSNOmitsEmptyCredentials(t *testing.T) {
	dsn := adminDSN(pgConfig(t))
	assert.False(t, strings.Contains(dsn, "user="), "dsn = %q", dsn)
	assert.False(t, strings.Contains(dsn, "password="), "dsn = %q", dsn)
}
