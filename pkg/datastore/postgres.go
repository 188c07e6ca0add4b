package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Registers the pgx driver with database/sql under the name "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/molsci/fractal/internal/logger"
	"github.com/molsci/fractal/pkg/config"
)

// Postgres manages a locally owned PostgreSQL instance: its data directory
// under the base folder, the postmaster process via pg_ctl, and the project
// database itself through an admin connection.
type Postgres struct {
	run commandRunner

	// openAdmin opens the maintenance connection used to create the
	// project database. Swappable in tests.
	openAdmin func(dsn string) (*sql.DB, error)
}

// NewPostgres returns the adapter backed by the real pg_ctl/initdb binaries.
func NewPostgres() *Postgres {
	return &Postgres{
		run: execRunner{},
		openAdmin: func(dsn string) (*sql.DB, error) {
			return sql.Open("pgx", dsn)
		},
	}
}

// Initialize brings up the cluster and the project database. Safe to call
// on an already-initialized, already-running instance.
func (p *Postgres) Initialize(ctx context.Context, cfg *config.Config, quiet bool) error {
	dataDir := cfg.DatabasePath()

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return &Error{Op: "initialize", Err: err}
	}

	if !clusterExists(dataDir) {
		if !quiet {
			logger.Info("Creating PostgreSQL cluster", "data_dir", dataDir)
		}
		args := []string{"-D", dataDir, "--encoding", "UTF8"}
		if cfg.Database.Username != "" {
			args = append(args, "-U", cfg.Database.Username)
		}
		if _, stderr, err := p.run.Run(ctx, "initdb", args...); err != nil {
			return &Error{Op: "initdb", Diagnostic: stderr, Err: err}
		}
	}

	if !p.running(ctx, dataDir) {
		if !quiet {
			logger.Info("Starting PostgreSQL", "data_dir", dataDir, "port", cfg.Database.Port)
		}
		opts := fmt.Sprintf("-p %d -k %s", cfg.Database.Port, dataDir)
		args := []string{"-D", dataDir, "-l", filepath.Join(dataDir, "postgres.log"), "-o", opts, "-w", "start"}
		if _, stderr, err := p.run.Run(ctx, "pg_ctl", args...); err != nil {
			return &Error{Op: "pg_ctl start", Diagnostic: stderr, Err: err}
		}
	}

	if err := p.ensureDatabase(ctx, cfg); err != nil {
		return err
	}

	if !quiet {
		logger.Info("PostgreSQL ready", "database", cfg.Database.DatabaseName)
	}
	return nil
}

// Shutdown stops the postmaster. An instance that is not running is not an
// error.
func (p *Postgres) Shutdown(ctx context.Context, cfg *config.Config) error {
	dataDir := cfg.DatabasePath()

	if !clusterExists(dataDir) || !p.running(ctx, dataDir) {
		return nil
	}

	if _, stderr, err := p.run.Run(ctx, "pg_ctl", "-D", dataDir, "-m", "fast", "stop"); err != nil {
		return &Error{Op: "pg_ctl stop", Diagnostic: stderr, Err: err}
	}
	return nil
}

// DestroyData removes the data directory. Only the destructive-overwrite
// protocol in the lifecycle manager reaches this.
func (p *Postgres) DestroyData(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return &Error{Op: "destroy data", Diagnostic: path, Err: err}
	}
	return nil
}

// running asks pg_ctl whether a postmaster serves the data directory.
func (p *Postgres) running(ctx context.Context, dataDir string) bool {
	_, _, err := p.run.Run(ctx, "pg_ctl", "-D", dataDir, "status")
	return err == nil
}

// ensureDatabase creates the project database if it does not exist, via a
// maintenance connection to the built-in postgres database.
func (p *Postgres) ensureDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := p.openAdmin(adminDSN(cfg))
	if err != nil {
		return &Error{Op: "admin connect", Err: err}
	}
	defer db.Close()

	var exists bool
	err = db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)",
		cfg.Database.DatabaseName).Scan(&exists)
	if err != nil {
		return &Error{Op: "admin query", Diagnostic: err.Error(), Err: err}
	}
	if exists {
		return nil
	}

	// Identifiers cannot be bound as parameters; the name is validated
	// configuration, not request input.
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %q", cfg.Database.DatabaseName)); err != nil {
		return &Error{Op: "create database", Diagnostic: err.Error(), Err: err}
	}
	return nil
}

// adminDSN targets the maintenance database on the configured host/port.
func adminDSN(cfg *config.Config) string {
	dsn := fmt.Sprintf("host=%s port=%d dbname=postgres sslmode=disable",
		cfg.Database.Host, cfg.Database.Port)
	if cfg.Database.Username != "" {
		dsn += " user=" + cfg.Database.Username
	}
	if cfg.Database.Password != "" {
		dsn += " password=" + cfg.Database.Password
	}
	return dsn
}

// clusterExists checks for the PG_VERSION marker initdb writes.
func clusterExists(dataDir string) bool {
	_, err := os.Stat(filepath.Join(dataDir, "PG_VERSION"))
	return err == nil
}
