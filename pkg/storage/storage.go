// Package storage opens and owns the application datastore connection.
// Handlers receive a shared, read-mostly *Store; they never open their own.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/molsci/fractal/pkg/config"
)

// Store is the live datastore connection handle shared across handlers.
// The lifecycle manager opens it before the listener binds and closes it
// last during shutdown.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured backend, configures the pool and
// migrates the coordination schema.
func Open(cfg *config.Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Backend {
	case config.BackendSQLite:
		// WAL keeps concurrent readers off the single writer's back.
		dsn := filepath.Join(cfg.DatabasePath(), cfg.Database.DatabaseName+".db") +
			"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)

	case config.BackendPostgres:
		dialector = postgres.Open(postgresDSN(cfg))

	default:
		return nil, &config.ConfigurationError{
			Field:  "database.backend",
			Reason: fmt.Sprintf("unsupported backend %q", cfg.Database.Backend),
		}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying GORM connection for queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RecordHeartbeat inserts one maintenance heartbeat row.
func (s *Store) RecordHeartbeat(ctx context.Context, serverName string) error {
	return s.db.WithContext(ctx).Create(&Heartbeat{
		ServerName: serverName,
		Beat:       time.Now().UTC(),
	}).Error
}

// CancelPendingTasks marks every record still waiting or running as
// errored. Called when shutdown cannot wait for finalization any longer,
// so no record is left in an ambiguous in-flight status after the process
// exits.
func (s *Store) CancelPendingTasks(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&TaskRecord{}).
		Where("status IN ?", []string{TaskWaiting, TaskRunning}).
		Updates(map[string]any{"status": TaskError, "modified_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func postgresDSN(cfg *config.Config) string {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=disable",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DatabaseName)
	if cfg.Database.Username != "" {
		dsn += " user=" + cfg.Database.Username
	}
	if cfg.Database.Password != "" {
		dsn += " password=" + cfg.Database.Password
	}
	return dsn
}
