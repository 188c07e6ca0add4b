package datastore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/molsci/fractal/pkg/config"
)

// SQLite manages the single-file backend. There is no external process to
// supervise, so lifecycle operations reduce to directory management; the
// storage layer creates the database file itself on first open.
type SQLite struct{}

// NewSQLite returns the sqlite lifecycle adapter.
func NewSQLite() *SQLite {
	return &SQLite{}
}

// DatabaseFile returns the sqlite file path inside the data directory.
func (s *SQLite) DatabaseFile(cfg *config.Config) string {
	return filepath.Join(cfg.DatabasePath(), cfg.Database.DatabaseName+".db")
}

func (s *SQLite) Initialize(ctx context.Context, cfg *config.Config, quiet bool) error {
	if err := os.MkdirAll(cfg.DatabasePath(), 0o755); err != nil {
		return &Error{Op: "initialize", Diagnostic: cfg.DatabasePath(), Err: err}
	}
	return nil
}

func (s *SQLite) Shutdown(ctx context.Context, cfg *config.Config) error {
	return nil
}

func (s *SQLite) DestroyData(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return &Error{Op: "destroy data", Diagnostic: path, Err: err}
	}
	return nil
}
