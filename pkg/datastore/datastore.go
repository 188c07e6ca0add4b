// Package datastore owns the backing datastore's on-disk state and process
// lifecycle. Only the lifecycle manager calls into it; request handlers
// never do.
package datastore

import (
	"context"
	"fmt"

	"github.com/molsci/fractal/pkg/config"
)

// Lifecycle brings a datastore backend up and down and, through the
// destructive-overwrite protocol only, erases its on-disk data.
type Lifecycle interface {
	// Initialize brings up the backend process and schema if absent.
	// Idempotent when already initialized.
	Initialize(ctx context.Context, cfg *config.Config, quiet bool) error

	// Shutdown stops the backend process cleanly, tolerating "already
	// stopped".
	Shutdown(ctx context.Context, cfg *config.Config) error

	// DestroyData removes the on-disk data directory. Irreversible.
	DestroyData(path string) error
}

// Error reports a backend process or schema failure, carrying the backend's
// own diagnostic text so operators see the underlying reason. Operations
// that fail leave the datastore in its pre-operation state.
type Error struct {
	Op         string // the operation being attempted, e.g. "initdb"
	Diagnostic string // the backend's stderr or driver message
	Err        error
}

func (e *Error) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("datastore %s failed: %v: %s", e.Op, e.Err, e.Diagnostic)
	}
	return fmt.Sprintf("datastore %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ForBackend selects the lifecycle adapter for the configured backend.
func ForBackend(backend config.Backend) (Lifecycle, error) {
	switch backend {
	case config.BackendPostgres:
		return NewPostgres(), nil
	case config.BackendSQLite:
		return NewSQLite(), nil
	default:
		return nil, &config.ConfigurationError{
			Field:  "database.backend",
			Reason: fmt.Sprintf("unsupported backend %q", backend),
		}
	}
}
