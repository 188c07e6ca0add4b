// Package handlers implements the HTTP resource handlers. Each handler is
// a thin request/response translator over the shared context it receives at
// bind time; handlers never construct their own datastore handles.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/molsci/fractal/pkg/queue"
	"github.com/molsci/fractal/pkg/storage"
)

// Context is the shared dependency graph injected into every handler when
// routes are bound. Handlers hold non-owning references; the lifecycle
// manager owns the underlying resources.
type Context struct {
	Store   *storage.Store
	Log     *slog.Logger
	Adapter queue.Adapter

	// Settings the handlers consult per request.
	ServerName string
	AllowRead  bool
	Security   string
	QueryLimit int

	// background tracks goroutines spawned off the request path, so
	// shutdown can wait for them before the datastore closes.
	background sync.WaitGroup
}

// TrackBackground runs fn on a tracked goroutine. Handlers use this for any
// work outliving the request, never a bare `go`.
func (c *Context) TrackBackground(fn func()) {
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		fn()
	}()
}

// WaitBackground blocks until all tracked background work has finished or
// ctx expires.
func (c *Context) WaitBackground(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.background.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
