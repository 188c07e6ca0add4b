package lifecycle

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/molsci/fractal/internal/logger"
	"github.com/molsci/fractal/pkg/config"
	"github.com/molsci/fractal/pkg/queue"
	"github.com/molsci/fractal/pkg/server"
	"github.com/molsci/fractal/pkg/storage"
)

// drainTimeout bounds the compute adapter drain during shutdown.
const drainTimeout = 30 * time.Second

// Start assembles and runs the server runtime from an already-merged
// record, blocking until an interrupt/termination signal or a listener
// failure. Resources are acquired in order listener port, datastore
// handle, compute adapter, route table, and released in reverse.
func Start(ctx context.Context, m *Manager, cfg *config.Config) error {
	if err := logger.Init(logger.Config{Output: cfg.Fractal.Logfile}); err != nil {
		return err
	}

	// Grab the port first: a busy port must fail before any datastore work.
	ln, err := server.ListenPort(cfg.Fractal.Port)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg)
	if err != nil {
		ln.Close()
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("datastore close error", "error", cerr)
		}
	}()

	adapter := queue.New(cfg.Fractal.LocalManager)
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if serr := adapter.Shutdown(drainCtx); serr != nil {
			logger.Error("compute adapter shutdown error", "error", serr)
		}
	}()

	if pool, ok := adapter.(*queue.Pool); ok {
		logger.Info("Local compute adapter enabled", "workers", pool.Workers())
	} else {
		logger.Info("No compute adapter configured")
	}

	srv := server.New(cfg, store, adapter)
	srv.UseListener(ln)
	srv.AddExitCallback(func() {
		logger.Info("Server stopped", "name", cfg.Fractal.Name)
	})

	// SIGINT/SIGTERM cancel the serving context exactly once.
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Server is running. Press Ctrl+C to stop.")
	return srv.Serve(runCtx)
}
