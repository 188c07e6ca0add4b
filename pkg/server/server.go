// Package server is the network listener shell: it binds routes to handler
// objects with the shared dependency graph injected at bind time, owns the
// run loop, and drains deterministically on stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/molsci/fractal/internal/logger"
	"github.com/molsci/fractal/pkg/config"
	"github.com/molsci/fractal/pkg/queue"
	"github.com/molsci/fractal/pkg/server/handlers"
	"github.com/molsci/fractal/pkg/storage"
)

// shutdownTimeout bounds the drain of in-flight requests once stop begins.
const shutdownTimeout = 10 * time.Second

// BindError means the listen port is unavailable. Raised before any route
// is served and before any datastore mutation.
type BindError struct {
	Port int
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind port %d: %v", e.Port, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// FractalServer is the live listener over the shared resource graph. The
// lifecycle manager constructs exactly one per `start` invocation and is
// the only writer of its resource set.
type FractalServer struct {
	cfg     *config.Config
	store   *storage.Store
	hctx    *handlers.Context
	handler http.Handler

	httpServer *http.Server
	listener   net.Listener

	exitCallbacks []func()

	stopOnce sync.Once
	stopped  chan struct{}
}

// New binds the route table against the shared context. The server does
// not listen until Listen or Serve is called.
func New(cfg *config.Config, store *storage.Store, adapter queue.Adapter) *FractalServer {
	hctx := &handlers.Context{
		Store:      store,
		Log:        logger.With("component", "handlers"),
		Adapter:    adapter,
		ServerName: cfg.Fractal.Name,
		AllowRead:  cfg.Fractal.AllowRead,
		Security:   cfg.Fractal.Security,
		QueryLimit: cfg.Fractal.QueryLimit,
	}

	handler := newRouter(hctx, cfg.Fractal.CompressResponse)

	return &FractalServer{
		cfg:     cfg,
		store:   store,
		hctx:    hctx,
		handler: handler,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Fractal.Port),
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		stopped: make(chan struct{}),
	}
}

// AddExitCallback registers a function invoked exactly once during stop,
// after the listener has drained.
func (s *FractalServer) AddExitCallback(fn func()) {
	s.exitCallbacks = append(s.exitCallbacks, fn)
}

// ListenPort grabs a port before any other resource is acquired, so a busy
// port fails fast with no datastore mutation.
func ListenPort(port int) (net.Listener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, &BindError{Port: port, Err: err}
	}
	return ln, nil
}

// UseListener hands the server a listener acquired with ListenPort.
func (s *FractalServer) UseListener(ln net.Listener) {
	s.listener = ln
}

// Listen grabs the port unless a listener was already attached.
func (s *FractalServer) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := ListenPort(s.cfg.Fractal.Port)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

// Serve blocks in the listener loop until ctx is cancelled, Stop is called,
// or the listener fails. Heartbeat maintenance runs on the side for the
// whole serving window.
func (s *FractalServer) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	logger.Info("Server listening", "name", s.cfg.Fractal.Name, "port", s.cfg.Fractal.Port)

	heartbeatDone := make(chan struct{})
	go s.heartbeatLoop(heartbeatDone)

	serveErr := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	var err error
	select {
	case <-ctx.Done():
		s.Stop()
		err = <-serveErr
	case <-s.stopped:
		err = <-serveErr
	case err = <-serveErr:
		s.Stop()
	}

	<-heartbeatDone
	return err
}

// Stop drains the listener, waits for request-spawned background work (task
// finalization) to land, then runs exit callbacks. Idempotent: calling it on
// an already-stopped server is a no-op.
func (s *FractalServer) Stop() {
	s.stopOnce.Do(func() {
		logger.Info("Server stopping")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("listener shutdown error", "error", err)
		}

		// Task status updates run off the request path; they must land
		// before the lifecycle manager closes the datastore. Records that
		// cannot be finalized in time are marked errored rather than left
		// in an in-flight status forever.
		if err := s.hctx.WaitBackground(shutdownCtx); err != nil {
			logger.Warn("task finalization timed out", "error", err)

			cancelCtx, cancelPending := context.WithTimeout(context.Background(), 5*time.Second)
			if n, cerr := s.store.CancelPendingTasks(cancelCtx); cerr != nil {
				logger.Error("pending task cancellation failed", "error", cerr)
			} else if n > 0 {
				logger.Warn("pending tasks marked as errored", "count", n)
			}
			cancelPending()
		}

		for _, fn := range s.exitCallbacks {
			fn()
		}

		close(s.stopped)
	})
}

// heartbeatLoop records a maintenance heartbeat every configured interval
// until the server stops.
func (s *FractalServer) heartbeatLoop(done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Fractal.HeartbeatFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopped:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.store.RecordHeartbeat(ctx, s.cfg.Fractal.Name); err != nil {
				logger.Warn("heartbeat failed", "error", err)
			}
			cancel()
		}
	}
}
