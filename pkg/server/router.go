package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/molsci/fractal/internal/logger"
	"github.com/molsci/fractal/pkg/server/handlers"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fractal_http_requests_total",
		Help: "HTTP requests served, by method and path pattern.",
	},
	[]string{"method", "path"},
)

// newRouter binds every route to its handler with the shared context
// injected once at bind time. Routes never build their own datastore
// handles or adapters.
func newRouter(hctx *handlers.Context, compress bool) http.Handler {
	r := chi.NewRouter()

	// Middleware stack, order matters.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if compress {
		r.Use(middleware.Compress(5))
	}

	info := handlers.NewInformation(hctx)
	molecule := handlers.NewMolecule(hctx)
	task := handlers.NewTask(hctx)
	health := handlers.NewHealth(hctx)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/information", info.Get)
		r.Get("/molecule", molecule.Get)
		r.Post("/molecule", molecule.Post)
		r.Get("/task", task.Get)
		r.Post("/task", task.Post)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Liveness)
		r.Get("/ready", health.Readiness)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestLogger logs each request through the process logger and counts it.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		requestsTotal.WithLabelValues(r.Method, r.URL.Path).Inc()
		logger.Info("request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
