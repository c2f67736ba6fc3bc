// Package api serves the botkit REST API: health probes, the example user
// endpoint, statistics, and the admin panel mount point.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/api/handlers"
	"github.com/marmos91/botkit/pkg/bot"
)

// Metrics observes served requests. A nil Metrics disables collection.
type Metrics interface {
	ObserveRequest(method, route string, code int, duration time.Duration)
}

// Mounter attaches extra routes (the admin panel) to the router.
type Mounter interface {
	Mount(r chi.Router)
}

// Store is the data the API reads.
type Store interface {
	handlers.Pinger
	handlers.UserStore
}

// Deps are the collaborators of the router. Only Store is required.
type Deps struct {
	Store    Store
	External handlers.ExternalUsers
	Sender   bot.Sender
	Admin    Mounter
	Metrics  Metrics

	// RequestTimeout bounds each request. Default: 30s
	RequestTimeout time.Duration
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe (database ping)
//   - GET /api/v1/users/example/{id} - Example endpoint (store + external API + bot)
//   - GET /api/v1/statistics/usercount - Number of users
//   - /admin/... - Admin panel, when configured
func NewRouter(deps Deps) http.Handler {
	if deps.RequestTimeout == 0 {
		deps.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.RequestTimeout))

	healthHandler := handlers.NewHealthHandler(deps.Store)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	userHandler := handlers.NewUserHandler(deps.Store, deps.External, deps.Sender)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/users/example/{id}", userHandler.Example)
		r.Get("/statistics/usercount", userHandler.UserCount)
	})

	if deps.Admin != nil {
		deps.Admin.Mount(r)
	}

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs each request using the internal logger and records it
// in metrics under its route pattern.
func requestLogger(metrics Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			logger.Debug("API request started",
				logger.KeyRequestID, requestID,
				"method", r.Method,
				"path", r.URL.Path,
				logger.KeyClientIP, r.RemoteAddr,
			)

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			logger.Info("API request completed",
				logger.KeyRequestID, requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				logger.KeyDurationMs, duration.Milliseconds(),
			)

			if metrics != nil {
				route := "unmatched"
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if p := rctx.RoutePattern(); p != "" {
						route = p
					}
				}
				metrics.ObserveRequest(r.Method, route, status, duration)
			}
		})
	}
}
