package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"weatherproxy/internal/models"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation. Health checks
// are not traced.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health"
			}),
		))
	}
}

// SetupRoutes builds the gateway router.
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	router.Use(recoveryMiddleware)
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware)

	// Middleware only runs on matched routes, so preflight requests must
	// match too; corsMiddleware answers them before any handler runs.
	methods := []string{http.MethodGet}
	if config.Server.CORS.Enabled {
		router.Use(corsMiddleware(config.Server.CORS))
		methods = append(methods, http.MethodOptions)
	}

	for _, opt := range opts {
		opt(router)
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods(methods...)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/forecast", handlers.Forecast).Methods(methods...)
	api.HandleFunc("/locations", handlers.Locations).Methods(methods...)
	api.HandleFunc("/stats", handlers.Stats).Methods(methods...)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return router
}
