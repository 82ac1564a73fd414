// Package api provides the HTTP API for Env Monitor.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/envmonitor/envmonitor/internal/api/handler"
	"github.com/envmonitor/envmonitor/internal/api/middleware"
	"github.com/envmonitor/envmonitor/internal/api/response"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Collector   handler.MetricsCollector
	Providers   handler.ProviderHealthSource
	RateLimit   middleware.RateLimitConfig
	CORS        middleware.CORSConfig
	RequireTLS  bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "envmonitor-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.Providers)
	metricsHandler := handler.NewMetricsHandler(cfg.Collector, cfg.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r, r.Method+" is not supported for "+r.URL.Path)
	})

	r.Get("/health", opsHandler.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(cfg.RateLimit))
		r.Get("/metrics", metricsHandler.GetMetrics)
		r.Get("/status", opsHandler.SystemStatus)
	})

	return r
}
