// Package http assembles the gateway's HTTP surface: the chi route tree, its
// middleware chain and the server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/internal/interfaces/http/handlers"
	"github.com/turtacn/Massing-Sim/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the route tree.  Nil handlers leave their routes unmounted.
type RouterConfig struct {
	HealthHandler     *handlers.HealthHandler
	MassingHandler    *handlers.MassingHandler
	SimulationHandler *handlers.SimulationHandler
	ComputeHandler    *handlers.ComputeHandler

	// Auth guards /api.  Nil or keyless means open.
	Auth *middleware.APIKeyAuth

	// RateLimiter guards /api when set.
	RateLimiter     middleware.RateLimiter
	RateLimitConfig middleware.RateLimitConfig

	CORS    *middleware.CORSConfig
	Logging middleware.LoggingConfig

	Logger         logging.Logger
	HTTPRecorder   middleware.HTTPRecorder
	MetricsHandler http.Handler
}

// NewRouter builds the route tree:
//
//	GET  /                        service status
//	GET  /healthz, /readyz        probes
//	GET  /metrics                 prometheus scrape
//	POST /api/massing/generate
//	POST /api/sim/{kind}
//	POST /api/sim/{kind}/jobs
//	GET  /api/sim/runs
//	GET  /api/sim/runs/{id}
//	POST /api/compute/evaluate
//	GET  /api/compute/health
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Logging sits outside Recoverer so panics are logged as 500s.
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging, cfg.HTTPRecorder))
	r.Use(chimw.Recoverer)
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	if cfg.HealthHandler != nil {
		r.Get("/", cfg.HealthHandler.Root)
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.Auth != nil {
			api.Use(cfg.Auth.Authenticate)
		}
		if cfg.RateLimiter != nil {
			api.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitConfig))
		}

		registerMassingRoutes(api, cfg.MassingHandler)
		registerSimulationRoutes(api, cfg.SimulationHandler)
		registerComputeRoutes(api, cfg.ComputeHandler)
	})

	return r
}

func registerMassingRoutes(r chi.Router, h *handlers.MassingHandler) {
	if h == nil {
		return
	}
	r.Post("/massing/generate", h.Generate)
}

func registerSimulationRoutes(r chi.Router, h *handlers.SimulationHandler) {
	if h == nil {
		return
	}
	r.Route("/sim", func(sr chi.Router) {
		// Static segments win over {kind}, so /sim/runs is never a kind.
		sr.Get("/runs", h.ListRuns)
		sr.Get("/runs/{id}", h.GetRun)
		sr.Post("/{kind}", h.Simulate)
		sr.Post("/{kind}/jobs", h.Submit)
	})
}

func registerComputeRoutes(r chi.Router, h *handlers.ComputeHandler) {
	if h == nil {
		return
	}
	r.Route("/compute", func(cr chi.Router) {
		cr.Post("/evaluate", h.Evaluate)
		cr.Get("/health", h.Health)
	})
}

//Personal.AI order the ending
