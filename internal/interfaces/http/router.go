// Package http assembles the Molscope HTTP API: route tree, middleware
// stack, and server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/molscope/molscope/internal/interfaces/http/handlers"
	"github.com/molscope/molscope/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// complete route tree.
type RouterConfig struct {
	// Handlers
	MoleculeHandler *handlers.MoleculeHandler
	ViewerHandler   *handlers.ViewerHandler
	HealthHandler   *handlers.HealthHandler

	// Middleware
	CORSMiddleware    *middleware.CORSMiddleware
	LoggingMiddleware *middleware.LoggingMiddleware
	MetricsMiddleware *middleware.MetricsMiddleware

	// MaxBodyBytes caps request body size; zero disables the cap.
	MaxBodyBytes int64

	// MetricsHandler serves the Prometheus exposition at MetricsPath
	// (default /metrics) when non-nil.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter constructs the complete HTTP route tree: global middleware,
// public health endpoints, the metrics exposition, and the /api/v1 resource
// groups.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware, outermost first.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.MetricsMiddleware != nil {
		r.Use(cfg.MetricsMiddleware.Handler)
	}
	if cfg.CORSMiddleware != nil {
		r.Use(cfg.CORSMiddleware.Handler)
	}
	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Handler)
	}
	if cfg.MaxBodyBytes > 0 {
		r.Use(middleware.LimitBody(cfg.MaxBodyBytes))
	}

	// Health probes.
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	// Metrics exposition.
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerMoleculeRoutes(api, cfg.MoleculeHandler)
		registerViewerRoutes(api, cfg.ViewerHandler)
	})

	return r
}

// registerMoleculeRoutes mounts the molecule resource under /molecules.
func registerMoleculeRoutes(r chi.Router, h *handlers.MoleculeHandler) {
	if h == nil {
		return
	}
	r.Route("/molecules", func(mr chi.Router) {
		mr.Get("/", h.List)
		mr.Post("/", h.Create)
		mr.Post("/upload", h.Upload)

		mr.Route("/{moleculeID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Delete("/", h.Delete)
			item.Post("/geometry", h.UpdateGeometry)
			item.Get("/distances", h.BondDistances)
			item.Get("/distance", h.Distance)
		})
	})
}

// registerViewerRoutes mounts viewer sessions under /viewer/sessions.
func registerViewerRoutes(r chi.Router, h *handlers.ViewerHandler) {
	if h == nil {
		return
	}
	r.Route("/viewer/sessions", func(vr chi.Router) {
		vr.Post("/", h.Create)

		vr.Route("/{sessionID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Delete("/", h.Delete)
			item.Put("/molecule", h.LoadMolecule)
			item.Post("/pick", h.Pick)
			item.Post("/selection/clear", h.ClearSelection)
			item.Post("/camera/zoom-in", h.ZoomIn)
			item.Post("/camera/zoom-out", h.ZoomOut)
			item.Post("/camera/reset", h.ResetView)
			item.Post("/resize", h.Resize)
			item.Get("/frame", h.Frame)
		})
	})
}
