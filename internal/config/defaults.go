// Package config provides configuration loading, defaults, and validation for
// the Molscope viewer platform.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultViewerEngine = "raster"
	DefaultViewerWidth  = 640
	DefaultViewerHeight = 480

	// DefaultBackground is the fixed white viewer background.
	DefaultBackground = "#ffffff"

	// DefaultZoomStep shrinks the view scale to 80% per zoom-out; zoom-in
	// applies the reciprocal 1.25.
	DefaultZoomStep     = 0.8
	DefaultZoomDuration = 300 * time.Millisecond

	DefaultNoticeTTL   = 2 * time.Second
	DefaultMaxSessions = 64

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "molscope"

	// DefaultCORSOrigin is the Vite dev-server origin of the reference
	// frontend.
	DefaultCORSOrigin = "http://localhost:5173"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultCatalogPath = "configs/catalog.yaml"
)

// defaultHighlightColors are the slot highlight colours: amber for the older
// selection, blue for the newer.
func defaultHighlightColors() []string {
	return []string{"#f59e0b", "#3b82f6"}
}

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// It runs after unmarshalling and before Validate(), and fields already set by
// the caller are left unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 8 << 20 // 8 MiB upload ceiling
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// ── CORS ──────────────────────────────────────────────────────────────────
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{DefaultCORSOrigin}
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = []string{"Content-Type", "Authorization"}
	}
	if cfg.CORS.MaxAge == 0 {
		cfg.CORS.MaxAge = 300
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Viewer ────────────────────────────────────────────────────────────────
	if cfg.Viewer.Engine == "" {
		cfg.Viewer.Engine = DefaultViewerEngine
	}
	if cfg.Viewer.Width == 0 {
		cfg.Viewer.Width = DefaultViewerWidth
	}
	if cfg.Viewer.Height == 0 {
		cfg.Viewer.Height = DefaultViewerHeight
	}
	if cfg.Viewer.Background == "" {
		cfg.Viewer.Background = DefaultBackground
	}
	if cfg.Viewer.ZoomStep == 0 {
		cfg.Viewer.ZoomStep = DefaultZoomStep
	}
	if cfg.Viewer.ZoomDuration == 0 {
		cfg.Viewer.ZoomDuration = DefaultZoomDuration
	}
	if cfg.Viewer.NoticeTTL == 0 {
		cfg.Viewer.NoticeTTL = DefaultNoticeTTL
	}
	if len(cfg.Viewer.HighlightColors) == 0 {
		cfg.Viewer.HighlightColors = defaultHighlightColors()
	}
	if cfg.Viewer.MaxSessions == 0 {
		cfg.Viewer.MaxSessions = DefaultMaxSessions
	}

	// ── Catalog ───────────────────────────────────────────────────────────────
	// Path stays empty unless configured; an empty path disables the catalog.

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
	if len(cfg.Log.ErrorOutputPaths) == 0 {
		cfg.Log.ErrorOutputPaths = []string{"stderr"}
	}
}
