// Package config defines all configuration structures for the Molscope
// viewer platform.  No I/O or parsing logic lives here — only plain data
// types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CORSConfig holds cross-origin settings for browser-hosted frontends.
type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// ViewerConfig holds the per-session viewer tunables: which rendering engine
// to acquire, the fixed construction options, camera step sizes, and the
// notification lifetime.
type ViewerConfig struct {
	// Engine names the registered rendering engine acquired for new sessions.
	Engine string `mapstructure:"engine"`

	// Width and Height are the mount surface defaults used when a session is
	// created without explicit dimensions.
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`

	// Background is the fixed viewer background colour ("#rrggbb").
	// Antialiasing is always requested at viewer construction and is not
	// configurable.
	Background string `mapstructure:"background"`

	// ZoomStep is the multiplicative camera factor applied by zoom-out.
	// Zoom-in applies the exact reciprocal, so a zoom-in followed by a
	// zoom-out restores the previous magnification.  Must be in (0, 1).
	ZoomStep float64 `mapstructure:"zoom_step"`

	// ZoomDuration is the fixed camera animation time for zoom steps.
	ZoomDuration time.Duration `mapstructure:"zoom_duration"`

	// NoticeTTL is the display lifetime of a transient notification.  Showing
	// a new notification restarts the countdown; messages never queue.
	NoticeTTL time.Duration `mapstructure:"notice_ttl"`

	// RetainSelectionOnLoad keeps the current atom selection when a new
	// molecule is loaded into a session.  The default (false) clears the
	// selection, matching the rebuild of all structure-derived state.
	RetainSelectionOnLoad bool `mapstructure:"retain_selection_on_load"`

	// HighlightColors are the two slot highlight colours applied to selected
	// atoms, oldest selection first.
	HighlightColors []string `mapstructure:"highlight_colors"`

	// MaxSessions caps concurrently open viewer sessions.
	MaxSessions int `mapstructure:"max_sessions"`
}

// CatalogConfig points at the built-in demo molecule catalog.
type CatalogConfig struct {
	// Path is the YAML catalog location; empty disables catalog loading.
	Path string `mapstructure:"path"`

	// Watch reloads the catalog when the file changes on disk.
	Watch bool `mapstructure:"watch"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the entire platform.
// Every infrastructure component and application service reads its settings
// from the relevant sub-struct.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Viewer  ViewerConfig  `mapstructure:"viewer"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Log     LogConfig     `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Viewer
	if c.Viewer.Engine == "" {
		return fmt.Errorf("config: viewer.engine is required")
	}
	if c.Viewer.Width < 1 || c.Viewer.Height < 1 {
		return fmt.Errorf("config: viewer dimensions %dx%d are invalid; both must be ≥ 1",
			c.Viewer.Width, c.Viewer.Height)
	}
	if c.Viewer.ZoomStep <= 0 || c.Viewer.ZoomStep >= 1 {
		return fmt.Errorf("config: viewer.zoom_step %v is out of range (0, 1)", c.Viewer.ZoomStep)
	}
	if c.Viewer.NoticeTTL <= 0 {
		return fmt.Errorf("config: viewer.notice_ttl must be positive, got %v", c.Viewer.NoticeTTL)
	}
	if len(c.Viewer.HighlightColors) != 2 {
		return fmt.Errorf("config: viewer.highlight_colors must list exactly 2 colours, got %d",
			len(c.Viewer.HighlightColors))
	}
	if c.Viewer.MaxSessions < 1 {
		return fmt.Errorf("config: viewer.max_sessions must be ≥ 1, got %d", c.Viewer.MaxSessions)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("config: metrics.path is required when metrics are enabled")
	}

	return nil
}
