// Package config provides configuration loading, defaults, and validation for
// the Molscope viewer platform.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all platform settings.
const envPrefix = "MOLSCOPE"

// newViper builds a pre-configured Viper instance with the platform's standard
// settings: YAML file type, MOLSCOPE_ env prefix, automatic env binding, and a
// key replacer that maps "." → "_" so that nested keys like "viewer.engine"
// resolve to "MOLSCOPE_VIEWER_ENGINE".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setViperDefaults(v)
	return v
}

// setViperDefaults registers every configuration key with viper.  Registration
// is what makes AutomaticEnv work with Unmarshal: viper only consults the
// environment for keys it already knows about, so a key that appears in no
// config file must still be registered here or MOLSCOPE_* overrides for it
// are silently ignored.  Boolean defaults live here rather than in
// ApplyDefaults because a false zero value is indistinguishable from an
// explicit false once unmarshalled.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", int64(8<<20))
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{DefaultCORSOrigin})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", DefaultMetricsPath)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)

	v.SetDefault("viewer.engine", DefaultViewerEngine)
	v.SetDefault("viewer.width", DefaultViewerWidth)
	v.SetDefault("viewer.height", DefaultViewerHeight)
	v.SetDefault("viewer.background", DefaultBackground)
	v.SetDefault("viewer.zoom_step", DefaultZoomStep)
	v.SetDefault("viewer.zoom_duration", DefaultZoomDuration)
	v.SetDefault("viewer.notice_ttl", DefaultNoticeTTL)
	v.SetDefault("viewer.retain_selection_on_load", false)
	v.SetDefault("viewer.highlight_colors", defaultHighlightColors())
	v.SetDefault("viewer.max_sessions", DefaultMaxSessions)

	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.watch", false)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("log.error_output_paths", []string{"stderr"})
}

// Load reads the YAML file at configPath, merges any MOLSCOPE_* environment
// variable overrides, applies platform defaults for unset fields, and
// validates the result.  It returns a fully-populated *Config or a
// descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from MOLSCOPE_* environment variables,
// with no config file required.  This is the preferred loading strategy for
// containerised (12-factor) deployments.
//
// Environment variable naming convention:
//
//	MOLSCOPE_<SECTION>_<FIELD>   e.g.  MOLSCOPE_SERVER_PORT, MOLSCOPE_VIEWER_ENGINE
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// No config file — rely solely on env vars and defaults.
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level; callers are
// responsible for applying only the safe subset of changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is NOT called so
// the application never enters a broken state.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read — errors are ignored here; callers should call Load first.
	_ = v.ReadInConfig()

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
