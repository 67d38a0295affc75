package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultServerHost, cfg.Server.Host)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerMode, cfg.Server.Mode)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)

	assert.Equal(t, DefaultViewerEngine, cfg.Viewer.Engine)
	assert.Equal(t, DefaultViewerWidth, cfg.Viewer.Width)
	assert.Equal(t, DefaultViewerHeight, cfg.Viewer.Height)
	assert.Equal(t, DefaultBackground, cfg.Viewer.Background)
	assert.Equal(t, DefaultZoomStep, cfg.Viewer.ZoomStep)
	assert.Equal(t, DefaultZoomDuration, cfg.Viewer.ZoomDuration)
	assert.Equal(t, DefaultNoticeTTL, cfg.Viewer.NoticeTTL)
	assert.Equal(t, DefaultMaxSessions, cfg.Viewer.MaxSessions)
	require.Len(t, cfg.Viewer.HighlightColors, 2)

	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.Equal(t, DefaultMetricsNamespace, cfg.Metrics.Namespace)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)
	assert.Equal(t, []string{"stderr"}, cfg.Log.ErrorOutputPaths)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Viewer.ZoomStep = 0.5
	cfg.Viewer.HighlightColors = []string{"#ff0000", "#00ff00"}
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Viewer.ZoomStep)
	assert.Equal(t, []string{"#ff0000", "#00ff00"}, cfg.Viewer.HighlightColors)
}

func TestApplyDefaults_NilConfig(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestApplyDefaults_CatalogDisabledByDefault(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	// No catalog path means the catalog subsystem stays off.
	assert.Empty(t, cfg.Catalog.Path)
	assert.False(t, cfg.Catalog.Watch)
}

func TestApplyDefaults_DefaultsAreValid(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	assert.NoError(t, cfg.Validate())
}
