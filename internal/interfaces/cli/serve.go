package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appmol "github.com/molscope/molscope/internal/application/molecule"
	appviewer "github.com/molscope/molscope/internal/application/viewer"
	"github.com/molscope/molscope/internal/config"
	"github.com/molscope/molscope/internal/infrastructure/catalog"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/metrics"
	"github.com/molscope/molscope/internal/infrastructure/render"
	"github.com/molscope/molscope/internal/infrastructure/render/raster"
	"github.com/molscope/molscope/internal/infrastructure/storage"
	httpserver "github.com/molscope/molscope/internal/interfaces/http"
	"github.com/molscope/molscope/internal/interfaces/http/handlers"
	"github.com/molscope/molscope/internal/interfaces/http/middleware"
)

const defaultShutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Molscope HTTP API server",
		Long:  "Assemble the molecule library, rendering engines, and viewer session\nmanager, then serve the HTTP API until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd, cliCtx)
		},
	}
}

func runServe(cmd *cobra.Command, cliCtx *CLIContext) error {
	cfg := cliCtx.Config

	// The server logs per its own config (JSON to stdout by default); the
	// CLI's console logger stays for command plumbing only.
	logger, err := serverLogger(cfg, cliCtx.LogLevel)
	if err != nil {
		return fmt.Errorf("logger setup failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics.
	appMetrics := metrics.NewNopAppMetrics()
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		collector, cerr := metrics.NewCollector(metrics.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger.Named("metrics"))
		if cerr != nil {
			return fmt.Errorf("metrics setup failed: %w", cerr)
		}
		appMetrics = metrics.NewAppMetrics(collector)
		metricsHandler = collector.Handler()
	}

	// Molecule library and service.
	molecules := appmol.NewService(storage.NewLibrary(),
		appmol.WithLogger(logger.Named("molecule")),
		appmol.WithMetrics(appMetrics),
	)

	// Rendering engines and viewer sessions.
	provider := render.NewProvider(render.WithLogger(logger.Named("render")))
	provider.Register(raster.EngineName, raster.Factory())

	manager := appviewer.NewManager(provider, appviewer.ManagerConfig{
		Session: appviewer.Config{
			Engine:                cfg.Viewer.Engine,
			Background:            cfg.Viewer.Background,
			ZoomStep:              cfg.Viewer.ZoomStep,
			ZoomDuration:          cfg.Viewer.ZoomDuration,
			NoticeTTL:             cfg.Viewer.NoticeTTL,
			RetainSelectionOnLoad: cfg.Viewer.RetainSelectionOnLoad,
			HighlightColors:       cfg.Viewer.HighlightColors,
		},
		Width:       cfg.Viewer.Width,
		Height:      cfg.Viewer.Height,
		MaxSessions: cfg.Viewer.MaxSessions,
	},
		appviewer.WithManagerLogger(logger.Named("viewer")),
		appviewer.WithManagerMetrics(appMetrics),
	)
	defer manager.CloseAll()

	// Demo catalog.
	if cfg.Catalog.Path != "" {
		loader := catalog.NewLoader(molecules, cfg.Catalog.Path,
			catalog.WithLogger(logger.Named("catalog")))
		if n, lerr := loader.Load(ctx); lerr != nil {
			logger.Warn("catalog load failed", logging.Err(lerr))
		} else {
			logger.Info("catalog loaded", logging.Int("molecules", n))
		}
		if cfg.Catalog.Watch {
			if werr := loader.Watch(ctx); werr != nil {
				logger.Warn("catalog watch failed", logging.Err(werr))
			}
		}
		defer loader.Close()
	}

	// Live log-level reload when the config came from a file.
	if cliCtx.ConfigPath != "" {
		config.Watch(cliCtx.ConfigPath, func(c *config.Config) {
			if logging.SetLevel(logger, c.Log.Level) {
				logger.Info("log level updated", logging.String("level", c.Log.Level))
			}
		})
	}

	// HTTP surface.
	var corsMW *middleware.CORSMiddleware
	if cfg.CORS.Enabled {
		corsMW = middleware.NewCORSMiddleware(corsConfig(cfg.CORS))
	}
	var metricsMW *middleware.MetricsMiddleware
	if cfg.Metrics.Enabled {
		metricsMW = middleware.NewMetricsMiddleware(appMetrics)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		MoleculeHandler: handlers.NewMoleculeHandler(molecules, logger.Named("http")),
		ViewerHandler:   handlers.NewViewerHandler(manager, molecules, logger.Named("http")),
		HealthHandler: handlers.NewHealthHandler(Version,
			engineChecker{provider: provider, engine: cfg.Viewer.Engine}),

		CORSMiddleware:    corsMW,
		LoggingMiddleware: middleware.NewLoggingMiddleware(logger.Named("http"), middleware.DefaultLoggingConfig()),
		MetricsMiddleware: metricsMW,

		MaxBodyBytes:   cfg.Server.MaxBodySize,
		MetricsHandler: metricsHandler,
		MetricsPath:    cfg.Metrics.Path,
	})

	server := httpserver.NewServer(cfg.Server, router, logger.Named("http"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("molscope server started",
		logging.String("host", cfg.Server.Host),
		logging.Int("port", cfg.Server.Port),
		logging.String("engine", cfg.Viewer.Engine),
		logging.String("version", Version),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Stop(stopCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// serverLogger builds the server's logger from the log config, applying the
// CLI-level override when one was given.
func serverLogger(cfg *config.Config, override string) (logging.Logger, error) {
	logCfg := logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	}
	if override != "" {
		logCfg.Level = override
	}
	return logging.NewLogger(logCfg)
}

// corsConfig maps the application CORS settings onto the middleware
// configuration, keeping the restrictive defaults for anything unset.
func corsConfig(cfg config.CORSConfig) middleware.CORSConfig {
	out := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		out.AllowedOrigins = cfg.AllowedOrigins
	}
	if len(cfg.AllowedMethods) > 0 {
		out.AllowedMethods = cfg.AllowedMethods
	}
	if len(cfg.AllowedHeaders) > 0 {
		out.AllowedHeaders = cfg.AllowedHeaders
	}
	if cfg.MaxAge > 0 {
		out.MaxAge = cfg.MaxAge
	}
	return out
}

// engineChecker reports readiness of the configured rendering engine by
// acquiring it through the provider.  Acquisition is cached, so the probe is
// cheap after the first success and retries transparently after failures.
type engineChecker struct {
	provider *render.Provider
	engine   string
}

func (c engineChecker) Name() string { return "render_engine" }

func (c engineChecker) Check(ctx context.Context) error {
	_, err := c.provider.Acquire(ctx, c.engine)
	return err
}
