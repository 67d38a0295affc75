package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmol "github.com/molscope/molscope/internal/application/molecule"
	appviewer "github.com/molscope/molscope/internal/application/viewer"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/metrics"
	"github.com/molscope/molscope/internal/infrastructure/render"
	"github.com/molscope/molscope/internal/infrastructure/render/rendertest"
	"github.com/molscope/molscope/internal/infrastructure/storage"
	"github.com/molscope/molscope/internal/interfaces/http/handlers"
	"github.com/molscope/molscope/internal/interfaces/http/middleware"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// routerFixture is a fully wired route tree over in-memory infrastructure,
// seeded with one molecule and one open session.
type routerFixture struct {
	handler    http.Handler
	svc        appmol.Service
	manager    *appviewer.Manager
	moleculeID string
	sessionID  string
}

func newRouterFixture(t *testing.T, mutate ...func(*RouterConfig)) *routerFixture {
	t.Helper()

	svc := appmol.NewService(storage.NewLibrary())

	provider := render.NewProvider()
	provider.Register("fake", func(context.Context) (render.Engine, error) {
		return rendertest.NewEngine("fake"), nil
	})
	manager := appviewer.NewManager(provider, appviewer.ManagerConfig{
		Session: appviewer.Config{Engine: "fake"},
	})
	t.Cleanup(manager.CloseAll)

	cfg := RouterConfig{
		MoleculeHandler:   handlers.NewMoleculeHandler(svc, logging.NewNopLogger()),
		ViewerHandler:     handlers.NewViewerHandler(manager, svc, logging.NewNopLogger()),
		HealthHandler:     handlers.NewHealthHandler("test"),
		CORSMiddleware:    middleware.NewCORSMiddleware(middleware.DefaultCORSConfig()),
		LoggingMiddleware: middleware.NewLoggingMiddleware(logging.NewNopLogger(), middleware.DefaultLoggingConfig()),
		MetricsMiddleware: middleware.NewMetricsMiddleware(metrics.NewNopAppMetrics()),
	}
	for _, m := range mutate {
		m(&cfg)
	}

	fx := &routerFixture{
		handler: NewRouter(cfg),
		svc:     svc,
		manager: manager,
	}

	mol, err := svc.Create(context.Background(), mtypes.CreateRequest{SMILES: "CCO", Name: "Ethanol"})
	require.NoError(t, err)
	fx.moleculeID = mol.ID

	sess, err := manager.Open(context.Background(), vtypes.CreateSessionRequest{})
	require.NoError(t, err)
	fx.sessionID = sess.ID()

	return fx
}

func (fx *routerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	return rec
}

// TestNewRouter_RegistersAllRoutes drives one request through every route in
// the tree and asserts none of them falls through to the 404 handler.  The
// destructive rows run last so earlier rows keep their fixtures.
func TestNewRouter_RegistersAllRoutes(t *testing.T) {
	fx := newRouterFixture(t)

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/v1/molecules", ""},
		{http.MethodPost, "/api/v1/molecules", `{"smiles":"O","name":"Water"}`},
		{http.MethodPost, "/api/v1/molecules/upload", ""},
		{http.MethodGet, "/api/v1/molecules/" + fx.moleculeID, ""},
		{http.MethodPost, "/api/v1/molecules/" + fx.moleculeID + "/geometry", `{"minimize":true}`},
		{http.MethodGet, "/api/v1/molecules/" + fx.moleculeID + "/distances", ""},
		{http.MethodGet, "/api/v1/molecules/" + fx.moleculeID + "/distance?a=0&b=1", ""},

		{http.MethodPost, "/api/v1/viewer/sessions", ""},
		{http.MethodGet, "/api/v1/viewer/sessions/" + fx.sessionID, ""},
		{http.MethodPut, "/api/v1/viewer/sessions/" + fx.sessionID + "/molecule", fmt.Sprintf(`{"molecule_id":%q}`, fx.moleculeID)},
		{http.MethodPost, "/api/v1/viewer/sessions/" + fx.sessionID + "/pick", `{"serial":1}`},
		{http.MethodPost, "/api/v1/viewer/sessions/" + fx.sessionID + "/selection/clear", ""},
		{http.MethodPost, "/api/v1/viewer/sessions/" + fx.sessionID + "/camera/zoom-in", ""},
		{http.MethodPost, "/api/v1/viewer/sessions/" + fx.sessionID + "/camera/zoom-out", ""},
		{http.MethodPost, "/api/v1/viewer/sessions/" + fx.sessionID + "/camera/reset", ""},
		{http.MethodPost, "/api/v1/viewer/sessions/" + fx.sessionID + "/resize", `{"width":800,"height":600}`},
		{http.MethodGet, "/api/v1/viewer/sessions/" + fx.sessionID + "/frame", ""},

		{http.MethodDelete, "/api/v1/viewer/sessions/" + fx.sessionID, ""},
		{http.MethodDelete, "/api/v1/molecules/" + fx.moleculeID, ""},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := fx.do(rt.method, rt.path, rt.body)
			assert.NotEqual(t, http.StatusNotFound, rec.Code)
			assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}

	t.Run("unregistered path falls through", func(t *testing.T) {
		rec := fx.do(http.MethodGet, "/api/v1/proteins", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNewRouter_HealthEndpoints(t *testing.T) {
	fx := newRouterFixture(t)

	rec := fx.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")

	rec = fx.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	exposition := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# metrics"))
	})

	t.Run("default path", func(t *testing.T) {
		fx := newRouterFixture(t, func(cfg *RouterConfig) {
			cfg.MetricsHandler = exposition
		})
		rec := fx.do(http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "# metrics", rec.Body.String())
	})

	t.Run("custom path", func(t *testing.T) {
		fx := newRouterFixture(t, func(cfg *RouterConfig) {
			cfg.MetricsHandler = exposition
			cfg.MetricsPath = "/internal/metrics"
		})
		rec := fx.do(http.MethodGet, "/internal/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = fx.do(http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("absent without handler", func(t *testing.T) {
		fx := newRouterFixture(t)
		rec := fx.do(http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNewRouter_NilHandlersNoPanic(t *testing.T) {
	var handler http.Handler
	assert.NotPanics(t, func() {
		handler = NewRouter(RouterConfig{})
	})

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/v1/molecules", "/api/v1/viewer/sessions"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

// TestNewRouter_CORSAppliedGlobally exercises the CORS middleware through the
// assembled tree: health probes and API routes share the same policy.
func TestNewRouter_CORSAppliedGlobally(t *testing.T) {
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = []string{"http://localhost:5173"}
	fx := newRouterFixture(t, func(cfg *RouterConfig) {
		cfg.CORSMiddleware = middleware.NewCORSMiddleware(corsCfg)
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/molecules", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("health probes share the policy", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed origin gets no CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/molecules", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestNewRouter_BodyLimit(t *testing.T) {
	fx := newRouterFixture(t, func(cfg *RouterConfig) {
		cfg.MaxBodyBytes = 64
	})

	oversized := fmt.Sprintf(`{"smiles":%q,"name":"big"}`, strings.Repeat("C", 512))
	rec := fx.do(http.MethodPost, "/api/v1/molecules", oversized)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fx.do(http.MethodPost, "/api/v1/molecules", `{"smiles":"O"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
