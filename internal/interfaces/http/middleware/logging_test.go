package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
)

// newCapturingLogger returns a logger writing JSON lines into a buffer.
func newCapturingLogger() (logging.Logger, *zaptest.Buffer) {
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), buf, zapcore.DebugLevel)
	return logging.NewLoggerFromCore(core), buf
}

func statusHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestRequestLogging_LogsCompletedRequest(t *testing.T) {
	logger, buf := newCapturingLogger()
	handler := RequestLogging(logger, DefaultLoggingConfig())(statusHandler(http.StatusOK, "hello"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/molecules?limit=5", nil)
	req.Header.Set("User-Agent", "molscope-test")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	lines := buf.Lines()
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Contains(t, line, `"msg":"http request"`)
	assert.Contains(t, line, `"level":"info"`)
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"path":"/api/v1/molecules?limit=5"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"bytes":5`)
	assert.Contains(t, line, `"user_agent":"molscope-test"`)
}

func TestRequestLogging_LevelsFollowStatus(t *testing.T) {
	cases := []struct {
		name   string
		status int
		level  string
	}{
		{"server error", http.StatusInternalServerError, "error"},
		{"client error", http.StatusNotFound, "warn"},
		{"success", http.StatusOK, "info"},
		{"redirect", http.StatusMovedPermanently, "info"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, buf := newCapturingLogger()
			handler := RequestLogging(logger, DefaultLoggingConfig())(statusHandler(tc.status, ""))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

			lines := buf.Lines()
			require.Len(t, lines, 1)
			assert.Contains(t, lines[0], `"level":"`+tc.level+`"`)
		})
	}
}

func TestRequestLogging_SkipPaths(t *testing.T) {
	logger, buf := newCapturingLogger()
	handler := RequestLogging(logger, DefaultLoggingConfig())(statusHandler(http.StatusOK, "ok"))

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, buf.Lines())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/molecules", nil))
	assert.Len(t, buf.Lines(), 1)
}

func TestRequestLogging_SlowRequestsWarn(t *testing.T) {
	logger, buf := newCapturingLogger()
	cfg := LoggingConfig{SlowThreshold: time.Nanosecond}
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	handler := RequestLogging(logger, cfg)(slow)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	lines := buf.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"msg":"http request (slow)"`)
	assert.Contains(t, lines[0], `"level":"warn"`)
}

func TestRequestLogging_DefaultStatusWhenHandlerWritesBody(t *testing.T) {
	logger, buf := newCapturingLogger()
	// Write without an explicit WriteHeader: the wrapper must report 200.
	bare := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("implicit"))
	})
	handler := RequestLogging(logger, DefaultLoggingConfig())(bare)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	lines := buf.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"status":200`)
	assert.Contains(t, lines[0], `"bytes":8`)
}
