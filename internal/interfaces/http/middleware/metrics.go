package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/molscope/molscope/internal/infrastructure/monitoring/metrics"
)

// MetricsMiddleware records per-request counters and durations.  The path
// label uses the chi route pattern ("/api/v1/molecules/{moleculeID}"), not
// the raw URL, keeping label cardinality bounded.
type MetricsMiddleware struct {
	app *metrics.AppMetrics
}

// NewMetricsMiddleware creates a metrics middleware over the app metrics.
func NewMetricsMiddleware(app *metrics.AppMetrics) *MetricsMiddleware {
	return &MetricsMiddleware{app: app}
}

// Handler returns the middleware handler function.
func (m *MetricsMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		active := m.app.HTTPActiveRequests.WithLabelValues(r.Method)
		active.Inc()
		defer active.Dec()

		start := time.Now()
		wrapped := newWrappedResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		// The route pattern is populated during routing, so it is read after
		// the handler ran.
		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}

		m.app.HTTPRequestsTotal.
			WithLabelValues(r.Method, pattern, strconv.Itoa(wrapped.statusCode)).Inc()
		m.app.HTTPRequestDuration.
			WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
