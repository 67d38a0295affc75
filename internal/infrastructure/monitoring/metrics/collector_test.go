package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) Collector {
	t.Helper()
	c, err := NewCollector(CollectorConfig{
		Namespace: "test",
		Subsystem: "unit",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, collector Collector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewCollector_RequiresNamespace(t *testing.T) {
	_, err := NewCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestCollector_CounterRoundTrip(t *testing.T) {
	c := newTestCollector(t)

	counter := c.RegisterCounter("events_total", "Events.", "kind")
	counter.WithLabelValues("load").Inc()
	counter.WithLabelValues("load").Add(2)

	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_events_total")
	assert.Contains(t, out, `kind="load"`)
	assert.Contains(t, out, "3")
}

func TestCollector_GaugeSetAndDec(t *testing.T) {
	c := newTestCollector(t)

	gauge := c.RegisterGauge("active", "Active things.")
	gauge.WithLabelValues().Set(5)
	gauge.WithLabelValues().Dec()

	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_active 4")
}

func TestCollector_HistogramObserves(t *testing.T) {
	c := newTestCollector(t)

	hist := c.RegisterHistogram("latency_seconds", "Latency.", []float64{0.1, 1}, "op")
	hist.WithLabelValues("parse").Observe(0.05)

	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_latency_seconds_bucket")
	assert.Contains(t, out, `op="parse"`)
}

func TestCollector_DuplicateRegistrationReturnsOriginal(t *testing.T) {
	c := newTestCollector(t)

	first := c.RegisterCounter("dup_total", "Dup.", "k")
	second := c.RegisterCounter("dup_total", "Dup.", "k")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()

	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_dup_total")
	assert.Contains(t, out, "2", "both handles must feed the same series")
}

func TestCollector_RegistrationFailureYieldsNoop(t *testing.T) {
	c := newTestCollector(t)

	c.RegisterCounter("clash_total", "Original.", "k")
	// Same name, different type: prometheus rejects it and the caller gets a
	// silent no-op rather than a panic.
	gauge := c.RegisterGauge("clash_total", "Clashing.", "k")
	gauge.WithLabelValues("a").Set(99)

	out := scrape(t, c)
	assert.NotContains(t, out, "99")
}

func TestNopCollector_RecordsNothing(t *testing.T) {
	c := NewNopCollector()

	c.RegisterCounter("x_total", "X.").WithLabelValues().Inc()
	c.RegisterGauge("y", "Y.").With(map[string]string{}).Set(1)
	c.RegisterHistogram("z_seconds", "Z.", nil).WithLabelValues().Observe(1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimer_ObservesElapsed(t *testing.T) {
	c := newTestCollector(t)
	hist := c.RegisterHistogram("timed_seconds", "Timed.", []float64{10})

	timer := NewTimer(hist.WithLabelValues())
	time.Sleep(time.Millisecond)
	timer.ObserveDuration()

	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_timed_seconds_count 1")
}

func TestTimer_NilHistogramIsSafe(t *testing.T) {
	timer := NewTimer(nil)
	assert.NotPanics(t, func() { timer.ObserveDuration() })
}
