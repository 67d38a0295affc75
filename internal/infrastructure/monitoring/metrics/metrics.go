package metrics

// AppMetrics holds every application metric, grouped by layer.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Viewer sessions
	SessionsActive            GaugeVec
	SessionsOpenedTotal       CounterVec
	EngineAcquisitionsTotal   CounterVec
	RenderPassesTotal         CounterVec
	SelectionTransitionsTotal CounterVec
	MoleculeLoadsTotal        CounterVec

	// Molecule layer
	MoleculeParsesTotal   CounterVec
	MoleculeParseDuration HistogramVec
	LibrarySize           GaugeVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultParseDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5}
)

// NewAppMetrics registers all application metrics on the collector.
func NewAppMetrics(collector Collector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total",
		"Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds",
		"HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests",
		"Active HTTP requests", "method")

	// Viewer sessions
	m.SessionsActive = collector.RegisterGauge("viewer_sessions_active",
		"Currently open viewer sessions")
	m.SessionsOpenedTotal = collector.RegisterCounter("viewer_sessions_opened_total",
		"Viewer sessions opened since start")
	m.EngineAcquisitionsTotal = collector.RegisterCounter("viewer_engine_acquisitions_total",
		"Rendering engine acquisitions by outcome", "engine", "outcome")
	m.RenderPassesTotal = collector.RegisterCounter("viewer_render_passes_total",
		"Render passes issued to engine viewers", "engine")
	m.SelectionTransitionsTotal = collector.RegisterCounter("viewer_selection_transitions_total",
		"Selection state machine transitions", "action")
	m.MoleculeLoadsTotal = collector.RegisterCounter("viewer_molecule_loads_total",
		"Molecules loaded into viewer sessions", "outcome")

	// Molecule layer
	m.MoleculeParsesTotal = collector.RegisterCounter("molecule_parses_total",
		"Structure file parses by format and outcome", "format", "outcome")
	m.MoleculeParseDuration = collector.RegisterHistogram("molecule_parse_duration_seconds",
		"Structure file parse duration", DefaultParseDurationBuckets, "format")
	m.LibrarySize = collector.RegisterGauge("molecule_library_size",
		"Molecules currently held in the library")

	return m
}

// NewNopAppMetrics returns an AppMetrics whose handles record nothing.
func NewNopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNopCollector())
}
