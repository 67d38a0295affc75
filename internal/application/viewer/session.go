// Package viewer implements the viewer application layer: the session
// lifecycle manager that owns one rendering viewer per mount surface, the
// session registry, and the transient notification channel.
//
// A session serializes every mutation behind one mutex, re-creating the
// single event-loop discipline rendering stacks assume.  The only operation
// that runs off-session is engine acquisition; its continuation re-enters
// the session and re-checks the teardown generation before touching state.
package viewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	domviewer "github.com/molscope/molscope/internal/domain/viewer"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/logging"
	"github.com/molscope/molscope/internal/infrastructure/monitoring/metrics"
	"github.com/molscope/molscope/internal/infrastructure/render"
	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// baseStyle is the ball-and-stick treatment applied to every atom.
var baseStyle = render.Style{StickRadius: 0.15, SphereScale: 0.3}

// Measurement primitive constants.
const (
	measurementRadius = 0.08 // Å
	measurementColor  = "#fbbf24"
)

// Config carries the per-session tunables.  The manager populates it from
// the application configuration; zero values of the numeric fields fall back
// to safe defaults so a partially filled Config stays usable.
type Config struct {
	// Engine names the rendering engine to acquire.
	Engine string

	// Background is the fixed canvas colour handed to viewer construction.
	// Antialiasing is always requested alongside it.
	Background string

	// ZoomStep is the zoom-out camera factor in (0, 1); zoom-in applies the
	// reciprocal.
	ZoomStep float64

	// ZoomDuration is the fixed camera animation time per zoom step.
	ZoomDuration time.Duration

	// NoticeTTL is the transient notification lifetime.
	NoticeTTL time.Duration

	// RetainSelectionOnLoad keeps the selection across molecule swaps.  The
	// retained snapshots are deep copies, so they survive the model rebuild;
	// highlights re-apply by serial to the new model.
	RetainSelectionOnLoad bool

	// HighlightColors are the two slot highlight colours, oldest slot first.
	HighlightColors []string

	// EventBuffer sizes the selection-event subscription channel.
	EventBuffer int
}

func (c Config) withDefaults() Config {
	if c.ZoomStep <= 0 || c.ZoomStep >= 1 {
		c.ZoomStep = 0.8
	}
	if c.ZoomDuration <= 0 {
		c.ZoomDuration = 300 * time.Millisecond
	}
	if c.NoticeTTL <= 0 {
		c.NoticeTTL = 2 * time.Second
	}
	if len(c.HighlightColors) < 2 {
		c.HighlightColors = []string{"#f59e0b", "#3b82f6"}
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 16
	}
	return c
}

// Option customises session construction.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the application metric set.
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Session owns one viewer bound to one mount surface: lifecycle, structure
// loading, atom selection, camera, notifications, and the selection-event
// subscription.  All methods are safe for concurrent use.
type Session struct {
	id       string
	cfg      Config
	surface  *render.Surface
	provider *render.Provider
	logger   logging.Logger
	metrics  *metrics.AppMetrics

	mu       sync.Mutex
	state    vtypes.SessionState
	stateMsg string
	closed   bool

	// gen is bumped by Teardown.  A pending engine acquisition captures the
	// value before blocking and discards its result on mismatch.
	gen uint64

	viewer     render.Viewer
	caps       render.Capabilities
	engineName string

	model        []vtypes.RenderAtom
	moleculeID   string
	moleculeName string

	selection   domviewer.Selection
	measurement *int

	// defaultView is the camera snapshot captured after the current
	// molecule's first render; nil until a molecule has rendered.
	defaultView render.ViewState

	resizeCancels []func()

	notice    *Notice
	events    chan vtypes.SelectionEvent
	createdAt time.Time
}

// NewSession creates a session in the Uninitialized state.  The surface must
// outlive the session; the provider may be shared by any number of sessions.
func NewSession(id string, surface *render.Surface, provider *render.Provider, cfg Config, opts ...Option) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		id:        id,
		cfg:       cfg,
		surface:   surface,
		provider:  provider,
		logger:    logging.NewNopLogger(),
		metrics:   metrics.NewNopAppMetrics(),
		state:     vtypes.StateUninitialized,
		notice:    NewNotice(cfg.NoticeTTL),
		events:    make(chan vtypes.SelectionEvent, cfg.EventBuffer),
		createdAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.String("session_id", id))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// ─────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// Initialize acquires the configured engine, constructs the viewer, and
// renders the empty scene, blocking until this attempt ends Ready or Error.
// A call arriving while another attempt is pending returns nil immediately
// without waiting for that attempt to finish; a call when already Ready is
// a no-op; a call from Error starts a fresh attempt.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New(errors.CodeViewerTornDown, "viewer session torn down")
	}
	switch s.state {
	case vtypes.StateReady, vtypes.StateLoading:
		s.mu.Unlock()
		return nil
	}
	s.state = vtypes.StateLoading
	s.stateMsg = ""
	gen := s.gen
	engineName := s.cfg.Engine
	s.mu.Unlock()

	// Acquisition runs off-session: it may block on a shared single-flight
	// load and must not hold the session mutex meanwhile.
	eng, acqErr := s.provider.Acquire(ctx, engineName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.closed {
		// Torn down while pending.  The resolved handle stays cached in the
		// provider; this session must not come back to life.
		s.metrics.EngineAcquisitionsTotal.WithLabelValues(engineName, "discarded").Inc()
		return errors.New(errors.CodeViewerTornDown, "session torn down during initialization")
	}

	if acqErr != nil {
		s.metrics.EngineAcquisitionsTotal.WithLabelValues(engineName, "error").Inc()
		return s.failLocked(acqErr, "engine acquisition failed")
	}
	s.metrics.EngineAcquisitionsTotal.WithLabelValues(engineName, "ok").Inc()

	if !s.surface.Attached() {
		return s.failLocked(
			errors.New(errors.CodeMountDetached, "mount surface disappeared during engine acquisition"),
			"mount surface detached")
	}

	viewer, err := s.constructViewer(eng)
	if err != nil {
		return s.failLocked(err, "viewer construction failed")
	}

	s.viewer = viewer
	s.caps = viewer.Capabilities()
	s.engineName = eng.Name()

	if s.resizeCancels == nil {
		cancel := s.surface.OnResize(s.onSurfaceResize)
		s.resizeCancels = append(s.resizeCancels, cancel)
		if s.caps.ObserveSurface != nil {
			s.resizeCancels = append(s.resizeCancels, s.caps.ObserveSurface(s.onSurfaceResize))
		}
	}

	s.renderLocked()
	s.state = vtypes.StateReady
	s.logger.Info("viewer session ready", logging.String("engine", s.engineName))
	return nil
}

// constructViewer builds the viewer, converting an engine panic into an
// error so a faulty engine can never take the session down.
func (s *Session) constructViewer(eng render.Engine) (v render.Viewer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeEngineUnavailable,
				fmt.Sprintf("engine panicked during viewer construction: %v", r))
		}
	}()
	return eng.NewViewer(s.surface, render.Options{
		Background: s.cfg.Background,
		Antialias:  true,
	})
}

// failLocked transitions to Error and returns the wrapped cause.
func (s *Session) failLocked(cause error, msg string) error {
	s.state = vtypes.StateError
	s.stateMsg = cause.Error()
	s.logger.Error("viewer session failed", logging.String("reason", msg), logging.Err(cause))
	return cause
}

// Teardown closes the session: pending acquisitions are invalidated, the
// notification timer is cancelled, the viewer is released best-effort, and
// the event channel is closed.  Teardown is idempotent; every operation on
// a torn-down session fails with CodeViewerTornDown.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++

	cancels := s.resizeCancels
	s.resizeCancels = nil
	viewer := s.viewer
	s.viewer = nil
	s.caps = render.Capabilities{}

	s.state = vtypes.StateUninitialized
	s.stateMsg = ""
	s.selection = domviewer.Selection{}
	s.measurement = nil
	s.model = nil
	s.defaultView = nil
	s.moleculeID = ""
	s.moleculeName = ""
	close(s.events)
	s.mu.Unlock()

	s.notice.Teardown()
	for _, cancel := range cancels {
		cancel()
	}
	if viewer != nil {
		if err := viewer.Release(); err != nil {
			s.logger.Warn("viewer release failed", logging.Err(err))
		}
	}
	s.logger.Info("viewer session torn down")
}

// onSurfaceResize is registered with the mount surface (and, when supported,
// with the engine's own surface observation).  It resizes and re-renders
// only while the session is Ready.
func (s *Session) onSurfaceResize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != vtypes.StateReady || s.viewer == nil {
		return
	}
	s.viewer.Resize(width, height)
	s.renderLocked()
}

// ─────────────────────────────────────────────────────────────────────────────
// Structure loading
// ─────────────────────────────────────────────────────────────────────────────

// LoadMolecule swaps the displayed structure: all models and adjacency are
// discarded, the molecule is re-adapted into a fresh render model, the view
// is fitted and rendered, and the default camera snapshot is recaptured.
// The selection resets unless RetainSelectionOnLoad is set, in which case
// highlights and the measurement re-apply to the new model by serial.
func (s *Session) LoadMolecule(mol *mtypes.Molecule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		s.metrics.MoleculeLoadsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	if mol == nil {
		s.metrics.MoleculeLoadsTotal.WithLabelValues("rejected").Inc()
		return errors.New(errors.CodeInvalidParam, "no molecule provided")
	}

	s.viewer.RemoveAllModels()
	s.model = domviewer.RenderAtoms(mol.Atoms, mol.Bonds)
	if err := s.viewer.AddModel(s.model); err != nil {
		s.model = nil
		s.metrics.MoleculeLoadsTotal.WithLabelValues("error").Inc()
		return errors.Wrap(err, errors.CodeEngineUnavailable, "engine rejected the render model")
	}

	if !s.cfg.RetainSelectionOnLoad {
		if eff, changed := s.selection.Clear(); changed {
			s.emitLocked(eff.Event)
		}
	}

	s.restyleLocked()
	s.rebuildMeasurementLocked()
	s.viewer.ZoomToFit()
	s.renderLocked()
	s.defaultView = s.viewer.ViewState()

	s.moleculeID = mol.ID
	s.moleculeName = mol.Name
	s.metrics.MoleculeLoadsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("molecule loaded",
		logging.String("molecule_id", mol.ID),
		logging.String("name", mol.Name),
		logging.Int("atoms", len(mol.Atoms)))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────────────────────

// Pick feeds one picked atom record into the selection machine.  Records
// without a resolvable identity (serial < 1) are ignored without an event.
func (s *Session) Pick(atom vtypes.SelectedAtom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	s.pickLocked(atom)
	return nil
}

// PickSerial resolves a render-model serial and feeds the atom into the
// selection machine.
func (s *Session) PickSerial(serial int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	ra, ok := domviewer.AtomBySerial(s.model, serial)
	if !ok {
		return errors.New(errors.CodeAtomNotFound,
			fmt.Sprintf("no atom with serial %d in the current structure", serial))
	}
	s.pickLocked(domviewer.Snapshot(ra))
	return nil
}

// PickAt resolves viewport coordinates through the engine's optional picking
// capability.  Clicks that hit no atom are ignored.
func (s *Session) PickAt(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	if s.caps.PickAt == nil {
		return errors.New(errors.CodeNotImplemented, "engine does not support coordinate picking")
	}
	serial, ok := s.caps.PickAt(x, y)
	if !ok {
		return nil
	}
	ra, ok := domviewer.AtomBySerial(s.model, serial)
	if !ok {
		return nil
	}
	s.pickLocked(domviewer.Snapshot(ra))
	return nil
}

// ClearSelection empties the selection.  Clearing an empty selection is an
// idempotent no-op: no render, no event.
func (s *Session) ClearSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return err
	}
	eff, changed := s.selection.Clear()
	if !changed {
		return nil
	}
	s.applyEffectLocked(eff)
	s.metrics.SelectionTransitionsTotal.WithLabelValues("clear").Inc()
	return nil
}

func (s *Session) pickLocked(atom vtypes.SelectedAtom) {
	eff, changed := s.selection.Select(atom)
	if !changed {
		return
	}
	s.applyEffectLocked(eff)
	s.metrics.SelectionTransitionsTotal.WithLabelValues("pick").Inc()
}

// applyEffectLocked executes one transition's effect plan: restyle, rebuild
// the measurement primitive, render once, emit the selection event.
func (s *Session) applyEffectLocked(eff domviewer.Effect) {
	s.viewer.SetStyle(render.All(), baseStyle)
	for _, h := range eff.Highlights {
		s.viewer.SetStyle(render.BySerial(h.Serial), s.highlightStyle(h.Slot))
	}

	s.disposeMeasurementLocked()
	if eff.Measurement != nil {
		handle := s.viewer.AddShape(measurementShape(eff.Measurement.From, eff.Measurement.To))
		s.measurement = &handle
	}

	s.renderLocked()
	s.emitLocked(eff.Event)
}

// restyleLocked re-applies base styling plus the highlights implied by the
// current selection.  Used after model swaps, where no transition occurred
// but the new model carries no styling yet.
func (s *Session) restyleLocked() {
	s.viewer.SetStyle(render.All(), baseStyle)
	for slot, atom := range s.selection.Atoms() {
		s.viewer.SetStyle(render.BySerial(atom.Serial), s.highlightStyle(slot))
	}
}

func (s *Session) rebuildMeasurementLocked() {
	s.disposeMeasurementLocked()
	atoms := s.selection.Atoms()
	if len(atoms) != 2 {
		return
	}
	handle := s.viewer.AddShape(measurementShape(atoms[0], atoms[1]))
	s.measurement = &handle
}

func (s *Session) disposeMeasurementLocked() {
	if s.measurement != nil {
		s.viewer.RemoveShape(*s.measurement)
		s.measurement = nil
	}
}

func (s *Session) highlightStyle(slot int) render.Style {
	color := s.cfg.HighlightColors[0]
	if slot == 1 {
		color = s.cfg.HighlightColors[1]
	}
	return render.Style{StickRadius: 0.15, SphereScale: 0.45, Color: color}
}

func measurementShape(from, to vtypes.SelectedAtom) render.Shape {
	return render.Shape{
		From:   vec(from.Coordinates),
		To:     vec(to.Coordinates),
		Radius: measurementRadius,
		Color:  measurementColor,
		Dashed: true,
	}
}

func vec(c vtypes.Coordinates) r3.Vec {
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Z}
}

// ─────────────────────────────────────────────────────────────────────────────
// Camera
// ─────────────────────────────────────────────────────────────────────────────

// ZoomIn magnifies by the reciprocal of the configured zoom step.  A no-op
// while the viewer is not Ready.
func (s *Session) ZoomIn() error { return s.zoom(1 / s.cfg.ZoomStep) }

// ZoomOut shrinks by the configured zoom step.  A no-op while the viewer is
// not Ready.
func (s *Session) ZoomOut() error { return s.zoom(s.cfg.ZoomStep) }

func (s *Session) zoom(factor float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.CodeViewerTornDown, "viewer session torn down")
	}
	if s.state != vtypes.StateReady {
		return nil
	}
	s.viewer.Zoom(factor, s.cfg.ZoomDuration)
	s.renderLocked()
	return nil
}

// ResetView restores the default camera snapshot captured after the current
// molecule's first render; without one the camera is left alone.  Either
// way it renders and shows a transient notification.
func (s *Session) ResetView() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.CodeViewerTornDown, "viewer session torn down")
	}
	if s.state != vtypes.StateReady {
		return nil
	}
	if s.defaultView != nil {
		s.viewer.SetViewState(s.defaultView)
	}
	s.renderLocked()
	s.notice.Show("View reset")
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Surface, frames, accessors
// ─────────────────────────────────────────────────────────────────────────────

// Resize propagates a host-driven surface size change.  The surface fans the
// change out to every registered listener; the session's own listener
// performs the viewer resize and render when Ready.
func (s *Session) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.New(errors.CodeInvalidParam, "resize dimensions must be positive")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New(errors.CodeViewerTornDown, "viewer session torn down")
	}
	s.mu.Unlock()

	// Off-lock: the listener re-enters the session mutex.
	s.surface.Resize(width, height)
	return nil
}

// Frame returns the current frame as PNG bytes via the engine's optional
// snapshot capability.
func (s *Session) Frame() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return nil, err
	}
	if s.caps.Snapshot == nil {
		return nil, errors.New(errors.CodeSnapshotUnsupported,
			fmt.Sprintf("engine %q does not support frame snapshots", s.engineName))
	}
	data, err := s.caps.Snapshot()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "frame snapshot failed")
	}
	return data, nil
}

// State returns the lifecycle state.
func (s *Session) State() vtypes.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Selection returns the ordered selection snapshot and its distance.
func (s *Session) Selection() vtypes.SelectionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return vtypes.SelectionEvent{
		Atoms:    s.selection.Atoms(),
		Distance: s.selection.Distance(),
	}
}

// Notice returns the currently displayed transient message, empty once it
// has expired.
func (s *Session) Notice() string {
	return s.notice.Current()
}

// Events returns the selection-event subscription channel.  It is closed by
// Teardown.  Events are dropped, not blocked on, when the subscriber lags
// behind the buffer.
func (s *Session) Events() <-chan vtypes.SelectionEvent {
	return s.events
}

// Info assembles the externally visible session state.
func (s *Session) Info() vtypes.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	width, height := s.surface.Size()

	engine := s.engineName
	if engine == "" {
		engine = s.cfg.Engine
	}

	return vtypes.SessionInfo{
		ID:         s.id,
		State:      s.state,
		Engine:     engine,
		Error:      s.stateMsg,
		MoleculeID: s.moleculeID,
		Width:      width,
		Height:     height,
		Selected:   s.selection.Atoms(),
		Distance:   s.selection.Distance(),
		Notice:     s.notice.Current(),
		CreatedAt:  s.createdAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Internal helpers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Session) readyLocked() error {
	if s.closed {
		return errors.New(errors.CodeViewerTornDown, "viewer session torn down")
	}
	if s.state != vtypes.StateReady {
		return errors.New(errors.CodeViewerNotReady, "viewer is not ready")
	}
	return nil
}

func (s *Session) renderLocked() {
	s.viewer.Render()
	s.metrics.RenderPassesTotal.WithLabelValues(s.engineName).Inc()
}

// emitLocked delivers a selection event without ever blocking the session.
func (s *Session) emitLocked(ev vtypes.SelectionEvent) {
	select {
	case s.events <- ev:
	default:
		s.logger.Debug("selection event dropped, subscriber lagging")
	}
}
