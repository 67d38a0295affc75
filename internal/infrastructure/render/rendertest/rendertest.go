// Package rendertest provides recording fakes of the render contracts.
// Tests drive real sessions against a fake engine and assert on the exact
// call sequence the session issued.
package rendertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/molscope/molscope/internal/infrastructure/render"
	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// ─────────────────────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────────────────────

// Engine is a configurable fake rendering engine.  Knobs are read at
// NewViewer time; set them before handing the engine to the code under test.
type Engine struct {
	EngineName string

	// NewViewerErr makes construction fail.
	NewViewerErr error

	// PanicOnNew makes construction panic, for fault-containment tests.
	PanicOnNew bool

	// ReleaseErr is returned by every constructed viewer's Release.
	ReleaseErr error

	// WithSnapshot, WithPick, and WithObserve populate the corresponding
	// optional capability on constructed viewers.
	WithSnapshot bool
	WithPick     bool
	WithObserve  bool

	// SnapshotBytes is what the Snapshot capability returns.
	SnapshotBytes []byte

	// PickSerial is what the PickAt capability resolves to (ok when > 0).
	PickSerial int

	mu      sync.Mutex
	viewers []*Viewer
}

// NewEngine returns a fake engine with no optional capabilities.
func NewEngine(name string) *Engine {
	return &Engine{EngineName: name}
}

func (e *Engine) Name() string { return e.EngineName }

// NewViewer constructs a recording viewer bound to surface.
func (e *Engine) NewViewer(surface *render.Surface, opts render.Options) (render.Viewer, error) {
	if e.PanicOnNew {
		panic("rendertest: construction panic requested")
	}
	if e.NewViewerErr != nil {
		return nil, e.NewViewerErr
	}

	v := &Viewer{
		surface:    surface,
		opts:       opts,
		shapes:     map[int]render.Shape{},
		view:       render.ViewState{1, 0, 0},
		releaseErr: e.ReleaseErr,
	}
	if e.WithSnapshot {
		png := e.SnapshotBytes
		v.caps.Snapshot = func() ([]byte, error) { return png, nil }
	}
	if e.WithPick {
		serial := e.PickSerial
		v.caps.PickAt = func(x, y float64) (int, bool) { return serial, serial > 0 }
	}
	if e.WithObserve {
		v.caps.ObserveSurface = func(onResize func(int, int)) func() {
			return surface.OnResize(onResize)
		}
	}

	e.mu.Lock()
	e.viewers = append(e.viewers, v)
	e.mu.Unlock()
	return v, nil
}

// ViewerCount reports how many viewers the engine has constructed.
func (e *Engine) ViewerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.viewers)
}

// LastViewer returns the most recently constructed viewer, or nil.
func (e *Engine) LastViewer() *Viewer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.viewers) == 0 {
		return nil
	}
	return e.viewers[len(e.viewers)-1]
}

// ─────────────────────────────────────────────────────────────────────────────
// Viewer
// ─────────────────────────────────────────────────────────────────────────────

// StyleCall records one SetStyle invocation.
type StyleCall struct {
	Selector render.Selector
	Style    render.Style
}

// ZoomCall records one Zoom invocation.
type ZoomCall struct {
	Factor   float64
	Duration time.Duration
}

// Viewer records every call it receives.  The camera is modelled as
// [zoom, panX, panY] so view capture/restore round-trips observably: Zoom
// multiplies the first component, ZoomToFit resets the state.
type Viewer struct {
	mu sync.Mutex

	surface *render.Surface
	opts    render.Options

	models   [][]vtypes.RenderAtom
	styles   []StyleCall
	shapes   map[int]render.Shape
	shapeSeq int
	zooms    []ZoomCall
	zoomFits int
	renders  int
	resizes  [][2]int
	view     render.ViewState

	released   bool
	releaseErr error

	caps render.Capabilities
}

func (v *Viewer) AddModel(atoms []vtypes.RenderAtom) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	model := make([]vtypes.RenderAtom, len(atoms))
	copy(model, atoms)
	v.models = append(v.models, model)
	return nil
}

func (v *Viewer) RemoveAllModels() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.models = nil
}

func (v *Viewer) SetStyle(sel render.Selector, style render.Style) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.styles = append(v.styles, StyleCall{Selector: sel, Style: style})
}

func (v *Viewer) AddShape(shape render.Shape) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shapeSeq++
	v.shapes[v.shapeSeq] = shape
	return v.shapeSeq
}

func (v *Viewer) RemoveShape(handle int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.shapes, handle)
}

func (v *Viewer) ZoomToFit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoomFits++
	v.view = render.ViewState{1, 0, 0}
}

func (v *Viewer) Zoom(factor float64, duration time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zooms = append(v.zooms, ZoomCall{Factor: factor, Duration: duration})
	next := v.view.Clone()
	next[0] *= factor
	v.view = next
}

func (v *Viewer) ViewState() render.ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view.Clone()
}

func (v *Viewer) SetViewState(state render.ViewState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.view = state.Clone()
}

func (v *Viewer) Resize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resizes = append(v.resizes, [2]int{width, height})
}

func (v *Viewer) Render() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders++
}

func (v *Viewer) Release() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.released = true
	return v.releaseErr
}

func (v *Viewer) Capabilities() render.Capabilities {
	return v.caps
}

// ── Inspection ────────────────────────────────────────────────────────────────

// Options returns the construction options the viewer was built with.
func (v *Viewer) Options() render.Options {
	return v.opts
}

// Models returns a copy of the currently loaded models.
func (v *Viewer) Models() [][]vtypes.RenderAtom {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]vtypes.RenderAtom, len(v.models))
	copy(out, v.models)
	return out
}

// Styles returns every SetStyle call in order.
func (v *Viewer) Styles() []StyleCall {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]StyleCall(nil), v.styles...)
}

// Shapes returns the currently present shapes ordered by handle.
func (v *Viewer) Shapes() []render.Shape {
	v.mu.Lock()
	defer v.mu.Unlock()
	handles := make([]int, 0, len(v.shapes))
	for h := range v.shapes {
		handles = append(handles, h)
	}
	sort.Ints(handles)
	out := make([]render.Shape, 0, len(handles))
	for _, h := range handles {
		out = append(out, v.shapes[h])
	}
	return out
}

// Zooms returns every Zoom call in order.
func (v *Viewer) Zooms() []ZoomCall {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]ZoomCall(nil), v.zooms...)
}

// ZoomFits reports how many times ZoomToFit ran.
func (v *Viewer) ZoomFits() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoomFits
}

// Renders reports how many frames were drawn.
func (v *Viewer) Renders() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renders
}

// Resizes returns every Resize call in order.
func (v *Viewer) Resizes() [][2]int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([][2]int(nil), v.resizes...)
}

// Released reports whether Release ran.
func (v *Viewer) Released() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.released
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

// Factory returns a render.Factory that resolves immediately to eng.
func Factory(eng render.Engine) render.Factory {
	return func(ctx context.Context) (render.Engine, error) {
		return eng, nil
	}
}

// Gate is a controllable acquisition: its factory blocks every caller until
// the gate is released or failed.  It drives cancellation and single-flight
// tests.
type Gate struct {
	eng render.Engine

	startOnce sync.Once
	started   chan struct{}

	releaseOnce sync.Once
	proceed     chan struct{}

	mu    sync.Mutex
	err   error
	calls int
}

// NewGate returns a gate resolving to eng once released.
func NewGate(eng render.Engine) *Gate {
	return &Gate{
		eng:     eng,
		started: make(chan struct{}),
		proceed: make(chan struct{}),
	}
}

// Factory returns the gated factory.
func (g *Gate) Factory() render.Factory {
	return func(ctx context.Context) (render.Engine, error) {
		g.mu.Lock()
		g.calls++
		g.mu.Unlock()
		g.startOnce.Do(func() { close(g.started) })

		<-g.proceed

		g.mu.Lock()
		err := g.err
		g.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return g.eng, nil
	}
}

// Started is closed once the first factory call has begun.
func (g *Gate) Started() <-chan struct{} { return g.started }

// Release lets every pending and future factory call return the engine.
func (g *Gate) Release() {
	g.releaseOnce.Do(func() { close(g.proceed) })
}

// Fail makes every pending and future factory call return err instead.
func (g *Gate) Fail(err error) {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
	g.releaseOnce.Do(func() { close(g.proceed) })
}

// Calls reports how many times the factory has been entered.
func (g *Gate) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
