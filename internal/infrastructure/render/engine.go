// Package render defines the rendering-engine boundary: the capability
// surface every engine must provide, the optional capabilities an engine may
// provide, the mount surface viewers bind to, and the provider that acquires
// engine handles process-wide.
//
// Engines are opaque collaborators.  Molscope never reaches into an engine's
// internals; it drives the Viewer interface and feature-detects the optional
// operations exactly once, at construction, through the Capabilities
// descriptor.
package render

import (
	"context"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// ─────────────────────────────────────────────────────────────────────────────
// Construction
// ─────────────────────────────────────────────────────────────────────────────

// Options configures viewer construction.
type Options struct {
	// Background is the canvas colour as a "#RRGGBB" hex string.
	Background string

	// Antialias smooths sphere and cylinder edges where the engine can.
	Antialias bool
}

// Engine is a resolved rendering-engine handle.  One handle serves any
// number of viewers; acquisition cost (loading libraries, warming contexts)
// is paid once per process through the Provider.
type Engine interface {
	// Name identifies the engine in configuration and session info.
	Name() string

	// NewViewer binds a new viewer to a mount surface.  Construction
	// failures return an error; they must never panic across this boundary.
	NewViewer(surface *Surface, opts Options) (Viewer, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Viewer — required capability surface
// ─────────────────────────────────────────────────────────────────────────────

// Viewer is one live rendering instance bound to a mount surface.  All
// methods below are required capabilities; optional ones live in the
// Capabilities descriptor.
//
// Viewers are not safe for concurrent use.  The owning session serializes
// every call, mirroring the single event-loop discipline rendering stacks
// assume.
type Viewer interface {
	// AddModel loads one structural model from render atoms.
	AddModel(atoms []vtypes.RenderAtom) error

	// RemoveAllModels discards every loaded model and any derived scene
	// state, leaving shapes and camera untouched.
	RemoveAllModels()

	// SetStyle applies a visual style to the atoms matched by sel.
	SetStyle(sel Selector, style Style)

	// AddShape adds a line-or-cylinder primitive and returns its handle.
	AddShape(shape Shape) int

	// RemoveShape removes the primitive with the given handle; unknown
	// handles are ignored.
	RemoveShape(handle int)

	// ZoomToFit frames the loaded models in the viewport.
	ZoomToFit()

	// Zoom scales the view by factor (> 1 zooms in) over duration.
	Zoom(factor float64, duration time.Duration)

	// ViewState captures the camera as an opaque value.
	ViewState() ViewState

	// SetViewState restores a previously captured camera.
	SetViewState(state ViewState)

	// Resize adapts the viewport to a new surface size.
	Resize(width, height int)

	// Render draws one frame.
	Render()

	// Release frees engine resources held by this viewer.  The viewer is
	// unusable afterwards.
	Release() error

	// Capabilities returns the optional-operation descriptor, resolved once
	// at construction.  The returned value never changes over the viewer's
	// lifetime.
	Capabilities() Capabilities
}

// Capabilities enumerates optional viewer operations as nullable function
// members.  A nil member means the engine lacks that capability; callers
// check once and branch, rather than probing at every call site.
type Capabilities struct {
	// Snapshot encodes the current frame as PNG bytes.
	Snapshot func() ([]byte, error)

	// PickAt resolves viewport coordinates to the serial of the frontmost
	// atom, reporting false when nothing pickable is hit.
	PickAt func(x, y float64) (serial int, ok bool)

	// ObserveSurface asks the engine itself to watch the mount surface for
	// size changes, calling onResize after each one.  The returned function
	// cancels the observation.  Engines without surface observation leave
	// this nil and rely on the host's resize events alone.
	ObserveSurface func(onResize func(width, height int)) (cancel func())
}

// ─────────────────────────────────────────────────────────────────────────────
// Scene vocabulary
// ─────────────────────────────────────────────────────────────────────────────

// Selector addresses a subset of a model's atoms.  The zero value selects
// every atom.
type Selector struct {
	// Serial, when positive, narrows the selection to the one atom with
	// that pick serial.
	Serial int
}

// All selects every atom of every model.
func All() Selector { return Selector{} }

// BySerial selects the single atom with the given pick serial.
func BySerial(serial int) Selector { return Selector{Serial: serial} }

// Style is the visual treatment of the selected atoms.  Zero-valued fields
// keep the engine's defaults for that aspect.
type Style struct {
	// StickRadius is the bond cylinder radius in Ångströms; 0 hides sticks.
	StickRadius float64

	// SphereScale sizes atom spheres as a fraction of the element's covalent
	// radius; 0 hides spheres.
	SphereScale float64

	// Color overrides per-element colouring with one "#RRGGBB" value.
	Color string
}

// Shape is a line-or-cylinder primitive between two points in model space,
// used for the selection measurement.
type Shape struct {
	From   r3.Vec
	To     r3.Vec
	Radius float64
	Color  string
	Dashed bool
}

// ViewState is an opaque camera snapshot.  Callers treat it as a value:
// engines return fresh copies and never retain the slices they are handed.
type ViewState []float64

// Clone returns an independent copy of the state.
func (v ViewState) Clone() ViewState {
	if v == nil {
		return nil
	}
	out := make(ViewState, len(v))
	copy(out, v)
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Factory
// ─────────────────────────────────────────────────────────────────────────────

// Factory produces a ready engine handle.  Acquisition may be slow and may
// fail; the Provider ensures it runs at most once per engine at a time and
// caches the result process-wide.
type Factory func(ctx context.Context) (Engine, error)
