// Package raster implements the built-in software rendering engine: an
// orthographic ball-and-stick rasterizer drawing into an in-memory canvas.
// It needs no GPU and no display, which makes it the default engine for
// headless deployments and the reference implementation of the full viewer
// contract, including the optional Snapshot and PickAt capabilities.
package raster

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math"
	"sort"
	"time"

	"github.com/fogleman/gg"

	"github.com/molscope/molscope/internal/domain/molecule"
	"github.com/molscope/molscope/internal/infrastructure/render"
	"github.com/molscope/molscope/pkg/errors"
	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// EngineName is the provider registration name of this engine.
const EngineName = "raster"

// defaultScale is the fallback projection scale in pixels per Ångström,
// used before the first zoom-to-fit and for degenerate models.
const defaultScale = 40.0

// fitMargin leaves breathing room around a fitted model.
const fitMargin = 0.8

// fallbackRadius sizes spheres of elements missing from the periodic table.
const fallbackRadius = 0.75

type engine struct{}

// New returns the software raster engine.
func New() render.Engine { return engine{} }

// Factory adapts New to the provider contract.  Construction is cheap; the
// factory exists so the raster engine is acquired through the same
// single-flight path as expensive engines.
func Factory() render.Factory {
	return func(ctx context.Context) (render.Engine, error) {
		return New(), nil
	}
}

func (engine) Name() string { return EngineName }

func (engine) NewViewer(surface *render.Surface, opts render.Options) (render.Viewer, error) {
	if surface == nil || !surface.Attached() {
		return nil, errors.New(errors.CodeMountDetached,
			"cannot construct a viewer without an attached surface")
	}
	width, height := surface.Size()
	if width <= 0 || height <= 0 {
		return nil, errors.New(errors.CodeInvalidParam,
			"viewer surface must have a positive size")
	}

	background := opts.Background
	if background == "" {
		background = "#FFFFFF"
	}

	v := &viewer{
		width:      width,
		height:     height,
		background: background,
		antialias:  opts.Antialias,
		overrides:  map[int]render.Style{},
		shapes:     map[int]render.Shape{},
		view:       viewState{scale: defaultScale},
	}
	return v, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Viewer
// ─────────────────────────────────────────────────────────────────────────────

// viewState is the raster camera: an orthographic front view defined by a
// projection scale and a model-space centre.
type viewState struct {
	scale  float64 // pixels per Ångström
	cx, cy float64 // model-space centre
}

// viewer rasterizes ball-and-stick scenes.  It is not safe for concurrent
// use; the owning session serializes all calls.
type viewer struct {
	width, height int
	background    string
	antialias     bool

	models    [][]vtypes.RenderAtom
	base      render.Style
	overrides map[int]render.Style

	shapes   map[int]render.Shape
	shapeSeq int

	view  viewState
	frame image.Image
}

func (v *viewer) AddModel(atoms []vtypes.RenderAtom) error {
	model := make([]vtypes.RenderAtom, len(atoms))
	copy(model, atoms)
	v.models = append(v.models, model)
	return nil
}

func (v *viewer) RemoveAllModels() {
	v.models = nil
}

// SetStyle with the all-atoms selector replaces the base style and every
// per-atom override; a serial selector overrides just that atom.  Atoms are
// invisible until a style gives them a sphere or stick.
func (v *viewer) SetStyle(sel render.Selector, style render.Style) {
	if sel.Serial > 0 {
		v.overrides[sel.Serial] = style
		return
	}
	v.base = style
	v.overrides = map[int]render.Style{}
}

func (v *viewer) AddShape(shape render.Shape) int {
	v.shapeSeq++
	v.shapes[v.shapeSeq] = shape
	return v.shapeSeq
}

func (v *viewer) RemoveShape(handle int) {
	delete(v.shapes, handle)
}

// ZoomToFit frames every loaded atom with a margin.  Degenerate extents
// (a single atom, an empty scene) keep the default scale.
func (v *viewer) ZoomToFit() {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	count := 0
	for _, model := range v.models {
		for _, a := range model {
			minX = math.Min(minX, a.X)
			maxX = math.Max(maxX, a.X)
			minY = math.Min(minY, a.Y)
			maxY = math.Max(maxY, a.Y)
			count++
		}
	}
	if count == 0 {
		return
	}

	v.view.cx = (minX + maxX) / 2
	v.view.cy = (minY + maxY) / 2

	rangeX, rangeY := maxX-minX, maxY-minY
	scale := math.Inf(1)
	if rangeX > 0 {
		scale = float64(v.width) * fitMargin / rangeX
	}
	if rangeY > 0 {
		scale = math.Min(scale, float64(v.height)*fitMargin/rangeY)
	}
	if math.IsInf(scale, 1) || scale <= 0 {
		scale = defaultScale
	}
	v.view.scale = scale
}

func (v *viewer) Zoom(factor float64, _ time.Duration) {
	if factor <= 0 {
		return
	}
	v.view.scale *= factor
}

func (v *viewer) ViewState() render.ViewState {
	return render.ViewState{v.view.scale, v.view.cx, v.view.cy}
}

func (v *viewer) SetViewState(state render.ViewState) {
	if len(state) < 3 || state[0] <= 0 {
		return
	}
	v.view = viewState{scale: state[0], cx: state[1], cy: state[2]}
}

func (v *viewer) Resize(width, height int) {
	if width > 0 && height > 0 {
		v.width, v.height = width, height
	}
}

func (v *viewer) Render() {
	v.frame = v.draw()
}

func (v *viewer) Release() error {
	v.models = nil
	v.shapes = map[int]render.Shape{}
	v.frame = nil
	return nil
}

func (v *viewer) Capabilities() render.Capabilities {
	return render.Capabilities{
		Snapshot: v.snapshotPNG,
		PickAt:   v.pickAt,
		// No surface observation: the raster engine sees only explicit
		// Resize calls.
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Projection and drawing
// ─────────────────────────────────────────────────────────────────────────────

type projAtom struct {
	serial int
	x, y   float64 // canvas pixels
	z      float64 // model depth, larger is closer
	radius float64 // sphere radius in pixels
	color  string
}

func (v *viewer) toCanvas(x, y float64) (float64, float64) {
	px := float64(v.width)/2 + (x-v.view.cx)*v.view.scale
	py := float64(v.height)/2 - (y-v.view.cy)*v.view.scale
	return px, py
}

func (v *viewer) styleFor(serial int) render.Style {
	if style, ok := v.overrides[serial]; ok {
		return style
	}
	return v.base
}

// project maps every model's atoms to canvas space, index-aligned per model
// so bond drawing can look endpoints up directly.
func (v *viewer) project() [][]projAtom {
	out := make([][]projAtom, len(v.models))
	for m, model := range v.models {
		proj := make([]projAtom, len(model))
		for i, a := range model {
			style := v.styleFor(a.Serial)
			px, py := v.toCanvas(a.X, a.Y)

			radius := fallbackRadius
			if el, ok := molecule.LookupElement(a.Element); ok && el.CovalentRadius > 0 {
				radius = el.CovalentRadius
			}
			proj[i] = projAtom{
				serial: a.Serial,
				x:      px,
				y:      py,
				z:      a.Z,
				radius: radius * style.SphereScale * v.view.scale,
				color:  colorFor(style, a.Element),
			}
		}
		out[m] = proj
	}
	return out
}

// draw rasterizes the scene: sticks first, then spheres far to near, then
// shape primitives on top.
func (v *viewer) draw() image.Image {
	dc := gg.NewContext(v.width, v.height)
	dc.SetHexColor(v.background)
	dc.Clear()

	proj := v.project()

	for m, model := range v.models {
		for i, atom := range model {
			v.drawSticks(dc, model, proj[m], i, atom)
		}
	}

	var spheres []projAtom
	for _, model := range proj {
		spheres = append(spheres, model...)
	}
	sort.SliceStable(spheres, func(i, j int) bool { return spheres[i].z < spheres[j].z })
	for _, s := range spheres {
		if s.radius <= 0 {
			continue
		}
		dc.SetHexColor(s.color)
		dc.DrawCircle(s.x, s.y, s.radius)
		dc.Fill()
	}

	v.drawShapes(dc)
	return dc.Image()
}

// drawSticks draws atom i's bonds to higher-indexed neighbours, so each bond
// renders once even though adjacency lists both directions.  Double and
// triple bonds become parallel lines offset perpendicular to the bond axis.
func (v *viewer) drawSticks(dc *gg.Context, model []vtypes.RenderAtom, proj []projAtom, i int, atom vtypes.RenderAtom) {
	from := proj[i]
	for k, j := range atom.Bonds {
		if j <= i || j >= len(model) {
			continue
		}
		to := proj[j]

		width := math.Max(v.styleFor(from.serial).StickRadius, v.styleFor(to.serial).StickRadius)
		width *= 2 * v.view.scale
		if width <= 0 {
			continue
		}
		if width < 1 {
			width = 1
		}

		order := 1
		if k < len(atom.BondOrder) {
			order = atom.BondOrder[k]
		}

		rad := math.Atan2(to.y-from.y, to.x-from.x)
		delta := width + 2
		dxOff := math.Sin(rad) * delta
		dyOff := -math.Cos(rad) * delta

		dc.SetLineWidth(width)
		switch order {
		case 2:
			v.strokeHalves(dc, from, to, dxOff/2, dyOff/2)
			v.strokeHalves(dc, from, to, -dxOff/2, -dyOff/2)
		case 3:
			v.strokeHalves(dc, from, to, 0, 0)
			v.strokeHalves(dc, from, to, dxOff, dyOff)
			v.strokeHalves(dc, from, to, -dxOff, -dyOff)
		default:
			v.strokeHalves(dc, from, to, 0, 0)
		}
	}
}

// strokeHalves draws one stick as two half-segments, each coloured by its
// endpoint's element.
func (v *viewer) strokeHalves(dc *gg.Context, from, to projAtom, dx, dy float64) {
	midX := (from.x+to.x)/2 + dx
	midY := (from.y+to.y)/2 + dy

	dc.SetHexColor(from.color)
	dc.DrawLine(from.x+dx, from.y+dy, midX, midY)
	dc.Stroke()

	dc.SetHexColor(to.color)
	dc.DrawLine(midX, midY, to.x+dx, to.y+dy)
	dc.Stroke()
}

func (v *viewer) drawShapes(dc *gg.Context) {
	handles := make([]int, 0, len(v.shapes))
	for h := range v.shapes {
		handles = append(handles, h)
	}
	sort.Ints(handles)

	for _, h := range handles {
		shape := v.shapes[h]

		width := shape.Radius * 2 * v.view.scale
		if width < 1.5 {
			width = 1.5
		}
		color := shape.Color
		if color == "" {
			color = "#808080"
		}

		x1, y1 := v.toCanvas(shape.From.X, shape.From.Y)
		x2, y2 := v.toCanvas(shape.To.X, shape.To.Y)

		dc.SetLineWidth(width)
		dc.SetHexColor(color)
		if shape.Dashed {
			dc.SetDash(6, 4)
		}
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		if shape.Dashed {
			dc.SetDash()
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Optional capabilities
// ─────────────────────────────────────────────────────────────────────────────

// snapshotPNG encodes the most recent frame, drawing one first if Render has
// not run yet.
func (v *viewer) snapshotPNG() ([]byte, error) {
	frame := v.frame
	if frame == nil {
		frame = v.draw()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode frame")
	}
	return buf.Bytes(), nil
}

// pickAt resolves canvas coordinates to the frontmost atom whose projected
// sphere covers the point.
func (v *viewer) pickAt(x, y float64) (int, bool) {
	bestSerial := 0
	bestZ := math.Inf(-1)
	for _, model := range v.project() {
		for _, a := range model {
			if a.radius <= 0 {
				continue
			}
			dx, dy := x-a.x, y-a.y
			if dx*dx+dy*dy > a.radius*a.radius {
				continue
			}
			if a.z > bestZ {
				bestZ = a.z
				bestSerial = a.serial
			}
		}
	}
	return bestSerial, bestSerial > 0
}
