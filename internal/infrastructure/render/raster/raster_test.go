package raster_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/molscope/molscope/internal/infrastructure/render"
	"github.com/molscope/molscope/internal/infrastructure/render/raster"
	"github.com/molscope/molscope/pkg/errors"
	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

const testBackground = "#102030"

func newTestViewer(t *testing.T) render.Viewer {
	t.Helper()
	eng := raster.New()
	v, err := eng.NewViewer(render.NewSurface(200, 200), render.Options{
		Background: testBackground,
		Antialias:  true,
	})
	require.NoError(t, err)
	return v
}

// carbonPair is two bonded carbons one Ångström either side of the origin.
func carbonPair() []vtypes.RenderAtom {
	return []vtypes.RenderAtom{
		{Element: "C", Serial: 1, Index: 0, X: -1, Bonds: []int{1}, BondOrder: []int{1}},
		{Element: "C", Serial: 2, Index: 1, X: 1, Bonds: []int{0}, BondOrder: []int{1}},
	}
}

func decodeSnapshot(t *testing.T, v render.Viewer) image.Image {
	t.Helper()
	caps := v.Capabilities()
	require.NotNil(t, caps.Snapshot)
	data, err := caps.Snapshot()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func pixelAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func pointAt(x, y, z float64) r3.Vec {
	return r3.Vec{X: x, Y: y, Z: z}
}

func hexRGBA(t *testing.T, hex string) color.RGBA {
	t.Helper()
	var r, g, b uint8
	_, err := fmt.Sscanf(hex, "#%02X%02X%02X", &r, &g, &b)
	require.NoError(t, err)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func TestEngine_FactoryAndName(t *testing.T) {
	eng, err := raster.Factory()(context.Background())
	require.NoError(t, err)
	assert.Equal(t, raster.EngineName, eng.Name())
}

func TestNewViewer_RequiresAttachedSurface(t *testing.T) {
	eng := raster.New()

	_, err := eng.NewViewer(nil, render.Options{})
	assert.True(t, errors.IsCode(err, errors.CodeMountDetached))

	surface := render.NewSurface(200, 200)
	surface.Detach()
	_, err = eng.NewViewer(surface, render.Options{})
	assert.True(t, errors.IsCode(err, errors.CodeMountDetached))
}

func TestNewViewer_RejectsNonPositiveSize(t *testing.T) {
	_, err := raster.New().NewViewer(render.NewSurface(0, 200), render.Options{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestViewer_Capabilities(t *testing.T) {
	caps := newTestViewer(t).Capabilities()
	assert.NotNil(t, caps.Snapshot)
	assert.NotNil(t, caps.PickAt)
	assert.Nil(t, caps.ObserveSurface)
}

func TestViewer_BackgroundFillsEmptyScene(t *testing.T) {
	v := newTestViewer(t)
	v.Render()

	img := decodeSnapshot(t, v)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
	assert.Equal(t, hexRGBA(t, testBackground), pixelAt(img, 2, 2))
	assert.Equal(t, hexRGBA(t, testBackground), pixelAt(img, 100, 100))
}

func TestViewer_DrawsSphereAtAtomPosition(t *testing.T) {
	v := newTestViewer(t)
	require.NoError(t, v.AddModel([]vtypes.RenderAtom{
		{Element: "C", Serial: 1, Index: 0, Bonds: []int{}, BondOrder: []int{}},
	}))
	v.SetStyle(render.All(), render.Style{SphereScale: 0.5, Color: "#FF0000"})
	v.Render()

	img := decodeSnapshot(t, v)
	// The atom sits at the model origin, which the default view maps to the
	// canvas centre.
	assert.Equal(t, hexRGBA(t, "#FF0000"), pixelAt(img, 100, 100))
	assert.Equal(t, hexRGBA(t, testBackground), pixelAt(img, 5, 5))
}

func TestViewer_SnapshotWithoutRenderDrawsCurrentScene(t *testing.T) {
	v := newTestViewer(t)
	img := decodeSnapshot(t, v)
	assert.Equal(t, hexRGBA(t, testBackground), pixelAt(img, 100, 100))
}

func TestViewer_SticksColouredByElement(t *testing.T) {
	v := newTestViewer(t)
	require.NoError(t, v.AddModel(carbonPair()))
	v.SetStyle(render.All(), render.Style{StickRadius: 0.15, SphereScale: 0.3})
	v.Render()

	// Atoms project to (60,100) and (140,100) at the default 40 px/Å scale;
	// their spheres are ~9 px, so the bond midpoint shows the stick alone.
	img := decodeSnapshot(t, v)
	assert.Equal(t, hexRGBA(t, "#909090"), pixelAt(img, 100, 100))
}

func TestViewer_HiddenStyleDrawsNothing(t *testing.T) {
	v := newTestViewer(t)
	require.NoError(t, v.AddModel(carbonPair()))
	v.SetStyle(render.All(), render.Style{})
	v.Render()

	img := decodeSnapshot(t, v)
	assert.Equal(t, hexRGBA(t, testBackground), pixelAt(img, 60, 100))
	assert.Equal(t, hexRGBA(t, testBackground), pixelAt(img, 100, 100))

	_, ok := v.Capabilities().PickAt(60, 100)
	assert.False(t, ok, "hidden atoms must not be pickable")
}

func TestViewer_StyleOverridePaintsOneAtom(t *testing.T) {
	v := newTestViewer(t)
	require.NoError(t, v.AddModel(carbonPair()))
	v.SetStyle(render.All(), render.Style{SphereScale: 0.4})
	v.SetStyle(render.BySerial(1), render.Style{SphereScale: 0.4, Color: "#00FF00"})
	v.Render()

	img := decodeSnapshot(t, v)
	assert.Equal(t, hexRGBA(t, "#00FF00"), pixelAt(img, 60, 100))
	assert.Equal(t, hexRGBA(t, "#909090"), pixelAt(img, 140, 100))
}

func TestViewer_BaseStyleResetClearsOverrides(t *testing.T) {
	v := newTestViewer(t)
	require.NoError(t, v.AddModel(carbonPair()))
	v.SetStyle(render.BySerial(1), render.Style{SphereScale: 0.4, Color: "#00FF00"})
	v.SetStyle(render.All(), render.Style{SphereScale: 0.4})
	v.Render()

	img := decodeSnapshot(t, v)
	assert.Equal(t, hexRGBA(t, "#909090"), pixelAt(img, 60, 100))
}

func TestViewer_PickAtFindsFrontmostAtom(t *testing.T) {
	v := newTestViewer(t)
	require.NoError(t, v.AddModel([]vtypes.RenderAtom{
		{Element: "C", Serial: 1, Index: 0, Z: 0, Bonds: []int{}, BondOrder: []int{}},
		{Element: "N", Serial: 2, Index: 1, Z: 1, Bonds: []int{}, BondOrder: []int{}},
	}))
	v.SetStyle(render.All(), render.Style{SphereScale: 0.5})

	caps := v.Capabilities()
	serial, ok := caps.PickAt(100, 100)
	require.True(t, ok)
	assert.Equal(t, 2, serial, "the closer atom wins an overlapping pick")

	_, ok = caps.PickAt(3, 3)
	assert.False(t, ok)
}

func TestViewer_ZoomScalesViewState(t *testing.T) {
	v := newTestViewer(t)

	before := v.ViewState()
	require.Len(t, before, 3)

	v.Zoom(2, 0)
	assert.InDelta(t, before[0]*2, v.ViewState()[0], 1e-12)

	v.Zoom(0, 0) // ignored
	v.Zoom(-3, 0)
	assert.InDelta(t, before[0]*2, v.ViewState()[0], 1e-12)
}

func TestViewer_ViewStateRoundTrip(t *testing.T) {
	v := newTestViewer(t)
	saved := v.ViewState()

	v.Zoom(4, 0)
	require.NotEqual(t, saved[0], v.ViewState()[0])

	v.SetViewState(saved)
	assert.Equal(t, saved, v.ViewState())

	v.SetViewState(render.ViewState{1}) // malformed, ignored
	assert.Equal(t, saved, v.ViewState())
}

func TestViewer_ZoomToFitFramesModel(t *testing.T) {
	v := newTestViewer(t)
	require.NoError(t, v.AddModel([]vtypes.RenderAtom{
		{Element: "C", Serial: 1, Index: 0, X: 10, Y: 10, Bonds: []int{}, BondOrder: []int{}},
		{Element: "C", Serial: 2, Index: 1, X: 12, Y: 10, Bonds: []int{}, BondOrder: []int{}},
	}))
	v.SetStyle(render.All(), render.Style{SphereScale: 0.3})
	v.ZoomToFit()

	state := v.ViewState()
	require.Len(t, state, 3)
	assert.InDelta(t, 80.0, state[0], 1e-9, "scale fits the 2 Å x-range into 80%% of 200 px")
	assert.InDelta(t, 11.0, state[1], 1e-12)
	assert.InDelta(t, 10.0, state[2], 1e-12)

	serial, ok := v.Capabilities().PickAt(20, 100)
	require.True(t, ok)
	assert.Equal(t, 1, serial)
}

func TestViewer_ZoomToFitDegenerateScenes(t *testing.T) {
	v := newTestViewer(t)

	initial := v.ViewState()
	v.ZoomToFit() // empty scene
	assert.Equal(t, initial, v.ViewState())

	require.NoError(t, v.AddModel([]vtypes.RenderAtom{
		{Element: "O", Serial: 1, Index: 0, X: 3, Y: 4, Bonds: []int{}, BondOrder: []int{}},
	}))
	v.ZoomToFit() // single atom has no extent; keep the default scale
	state := v.ViewState()
	assert.Equal(t, initial[0], state[0])
	assert.InDelta(t, 3.0, state[1], 1e-12)
	assert.InDelta(t, 4.0, state[2], 1e-12)
}

func TestViewer_MeasurementShapeDrawsAndRemoves(t *testing.T) {
	v := newTestViewer(t)

	handle := v.AddShape(render.Shape{
		From:   pointAt(-1, 0, 0),
		To:     pointAt(1, 0, 0),
		Radius: 0.5,
		Color:  "#FFD700",
	})
	v.Render()
	img := decodeSnapshot(t, v)
	assert.Equal(t, hexRGBA(t, "#FFD700"), pixelAt(img, 100, 100))

	v.RemoveShape(handle)
	v.RemoveShape(handle + 99) // unknown handle is a no-op
	v.Render()
	img = decodeSnapshot(t, v)
	assert.Equal(t, hexRGBA(t, testBackground), pixelAt(img, 100, 100))
}

func TestViewer_RemoveAllModelsClearsScene(t *testing.T) {
	v := newTestViewer(t)
	require.NoError(t, v.AddModel(carbonPair()))
	v.SetStyle(render.All(), render.Style{SphereScale: 0.5})
	v.Render()

	v.RemoveAllModels()
	v.Render()

	img := decodeSnapshot(t, v)
	assert.Equal(t, hexRGBA(t, testBackground), pixelAt(img, 60, 100))

	_, ok := v.Capabilities().PickAt(60, 100)
	assert.False(t, ok)
}

func TestViewer_ResizeChangesCanvas(t *testing.T) {
	v := newTestViewer(t)

	v.Resize(300, 150)
	v.Render()
	img := decodeSnapshot(t, v)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())

	v.Resize(0, 80) // invalid, ignored
	v.Render()
	img = decodeSnapshot(t, v)
	assert.Equal(t, 300, img.Bounds().Dx())
}

func TestViewer_ReleaseDropsScene(t *testing.T) {
	v := newTestViewer(t)
	require.NoError(t, v.AddModel(carbonPair()))
	v.SetStyle(render.All(), render.Style{SphereScale: 0.5})
	v.Render()

	require.NoError(t, v.Release())

	img := decodeSnapshot(t, v)
	assert.Equal(t, hexRGBA(t, testBackground), pixelAt(img, 60, 100))
}
