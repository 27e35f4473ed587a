package mapview

import (
	"context"
	"errors"
	"image"
	"testing"

	"gioui.org/f32"
	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/glquad"
	"github.com/olablt/tilebridge/glquad/glfake"
	"github.com/olablt/tilebridge/layer"
	"github.com/olablt/tilebridge/offscreen"
	"github.com/olablt/tilebridge/tiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project applies a column-major matrix to (x, y, 0, 1).
func project(m [16]float32, x, y float64) (float64, float64) {
	cx := float64(m[0])*x + float64(m[4])*y + float64(m[12])
	cy := float64(m[1])*x + float64(m[5])*y + float64(m[13])
	w := float64(m[3])*x + float64(m[7])*y + float64(m[15])
	return cx / w, cy / w
}

func TestMatrix(t *testing.T) {
	mv := New(nil)
	mv.Resize(800, 600)
	mv.JumpTo(geo.LngLat{Lng: 10, Lat: 50}, 5)
	m := mv.Matrix()

	c := geo.PointToMercator(mv.Center())
	x, y := project(m, c.X, c.Y)
	assert.InDelta(t, 0, x, 1e-3, "center maps to the clip origin")
	assert.InDelta(t, 0, y, 1e-3)

	// 400 pixels right and 300 down is the bottom-right clip corner
	ws := worldSize(5)
	x, y = project(m, c.X+400/ws, c.Y+300/ws)
	assert.InDelta(t, 1, x, 1e-3)
	assert.InDelta(t, -1, y, 1e-3)
}

func TestMatrixWithoutSize(t *testing.T) {
	assert.Equal(t, [16]float32{}, New(nil).Matrix())
}

func TestMoveEvents(t *testing.T) {
	mv := New(nil)
	mv.Resize(256, 256)

	var moves int
	off := mv.On(layer.EventMove, func() { moves++ })
	mv.JumpTo(geo.LngLat{Lng: 1, Lat: 1}, 3)
	mv.Pan(10, 0)
	mv.ZoomAround(f32.Pt(128, 128), 1)
	assert.Equal(t, 3, moves)

	off()
	off()
	assert.Zero(t, mv.ListenerCount(layer.EventMove))
	mv.Pan(5, 5)
	assert.Equal(t, 3, moves, "no handler after unsubscribe")
}

func TestPan(t *testing.T) {
	mv := New(nil)
	mv.Resize(512, 512)
	mv.JumpTo(geo.LngLat{}, 0)

	// at zoom 0 the world is 512 pixels wide, so 128 pixels is 90 degrees
	mv.Pan(-128, 0)
	assert.InDelta(t, 90, mv.Center().Lng, 1e-9)
	assert.InDelta(t, 0, mv.Center().Lat, 1e-9)

	// crossing the antimeridian wraps
	mv.Pan(-256, 0)
	assert.InDelta(t, -90, mv.Center().Lng, 1e-9)
}

func TestDrag(t *testing.T) {
	mv := New(nil)
	mv.Resize(512, 512)
	mv.JumpTo(geo.LngLat{}, 0)

	mv.Press(f32.Pt(100, 100))
	mv.Drag(f32.Pt(36, 100))
	mv.Drag(f32.Pt(-28, 100))
	mv.Release()
	assert.InDelta(t, 90, mv.Center().Lng, 1e-4)

	mv.Drag(f32.Pt(500, 100))
	assert.InDelta(t, 90, mv.Center().Lng, 1e-4, "drag without press is ignored")
}

func TestZoomAroundKeepsPointFixed(t *testing.T) {
	mv := New(nil)
	mv.Resize(800, 600)
	mv.JumpTo(geo.LngLat{Lng: 2.35, Lat: 48.85}, 6)

	p := f32.Pt(700, 100)
	under := func() geo.MercatorCoordinate {
		c := geo.PointToMercator(mv.Center())
		ws := worldSize(mv.Zoom())
		return geo.MercatorCoordinate{X: c.X + (700-400)/ws, Y: c.Y + (100-300)/ws}
	}
	before := under()
	mv.Scroll(p, -1)
	assert.Equal(t, 7.0, mv.Zoom())
	after := under()
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

func TestZoomClamp(t *testing.T) {
	mv := New(nil)
	mv.JumpTo(geo.LngLat{}, 40)
	assert.Equal(t, float64(DefaultMaxZoom), mv.Zoom())

	var moves int
	mv.On(layer.EventMove, func() { moves++ })
	mv.ZoomAround(f32.Point{}, 1)
	assert.Zero(t, moves, "a clamped zoom is not a move")
}

func TestTriggerRepaintNeverBlocks(t *testing.T) {
	refresh := make(chan struct{}, 1)
	mv := New(refresh)
	mv.TriggerRepaint()
	mv.TriggerRepaint()
	assert.Len(t, refresh, 1)
	New(nil).TriggerRepaint()
}

type recordingLayer struct {
	id       string
	added    int
	removed  int
	matrices [][16]float32
}

func (l *recordingLayer) ID() string                        { return l.id }
func (l *recordingLayer) Type() string                      { return layer.TypeCustom }
func (l *recordingLayer) OnAdd(layer.HostMap, glquad.GL)    { l.added++ }
func (l *recordingLayer) OnRemove(layer.HostMap, glquad.GL) { l.removed++ }
func (l *recordingLayer) Render(_ glquad.GL, m [16]float32) { l.matrices = append(l.matrices, m) }

func TestLayers(t *testing.T) {
	mv := New(make(chan struct{}, 1))
	l := &recordingLayer{id: "a"}
	assert.True(t, errors.Is(mv.AddLayer(l), ErrNoContext))

	mv.SetGL(glfake.New())
	mv.Resize(100, 100)
	require.NoError(t, mv.AddLayer(l))
	assert.Equal(t, 1, l.added)
	assert.True(t, errors.Is(mv.AddLayer(&recordingLayer{id: "a"}), ErrDuplicateLayer))

	mv.RenderLayers()
	require.Len(t, l.matrices, 1)
	assert.Equal(t, mv.Matrix(), l.matrices[0])

	mv.RemoveLayer("missing")
	mv.RemoveLayer("a")
	assert.Equal(t, 1, l.removed)
	assert.Empty(t, mv.Layers())
	mv.RenderLayers()
	assert.Len(t, l.matrices, 1)
}

type noTiles struct{}

func (noTiles) GetTile(ctx context.Context, _ tiles.Coord) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTileLayerFollowsMap(t *testing.T) {
	mv := New(make(chan struct{}, 1))
	gl := glfake.New()
	mv.SetGL(gl)
	mv.Resize(640, 480)
	mv.JumpTo(geo.LngLat{Lng: 13.4, Lat: 52.5}, 8)

	l, err := layer.New(tiles.XYZ, layer.Options{
		Width:       640,
		Height:      480,
		TileOptions: tiles.SourceOptions{URL: "https://tile.example.com/{z}/{x}/{y}.png"},
		Provider:    noTiles{},
		Scheduler:   &offscreen.ManualScheduler{},
	})
	require.NoError(t, err)
	_, err = l.AddToMap(mv)
	require.NoError(t, err)
	assert.Equal(t, 1, mv.ListenerCount(layer.EventMove))
	assert.Equal(t, glquad.Ready, l.RendererState())

	mv.Pan(100, 0)
	state := l.Controller().ViewState()
	assert.Equal(t, geo.FromLonLat(mv.Center()), state.Center)
	assert.Equal(t, 9.0, state.Zoom)

	mv.RenderLayers()
	require.Len(t, gl.Draws, 1)
	assert.Equal(t, mv.Matrix(), gl.Draws[0].Matrix)

	// the canvas covers what the host shows: its centre is the map centre
	e := l.GeographicExtent()
	assert.InDelta(t, mv.Center().Lng, (e[0]+e[2])/2, 1e-6)

	l.Remove()
	assert.Zero(t, mv.ListenerCount(layer.EventMove))
	assert.Empty(t, mv.Layers())
	assert.Zero(t, gl.LiveObjects())
}
