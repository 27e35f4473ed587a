package layer_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/glquad"
	"github.com/olablt/tilebridge/glquad/glfake"
	"github.com/olablt/tilebridge/layer"
	"github.com/olablt/tilebridge/offscreen"
	"github.com/olablt/tilebridge/tiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHost is a host map that renders through a glfake.Recorder.
type fakeHost struct {
	gl     *glfake.Recorder
	center geo.LngLat
	zoom   float64

	mu       sync.Mutex
	next     int
	handlers map[string]map[int]func()
	layers   []layer.CustomLayer
	addErr   error

	repaints atomic.Int32
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		gl:       glfake.New(),
		center:   geo.LngLat{Lng: 24.1, Lat: 56.95},
		zoom:     9,
		handlers: make(map[string]map[int]func()),
	}
}

func (h *fakeHost) Center() geo.LngLat { return h.center }
func (h *fakeHost) Zoom() float64      { return h.zoom }

func (h *fakeHost) On(event string, fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.handlers[event] == nil {
		h.handlers[event] = make(map[int]func())
	}
	h.next++
	id := h.next
	h.handlers[event][id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.handlers[event], id)
	}
}

func (h *fakeHost) handlerCount(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handlers[event])
}

func (h *fakeHost) AddLayer(l layer.CustomLayer) error {
	if h.addErr != nil {
		return h.addErr
	}
	h.layers = append(h.layers, l)
	l.OnAdd(h, h.gl)
	return nil
}

func (h *fakeHost) RemoveLayer(id string) {
	for i, l := range h.layers {
		if l.ID() == id {
			h.layers = append(h.layers[:i], h.layers[i+1:]...)
			l.OnRemove(h, h.gl)
			return
		}
	}
}

func (h *fakeHost) TriggerRepaint() { h.repaints.Add(1) }

func (h *fakeHost) move(center geo.LngLat, zoom float64) {
	h.center, h.zoom = center, zoom
	h.mu.Lock()
	var fns []func()
	for _, fn := range h.handlers[layer.EventMove] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (h *fakeHost) frame() {
	for _, l := range h.layers {
		l.Render(h.gl, [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1})
	}
}

type tileImage struct{ image.Uniform }

func (t *tileImage) Bounds() image.Rectangle { return image.Rect(0, 0, 256, 256) }

type greenTiles struct{ calls atomic.Int32 }

func (p *greenTiles) GetTile(context.Context, tiles.Coord) (image.Image, error) {
	p.calls.Add(1)
	return &tileImage{image.Uniform{C: color.NRGBA{G: 255, A: 255}}}, nil
}

// pendingTiles never delivers, so tile loads cannot schedule extra renders.
type pendingTiles struct{}

func (pendingTiles) GetTile(ctx context.Context, _ tiles.Coord) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func options(provider tiles.Provider, sched offscreen.Scheduler) layer.Options {
	return layer.Options{
		Width:       128,
		Height:      96,
		TileOptions: tiles.SourceOptions{URL: "https://{a-c}.tile.example.com/{z}/{x}/{y}.png"},
		Provider:    provider,
		Scheduler:   sched,
	}
}

func TestNewDefaults(t *testing.T) {
	l, err := layer.New(tiles.XYZ, options(&greenTiles{}, &offscreen.ManualScheduler{}))
	require.NoError(t, err)
	defer l.Remove()

	assert.Equal(t, layer.DefaultID, l.ID())
	assert.Equal(t, "custom", l.Type())
	assert.Equal(t, glquad.Uninitialized, l.RendererState())
}

func TestNewUnsupportedType(t *testing.T) {
	provider := &greenTiles{}
	l, err := layer.New("WMS", options(provider, nil))
	assert.Nil(t, l)

	var typeErr *offscreen.UnsupportedLayerTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, tiles.SourceType("WMS"), typeErr.Type)
	assert.Zero(t, provider.calls.Load(), "no tile may be requested")
}

func TestAddToMap(t *testing.T) {
	host := newFakeHost()
	sched := &offscreen.ManualScheduler{}
	opts := options(pendingTiles{}, sched)
	opts.ID = "ortho"
	l, err := layer.New(tiles.XYZ, opts)
	require.NoError(t, err)

	got, err := l.AddToMap(host)
	require.NoError(t, err)
	assert.Same(t, l, got)
	defer l.Remove()

	assert.Equal(t, glquad.Ready, l.RendererState())
	assert.Equal(t, 1, host.handlerCount(layer.EventMove), "move is subscribed exactly once")

	state := l.Controller().ViewState()
	assert.Equal(t, geo.FromLonLat(host.center), state.Center)
	assert.Equal(t, host.zoom+offscreen.ZoomOffset, state.Zoom)

	// offscreen renders ask the host for a frame
	sched.Flush()
	assert.Equal(t, int32(1), host.repaints.Load())

	host.move(geo.LngLat{Lng: 25, Lat: 57}, 10)
	state = l.Controller().ViewState()
	assert.Equal(t, geo.FromLonLat(geo.LngLat{Lng: 25, Lat: 57}), state.Center)
	assert.Equal(t, 11.0, state.Zoom)

	_, err = l.AddToMap(host)
	assert.True(t, errors.Is(err, layer.ErrAttached))
}

func TestRenderDrawsCanvas(t *testing.T) {
	host := newFakeHost()
	l, err := layer.New(tiles.XYZ, options(&greenTiles{}, &offscreen.ManualScheduler{}))
	require.NoError(t, err)
	_, err = l.AddToMap(host)
	require.NoError(t, err)
	defer l.Remove()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = l.Controller().RenderWhenLoaded(ctx)
	require.NoError(t, err)

	host.frame()
	host.frame()
	require.Len(t, host.gl.Draws, 2)

	d := host.gl.Draws[1]
	assert.Equal(t, glquad.VertexCount, d.Count)
	assert.Equal(t, 128, d.Texture.Width)
	assert.Equal(t, 96, d.Texture.Height)
	// centre texel is a green tile
	i := (48*128 + 64) * 4
	assert.InDelta(t, 255, d.Texture.Pix[i+1], 1)
	assert.InDelta(t, 255, d.Texture.Pix[i+3], 1)

	// the quad spans the canvas extent in normalized Mercator
	e := l.GeographicExtent()
	bl := geo.PointToMercator(geo.LngLat{Lng: e[0], Lat: e[1]})
	tr := geo.PointToMercator(geo.LngLat{Lng: e[2], Lat: e[3]})
	want := glquad.QuadVertices(bl, tr)
	assert.Equal(t, want[:], d.Positions)
}

func TestShaderFailureIsContained(t *testing.T) {
	host := newFakeHost()
	host.gl = &glfake.Recorder{FailCompile: glquad.FRAGMENT_SHADER}
	l, err := layer.New(tiles.XYZ, options(&greenTiles{}, &offscreen.ManualScheduler{}))
	require.NoError(t, err)

	_, err = l.AddToMap(host)
	require.NoError(t, err, "a shader failure must not reach the host")
	defer l.Remove()
	assert.Equal(t, glquad.Failed, l.RendererState())

	calls := len(host.gl.Calls)
	assert.NotPanics(t, host.frame)
	assert.Empty(t, host.gl.Draws)
	assert.Equal(t, calls, len(host.gl.Calls), "no GL state is touched after a failure")
}

func TestRemove(t *testing.T) {
	host := newFakeHost()
	sched := &offscreen.ManualScheduler{}
	l, err := layer.New(tiles.XYZ, options(pendingTiles{}, sched))
	require.NoError(t, err)
	_, err = l.AddToMap(host)
	require.NoError(t, err)
	sched.Flush()
	repaints := host.repaints.Load()

	l.Remove()
	l.Remove()

	assert.Zero(t, host.handlerCount(layer.EventMove), "move handler must be unregistered")
	assert.Empty(t, host.layers)
	assert.Equal(t, glquad.Released, l.RendererState())
	assert.Zero(t, host.gl.LiveObjects(), "GPU objects are released on remove")
	assert.Nil(t, l.Controller().Map().Target())

	before := l.Controller().ViewState()
	host.move(geo.LngLat{Lng: -70, Lat: -33}, 4)
	assert.Equal(t, before, l.Controller().ViewState(), "no sync after remove")
	assert.Zero(t, sched.Flush())
	assert.Equal(t, repaints, host.repaints.Load())

	_, err = l.AddToMap(host)
	assert.True(t, errors.Is(err, layer.ErrRemoved))
}

func TestAddToMapHostRejects(t *testing.T) {
	host := newFakeHost()
	host.addErr = errors.New("style not loaded")
	sched := &offscreen.ManualScheduler{}
	l, err := layer.New(tiles.XYZ, options(pendingTiles{}, sched))
	require.NoError(t, err)
	defer l.Remove()

	_, err = l.AddToMap(host)
	require.ErrorIs(t, err, host.addErr)
	assert.Zero(t, host.handlerCount(layer.EventMove))

	sched.Flush()
	assert.Zero(t, host.repaints.Load(), "repaint trigger is unregistered on failure")
}
