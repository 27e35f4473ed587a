package offscreen_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/offscreen"
	"github.com/olablt/tilebridge/tiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type solidProvider struct {
	c     color.NRGBA
	calls atomic.Int32
}

func (p *solidProvider) GetTile(_ context.Context, _ tiles.Coord) (image.Image, error) {
	p.calls.Add(1)
	return &image.Uniform{C: p.c}, nil
}

// uniformTile wraps image.Uniform with finite bounds, as decoded tiles have.
type uniformTile struct {
	image.Uniform
}

func (u *uniformTile) Bounds() image.Rectangle { return image.Rect(0, 0, 256, 256) }

type tileProvider struct {
	c color.NRGBA
}

func (p tileProvider) GetTile(_ context.Context, _ tiles.Coord) (image.Image, error) {
	return &uniformTile{Uniform: image.Uniform{C: p.c}}, nil
}

// blockingProvider never delivers a tile, so no load ever requests a render.
type blockingProvider struct{}

func (blockingProvider) GetTile(ctx context.Context, _ tiles.Coord) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func assertColor(t *testing.T, want, got color.NRGBA) {
	t.Helper()
	assert.InDelta(t, want.R, got.R, 1)
	assert.InDelta(t, want.G, got.G, 1)
	assert.InDelta(t, want.B, got.B, 1)
	assert.InDelta(t, want.A, got.A, 1)
}

func xyzOptions(width, height int, provider tiles.Provider, sched offscreen.Scheduler) offscreen.Options {
	return offscreen.Options{
		TileOptions: tiles.SourceOptions{URL: "https://tile.example.com/{z}/{x}/{y}.png"},
		Width:       width,
		Height:      height,
		Provider:    provider,
		Scheduler:   sched,
	}
}

func wmtsOptions(sched offscreen.Scheduler) offscreen.Options {
	res := make([]float64, 19)
	ids := make([]string, 19)
	for z := range res {
		res[z] = 2 * geo.HalfSize / 256 / float64(int(1)<<z)
		ids[z] = string(rune('a' + z))
	}
	return offscreen.Options{
		TileOptions: tiles.SourceOptions{
			URL:       "https://wmts.example.com/wmts",
			Layer:     "img",
			Style:     "default",
			MatrixSet: "w",
			TileGrid: &tiles.GridOptions{
				Origin:      []float64{-geo.HalfSize, geo.HalfSize},
				Resolutions: res,
				MatrixIDs:   ids,
			},
		},
		Width:     512,
		Height:    256,
		Provider:  tileProvider{},
		Scheduler: sched,
	}
}

func TestNewDisablesInteraction(t *testing.T) {
	for name, tc := range map[string]struct {
		typ  tiles.SourceType
		opts offscreen.Options
	}{
		"xyz":  {tiles.XYZ, xyzOptions(300, 200, tileProvider{}, &offscreen.ManualScheduler{})},
		"wmts": {tiles.WMTS, wmtsOptions(&offscreen.ManualScheduler{})},
	} {
		t.Run(name, func(t *testing.T) {
			ctrl, err := offscreen.New(tc.typ, tc.opts)
			require.NoError(t, err)
			defer ctrl.Detach()

			m := ctrl.Map()
			assert.Empty(t, m.Interactions())
			assert.Empty(t, m.Controls())

			w, h := m.Size()
			assert.Equal(t, tc.opts.Width, w)
			assert.Equal(t, tc.opts.Height, h)

			m.HandleResize(1920, 1080)
			w, h = m.Size()
			assert.Equal(t, tc.opts.Width, w, "window resize must not change the fixed size")
			assert.Equal(t, tc.opts.Height, h)

			before := ctrl.ViewState()
			assert.False(t, m.HandleEvent(offscreen.PointerEvent{Kind: offscreen.PointerScroll, Scroll: -1}))
			assert.Equal(t, before, ctrl.ViewState())

			assert.Equal(t, tc.typ, ctrl.Layer().Source().Type())
		})
	}
}

func TestDefaultInteractions(t *testing.T) {
	sched := &offscreen.ManualScheduler{}
	start := offscreen.ViewState{Center: geo.Coordinate{X: 1000, Y: 2000}, Zoom: 3}
	m := offscreen.NewMap(offscreen.NewView(start), sched)
	m.SetSize(256, 256)
	m.SetTarget(offscreen.NewCanvas(256, 256))
	require.Len(t, m.Interactions(), 2)
	res := offscreen.ResolutionForZoom(3)

	// dragging right and down moves the center left and up
	assert.True(t, m.HandleEvent(offscreen.PointerEvent{Kind: offscreen.PointerPress, Position: image.Pt(10, 10)}))
	assert.True(t, m.HandleEvent(offscreen.PointerEvent{Kind: offscreen.PointerDrag, Position: image.Pt(20, 15)}))
	assert.True(t, m.HandleEvent(offscreen.PointerEvent{Kind: offscreen.PointerRelease}))
	got := m.View().Center()
	assert.InDelta(t, start.Center.X-10*res, got.X, 1e-6)
	assert.InDelta(t, start.Center.Y+5*res, got.Y, 1e-6)
	assert.False(t, m.HandleEvent(offscreen.PointerEvent{Kind: offscreen.PointerDrag, Position: image.Pt(90, 90)}),
		"a drag without a press is not consumed")
	assert.Equal(t, 1, sched.Flush(), "the view change renders one coalesced frame")

	// zooming in at the left edge keeps the point under the pointer fixed
	before := m.View().State()
	anchorX := before.Center.X - 128*res
	assert.True(t, m.HandleEvent(offscreen.PointerEvent{Kind: offscreen.PointerScroll, Position: image.Pt(0, 128), Scroll: -1}))
	after := m.View().State()
	assert.Equal(t, 4.0, after.Zoom)
	assert.InDelta(t, anchorX, after.Center.X-128*offscreen.ResolutionForZoom(4), 1e-6)
	assert.InDelta(t, before.Center.Y, after.Center.Y, 1e-6)

	assert.True(t, m.HandleEvent(offscreen.PointerEvent{Kind: offscreen.PointerScroll, Position: image.Pt(128, 128), Scroll: 2}))
	assert.Equal(t, 3.0, m.View().Zoom())
	assert.False(t, m.HandleEvent(offscreen.PointerEvent{Kind: offscreen.PointerScroll}), "zero scroll is ignored")
	assert.Equal(t, 1, sched.Flush())
}

func TestNewUnsupportedType(t *testing.T) {
	provider := &solidProvider{}
	ctrl, err := offscreen.New("WMS", xyzOptions(10, 10, provider, nil))
	assert.Nil(t, ctrl)

	var typeErr *offscreen.UnsupportedLayerTypeError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, tiles.SourceType("WMS"), typeErr.Type)
	assert.Zero(t, provider.calls.Load())
}

func TestNewInvalidSize(t *testing.T) {
	_, err := offscreen.New(tiles.XYZ, xyzOptions(0, 10, tileProvider{}, nil))
	assert.True(t, errors.Is(err, offscreen.ErrInvalidSize))
}

func TestNewInvalidTileOptions(t *testing.T) {
	opts := xyzOptions(10, 10, tileProvider{}, nil)
	opts.TileOptions.URL = "https://tile.example.com/static.png"
	_, err := offscreen.New(tiles.XYZ, opts)
	assert.True(t, errors.Is(err, tiles.ErrInvalidTemplate))
}

func TestSetViewFromHost(t *testing.T) {
	ctrl, err := offscreen.New(tiles.XYZ, xyzOptions(256, 256, tileProvider{}, &offscreen.ManualScheduler{}))
	require.NoError(t, err)
	defer ctrl.Detach()

	ctrl.SetViewFromHost(geo.LngLat{}, 10)
	want := offscreen.ViewState{Center: geo.FromLonLat(geo.LngLat{}), Zoom: 11}
	assert.Equal(t, want, ctrl.ViewState())

	center := geo.LngLat{Lng: 116.39, Lat: 39.9}
	ctrl.SetViewFromHost(center, 7.5)
	first := ctrl.ViewState()
	ctrl.SetViewFromHost(center, 7.5)
	assert.Equal(t, first, ctrl.ViewState(), "SetViewFromHost must be idempotent")
	assert.Equal(t, 8.5, first.Zoom)
	assert.Equal(t, geo.FromLonLat(center), first.Center)
}

func TestSetViewFromHostNonFinite(t *testing.T) {
	sched := &offscreen.ManualScheduler{}
	ctrl, err := offscreen.New(tiles.XYZ, xyzOptions(256, 256, blockingProvider{}, sched))
	require.NoError(t, err)
	defer ctrl.Detach()

	ctrl.SetViewFromHost(geo.LngLat{Lng: 10, Lat: 20}, 4)
	sched.Flush()
	want := ctrl.ViewState()

	nan, inf := math.NaN(), math.Inf(1)
	for _, v := range []struct {
		center geo.LngLat
		zoom   float64
	}{
		{geo.LngLat{Lng: 10, Lat: 20}, nan},
		{geo.LngLat{Lng: 10, Lat: 20}, inf},
		{geo.LngLat{Lng: nan, Lat: 20}, 4},
		{geo.LngLat{Lng: 10, Lat: -inf}, 4},
	} {
		ctrl.SetViewFromHost(v.center, v.zoom)
		assert.Equal(t, want, ctrl.ViewState(), "view %v z%v must be ignored", v.center, v.zoom)
	}
	assert.Zero(t, sched.Len(), "an ignored view schedules no render")
	assert.True(t, ctrl.CurrentGeographicExtent().Finite())

	v := offscreen.NewView(offscreen.ViewState{Zoom: nan})
	assert.Equal(t, offscreen.ViewState{}, v.State())
}

func TestCurrentGeographicExtent(t *testing.T) {
	ctrl, err := offscreen.New(tiles.XYZ, xyzOptions(256, 256, tileProvider{}, &offscreen.ManualScheduler{}))
	require.NoError(t, err)
	defer ctrl.Detach()

	// 256 pixels at zoom 0 cover the whole world
	ctrl.SetViewFromHost(geo.LngLat{}, -1)
	e := ctrl.CurrentGeographicExtent()
	assert.InDelta(t, -180, e[0], 1e-9)
	assert.InDelta(t, -geo.MaxLatitude, e[1], 1e-9)
	assert.InDelta(t, 180, e[2], 1e-9)
	assert.InDelta(t, geo.MaxLatitude, e[3], 1e-9)
}

func TestRepaintTrigger(t *testing.T) {
	sched := &offscreen.ManualScheduler{}
	ctrl, err := offscreen.New(tiles.XYZ, xyzOptions(64, 64, blockingProvider{}, sched))
	require.NoError(t, err)
	defer ctrl.Detach()
	sched.Flush()

	var calls atomic.Int32
	off := ctrl.RegisterRepaintTrigger(func() { calls.Add(1) })

	ctrl.SetViewFromHost(geo.LngLat{Lng: 10, Lat: 10}, 3)
	assert.Zero(t, calls.Load(), "rendering must not run inside SetViewFromHost")
	sched.Flush()
	assert.Equal(t, int32(1), calls.Load())

	// an unchanged view schedules nothing
	ctrl.SetViewFromHost(geo.LngLat{Lng: 10, Lat: 10}, 3)
	assert.Zero(t, sched.Len())

	off()
	off()
	ctrl.SetViewFromHost(geo.LngLat{Lng: 11, Lat: 10}, 3)
	sched.Flush()
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, ctrl.Layer().ListenerCount(offscreen.EventPrerender))
}

func TestRenderDrawsTiles(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	ctrl, err := offscreen.New(tiles.XYZ, xyzOptions(200, 100, tileProvider{c: red}, &offscreen.ManualScheduler{}))
	require.NoError(t, err)
	defer ctrl.Detach()

	blank := ctrl.RenderTargetPixels()
	require.NotNil(t, blank)
	assert.Equal(t, image.Rect(0, 0, 200, 100), blank.Bounds())

	ctrl.SetViewFromHost(geo.LngLat{Lng: 2.35, Lat: 48.85}, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	img, err := ctrl.RenderWhenLoaded(ctx)
	require.NoError(t, err)

	assertColor(t, red, img.NRGBAAt(100, 50))
	assertColor(t, red, img.NRGBAAt(0, 0))
	assertColor(t, red, img.NRGBAAt(199, 99))
	assert.NotSame(t, blank, img, "a render publishes a new image")
	assert.Equal(t, color.NRGBA{}, blank.NRGBAAt(100, 50), "published images are never rewritten")
}

type failingProvider struct{}

func (failingProvider) GetTile(context.Context, tiles.Coord) (image.Image, error) {
	return nil, errors.New("tile server down")
}

func TestRenderFallbackTiles(t *testing.T) {
	yellow := color.NRGBA{R: 255, G: 255, A: 255}
	opts := xyzOptions(64, 64, failingProvider{}, &offscreen.ManualScheduler{})
	opts.Fallback = tileProvider{c: yellow}
	ctrl, err := offscreen.New(tiles.XYZ, opts)
	require.NoError(t, err)
	defer ctrl.Detach()

	ctrl.SetViewFromHost(geo.LngLat{Lng: -3.7, Lat: 40.4}, 6)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	img, err := ctrl.RenderWhenLoaded(ctx)
	require.NoError(t, err)
	assertColor(t, yellow, img.NRGBAAt(32, 32))
}

func TestRenderReprojectedSource(t *testing.T) {
	blue := color.NRGBA{B: 255, A: 255}
	opts := xyzOptions(64, 64, tileProvider{c: blue}, &offscreen.ManualScheduler{})
	opts.TileOptions.Projection = geo.EPSG4326
	ctrl, err := offscreen.New(tiles.XYZ, opts)
	require.NoError(t, err)
	defer ctrl.Detach()

	ctrl.SetViewFromHost(geo.LngLat{Lng: 30, Lat: 20}, 5)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	img, err := ctrl.RenderWhenLoaded(ctx)
	require.NoError(t, err)
	assertColor(t, blue, img.NRGBAAt(32, 32))
}

// columnProvider colors coarse tiles by column and never delivers the
// finest level.
type columnProvider struct {
	finest int
	colors map[int]color.NRGBA
}

func (p columnProvider) GetTile(ctx context.Context, c tiles.Coord) (image.Image, error) {
	if c.Z == p.finest {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &uniformTile{Uniform: image.Uniform{C: p.colors[c.X]}}, nil
}

func TestRenderAncestorOnUnevenGrid(t *testing.T) {
	green := color.NRGBA{G: 255, A: 255}
	r0 := offscreen.DefaultMaxResolution / 4
	sched := &offscreen.ManualScheduler{}
	opts := wmtsOptions(sched)
	opts.Width, opts.Height = 256, 256
	// the second level is three times finer, so column 6 lies under column 2
	opts.TileOptions.TileGrid.Resolutions = []float64{r0, r0 / 3}
	opts.TileOptions.TileGrid.MatrixIDs = []string{"0", "1"}
	opts.Provider = columnProvider{finest: 1, colors: map[int]color.NRGBA{
		1: {R: 255, A: 255},
		2: green,
		3: {B: 255, A: 255},
	}}
	ctrl, err := offscreen.New(tiles.WMTS, opts)
	require.NoError(t, err)
	defer ctrl.Detach()

	// offscreen zoom 2 shows level 0 columns 1 and 2
	ctrl.SetViewFromHost(geo.LngLat{}, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = ctrl.RenderWhenLoaded(ctx)
	require.NoError(t, err)

	// just east of the origin, level 1 column 6 is still loading
	center := geo.ToLonLat(geo.Coordinate{X: 20000, Y: -20000})
	ctrl.SetViewFromHost(center, 1+math.Log2(3))
	sched.Flush()
	img := ctrl.RenderTargetPixels()
	require.NotNil(t, img)
	assertColor(t, green, img.NRGBAAt(128, 128))
}

func TestDetachFreesTiles(t *testing.T) {
	ctrl, err := offscreen.New(tiles.XYZ, xyzOptions(64, 64, tileProvider{}, &offscreen.ManualScheduler{}))
	require.NoError(t, err)

	ctrl.SetViewFromHost(geo.LngLat{Lng: 5, Lat: 5}, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = ctrl.RenderWhenLoaded(ctx)
	require.NoError(t, err)
	cache := ctrl.Layer().Manager().Cache()
	require.NotZero(t, cache.Len())

	ctrl.Detach()
	assert.Zero(t, cache.Len())
}

func TestDetach(t *testing.T) {
	sched := &offscreen.ManualScheduler{}
	ctrl, err := offscreen.New(tiles.XYZ, xyzOptions(64, 64, blockingProvider{}, sched))
	require.NoError(t, err)
	sched.Flush()

	var calls atomic.Int32
	ctrl.RegisterRepaintTrigger(func() { calls.Add(1) })
	ctrl.Detach()

	assert.Nil(t, ctrl.Map().Target())
	ctrl.SetViewFromHost(geo.LngLat{Lng: 1, Lat: 1}, 2)
	assert.Zero(t, sched.Flush(), "a detached map schedules no renders")
	assert.Zero(t, calls.Load())
	assert.NotNil(t, ctrl.RenderTargetPixels(), "the last canvas stays readable")
}
