package offscreen

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/tiles"
)

// ZoomOffset is added to the host zoom. The host counts zoom levels in 512
// pixel tiles and the offscreen map in 256 pixel tiles, so the offscreen
// canvas samples tiles at the host's on-screen resolution.
const ZoomOffset = 1

// DefaultWorkers is the number of concurrent tile loads per controller.
const DefaultWorkers = 4

var ErrInvalidSize = errors.New("offscreen: width and height must be positive")

// UnsupportedLayerTypeError is returned for a layer type other than WMTS or XYZ.
type UnsupportedLayerTypeError struct {
	Type tiles.SourceType
}

func (e *UnsupportedLayerTypeError) Error() string {
	return fmt.Sprintf("offscreen: unsupported layer type %q, use WMTS or XYZ", string(e.Type))
}

// Options configure a Controller. Everything but TileOptions and the size is
// optional.
type Options struct {
	TileOptions tiles.SourceOptions
	Width       int
	Height      int

	// Provider replaces the HTTP provider built from TileOptions.
	Provider   tiles.Provider
	// Fallback serves a tile whenever the provider fails to.
	Fallback   tiles.Provider
	Scheduler  Scheduler
	Workers    int
	HTTPClient *http.Client
	UserAgent  string
}

// Controller owns a hidden, non-interactive Map with a single tile layer and
// keeps its view in step with a host view.
type Controller struct {
	m      *Map
	layer  *TileLayer
	canvas *Canvas
	width  int
	height int
}

// New builds the offscreen map for a layer of type t.
func New(t tiles.SourceType, opts Options) (*Controller, error) {
	if t != tiles.WMTS && t != tiles.XYZ {
		return nil, &UnsupportedLayerTypeError{Type: t}
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, opts.Width, opts.Height)
	}

	source, err := newSource(t, opts.TileOptions)
	if err != nil {
		return nil, err
	}
	provider := opts.Provider
	if provider == nil {
		provider = tiles.NewHTTPProvider(source, opts.HTTPClient, opts.UserAgent)
	}
	if opts.Fallback != nil {
		provider = tiles.NewFallbackProvider(provider, opts.Fallback)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	m := NewMap(NewView(ViewState{Zoom: 10}), opts.Scheduler)
	m.ClearInteractions()
	m.ClearControls()
	// the canvas is never part of a visible layout, so window size is irrelevant
	m.SetAutoResize(false)
	m.SetSize(opts.Width, opts.Height)

	layer := NewTileLayer(source, provider, workers)
	canvas := NewCanvas(opts.Width, opts.Height)
	m.AddLayer(layer)
	m.SetTarget(canvas)

	return &Controller{
		m:      m,
		layer:  layer,
		canvas: canvas,
		width:  opts.Width,
		height: opts.Height,
	}, nil
}

func newSource(t tiles.SourceType, opts tiles.SourceOptions) (tiles.Source, error) {
	var grid *tiles.Grid
	if opts.TileGrid != nil {
		g, err := tiles.NewGrid(*opts.TileGrid)
		if err != nil {
			return nil, err
		}
		grid = g
	}
	switch t {
	case tiles.WMTS:
		return tiles.NewWMTS(opts, grid)
	default:
		return tiles.NewXYZ(opts, grid)
	}
}

func (c *Controller) Map() *Map          { return c.m }
func (c *Controller) Layer() *TileLayer { return c.layer }

// SetViewFromHost centers the offscreen view on the host center and sets its
// zoom to hostZoom+ZoomOffset. It is the only path that changes the view.
func (c *Controller) SetViewFromHost(center geo.LngLat, hostZoom float64) {
	c.m.View().SetState(ViewState{
		Center: geo.FromLonLat(center),
		Zoom:   hostZoom + ZoomOffset,
	})
}

// ViewState returns the current offscreen view.
func (c *Controller) ViewState() ViewState {
	return c.m.View().State()
}

// CurrentGeographicExtent returns the area covered by the canvas in EPSG:4326.
func (c *Controller) CurrentGeographicExtent() geo.Extent {
	e := c.m.View().CalculateExtent(c.width, c.height)
	// the view projection is always EPSG:3857, which cannot fail
	geoExtent, _ := geo.ExtentToGeographic(e, c.m.View().Projection())
	return geoExtent
}

// RegisterRepaintTrigger runs fn before every render of the tile layer. The
// returned func unregisters it.
func (c *Controller) RegisterRepaintTrigger(fn func()) (off func()) {
	return c.layer.On(EventPrerender, func(RenderEvent) { fn() })
}

// RenderTargetPixels returns the most recently rendered canvas.
func (c *Controller) RenderTargetPixels() *image.NRGBA {
	return c.canvas.Image()
}

// PendingTiles returns the number of tiles still loading.
func (c *Controller) PendingTiles() int {
	return c.layer.Manager().Pending()
}

// RenderWhenLoaded renders until no tile of the current view is loading, then
// returns the final canvas.
func (c *Controller) RenderWhenLoaded(ctx context.Context) (*image.NRGBA, error) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		c.m.RenderSync()
		if c.PendingTiles() == 0 {
			// one more pass draws the tiles that finished during the last one
			c.m.RenderSync()
			return c.canvas.Image(), nil
		}
		select {
		case <-ctx.Done():
			return c.canvas.Image(), ctx.Err()
		case <-ticker.C:
		}
	}
}

// Detach disconnects the map from its canvas and stops tile loading.
func (c *Controller) Detach() {
	c.m.Dispose()
}
