// Package layer adapts an offscreen tile map to a host map's custom layer:
// the host's moves drive the offscreen view and each host frame draws the
// offscreen canvas as a textured quad.
package layer

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/glquad"
	"github.com/olablt/tilebridge/offscreen"
	"github.com/olablt/tilebridge/tiles"
)

// DefaultID is used when Options.ID is empty.
const DefaultID = "customWMTSLayer"

// TypeCustom is the layer type hosts see.
const TypeCustom = "custom"

var (
	ErrAttached = errors.New("layer: already added to a map")
	ErrRemoved  = errors.New("layer: removed")
)

// Options configure a Layer. Width and Height are the offscreen canvas size
// in pixels. Provider, Fallback, Scheduler, HTTPClient and UserAgent are
// optional and passed to the offscreen map.
type Options struct {
	ID          string
	Width       int
	Height      int
	TileOptions tiles.SourceOptions

	Provider   tiles.Provider
	Fallback   tiles.Provider
	Scheduler  offscreen.Scheduler
	HTTPClient *http.Client
	UserAgent  string
}

// Layer owns an offscreen map and the quad renderer that draws it.
type Layer struct {
	id       string
	ctrl     *offscreen.Controller
	renderer *glquad.Renderer

	mu         sync.Mutex
	host       HostMap
	offMove    func()
	offRepaint func()
	removed    bool
}

// New builds the offscreen map for a WMTS or XYZ source. An unsupported type
// fails with *offscreen.UnsupportedLayerTypeError before anything is
// allocated.
func New(t tiles.SourceType, opts Options) (*Layer, error) {
	ctrl, err := offscreen.New(t, offscreen.Options{
		TileOptions: opts.TileOptions,
		Width:       opts.Width,
		Height:      opts.Height,
		Provider:    opts.Provider,
		Fallback:    opts.Fallback,
		Scheduler:   opts.Scheduler,
		HTTPClient:  opts.HTTPClient,
		UserAgent:   opts.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("layer: %w", err)
	}
	id := opts.ID
	if id == "" {
		id = DefaultID
	}
	return &Layer{
		id:       id,
		ctrl:     ctrl,
		renderer: glquad.NewRenderer(),
	}, nil
}

func (l *Layer) ID() string   { return l.id }
func (l *Layer) Type() string { return TypeCustom }

// Controller returns the offscreen map controller.
func (l *Layer) Controller() *offscreen.Controller { return l.ctrl }

// RendererState returns the state of the quad renderer.
func (l *Layer) RendererState() glquad.State { return l.renderer.State() }

// OnAdd allocates the GPU state. A shader or link failure is logged and
// leaves the layer drawing nothing; it never reaches the host.
func (l *Layer) OnAdd(host HostMap, gl glquad.GL) {
	if err := l.renderer.Initialize(gl); err != nil {
		log.Printf("layer %s: %v, rendering disabled", l.id, err)
	}
}

// Render draws the latest offscreen canvas over the area it covers.
func (l *Layer) Render(gl glquad.GL, matrix [16]float32) {
	l.renderer.RenderFrame(gl, matrix, l.ctrl.CurrentGeographicExtent(), l.ctrl.RenderTargetPixels())
}

// OnRemove releases the GPU state.
func (l *Layer) OnRemove(host HostMap, gl glquad.GL) {
	l.renderer.Release(gl)
}

// AddToMap synchronizes the offscreen view with host, adds the layer to it
// and follows its moves until Remove.
func (l *Layer) AddToMap(host HostMap) (*Layer, error) {
	l.mu.Lock()
	switch {
	case l.removed:
		l.mu.Unlock()
		return nil, ErrRemoved
	case l.host != nil:
		l.mu.Unlock()
		return nil, ErrAttached
	}
	l.host = host
	l.mu.Unlock()

	l.sync(host)
	offRepaint := l.ctrl.RegisterRepaintTrigger(host.TriggerRepaint)
	if err := host.AddLayer(l); err != nil {
		offRepaint()
		l.mu.Lock()
		l.host = nil
		l.mu.Unlock()
		return nil, fmt.Errorf("layer %s: add to map: %w", l.id, err)
	}
	offMove := host.On(EventMove, func() { l.sync(host) })

	l.mu.Lock()
	l.offRepaint = offRepaint
	l.offMove = offMove
	l.mu.Unlock()
	return l, nil
}

func (l *Layer) sync(host HostMap) {
	l.ctrl.SetViewFromHost(host.Center(), host.Zoom())
}

// Remove stops following the host, detaches the offscreen map and removes
// the layer from the host, which releases its GPU state through OnRemove.
// Calling it again has no effect.
func (l *Layer) Remove() {
	l.mu.Lock()
	if l.removed {
		l.mu.Unlock()
		return
	}
	l.removed = true
	host, offMove, offRepaint := l.host, l.offMove, l.offRepaint
	l.host, l.offMove, l.offRepaint = nil, nil, nil
	l.mu.Unlock()

	if offMove != nil {
		offMove()
	}
	if offRepaint != nil {
		offRepaint()
	}
	l.ctrl.Detach()
	if host != nil {
		host.RemoveLayer(l.id)
	}
}

// GeographicExtent returns the area the canvas currently covers.
func (l *Layer) GeographicExtent() geo.Extent {
	return l.ctrl.CurrentGeographicExtent()
}
