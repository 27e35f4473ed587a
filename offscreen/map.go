package offscreen

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/olablt/tilebridge/geo"
)

// Map renders tile layers for a view into a Canvas. It is the hidden tile
// engine the Controller drives.
type Map struct {
	view      *View
	scheduler Scheduler

	mu           sync.RWMutex
	width        int
	height       int
	target       *Canvas
	layers       []*TileLayer
	interactions []Interaction
	controls     []Control
	autoResize   bool

	renderPending atomic.Bool
	renderMu      sync.Mutex
}

// NewMap creates a map with the default interactions and controls,
// following window resizes.
func NewMap(view *View, scheduler Scheduler) *Map {
	if scheduler == nil {
		scheduler = FrameScheduler{Delay: FrameDelay}
	}
	m := &Map{
		view:         view,
		scheduler:    scheduler,
		interactions: DefaultInteractions(),
		controls:     DefaultControls(),
		autoResize:   true,
	}
	view.setOnChange(m.RequestRender)
	return m
}

func (m *Map) View() *View { return m.view }

func (m *Map) Size() (width, height int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.width, m.height
}

func (m *Map) SetSize(width, height int) {
	m.mu.Lock()
	changed := m.width != width || m.height != height
	m.width, m.height = width, height
	m.mu.Unlock()
	if changed {
		m.RequestRender()
	}
}

// HandleResize is the window resize hook. It resizes the map only while
// auto-resize is enabled.
func (m *Map) HandleResize(width, height int) {
	m.mu.RLock()
	auto := m.autoResize
	m.mu.RUnlock()
	if auto {
		m.SetSize(width, height)
	}
}

func (m *Map) SetAutoResize(enabled bool) {
	m.mu.Lock()
	m.autoResize = enabled
	m.mu.Unlock()
}

// SetTarget attaches the canvas frames are published to. A nil target
// disconnects the map; render requests are ignored until a new target is set.
func (m *Map) SetTarget(c *Canvas) {
	m.mu.Lock()
	m.target = c
	m.mu.Unlock()
	if c != nil {
		m.RequestRender()
	}
}

func (m *Map) Target() *Canvas {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.target
}

func (m *Map) AddLayer(l *TileLayer) {
	m.mu.Lock()
	m.layers = append(m.layers, l)
	m.mu.Unlock()
	l.manager.SetOnLoadCallback(m.RequestRender)
	m.RequestRender()
}

func (m *Map) Layers() []*TileLayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*TileLayer(nil), m.layers...)
}

func (m *Map) Interactions() []Interaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Interaction(nil), m.interactions...)
}

func (m *Map) ClearInteractions() {
	m.mu.Lock()
	m.interactions = nil
	m.mu.Unlock()
}

func (m *Map) Controls() []Control {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Control(nil), m.controls...)
}

func (m *Map) ClearControls() {
	m.mu.Lock()
	m.controls = nil
	m.mu.Unlock()
}

// HandleEvent passes user input to the interactions in order until one
// consumes it.
func (m *Map) HandleEvent(ev PointerEvent) bool {
	for _, in := range m.Interactions() {
		if in.Handle(m, ev) {
			return true
		}
	}
	return false
}

// RequestRender asks the scheduler for a frame. Requests made while one is
// pending collapse into it.
func (m *Map) RequestRender() {
	if m.Target() == nil {
		return
	}
	if !m.renderPending.CompareAndSwap(false, true) {
		return
	}
	m.scheduler.Schedule(func() {
		m.renderPending.Store(false)
		m.RenderSync()
	})
}

// RenderSync renders a frame now and publishes it to the target.
func (m *Map) RenderSync() {
	m.renderMu.Lock()
	defer m.renderMu.Unlock()

	m.mu.RLock()
	target := m.target
	width, height := m.width, m.height
	layers := append([]*TileLayer(nil), m.layers...)
	m.mu.RUnlock()
	if target == nil || width <= 0 || height <= 0 {
		return
	}

	s := m.view.State()
	frame := FrameState{
		Extent:     geo.ExtentAround(s.Center, ResolutionForZoom(s.Zoom), width, height),
		Resolution: ResolutionForZoom(s.Zoom),
		Width:      width,
		Height:     height,
		Center:     s.Center,
	}

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, l := range layers {
		l.events.dispatch(RenderEvent{Type: EventPrerender, Frame: frame})
		l.render(frame, rgba)
		l.events.dispatch(RenderEvent{Type: EventPostrender, Frame: frame})
	}
	target.publish(toNRGBA(rgba))
}

// Dispose disconnects the target and stops every layer's tile loading.
func (m *Map) Dispose() {
	m.SetTarget(nil)
	m.view.setOnChange(nil)
	for _, l := range m.Layers() {
		l.dispose()
	}
}

// toNRGBA converts to straight alpha, the layout a browser canvas hands to
// texImage2D.
func toNRGBA(src *image.RGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	for i := 0; i < len(src.Pix); i += 4 {
		a := src.Pix[i+3]
		switch a {
		case 0:
		case 0xff:
			copy(dst.Pix[i:i+4], src.Pix[i:i+4])
		default:
			for k := 0; k < 3; k++ {
				dst.Pix[i+k] = uint8(min(uint32(src.Pix[i+k])*0xff/uint32(a), 0xff))
			}
			dst.Pix[i+3] = a
		}
	}
	return dst
}
