package mapview

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"sync"

	"gioui.org/f32"
	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/glquad"
	"github.com/olablt/tilebridge/layer"
)

// TileSize is the host's tile size; zoom z shows a world of TileSize*2^z pixels.
const TileSize = 512

const (
	DefaultMinZoom = 0
	DefaultMaxZoom = 22
)

var (
	ErrNoContext      = errors.New("mapview: no GL context")
	ErrDuplicateLayer = errors.New("mapview: duplicate layer id")
)

// MapView is a slippy host map: a center and a fractional zoom over a
// Mercator world, panned by dragging and zoomed by scrolling. Custom layers
// draw through the GL context set with SetGL.
type MapView struct {
	MinZoom float64
	MaxZoom float64

	mu     sync.Mutex
	center geo.LngLat
	zoom   float64
	size   image.Point

	nextID    int
	listeners map[string]map[int]func()

	gl     glquad.GL
	layers []layer.CustomLayer

	clickPos    f32.Point
	dragging    bool
	lastDragPos f32.Point
	refresh     chan struct{}
}

// New returns a map view. TriggerRepaint sends on refresh without blocking,
// so refresh should be buffered.
func New(refresh chan struct{}) *MapView {
	return &MapView{
		MinZoom:   DefaultMinZoom,
		MaxZoom:   DefaultMaxZoom,
		zoom:      2,
		listeners: make(map[string]map[int]func()),
		refresh:   refresh,
	}
}

func (mv *MapView) Center() geo.LngLat {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	return mv.center
}

func (mv *MapView) Zoom() float64 {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	return mv.zoom
}

func (mv *MapView) Size() image.Point {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	return mv.size
}

// JumpTo sets center and zoom and fires a move event.
func (mv *MapView) JumpTo(center geo.LngLat, zoom float64) {
	mv.mu.Lock()
	mv.center = normalize(center)
	mv.zoom = mv.clampZoom(zoom)
	mv.mu.Unlock()
	mv.fire(layer.EventMove)
}

// Resize sets the viewport size in pixels.
func (mv *MapView) Resize(width, height int) {
	mv.mu.Lock()
	changed := mv.size != image.Pt(width, height)
	mv.size = image.Pt(width, height)
	mv.mu.Unlock()
	if changed {
		mv.fire(layer.EventMove)
	}
}

func (mv *MapView) clampZoom(z float64) float64 {
	return max(mv.MinZoom, min(z, mv.MaxZoom))
}

func normalize(c geo.LngLat) geo.LngLat {
	c.Lng = math.Mod(c.Lng+180, 360)
	if c.Lng < 0 {
		c.Lng += 360
	}
	c.Lng -= 180
	c.Lat = max(-geo.MaxLatitude, min(c.Lat, geo.MaxLatitude))
	return c
}

func worldSize(zoom float64) float64 {
	return TileSize * math.Exp2(zoom)
}

// Pan moves the map by a screen delta in pixels; dragging right moves the
// center west.
func (mv *MapView) Pan(dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	mv.mu.Lock()
	ws := worldSize(mv.zoom)
	m := geo.PointToMercator(mv.center)
	m.X -= dx / ws
	m.Y -= dy / ws
	mv.center = normalize(m.LngLat())
	mv.mu.Unlock()
	mv.fire(layer.EventMove)
}

// ZoomAround changes the zoom by delta keeping the point under the screen
// position p fixed.
func (mv *MapView) ZoomAround(p f32.Point, delta float64) {
	mv.mu.Lock()
	oldZoom := mv.zoom
	newZoom := mv.clampZoom(oldZoom + delta)
	if newZoom == oldZoom {
		mv.mu.Unlock()
		return
	}

	// mouse position relative to screen center
	offX := float64(p.X) - float64(mv.size.X)/2
	offY := float64(p.Y) - float64(mv.size.Y)/2

	// world pixel under the mouse at the old zoom
	ws := worldSize(oldZoom)
	m := geo.PointToMercator(mv.center)
	mouseX := m.X*ws + offX
	mouseY := m.Y*ws + offY

	// scale to the new zoom and shift back by the mouse offset
	factor := math.Exp2(newZoom - oldZoom)
	newWS := worldSize(newZoom)
	m.X = (mouseX*factor - offX) / newWS
	m.Y = (mouseY*factor - offY) / newWS

	mv.zoom = newZoom
	mv.center = normalize(m.LngLat())
	mv.mu.Unlock()
	mv.fire(layer.EventMove)
}

// Press starts a drag at p.
func (mv *MapView) Press(p f32.Point) {
	mv.clickPos = p
	mv.lastDragPos = f32.Point{}
	mv.dragging = true
}

// Drag pans by the movement since the previous drag position.
func (mv *MapView) Drag(p f32.Point) {
	if !mv.dragging {
		return
	}
	dragDelta := p.Sub(mv.clickPos)
	if dragDelta == mv.lastDragPos {
		return
	}
	d := dragDelta.Sub(mv.lastDragPos)
	mv.lastDragPos = dragDelta
	mv.Pan(float64(d.X), float64(d.Y))
}

// Release ends a drag.
func (mv *MapView) Release() {
	mv.dragging = false
}

// Scroll zooms one level per scroll step around p; scrolling up zooms in.
func (mv *MapView) Scroll(p f32.Point, scrollY float32) {
	switch {
	case scrollY < 0:
		mv.ZoomAround(p, 1)
	case scrollY > 0:
		mv.ZoomAround(p, -1)
	}
}

// On subscribes fn to event ("move"). The returned func unsubscribes it and
// may be called more than once.
func (mv *MapView) On(event string, fn func()) (off func()) {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	if mv.listeners[event] == nil {
		mv.listeners[event] = make(map[int]func())
	}
	mv.nextID++
	id := mv.nextID
	mv.listeners[event][id] = fn
	return func() {
		mv.mu.Lock()
		defer mv.mu.Unlock()
		delete(mv.listeners[event], id)
	}
}

// ListenerCount returns the number of subscribers for event.
func (mv *MapView) ListenerCount(event string) int {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	return len(mv.listeners[event])
}

func (mv *MapView) fire(event string) {
	mv.mu.Lock()
	ids := make([]int, 0, len(mv.listeners[event]))
	for id := range mv.listeners[event] {
		ids = append(ids, id)
	}
	mv.mu.Unlock()
	// in subscription order; a handler removed by an earlier one is skipped
	sort.Ints(ids)
	for _, id := range ids {
		mv.mu.Lock()
		fn := mv.listeners[event][id]
		mv.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
}

// TriggerRepaint requests a frame. It never blocks and is safe from any
// goroutine; requests made while one is pending collapse into it.
func (mv *MapView) TriggerRepaint() {
	if mv.refresh == nil {
		return
	}
	select {
	case mv.refresh <- struct{}{}:
	default:
	}
}

// SetGL sets the context layers are added and rendered with.
func (mv *MapView) SetGL(gl glquad.GL) {
	mv.mu.Lock()
	mv.gl = gl
	mv.mu.Unlock()
}

// AddLayer appends l and calls its OnAdd.
func (mv *MapView) AddLayer(l layer.CustomLayer) error {
	mv.mu.Lock()
	gl := mv.gl
	if gl == nil {
		mv.mu.Unlock()
		return ErrNoContext
	}
	for _, existing := range mv.layers {
		if existing.ID() == l.ID() {
			mv.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateLayer, l.ID())
		}
	}
	mv.layers = append(mv.layers, l)
	mv.mu.Unlock()

	l.OnAdd(mv, gl)
	mv.TriggerRepaint()
	return nil
}

// RemoveLayer removes the layer with id and calls its OnRemove. Unknown ids
// are ignored.
func (mv *MapView) RemoveLayer(id string) {
	mv.mu.Lock()
	var removed layer.CustomLayer
	for i, l := range mv.layers {
		if l.ID() == id {
			removed = l
			mv.layers = append(mv.layers[:i], mv.layers[i+1:]...)
			break
		}
	}
	gl := mv.gl
	mv.mu.Unlock()

	if removed != nil {
		removed.OnRemove(mv, gl)
		mv.TriggerRepaint()
	}
}

func (mv *MapView) Layers() []layer.CustomLayer {
	mv.mu.Lock()
	defer mv.mu.Unlock()
	return append([]layer.CustomLayer(nil), mv.layers...)
}

// RenderLayers draws every layer with the current matrix.
func (mv *MapView) RenderLayers() {
	mv.mu.Lock()
	gl := mv.gl
	mv.mu.Unlock()
	if gl == nil {
		return
	}
	m := mv.Matrix()
	for _, l := range mv.Layers() {
		l.Render(gl, m)
	}
}

// Matrix returns the column-major view-projection matrix taking normalized
// Mercator coordinates (0..1, y down) to clip space.
func (mv *MapView) Matrix() [16]float32 {
	mv.mu.Lock()
	center, zoom, size := mv.center, mv.zoom, mv.size
	mv.mu.Unlock()
	if size.X <= 0 || size.Y <= 0 {
		return [16]float32{}
	}

	ws := worldSize(zoom)
	c := geo.PointToMercator(center)
	sx := ws / (float64(size.X) / 2)
	sy := ws / (float64(size.Y) / 2)

	var m [16]float32
	m[0] = float32(sx)
	m[5] = float32(-sy)
	m[10] = 1
	m[12] = float32(-c.X * sx)
	m[13] = float32(c.Y * sy)
	m[15] = 1
	return m
}

var _ layer.HostMap = (*MapView)(nil)
