package offscreen

import (
	"image"
	"math"

	"github.com/olablt/tilebridge/geo"
)

type PointerKind int

const (
	PointerPress PointerKind = iota
	PointerDrag
	PointerRelease
	PointerScroll
)

// PointerEvent is user input in map pixel coordinates.
type PointerEvent struct {
	Kind     PointerKind
	Position image.Point
	// Scroll is negative to zoom in.
	Scroll float64
}

// Interaction reacts to user input by changing the view. It returns true if
// the event was consumed.
type Interaction interface {
	Handle(m *Map, ev PointerEvent) bool
}

// DragPan moves the view with the pointer.
type DragPan struct {
	last     image.Point
	dragging bool
}

func (d *DragPan) Handle(m *Map, ev PointerEvent) bool {
	switch ev.Kind {
	case PointerPress:
		d.last = ev.Position
		d.dragging = true
		return true
	case PointerDrag:
		if !d.dragging {
			return false
		}
		delta := ev.Position.Sub(d.last)
		d.last = ev.Position
		res := m.View().Resolution()
		c := m.View().Center()
		m.View().SetCenter(geo.Coordinate{
			X: c.X - float64(delta.X)*res,
			Y: c.Y + float64(delta.Y)*res,
		})
		return true
	case PointerRelease:
		d.dragging = false
		return true
	}
	return false
}

// MouseWheelZoom zooms by one level per scroll step, keeping the map
// position under the pointer fixed.
type MouseWheelZoom struct{}

func (MouseWheelZoom) Handle(m *Map, ev PointerEvent) bool {
	if ev.Kind != PointerScroll || ev.Scroll == 0 {
		return false
	}
	v := m.View()
	s := v.State()
	w, h := m.Size()

	// pointer offset from the viewport center, y up
	dx := float64(ev.Position.X) - float64(w)/2
	dy := float64(h)/2 - float64(ev.Position.Y)
	oldRes := ResolutionForZoom(s.Zoom)
	anchor := geo.Coordinate{X: s.Center.X + dx*oldRes, Y: s.Center.Y + dy*oldRes}

	step := -math.Copysign(1, ev.Scroll)
	v.SetZoom(s.Zoom + step)
	newRes := v.Resolution()
	v.SetCenter(geo.Coordinate{X: anchor.X - dx*newRes, Y: anchor.Y - dy*newRes})
	return true
}

// DefaultInteractions are installed on every new Map.
func DefaultInteractions() []Interaction {
	return []Interaction{&DragPan{}, MouseWheelZoom{}}
}

// Control is an on-map UI widget. The offscreen map draws no UI, so controls
// are only tracked by name.
type Control struct {
	Name string
}

func DefaultControls() []Control {
	return []Control{{Name: "zoom"}, {Name: "rotate"}, {Name: "attribution"}}
}
