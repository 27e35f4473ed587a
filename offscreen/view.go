package offscreen

import (
	"math"
	"sync"

	"github.com/olablt/tilebridge/geo"
)

const (
	// DefaultMaxResolution is the EPSG:3857 resolution at zoom 0 for 256 pixel tiles.
	DefaultMaxResolution = 2 * geo.HalfSize / 256
	DefaultMinZoom       = 0
	DefaultMaxZoom       = 28
)

// ViewState is the center and zoom of a view, center in view projection units.
type ViewState struct {
	Center geo.Coordinate
	Zoom   float64
}

// View holds the center and zoom of the offscreen map in EPSG:3857.
type View struct {
	mu      sync.RWMutex
	state   ViewState
	minZoom float64
	maxZoom float64

	onChange func()
}

func NewView(state ViewState) *View {
	v := &View{minZoom: DefaultMinZoom, maxZoom: DefaultMaxZoom}
	if !state.finite() {
		state = ViewState{}
	}
	v.state = v.constrain(state)
	return v
}

func (v *View) Projection() string { return geo.EPSG3857 }

func (v *View) constrain(s ViewState) ViewState {
	s.Zoom = max(v.minZoom, min(s.Zoom, v.maxZoom))
	return s
}

func (s ViewState) finite() bool {
	for _, f := range [...]float64{s.Center.X, s.Center.Y, s.Zoom} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func (v *View) State() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *View) Center() geo.Coordinate { return v.State().Center }
func (v *View) Zoom() float64          { return v.State().Zoom }

// Resolution returns projection units per pixel at the current zoom.
func (v *View) Resolution() float64 {
	return ResolutionForZoom(v.Zoom())
}

func ResolutionForZoom(zoom float64) float64 {
	return DefaultMaxResolution / math.Pow(2, zoom)
}

// SetState replaces center and zoom together and notifies once if the
// constrained state differs from the current one. A state with a NaN or
// infinite component is ignored.
func (v *View) SetState(s ViewState) {
	if !s.finite() {
		return
	}
	v.mu.Lock()
	s = v.constrain(s)
	changed := s != v.state
	v.state = s
	onChange := v.onChange
	v.mu.Unlock()

	if changed && onChange != nil {
		onChange()
	}
}

func (v *View) SetCenter(c geo.Coordinate) {
	s := v.State()
	s.Center = c
	v.SetState(s)
}

func (v *View) SetZoom(z float64) {
	s := v.State()
	s.Zoom = z
	v.SetState(s)
}

// CalculateExtent returns the extent visible in a width x height pixel viewport.
func (v *View) CalculateExtent(width, height int) geo.Extent {
	s := v.State()
	return geo.ExtentAround(s.Center, ResolutionForZoom(s.Zoom), width, height)
}

func (v *View) setOnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}
