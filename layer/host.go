package layer

import (
	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/glquad"
)

// EventMove is the host event fired whenever its viewport changes.
const EventMove = "move"

// HostMap is what a layer needs from the map it is added to.
type HostMap interface {
	Center() geo.LngLat
	Zoom() float64
	// On subscribes fn to event and returns the func that unsubscribes it.
	On(event string, fn func()) (off func())
	AddLayer(l CustomLayer) error
	RemoveLayer(id string)
	// TriggerRepaint asks for a frame. It may be called from any goroutine.
	TriggerRepaint()
}

// CustomLayer is the contract for application-drawn layers. The host calls
// OnAdd once when the layer is added, Render every frame with its
// view-projection matrix, and OnRemove when the layer is removed. All three
// run on the host's render goroutine.
type CustomLayer interface {
	ID() string
	Type() string
	OnAdd(host HostMap, gl glquad.GL)
	Render(gl glquad.GL, matrix [16]float32)
	OnRemove(host HostMap, gl glquad.GL)
}
