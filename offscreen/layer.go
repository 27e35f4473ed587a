package offscreen

import (
	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/tiles"
	"github.com/olablt/tilebridge/tiles/worker"
)

// TileLayer draws one tile source.
type TileLayer struct {
	source  tiles.Source
	manager *tiles.Manager
	pool    *worker.Pool
	events  observable
}

func NewTileLayer(source tiles.Source, provider tiles.Provider, workers int) *TileLayer {
	pool := worker.NewPool(workers, worker.DefaultTimeout)
	return &TileLayer{
		source:  source,
		manager: tiles.NewManager(provider, tiles.NewCache(source.CacheSize()), pool),
		pool:    pool,
	}
}

func (l *TileLayer) Source() tiles.Source     { return l.source }
func (l *TileLayer) Manager() *tiles.Manager { return l.manager }

// On registers fn for EventPrerender or EventPostrender. The returned func
// removes the listener; calling it again has no effect.
func (l *TileLayer) On(event string, fn Listener) (off func()) {
	return l.events.on(event, fn)
}

// ListenerCount returns the number of listeners registered for event.
func (l *TileLayer) ListenerCount(event string) int {
	return l.events.count(event)
}

// dispose stops tile loading, frees the cached tiles and drops all
// listeners.
func (l *TileLayer) dispose() {
	l.manager.Close()
	l.pool.Shutdown()
	l.manager.Cache().Clear()
	l.events.clear()
}

// FrameState is what a layer needs to render one frame.
type FrameState struct {
	Extent     geo.Extent
	Resolution float64
	Width      int
	Height     int
	Center     geo.Coordinate
}
