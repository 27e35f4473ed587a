package offscreen

import "sync"

// Event types dispatched by a TileLayer around each render.
const (
	EventPrerender  = "prerender"
	EventPostrender = "postrender"
)

// Listener receives a render event.
type Listener func(ev RenderEvent)

// RenderEvent describes the frame a layer is about to draw or has drawn.
type RenderEvent struct {
	Type  string
	Frame FrameState
}

// observable keeps listeners per event type. Removal is by key, so a
// listener can be unregistered exactly once.
type observable struct {
	mu        sync.Mutex
	next      int
	listeners map[string]map[int]Listener
}

func (o *observable) on(typ string, fn Listener) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.listeners == nil {
		o.listeners = make(map[string]map[int]Listener)
	}
	if o.listeners[typ] == nil {
		o.listeners[typ] = make(map[int]Listener)
	}
	o.next++
	key := o.next
	o.listeners[typ][key] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.listeners[typ], key)
			o.mu.Unlock()
		})
	}
}

func (o *observable) dispatch(ev RenderEvent) {
	o.mu.Lock()
	fns := make([]Listener, 0, len(o.listeners[ev.Type]))
	for _, fn := range o.listeners[ev.Type] {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (o *observable) count(typ string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.listeners[typ])
}

func (o *observable) clear() {
	o.mu.Lock()
	o.listeners = nil
	o.mu.Unlock()
}
