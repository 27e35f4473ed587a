//go:build js && wasm

package main

import (
	"fmt"
	"sync"
	"syscall/js"

	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/glquad/webgl"
	"github.com/olablt/tilebridge/layer"
)

// mapboxHost adapts a mapboxgl.Map to layer.HostMap.
type mapboxHost struct {
	m js.Value

	mu     sync.Mutex
	layers map[string]*jsLayer
}

func newMapboxHost(m js.Value) *mapboxHost {
	return &mapboxHost{m: m, layers: make(map[string]*jsLayer)}
}

func (h *mapboxHost) Center() geo.LngLat {
	c := h.m.Call("getCenter")
	return geo.LngLat{Lng: c.Get("lng").Float(), Lat: c.Get("lat").Float()}
}

func (h *mapboxHost) Zoom() float64 { return h.m.Call("getZoom").Float() }

func (h *mapboxHost) On(event string, fn func()) (off func()) {
	cb := js.FuncOf(func(js.Value, []js.Value) any {
		fn()
		return nil
	})
	h.m.Call("on", event, cb)
	var once sync.Once
	return func() {
		once.Do(func() {
			h.m.Call("off", event, cb)
			cb.Release()
		})
	}
}

func (h *mapboxHost) TriggerRepaint() { h.m.Call("triggerRepaint") }

// jsLayer is the custom layer object handed to map.addLayer and the Go
// callbacks behind it.
type jsLayer struct {
	obj   js.Value
	funcs []js.Func
	gl    *webgl.Context
}

func (h *mapboxHost) AddLayer(l layer.CustomLayer) (err error) {
	jl := &jsLayer{}
	glFor := func(gl js.Value) *webgl.Context {
		if jl.gl == nil || !jl.gl.Value().Equal(gl) {
			jl.gl = webgl.New(gl)
		}
		return jl.gl
	}
	fn := func(f func(args []js.Value)) js.Func {
		jf := js.FuncOf(func(_ js.Value, args []js.Value) any {
			f(args)
			return nil
		})
		jl.funcs = append(jl.funcs, jf)
		return jf
	}

	obj := js.Global().Get("Object").New()
	obj.Set("id", l.ID())
	obj.Set("type", l.Type())
	obj.Set("onAdd", fn(func(args []js.Value) {
		l.OnAdd(h, glFor(args[1]))
	}))
	obj.Set("render", fn(func(args []js.Value) {
		var m [16]float32
		for i := range m {
			m[i] = float32(args[1].Index(i).Float())
		}
		l.Render(glFor(args[0]), m)
	}))
	obj.Set("onRemove", fn(func(args []js.Value) {
		l.OnRemove(h, glFor(args[1]))
	}))
	jl.obj = obj

	// addLayer throws when the style is not loaded or the id is taken
	defer func() {
		if r := recover(); r != nil {
			jl.release()
			err = fmt.Errorf("mapbox addLayer: %v", r)
		}
	}()
	h.m.Call("addLayer", obj)

	h.mu.Lock()
	h.layers[l.ID()] = jl
	h.mu.Unlock()
	return nil
}

func (h *mapboxHost) RemoveLayer(id string) {
	h.mu.Lock()
	jl := h.layers[id]
	delete(h.layers, id)
	h.mu.Unlock()
	if jl == nil {
		return
	}
	// mapbox calls onRemove synchronously
	if h.m.Call("getLayer", id).Truthy() {
		h.m.Call("removeLayer", id)
	}
	jl.release()
}

func (jl *jsLayer) release() {
	for _, f := range jl.funcs {
		f.Release()
	}
	jl.funcs = nil
}

var _ layer.HostMap = (*mapboxHost)(nil)
