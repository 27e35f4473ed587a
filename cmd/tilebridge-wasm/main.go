//go:build js && wasm

// Command tilebridge-wasm exposes the tile layer adapter to JavaScript:
//
//	const a = new tilebridge.Adapter("WMTS", {id, width, height, tileOptions})
//	a.addToMap(map)
//	a.remove()
//
// tilebridge.addLayer(map, type, options) does both steps and returns the
// added adapter.
//
// Go callbacks cannot throw, so a failure is returned as an Error value
// instead of the adapter; check the result with instanceof Error.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"syscall/js"

	"github.com/olablt/tilebridge/layer"
	"github.com/olablt/tilebridge/offscreen"
	"github.com/olablt/tilebridge/tiles"
)

// adapterOptions is the JSON shape of the constructor options. Tile option
// keys match tiles.SourceOptions field names case-insensitively.
type adapterOptions struct {
	ID          string              `json:"id"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	TileOptions tiles.SourceOptions `json:"tileOptions"`
}

func main() {
	js.Global().Set("tilebridge", map[string]any{
		"Adapter":  js.FuncOf(newAdapter),
		"addLayer": js.FuncOf(addLayer),
	})
	log.Println("tilebridge: ready")
	select {}
}

func jsError(err error) js.Value {
	var typeErr *offscreen.UnsupportedLayerTypeError
	name := "Error"
	if errors.As(err, &typeErr) {
		name = "TypeError"
	}
	return js.Global().Get(name).New(err.Error())
}

func newAdapter(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return jsError(errors.New("tilebridge: Adapter(type, options) needs two arguments"))
	}
	var opts adapterOptions
	raw := js.Global().Get("JSON").Call("stringify", args[1]).String()
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return jsError(fmt.Errorf("tilebridge: options: %w", err))
	}

	l, err := layer.New(tiles.SourceType(args[0].String()), layer.Options{
		ID:          opts.ID,
		Width:       opts.Width,
		Height:      opts.Height,
		TileOptions: opts.TileOptions,
	})
	if err != nil {
		return jsError(err)
	}

	self := js.Global().Get("Object").New()
	self.Set("id", l.ID())
	self.Set("addToMap", js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) < 1 {
			return jsError(errors.New("tilebridge: addToMap(map) needs a map"))
		}
		if _, err := l.AddToMap(newMapboxHost(args[0])); err != nil {
			return jsError(err)
		}
		return self
	}))
	self.Set("remove", js.FuncOf(func(js.Value, []js.Value) any {
		l.Remove()
		return nil
	}))
	self.Set("extent", js.FuncOf(func(js.Value, []js.Value) any {
		e := l.GeographicExtent()
		return []any{e[0], e[1], e[2], e[3]}
	}))
	return self
}

func addLayer(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return jsError(errors.New("tilebridge: addLayer(map, type, options) needs three arguments"))
	}
	a := newAdapter(this, args[1:]).(js.Value)
	if a.InstanceOf(js.Global().Get("Error")) {
		return a
	}
	return a.Call("addToMap", args[0])
}
