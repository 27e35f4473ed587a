package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/tiles"
	"github.com/spf13/viper"
)

const wmtsYAML = `
layer:
  id: ortho
  type: WMTS
  width: 800
  height: 600
  tiles:
    url: https://example.com/wmts
    layer: orthophoto
    matrixSet: EPSG:3857
    format: image/jpeg
    style: default
    crossOrigin: anonymous
    tileGrid:
      origin: [-20037508.342789244, 20037508.342789244]
      resolutions: [156543.03392804097, 78271.51696402048]
      matrixIds: ["0", "1"]
      tileSize: 512
view:
  lon: 24.1
  lat: 56.95
  zoom: 9
server:
  port: 9000
  timeout: 5s
`

func read(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(doc)); err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	return v
}

func TestLoadWMTS(t *testing.T) {
	c, err := Load(read(t, wmtsYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := LayerConfig{
		ID:     "ortho",
		Type:   "WMTS",
		Width:  800,
		Height: 600,
		Tiles: tiles.SourceOptions{
			URL:         "https://example.com/wmts",
			Layer:       "orthophoto",
			MatrixSet:   "EPSG:3857",
			Format:      "image/jpeg",
			Style:       "default",
			CrossOrigin: "anonymous",
			TileGrid: &tiles.GridOptions{
				Origin:      []float64{-20037508.342789244, 20037508.342789244},
				Resolutions: []float64{156543.03392804097, 78271.51696402048},
				MatrixIDs:   []string{"0", "1"},
				TileSize:    512,
			},
		},
	}
	if diff := cmp.Diff(want, c.Layer); diff != "" {
		t.Errorf("layer mismatch (-want +got):\n%s", diff)
	}
	if c.SourceType() != tiles.WMTS {
		t.Errorf("SourceType = %q", c.SourceType())
	}
	if got := c.Center(); got != (geo.LngLat{Lng: 24.1, Lat: 56.95}) {
		t.Errorf("Center = %v", got)
	}
	if c.View.Zoom != 9 {
		t.Errorf("Zoom = %v", c.View.Zoom)
	}
	if c.Addr() != "localhost:9000" {
		t.Errorf("Addr = %q", c.Addr())
	}
	if c.Server.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", c.Server.Timeout)
	}
}

func TestDefaults(t *testing.T) {
	c, err := Load(read(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SourceType() != tiles.XYZ || c.Layer.ID != "customWMTSLayer" {
		t.Errorf("type %q id %q", c.Layer.Type, c.Layer.ID)
	}
	if c.Layer.Width != 1024 || c.Layer.Height != 768 {
		t.Errorf("size %dx%d", c.Layer.Width, c.Layer.Height)
	}
	if c.Server.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", c.Server.Timeout)
	}
	if opts := c.LayerOptions(); opts.Provider != nil || opts.Fallback != nil {
		t.Error("the HTTP provider is used alone unless debug or a fallback is set")
	}
}

func TestDebugProvider(t *testing.T) {
	v := read(t, "debug: true\nlayer:\n  tiles:\n    url: \"\"\n")
	c, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := c.LayerOptions().Provider.(*tiles.DebugProvider); !ok {
		t.Errorf("Provider = %T", c.LayerOptions().Provider)
	}
}

func TestDebugFallback(t *testing.T) {
	c, err := Load(read(t, "layer:\n  fallback: debug\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts := c.LayerOptions()
	if opts.Provider != nil {
		t.Errorf("Provider = %T, want the HTTP default", opts.Provider)
	}
	if _, ok := opts.Fallback.(*tiles.DebugProvider); !ok {
		t.Errorf("Fallback = %T", opts.Fallback)
	}
	if _, ok := c.OffscreenOptions().Fallback.(*tiles.DebugProvider); !ok {
		t.Errorf("offscreen Fallback = %T", c.OffscreenOptions().Fallback)
	}

	// debug tiles never fail, so they need no fallback
	c.Debug = true
	if c.LayerOptions().Fallback != nil {
		t.Error("debug mode sets a fallback")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"zero width", "layer:\n  width: 0\n"},
		{"missing url", "layer:\n  tiles:\n    url: \"\"\n"},
		{"latitude", "view:\n  lat: 91\n"},
		{"negative zoom", "view:\n  zoom: -1\n"},
		{"NaN zoom", "view:\n  zoom: .nan\n"},
		{"NaN latitude", "view:\n  lat: .nan\n"},
		{"infinite longitude", "view:\n  lon: .inf\n"},
		{"unknown fallback", "layer:\n  fallback: blank\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(read(t, tt.doc))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestOffscreenOptions(t *testing.T) {
	c, err := Load(read(t, wmtsYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	lo, oo := c.LayerOptions(), c.OffscreenOptions()
	if oo.Width != lo.Width || oo.Height != lo.Height || oo.UserAgent != "tilebridge/1.0" {
		t.Errorf("offscreen options %+v", oo)
	}
	if diff := cmp.Diff(lo.TileOptions, oo.TileOptions); diff != "" {
		t.Errorf("tile options differ (-layer +offscreen):\n%s", diff)
	}
}
