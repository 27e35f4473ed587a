// Package config decodes the tilebridge configuration: the tile layer, the
// initial host view and the HTTP server.
package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/layer"
	"github.com/olablt/tilebridge/offscreen"
	"github.com/olablt/tilebridge/tiles"
	"github.com/spf13/viper"
)

var ErrInvalid = errors.New("config: invalid")

const (
	FallbackNone  = ""
	FallbackDebug = "debug"
)

type Config struct {
	Layer     LayerConfig  `mapstructure:"layer"`
	View      ViewConfig   `mapstructure:"view"`
	Server    ServerConfig `mapstructure:"server"`
	UserAgent string       `mapstructure:"user-agent"`

	// Debug replaces the tile source with generated coordinate tiles.
	Debug bool `mapstructure:"debug"`
}

type LayerConfig struct {
	ID     string              `mapstructure:"id"`
	Type   string              `mapstructure:"type"`
	Width  int                 `mapstructure:"width"`
	Height int                 `mapstructure:"height"`
	Tiles  tiles.SourceOptions `mapstructure:"tiles"`

	// Fallback names what replaces a tile the source fails to deliver:
	// FallbackNone or FallbackDebug.
	Fallback string `mapstructure:"fallback"`
}

type ViewConfig struct {
	Lon  float64 `mapstructure:"lon"`
	Lat  float64 `mapstructure:"lat"`
	Zoom float64 `mapstructure:"zoom"`
}

type ServerConfig struct {
	Bind    string        `mapstructure:"bind"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("layer.id", layer.DefaultID)
	v.SetDefault("layer.type", string(tiles.XYZ))
	v.SetDefault("layer.width", 1024)
	v.SetDefault("layer.height", 768)
	v.SetDefault("layer.tiles.url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("view.zoom", 2)
	v.SetDefault("server.bind", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("user-agent", "tilebridge/1.0")
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case !finite(c.View.Lon) || !finite(c.View.Lat) || !finite(c.View.Zoom):
		return fmt.Errorf("%w: view %v,%v z%v", ErrInvalid, c.View.Lon, c.View.Lat, c.View.Zoom)
	case c.Layer.Width <= 0 || c.Layer.Height <= 0:
		return fmt.Errorf("%w: layer size %dx%d", ErrInvalid, c.Layer.Width, c.Layer.Height)
	case !c.Debug && c.Layer.Tiles.URL == "" && len(c.Layer.Tiles.URLs) == 0:
		return fmt.Errorf("%w: layer.tiles.url is required", ErrInvalid)
	case c.View.Lat < -90 || c.View.Lat > 90:
		return fmt.Errorf("%w: latitude %v", ErrInvalid, c.View.Lat)
	case c.View.Zoom < 0:
		return fmt.Errorf("%w: zoom %v", ErrInvalid, c.View.Zoom)
	case c.Layer.Fallback != FallbackNone && c.Layer.Fallback != FallbackDebug:
		return fmt.Errorf("%w: layer.fallback %q, use %q or nothing", ErrInvalid, c.Layer.Fallback, FallbackDebug)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// SourceType returns the configured layer type. It is not checked here;
// layer.New rejects unsupported types.
func (c Config) SourceType() tiles.SourceType {
	return tiles.SourceType(c.Layer.Type)
}

// Center returns the initial host center.
func (c Config) Center() geo.LngLat {
	return geo.LngLat{Lng: c.View.Lon, Lat: c.View.Lat}
}

// Addr returns the server listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// LayerOptions returns the options for layer.New.
func (c Config) LayerOptions() layer.Options {
	opts := layer.Options{
		ID:          c.Layer.ID,
		Width:       c.Layer.Width,
		Height:      c.Layer.Height,
		TileOptions: c.Layer.Tiles,
		UserAgent:   c.UserAgent,
	}
	switch {
	case c.Debug:
		opts.Provider = tiles.NewDebugProvider(c.tileSize())
	case c.Layer.Fallback == FallbackDebug:
		opts.Fallback = tiles.NewDebugProvider(c.tileSize())
	}
	return opts
}

// OffscreenOptions returns the same layer settings for a bare offscreen
// controller, used where no GL host draws the canvas.
func (c Config) OffscreenOptions() offscreen.Options {
	opts := c.LayerOptions()
	return offscreen.Options{
		TileOptions: opts.TileOptions,
		Width:       opts.Width,
		Height:      opts.Height,
		Provider:    opts.Provider,
		Fallback:    opts.Fallback,
		UserAgent:   opts.UserAgent,
	}
}

func (c Config) tileSize() int {
	switch {
	case c.Layer.Tiles.TileGrid != nil && c.Layer.Tiles.TileGrid.TileSize > 0:
		return c.Layer.Tiles.TileGrid.TileSize
	case c.Layer.Tiles.TileSize > 0:
		return c.Layer.Tiles.TileSize
	}
	return 256
}
