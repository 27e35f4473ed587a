package tiles

// SourceType selects the tile source protocol.
type SourceType string

const (
	WMTS SourceType = "WMTS"
	XYZ  SourceType = "XYZ"
)

// GridOptions describes a tile grid. Resolutions are in projection units per
// pixel, one per zoom level, from coarse to fine.
type GridOptions struct {
	Origin      []float64 `mapstructure:"origin" yaml:"origin"`
	Extent      []float64 `mapstructure:"extent" yaml:"extent"`
	Resolutions []float64 `mapstructure:"resolutions" yaml:"resolutions"`
	MatrixIDs   []string  `mapstructure:"matrixIds" yaml:"matrixIds"`
	TileSize    int       `mapstructure:"tileSize" yaml:"tileSize"`
	MinZoom     int       `mapstructure:"minZoom" yaml:"minZoom"`
}

// SourceOptions configures a WMTS or XYZ tile source. The shared fields apply
// to both; the remaining groups are read only by the matching source type.
type SourceOptions struct {
	TileGrid       *GridOptions `mapstructure:"tileGrid" yaml:"tileGrid"`
	Projection     string       `mapstructure:"projection" yaml:"projection"`
	CacheSize      int          `mapstructure:"cacheSize" yaml:"cacheSize"`
	CrossOrigin    string       `mapstructure:"crossOrigin" yaml:"crossOrigin"`
	URL            string       `mapstructure:"url" yaml:"url"`
	URLs           []string     `mapstructure:"urls" yaml:"urls"`
	TilePixelRatio float64      `mapstructure:"tilePixelRatio" yaml:"tilePixelRatio"`
	WrapX          bool         `mapstructure:"wrapX" yaml:"wrapX"`

	// WMTS
	Layer           string            `mapstructure:"layer" yaml:"layer"`
	Style           string            `mapstructure:"style" yaml:"style"`
	MatrixSet       string            `mapstructure:"matrixSet" yaml:"matrixSet"`
	Format          string            `mapstructure:"format" yaml:"format"`
	Version         string            `mapstructure:"version" yaml:"version"`
	RequestEncoding string            `mapstructure:"requestEncoding" yaml:"requestEncoding"`
	Dimensions      map[string]string `mapstructure:"dimensions" yaml:"dimensions"`

	// XYZ
	MinZoom  int `mapstructure:"minZoom" yaml:"minZoom"`
	MaxZoom  int `mapstructure:"maxZoom" yaml:"maxZoom"`
	TileSize int `mapstructure:"tileSize" yaml:"tileSize"`
}

// DefaultCacheSize bounds the decoded tile cache when CacheSize is unset.
const DefaultCacheSize = 512

func (o SourceOptions) cacheSize() int {
	if o.CacheSize > 0 {
		return o.CacheSize
	}
	return DefaultCacheSize
}

func (o SourceOptions) urls() []string {
	if len(o.URLs) > 0 {
		return o.URLs
	}
	if o.URL != "" {
		return expandURL(o.URL)
	}
	return nil
}
