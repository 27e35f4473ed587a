package tiles

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/olablt/tilebridge/geo"
)

// Source resolves tile coordinates of its grid to fetchable URLs.
type Source interface {
	Type() SourceType
	Grid() *Grid
	Projection() string
	// TileURL returns false for tiles outside the source.
	TileURL(c Coord) (string, bool)
	CacheSize() int
	// WrapX reports whether the source repeats across the antimeridian.
	WrapX() bool
}

type baseSource struct {
	grid       *Grid
	projection string
	urls       []string
	opts       SourceOptions
}

func newBaseSource(opts SourceOptions, grid *Grid) (baseSource, error) {
	projection := opts.Projection
	if projection == "" {
		projection = geo.EPSG3857
	}
	if _, err := geo.Transform(geo.Coordinate{}, projection, geo.EPSG3857); err != nil {
		return baseSource{}, err
	}
	urls := opts.urls()
	if len(urls) == 0 {
		return baseSource{}, fmt.Errorf("%w: no url configured", ErrInvalidTemplate)
	}
	return baseSource{grid: grid, projection: projection, urls: urls, opts: opts}, nil
}

func (s *baseSource) Grid() *Grid        { return s.grid }
func (s *baseSource) Projection() string { return s.projection }
func (s *baseSource) CacheSize() int     { return s.opts.cacheSize() }
func (s *baseSource) WrapX() bool        { return s.opts.WrapX }

// contains reports whether c lies within the grid, wrapping x around the
// world when the source repeats horizontally.
func (s *baseSource) contains(c Coord) (Coord, bool) {
	if c.Z < s.grid.MinZoom() || c.Z > s.grid.MaxZoom() || c.Y < 0 || (c.X < 0 && !s.opts.WrapX) {
		return c, false
	}
	e, ok := s.grid.Extent()
	if !ok {
		return c, true
	}
	full := s.grid.TileRange(e, c.Z)
	if s.opts.WrapX {
		n := full.MaxX - full.MinX + 1
		c.X = full.MinX + ((c.X-full.MinX)%n+n)%n
	}
	if c.X < full.MinX || c.X > full.MaxX || c.Y < full.MinY || c.Y > full.MaxY {
		return c, false
	}
	return c, true
}

// XYZSource fills {z}/{x}/{y} (and {-y}) url templates.
type XYZSource struct {
	baseSource
}

// NewXYZ creates an XYZ source. A nil grid selects the default web map grid
// over the source projection.
func NewXYZ(opts SourceOptions, grid *Grid) (*XYZSource, error) {
	base, err := newBaseSource(opts, grid)
	if err != nil {
		return nil, err
	}
	for _, u := range base.urls {
		if err := validateTemplate(u, "{z}", "{x}"); err != nil {
			return nil, err
		}
		if !strings.Contains(u, "{y}") && !strings.Contains(u, "{-y}") {
			return nil, fmt.Errorf("%w: placeholder {y} not found in %q", ErrInvalidTemplate, u)
		}
	}
	if base.grid == nil {
		extent := geo.WorldExtent3857
		if base.projection == geo.EPSG4326 {
			extent = geo.WorldExtent4326
		}
		base.grid = NewXYZGrid(extent, opts.MinZoom, opts.MaxZoom, opts.TileSize)
	}
	return &XYZSource{baseSource: base}, nil
}

func (s *XYZSource) Type() SourceType { return XYZ }

func (s *XYZSource) TileURL(c Coord) (string, bool) {
	c, ok := s.contains(c)
	if !ok {
		return "", false
	}
	return formatXYZ(pickURL(s.urls, c), c), true
}

// WMTSSource builds OGC WMTS GetTile requests in KVP or REST encoding.
type WMTSSource struct {
	baseSource
	rest bool
}

func NewWMTS(opts SourceOptions, grid *Grid) (*WMTSSource, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: WMTS needs a tile grid", ErrInvalidGrid)
	}
	base, err := newBaseSource(opts, grid)
	if err != nil {
		return nil, err
	}
	rest := strings.EqualFold(opts.RequestEncoding, "REST")
	if rest {
		for _, u := range base.urls {
			if err := validateTemplate(u, "{TileMatrix}", "{TileRow}", "{TileCol}"); err != nil {
				return nil, err
			}
		}
	}
	if base.opts.Format == "" {
		base.opts.Format = "image/jpeg"
	}
	if base.opts.Version == "" {
		base.opts.Version = "1.0.0"
	}
	return &WMTSSource{baseSource: base, rest: rest}, nil
}

func (s *WMTSSource) Type() SourceType { return WMTS }

func (s *WMTSSource) TileURL(c Coord) (string, bool) {
	c, ok := s.contains(c)
	if !ok {
		return "", false
	}
	template := pickURL(s.urls, c)
	if s.rest {
		return s.restURL(template, c), true
	}
	return s.kvpURL(template, c), true
}

func (s *WMTSSource) restURL(template string, c Coord) string {
	pairs := []string{
		"{TileMatrix}", s.grid.MatrixID(c.Z),
		"{TileRow}", fmt.Sprint(c.Y),
		"{TileCol}", fmt.Sprint(c.X),
		"{Layer}", s.opts.Layer,
		"{layer}", s.opts.Layer,
		"{Style}", s.opts.Style,
		"{style}", s.opts.Style,
		"{TileMatrixSet}", s.opts.MatrixSet,
		"{tilematrixset}", s.opts.MatrixSet,
	}
	for _, k := range sortedKeys(s.opts.Dimensions) {
		pairs = append(pairs, "{"+k+"}", s.opts.Dimensions[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func (s *WMTSSource) kvpURL(template string, c Coord) string {
	q := url.Values{}
	q.Set("SERVICE", "WMTS")
	q.Set("REQUEST", "GetTile")
	q.Set("VERSION", s.opts.Version)
	q.Set("LAYER", s.opts.Layer)
	q.Set("STYLE", s.opts.Style)
	q.Set("FORMAT", s.opts.Format)
	q.Set("TILEMATRIXSET", s.opts.MatrixSet)
	q.Set("TILEMATRIX", s.grid.MatrixID(c.Z))
	q.Set("TILEROW", fmt.Sprint(c.Y))
	q.Set("TILECOL", fmt.Sprint(c.X))
	for k, v := range s.opts.Dimensions {
		q.Set(k, v)
	}
	sep := "?"
	if strings.Contains(template, "?") {
		sep = "&"
		if strings.HasSuffix(template, "?") || strings.HasSuffix(template, "&") {
			sep = ""
		}
	}
	return template + sep + q.Encode()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
