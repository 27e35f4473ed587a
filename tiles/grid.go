package tiles

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/olablt/tilebridge/geo"
)

const (
	TileSize = 256
	// DefaultMaxZoom is the deepest level of the default XYZ grid.
	DefaultMaxZoom = 42
)

var ErrInvalidGrid = errors.New("tiles: invalid tile grid")

// Grid partitions a projection into zoom levels of square tiles anchored at a
// top-left origin.
type Grid struct {
	origin      geo.Coordinate
	extent      *geo.Extent
	resolutions []float64
	matrixIDs   []string
	tileSize    int
	minZoom     int
}

// NewGrid builds a grid from explicit options. The origin defaults to the top
// left corner of the extent.
func NewGrid(opts GridOptions) (*Grid, error) {
	if len(opts.Resolutions) == 0 {
		return nil, fmt.Errorf("%w: no resolutions", ErrInvalidGrid)
	}
	for i := 1; i < len(opts.Resolutions); i++ {
		if opts.Resolutions[i] >= opts.Resolutions[i-1] {
			return nil, fmt.Errorf("%w: resolutions must be descending", ErrInvalidGrid)
		}
	}
	if len(opts.MatrixIDs) > 0 && len(opts.MatrixIDs) != len(opts.Resolutions) {
		return nil, fmt.Errorf("%w: %d matrix ids for %d resolutions",
			ErrInvalidGrid, len(opts.MatrixIDs), len(opts.Resolutions))
	}

	g := &Grid{
		resolutions: append([]float64(nil), opts.Resolutions...),
		matrixIDs:   append([]string(nil), opts.MatrixIDs...),
		tileSize:    opts.TileSize,
		minZoom:     opts.MinZoom,
	}
	if g.tileSize <= 0 {
		g.tileSize = TileSize
	}

	switch len(opts.Extent) {
	case 0:
	case 4:
		e := geo.Extent{opts.Extent[0], opts.Extent[1], opts.Extent[2], opts.Extent[3]}
		g.extent = &e
	default:
		return nil, fmt.Errorf("%w: extent needs 4 values, got %d", ErrInvalidGrid, len(opts.Extent))
	}

	switch {
	case len(opts.Origin) == 2:
		g.origin = geo.Coordinate{X: opts.Origin[0], Y: opts.Origin[1]}
	case len(opts.Origin) != 0:
		return nil, fmt.Errorf("%w: origin needs 2 values, got %d", ErrInvalidGrid, len(opts.Origin))
	case g.extent != nil:
		g.origin = g.extent.TopLeft()
	default:
		return nil, fmt.Errorf("%w: neither origin nor extent given", ErrInvalidGrid)
	}
	return g, nil
}

// NewXYZGrid returns the standard web map grid: one tile at zoom 0 covering
// extent, every level halving the resolution.
func NewXYZGrid(extent geo.Extent, minZoom, maxZoom, tileSize int) *Grid {
	if tileSize <= 0 {
		tileSize = TileSize
	}
	if maxZoom <= 0 {
		maxZoom = DefaultMaxZoom
	}
	size := max(extent.Width(), extent.Height())
	resolutions := make([]float64, maxZoom+1)
	for z := range resolutions {
		resolutions[z] = size / float64(tileSize) / math.Pow(2, float64(z))
	}
	e := extent
	return &Grid{
		origin:      extent.TopLeft(),
		extent:      &e,
		resolutions: resolutions,
		tileSize:    tileSize,
		minZoom:     minZoom,
	}
}

func (g *Grid) TileSize() int { return g.tileSize }
func (g *Grid) MinZoom() int  { return g.minZoom }
func (g *Grid) MaxZoom() int  { return len(g.resolutions) - 1 }

func (g *Grid) Origin() geo.Coordinate { return g.origin }

// Extent returns the grid extent, if one was configured.
func (g *Grid) Extent() (geo.Extent, bool) {
	if g.extent == nil {
		return geo.Extent{}, false
	}
	return *g.extent, true
}

func (g *Grid) Resolution(z int) float64 {
	z = max(0, min(z, g.MaxZoom()))
	return g.resolutions[z]
}

// MatrixID is the WMTS TileMatrix identifier for z; it falls back to the
// decimal zoom level when no ids were configured.
func (g *Grid) MatrixID(z int) string {
	if z >= 0 && z < len(g.matrixIDs) {
		return g.matrixIDs[z]
	}
	return strconv.Itoa(z)
}

// ZForResolution returns the usable zoom level whose resolution is nearest to res.
func (g *Grid) ZForResolution(res float64) int {
	best := g.minZoom
	bestDiff := math.Inf(1)
	for z := g.minZoom; z <= g.MaxZoom(); z++ {
		if d := math.Abs(g.resolutions[z] - res); d < bestDiff {
			best, bestDiff = z, d
		}
	}
	return best
}

// TileExtent returns the projected bounds of a tile.
func (g *Grid) TileExtent(c Coord) geo.Extent {
	span := g.Resolution(c.Z) * float64(g.tileSize)
	minX := g.origin.X + float64(c.X)*span
	maxY := g.origin.Y - float64(c.Y)*span
	return geo.Extent{minX, maxY - span, minX + span, maxY}
}

// TileCoord returns the tile at zoom z that contains p.
func (g *Grid) TileCoord(p geo.Coordinate, z int) Coord {
	span := g.Resolution(z) * float64(g.tileSize)
	return Coord{
		Z: z,
		X: int(math.Floor((p.X - g.origin.X) / span)),
		Y: int(math.Floor((g.origin.Y - p.Y) / span)),
	}
}

// TileRange returns the tiles at zoom z that intersect e, limited to the grid
// extent when there is one.
// A NaN or infinite extent covers no tiles.
func (g *Grid) TileRange(e geo.Extent, z int) Range {
	empty := Range{Z: z, MinX: 0, MinY: 0, MaxX: -1, MaxY: -1}
	if !e.Finite() {
		return empty
	}
	if g.extent != nil {
		if !e.Intersects(*g.extent) {
			return empty
		}
		e = e.Intersection(*g.extent)
	}
	span := g.Resolution(z) * float64(g.tileSize)
	return Range{
		Z:    z,
		MinX: int(math.Floor((e[0] - g.origin.X) / span)),
		MaxX: int(math.Ceil((e[2]-g.origin.X)/span)) - 1,
		MinY: int(math.Floor((g.origin.Y - e[3]) / span)),
		MaxY: int(math.Ceil((g.origin.Y-e[1])/span)) - 1,
	}
}
