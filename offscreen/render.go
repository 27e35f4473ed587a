package offscreen

import (
	"image"
	"math"

	"github.com/olablt/tilebridge/geo"
	"github.com/olablt/tilebridge/tiles"
	xdraw "golang.org/x/image/draw"
)

// ancestorLevels is how many coarser zoom levels are searched for a cached
// stand-in while a tile loads.
const ancestorLevels = 3

func (l *TileLayer) render(frame FrameState, dst *image.RGBA) {
	if l.source.Projection() == geo.EPSG4326 {
		l.renderReprojected(frame, dst)
		return
	}
	l.renderDirect(frame, dst)
}

// renderDirect draws tiles of a grid in the view projection, scaling each
// tile to the view resolution.
func (l *TileLayer) renderDirect(frame FrameState, dst *image.RGBA) {
	grid := l.source.Grid()
	z := grid.ZForResolution(frame.Resolution)
	r := l.tileRange(frame.Extent, z)

	for _, c := range r.Coords() {
		tileExtent := grid.TileExtent(c)
		img, state := l.manager.Get(c, priority(grid, c, frame.Center))
		if state == tiles.StateLoaded {
			drawRegion(dst, frame, img, tileExtent, tileExtent)
			continue
		}
		// draw the matching part of a coarser cached tile until this one
		// arrives. Levels need not halve; the parent is the tile holding
		// this tile's center.
		for dz := 1; dz <= ancestorLevels && z-dz >= grid.MinZoom(); dz++ {
			parent := grid.TileCoord(tileExtent.Center(), z-dz)
			if img, ok := l.manager.Cache().Get(parent.Key()); ok {
				parentExtent := grid.TileExtent(parent)
				drawRegion(dst, frame, img, parentExtent, tileExtent.Intersection(parentExtent))
				break
			}
		}
	}
}

func (l *TileLayer) tileRange(e geo.Extent, z int) tiles.Range {
	grid := l.source.Grid()
	ge, ok := grid.Extent()
	if !ok || !l.source.WrapX() {
		return grid.TileRange(e, z)
	}
	// keep x unbounded so world copies are fetched through the wrapping source
	r := grid.TileRange(geo.Extent{ge[0], e[1], ge[2], e[3]}, z)
	if r.Empty() || !e.Finite() {
		return r
	}
	span := grid.Resolution(z) * float64(grid.TileSize())
	o := grid.Origin()
	r.MinX = int(math.Floor((e[0] - o.X) / span))
	r.MaxX = int(math.Ceil((e[2]-o.X)/span)) - 1
	return r
}

// drawRegion draws the part of img (which covers imgExtent) that falls
// inside region onto dst.
func drawRegion(dst *image.RGBA, frame FrameState, img image.Image, imgExtent, region geo.Extent) {
	b := img.Bounds()
	sx := float64(b.Dx()) / imgExtent.Width()
	sy := float64(b.Dy()) / imgExtent.Height()
	sr := image.Rect(
		b.Min.X+int(math.Round((region[0]-imgExtent[0])*sx)),
		b.Min.Y+int(math.Round((imgExtent[3]-region[3])*sy)),
		b.Min.X+int(math.Round((region[2]-imgExtent[0])*sx)),
		b.Min.Y+int(math.Round((imgExtent[3]-region[1])*sy)),
	)
	dr := image.Rect(
		int(math.Round((region[0]-frame.Extent[0])/frame.Resolution)),
		int(math.Round((frame.Extent[3]-region[3])/frame.Resolution)),
		int(math.Round((region[2]-frame.Extent[0])/frame.Resolution)),
		int(math.Round((frame.Extent[3]-region[1])/frame.Resolution)),
	)
	if sr.Empty() || dr.Empty() || !dr.Overlaps(dst.Bounds()) {
		return
	}
	xdraw.ApproxBiLinear.Scale(dst, dr, img, sr, xdraw.Over, nil)
}

// renderReprojected samples EPSG:4326 tiles for every canvas pixel. The
// inverse Mercator is separable, so longitudes depend on the column only and
// latitudes on the row only.
func (l *TileLayer) renderReprojected(frame FrameState, dst *image.RGBA) {
	grid := l.source.Grid()
	degPerPixel := frame.Resolution * 180 / geo.HalfSize
	z := grid.ZForResolution(degPerPixel)
	res := grid.Resolution(z)
	span := res * float64(grid.TileSize())
	o := grid.Origin()

	b := dst.Bounds()
	lngs := make([]float64, b.Dx())
	for i := range lngs {
		x := frame.Extent[0] + (float64(i)+0.5)*frame.Resolution
		lngs[i] = geo.ToLonLat(geo.Coordinate{X: x}).Lng
	}
	lats := make([]float64, b.Dy())
	for j := range lats {
		y := frame.Extent[3] - (float64(j)+0.5)*frame.Resolution
		lats[j] = geo.ToLonLat(geo.Coordinate{Y: y}).Lat
	}

	geoExtent, err := geo.ExtentToGeographic(frame.Extent, geo.EPSG3857)
	if err != nil {
		return
	}
	center := geo.ToLonLat(frame.Center).Coordinate()
	loaded := make(map[tiles.Coord]image.Image)
	for _, c := range l.tileRange(geoExtent, z).Coords() {
		if img, state := l.manager.Get(c, priority(grid, c, center)); state == tiles.StateLoaded {
			loaded[c] = img
		}
	}
	if len(loaded) == 0 {
		return
	}

	for j, lat := range lats {
		ty := (o.Y - lat) / span
		row := int(math.Floor(ty))
		for i, lng := range lngs {
			tx := (lng - o.X) / span
			c := tiles.Coord{Z: z, X: int(math.Floor(tx)), Y: row}
			img, ok := loaded[c]
			if !ok {
				continue
			}
			ib := img.Bounds()
			px := ib.Min.X + int((tx-math.Floor(tx))*float64(ib.Dx()))
			py := ib.Min.Y + int((ty-math.Floor(ty))*float64(ib.Dy()))
			dst.Set(b.Min.X+i, b.Min.Y+j, img.At(px, py))
		}
	}
}

// priority orders loads by distance from center, in tiles. center is in
// grid units.
func priority(grid *tiles.Grid, c tiles.Coord, center geo.Coordinate) int {
	e := grid.TileExtent(c)
	tc := e.Center()
	span := e.Width()
	dx := (tc.X - center.X) / span
	dy := (tc.Y - center.Y) / span
	return int(dx*dx + dy*dy)
}
