package geo

import "math"

// Extent is a bounding box ordered [minX, minY, maxX, maxY].
type Extent [4]float64

// WorldExtent3857 is the full EPSG:3857 world.
var WorldExtent3857 = Extent{-HalfSize, -HalfSize, HalfSize, HalfSize}

// WorldExtent4326 is the full EPSG:4326 world.
var WorldExtent4326 = Extent{-180, -90, 180, 90}

func (e Extent) Width() float64  { return e[2] - e[0] }
func (e Extent) Height() float64 { return e[3] - e[1] }

func (e Extent) BottomLeft() Coordinate { return Coordinate{X: e[0], Y: e[1]} }
func (e Extent) TopRight() Coordinate   { return Coordinate{X: e[2], Y: e[3]} }
func (e Extent) TopLeft() Coordinate    { return Coordinate{X: e[0], Y: e[3]} }

func (e Extent) Center() Coordinate {
	return Coordinate{X: (e[0] + e[2]) / 2, Y: (e[1] + e[3]) / 2}
}

// Intersects reports whether the two extents overlap with a non-empty area.
func (e Extent) Intersects(o Extent) bool {
	return e[0] < o[2] && e[2] > o[0] && e[1] < o[3] && e[3] > o[1]
}

// Intersection returns the overlap of the two extents. It is only meaningful
// when they intersect.
func (e Extent) Intersection(o Extent) Extent {
	return Extent{max(e[0], o[0]), max(e[1], o[1]), min(e[2], o[2]), min(e[3], o[3])}
}

// Finite reports whether no bound is NaN or infinite.
func (e Extent) Finite() bool {
	for _, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ExtentAround returns the extent of a width x height pixel box centered on c
// at the given resolution (units per pixel).
func ExtentAround(c Coordinate, resolution float64, width, height int) Extent {
	dx := resolution * float64(width) / 2
	dy := resolution * float64(height) / 2
	return Extent{c.X - dx, c.Y - dy, c.X + dx, c.Y + dy}
}

// TransformExtent reprojects all four corners of e and returns their bounds.
func TransformExtent(e Extent, from, to string) (Extent, error) {
	corners := [4]Coordinate{
		{X: e[0], Y: e[1]},
		{X: e[0], Y: e[3]},
		{X: e[2], Y: e[1]},
		{X: e[2], Y: e[3]},
	}
	out := Extent{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, c := range corners {
		p, err := Transform(c, from, to)
		if err != nil {
			return e, err
		}
		out[0] = min(out[0], p.X)
		out[1] = min(out[1], p.Y)
		out[2] = max(out[2], p.X)
		out[3] = max(out[3], p.Y)
	}
	return out, nil
}

// ExtentToGeographic reprojects e from the given projection to EPSG:4326.
func ExtentToGeographic(e Extent, from string) (Extent, error) {
	return TransformExtent(e, from, EPSG4326)
}
