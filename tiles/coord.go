package tiles

import "fmt"

// Coord addresses one tile of a grid. Y counts rows downward from the grid origin.
type Coord struct {
	Z, X, Y int
}

// Key returns a unique string key for a tile
func (c Coord) Key() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

func (c Coord) String() string { return c.Key() }

// Range is an inclusive block of tiles at one zoom level.
type Range struct {
	Z                      int
	MinX, MinY, MaxX, MaxY int
}

func (r Range) Empty() bool {
	return r.MinX > r.MaxX || r.MinY > r.MaxY
}

func (r Range) Count() int {
	if r.Empty() {
		return 0
	}
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// Coords lists the tiles of the range row by row.
func (r Range) Coords() []Coord {
	coords := make([]Coord, 0, r.Count())
	for y := r.MinY; y <= r.MaxY; y++ {
		for x := r.MinX; x <= r.MaxX; x++ {
			coords = append(coords, Coord{Z: r.Z, X: x, Y: y})
		}
	}
	return coords
}
