// Package geo converts between the two supported web projections,
// EPSG:3857 (spherical Mercator, meters) and EPSG:4326 (degrees), and
// between geographic points and the host map's normalized Mercator space.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// Projection codes understood by this package.
const (
	EPSG3857 = "EPSG:3857"
	EPSG4326 = "EPSG:4326"
)

const (
	EarthRadius = 6378137.0
	// HalfSize is half the width of the EPSG:3857 world in meters.
	HalfSize = math.Pi * EarthRadius
	// MaxLatitude is the latitude at which EPSG:3857 becomes square.
	MaxLatitude = 85.0511287798066
)

var ErrUnsupportedProjection = errors.New("geo: unsupported projection")

// Coordinate is a point in projected units, x first.
type Coordinate struct {
	X, Y float64
}

// LngLat is a geographic point in degrees.
type LngLat struct {
	Lng, Lat float64
}

func (ll LngLat) Coordinate() Coordinate {
	return Coordinate{X: ll.Lng, Y: ll.Lat}
}

// FromLonLat projects a lon/lat point to EPSG:3857.
func FromLonLat(ll LngLat) Coordinate {
	x := EarthRadius * ll.Lng * math.Pi / 180
	y := EarthRadius * math.Log(math.Tan(math.Pi*(ll.Lat+90)/360))
	// poles project to infinity
	y = max(-HalfSize, min(y, HalfSize))
	return Coordinate{X: x, Y: y}
}

// ToLonLat unprojects an EPSG:3857 point.
func ToLonLat(c Coordinate) LngLat {
	lng := 180 * c.X / HalfSize
	lat := 360*math.Atan(math.Exp(c.Y/EarthRadius))/math.Pi - 90
	return LngLat{Lng: lng, Lat: lat}
}

func checkProjection(code string) error {
	switch code {
	case EPSG3857, EPSG4326:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedProjection, code)
}

// Transform converts c between two supported projections.
func Transform(c Coordinate, from, to string) (Coordinate, error) {
	if err := checkProjection(from); err != nil {
		return c, err
	}
	if err := checkProjection(to); err != nil {
		return c, err
	}
	switch {
	case from == to:
		return c, nil
	case from == EPSG4326:
		return FromLonLat(LngLat{Lng: c.X, Lat: c.Y}), nil
	default:
		return ToLonLat(c).Coordinate(), nil
	}
}
