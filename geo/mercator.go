package geo

import "math"

// MercatorCoordinate is a position in the host map's world space: the whole
// Web Mercator square mapped to [0, 1] on both axes, y growing southward.
type MercatorCoordinate struct {
	X, Y float64
}

// PointToMercator converts a geographic point to host world space.
func PointToMercator(ll LngLat) MercatorCoordinate {
	lat := max(-MaxLatitude, min(ll.Lat, MaxLatitude))
	x := (180 + ll.Lng) / 360
	y := (180 - (180/math.Pi)*math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))) / 360
	return MercatorCoordinate{X: x, Y: y}
}

// LngLat converts back to a geographic point.
func (m MercatorCoordinate) LngLat() LngLat {
	lng := m.X*360 - 180
	y2 := 180 - m.Y*360
	lat := 360/math.Pi*math.Atan(math.Exp(y2*math.Pi/180)) - 90
	return LngLat{Lng: lng, Lat: lat}
}
