package geo

import "math"

// MaxLat is the latitude limit of the Web Mercator projection.
const MaxLat = 85.05112878

// LonLatToMercator projects WGS84 coordinates to normalized Web Mercator:
// x and y are in [0..1], x grows east and y grows south, like tile pixels.
//
// It is the forward counterpart of the inverse Mercator used for tile grids.
func LonLatToMercator(lon, lat float64) (x, y float64) {
	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	x = (lon + 180.0) / 360.0

	latRad := lat * (math.Pi / 180.0)
	mercatorY := math.Log(math.Tan(math.Pi/4 + latRad/2))
	y = 0.5 - mercatorY/(2.0*math.Pi)

	return x, y
}
