package stops

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/woozymasta/bcnstops/internal/gtfs"
)

// Nearest returns the stop closest to (lat, lon) by great-circle distance
// and that distance in meters. Stops without coordinates are skipped; on a
// tie the earlier stop wins. ok is false when no stop has coordinates.
func Nearest(list []gtfs.Stop, lat, lon float64) (nearest gtfs.Stop, meters float64, ok bool) {
	from := orb.Point{lon, lat}
	meters = math.Inf(1)

	for _, s := range list {
		if !s.HasCoords() {
			continue
		}

		d := geo.DistanceHaversine(from, orb.Point{s.Lon(), s.Lat()})
		if d < meters {
			nearest, meters, ok = s, d, true
		}
	}

	if !ok {
		return gtfs.Stop{}, 0, false
	}
	return nearest, meters, true
}
