// Package geo converts stop records to geometries and GeoJSON features.
package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/woozymasta/bcnstops/internal/gtfs"
)

// Attribute names shared by every exported format.
const (
	PropStopID   = "stop_id"
	PropStopName = "stop_name"
	PropStopLat  = "stop_lat"
	PropStopLon  = "stop_lon"
	PropAgency   = "agency"
)

// Point builds the geometry of a stop: X is longitude, Y latitude.
func Point(s gtfs.Stop) orb.Point {
	return orb.Point{s.Lon(), s.Lat()}
}

// Feature converts a stop into a GeoJSON point feature.
func Feature(s gtfs.Stop) *geojson.Feature {
	f := geojson.NewFeature(Point(s))
	f.Properties[PropStopID] = s.StopID
	f.Properties[PropStopName] = s.StopName
	f.Properties[PropStopLat] = s.Lat()
	f.Properties[PropStopLon] = s.Lon()
	f.Properties[PropAgency] = s.Agency

	return f
}

// FeatureCollection converts all stops, keeping their order.
func FeatureCollection(stops []gtfs.Stop) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(stops))
	for _, s := range stops {
		fc.Append(Feature(s))
	}

	return fc
}

// StopsFromFeatures is the inverse of FeatureCollection. Coordinates come
// from the geometry, not from the stop_lat/stop_lon properties.
func StopsFromFeatures(fc *geojson.FeatureCollection) ([]gtfs.Stop, error) {
	out := make([]gtfs.Stop, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: expected Point, got %T", i, f.Geometry)
		}

		out = append(out, gtfs.Stop{
			StopID:   f.Properties.MustString(PropStopID, ""),
			StopName: f.Properties.MustString(PropStopName, ""),
			StopLat:  gtfs.Coord(p.Lat()),
			StopLon:  gtfs.Coord(p.Lon()),
			Agency:   f.Properties.MustString(PropAgency, ""),
		})
	}

	return out, nil
}

// Bounds returns the bounding box of the stops with coordinates.
// The second value is false when there is none.
func Bounds(stops []gtfs.Stop) (orb.Bound, bool) {
	points := make(orb.MultiPoint, 0, len(stops))
	for _, s := range stops {
		if s.HasCoords() {
			points = append(points, Point(s))
		}
	}
	if len(points) == 0 {
		return orb.Bound{}, false
	}

	return points.Bound(), true
}
