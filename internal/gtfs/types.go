// Package gtfs downloads GTFS archives and reads their stops.
package gtfs

import "errors"

// Failure categories of the feed loader. Returned errors wrap one of these.
var (
	ErrFetch         = errors.New("fetch feed")
	ErrArchive       = errors.New("read archive")
	ErrMissingColumn = errors.New("missing required column")
	ErrParse         = errors.New("parse stops")
)

// StopsFile is the archive member holding stop records.
const StopsFile = "stops.txt"

// RequiredColumns must be present in the stops.txt header.
var RequiredColumns = []string{"stop_id", "stop_name", "stop_lat", "stop_lon"}

// Stop represents a stop from stops.txt tagged with its agency label.
// Coordinates are nil when the cell is empty.
type Stop struct {
	StopID   string
	StopName string
	StopLat  *float64
	StopLon  *float64
	Agency   string
}

// HasCoords reports whether both coordinates are present.
func (s Stop) HasCoords() bool {
	return s.StopLat != nil && s.StopLon != nil
}

// Lat returns the latitude or 0 when missing.
func (s Stop) Lat() float64 {
	if s.StopLat == nil {
		return 0
	}
	return *s.StopLat
}

// Lon returns the longitude or 0 when missing.
func (s Stop) Lon() float64 {
	if s.StopLon == nil {
		return 0
	}
	return *s.StopLon
}

// Coord builds a coordinate pointer, handy for literals.
func Coord(v float64) *float64 {
	return &v
}
