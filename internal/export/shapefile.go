package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"

	"github.com/woozymasta/bcnstops/internal/geo"
	"github.com/woozymasta/bcnstops/internal/gtfs"
)

// DBF column widths. Names are limited to 10 bytes by the format.
const (
	idWidth     = 80
	nameWidth   = 254
	agencyWidth = 80
	coordWidth  = 18
	coordDigits = 8
)

var shapeFields = []shp.Field{
	shp.StringField(geo.PropStopID, idWidth),
	shp.StringField(geo.PropStopName, nameWidth),
	shp.FloatField(geo.PropStopLat, coordWidth, coordDigits),
	shp.FloatField(geo.PropStopLon, coordWidth, coordDigits),
	shp.StringField(geo.PropAgency, agencyWidth),
}

// ShapefileParts returns every file written for a shapefile at path.
func ShapefileParts(path string) []string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return []string{base + ".shp", base + ".shx", base + ".dbf", base + ".prj", base + ".cpg"}
}

// WriteShapefile writes a POINT shapefile with its .prj (WGS84) and .cpg
// (UTF-8) sidecars. Existing files are replaced.
func WriteShapefile(path string, stops []gtfs.Stop) error {
	parts := ShapefileParts(path)
	shpPath, dbfPath, prjPath, cpgPath := parts[0], parts[2], parts[3], parts[4]

	if err := ensureDir(shpPath); err != nil {
		return err
	}

	w, err := shp.Create(shpPath, shp.POINT)
	if err != nil {
		return writeErr(shpPath, err)
	}

	err = writeShapes(w, stops)
	w.Close()
	if err != nil {
		return writeErr(shpPath, err)
	}

	if err := placeDBF(shpPath, dbfPath); err != nil {
		return writeErr(dbfPath, err)
	}

	if err := os.WriteFile(prjPath, []byte(wgs84WKT), 0644); err != nil {
		return writeErr(prjPath, err)
	}
	if err := os.WriteFile(cpgPath, []byte("UTF-8"), 0644); err != nil {
		return writeErr(cpgPath, err)
	}

	return nil
}

func writeShapes(w *shp.Writer, stops []gtfs.Stop) error {
	if err := w.SetFields(shapeFields); err != nil {
		return err
	}

	for _, s := range stops {
		p := geo.Point(s)
		row := int(w.Write(&shp.Point{X: p.Lon(), Y: p.Lat()}))

		attrs := []interface{}{
			truncate(s.StopID, idWidth),
			truncate(s.StopName, nameWidth),
			s.Lat(),
			s.Lon(),
			truncate(s.Agency, agencyWidth),
		}
		for field, value := range attrs {
			if err := w.WriteAttribute(row, field, value); err != nil {
				return fmt.Errorf("stop %s: %w", s.StopID, err)
			}
		}
	}

	return nil
}

// placeDBF moves the attribute table to dbfPath. go-shp v0.1.1 creates it as
// "<base>dbf", without the dot.
func placeDBF(shpPath, dbfPath string) error {
	stray := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + "dbf"
	if _, err := os.Stat(stray); errors.Is(err, os.ErrNotExist) {
		if _, err := os.Stat(dbfPath); err != nil {
			return fmt.Errorf("attribute table not written: %w", err)
		}
		return nil
	}

	return os.Rename(stray, dbfPath)
}

// ReadShapefile reads back a file written by WriteShapefile.
func ReadShapefile(path string) ([]gtfs.Stop, error) {
	shpPath := ShapefileParts(path)[0]

	r, err := shp.Open(shpPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	idx := make(map[string]int)
	for i, f := range r.Fields() {
		idx[f.String()] = i
	}
	for _, name := range []string{geo.PropStopID, geo.PropStopName, geo.PropAgency} {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%s: missing attribute %q", shpPath, name)
		}
	}

	attr := func(row int, name string) string {
		return strings.Trim(r.ReadAttribute(row, idx[name]), "\x00 ")
	}

	var stops []gtfs.Stop
	for r.Next() {
		n, shape := r.Shape()
		p, ok := shape.(*shp.Point)
		if !ok {
			return nil, fmt.Errorf("%s: row %d: expected point, got %T", shpPath, n, shape)
		}

		s := gtfs.Stop{
			StopID:   attr(n, geo.PropStopID),
			StopName: attr(n, geo.PropStopName),
			StopLat:  gtfs.Coord(p.Y),
			StopLon:  gtfs.Coord(p.X),
			Agency:   attr(n, geo.PropAgency),
		}

		// Attribute coordinates must agree with the geometry.
		if lat, err := strconv.ParseFloat(attr(n, geo.PropStopLat), 64); err == nil && !near(lat, p.Y) {
			return nil, fmt.Errorf("%s: row %d: stop_lat %v does not match geometry %v", shpPath, n, lat, p.Y)
		}

		stops = append(stops, s)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	return stops, nil
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
