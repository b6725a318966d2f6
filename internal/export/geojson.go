package export

import (
	"encoding/json"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/woozymasta/bcnstops/internal/geo"
	"github.com/woozymasta/bcnstops/internal/gtfs"
)

// WriteGeoJSON writes the stops as a FeatureCollection, replacing path.
func WriteGeoJSON(path string, stops []gtfs.Stop) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return writeErr(path, err)
	}

	// A failed close means a truncated file.
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = writeErr(path, closeErr)
		}
	}()

	if err := json.NewEncoder(f).Encode(geo.FeatureCollection(stops)); err != nil {
		return writeErr(path, err)
	}

	return nil
}

// ReadGeoJSON reads a FeatureCollection written by WriteGeoJSON.
func ReadGeoJSON(path string) ([]gtfs.Stop, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	return geo.StopsFromFeatures(fc)
}
