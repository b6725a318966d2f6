// Package export writes cleaned stops to geospatial vector files.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// ErrWrite wraps every failure to produce an output file.
var ErrWrite = errors.New("write output")

// SRID of every exported geometry (WGS84 geographic).
const SRID = 4326

// wgs84WKT is the ESRI flavour of EPSG:4326 expected in .prj files.
const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return writeErr(path, err)
	}
	return nil
}

func writeErr(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
