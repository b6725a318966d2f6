package export

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/woozymasta/bcnstops/internal/geo"
	"github.com/woozymasta/bcnstops/internal/gtfs"
)

// geoPackageSchema creates the GeoPackage metadata tables and the stops
// feature table.
//
//go:embed geopackage.sql
var geoPackageSchema string

// FeatureTable is the GeoPackage table holding the stops.
const FeatureTable = "stops"

// WriteGeoPackage writes the stops to an OGC GeoPackage (SQLite) file.
// Any existing file at path is removed first.
func WriteGeoPackage(ctx context.Context, path string, stops []gtfs.Stop) (err error) {
	if err := ensureDir(path); err != nil {
		return err
	}

	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return writeErr(p, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return writeErr(path, err)
	}
	db.SetMaxOpenConns(1)

	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = writeErr(path, closeErr)
		}
	}()

	if _, err := db.ExecContext(ctx, geoPackageSchema); err != nil {
		return writeErr(path, fmt.Errorf("create schema: %w", err))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(path, err)
	}
	defer func() { _ = tx.Rollback() }()

	var minX, minY, maxX, maxY sql.NullFloat64
	if b, ok := geo.Bounds(stops); ok {
		minX = sql.NullFloat64{Float64: b.Min.Lon(), Valid: true}
		minY = sql.NullFloat64{Float64: b.Min.Lat(), Valid: true}
		maxX = sql.NullFloat64{Float64: b.Max.Lon(), Valid: true}
		maxY = sql.NullFloat64{Float64: b.Max.Lat(), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gpkg_contents (table_name, data_type, identifier, description, min_x, min_y, max_x, max_y, srs_id)
		VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`,
		FeatureTable, FeatureTable, "Transit stops", minX, minY, maxX, maxY, SRID,
	); err != nil {
		return writeErr(path, fmt.Errorf("insert contents: %w", err))
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m)
		VALUES (?, 'geom', 'POINT', ?, 0, 0)`,
		FeatureTable, SRID,
	); err != nil {
		return writeErr(path, fmt.Errorf("insert geometry column: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stops (geom, stop_id, stop_name, stop_lat, stop_lon, agency)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return writeErr(path, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range stops {
		blob, err := encodeGeometry(geo.Point(s))
		if err != nil {
			return writeErr(path, fmt.Errorf("stop %s: %w", s.StopID, err))
		}

		if _, err := stmt.ExecContext(ctx, blob, s.StopID, s.StopName, s.Lat(), s.Lon(), s.Agency); err != nil {
			return writeErr(path, fmt.Errorf("stop %s: %w", s.StopID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return writeErr(path, err)
	}

	return nil
}

// ReadGeoPackage reads the stops table back in insertion order.
func ReadGeoPackage(ctx context.Context, path string) ([]gtfs.Stop, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, `SELECT geom, stop_id, stop_name, agency FROM stops ORDER BY fid`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stops []gtfs.Stop
	for rows.Next() {
		var (
			blob []byte
			s    gtfs.Stop
		)
		if err := rows.Scan(&blob, &s.StopID, &s.StopName, &s.Agency); err != nil {
			return nil, err
		}

		p, err := decodeGeometry(blob)
		if err != nil {
			return nil, fmt.Errorf("stop %s: %w", s.StopID, err)
		}
		s.StopLat = gtfs.Coord(p.Lat())
		s.StopLon = gtfs.Coord(p.Lon())

		stops = append(stops, s)
	}

	return stops, rows.Err()
}

// encodeGeometry builds a GeoPackage binary: "GP" magic, version 0,
// flags (little endian, no envelope), srs_id, then standard WKB.
func encodeGeometry(p orb.Point) ([]byte, error) {
	body, err := wkb.Marshal(p, binary.LittleEndian)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 8, 8+len(body))
	buf[0], buf[1] = 'G', 'P'
	buf[2] = 0
	buf[3] = 0x01
	binary.LittleEndian.PutUint32(buf[4:], uint32(SRID))

	return append(buf, body...), nil
}

func decodeGeometry(b []byte) (orb.Point, error) {
	if len(b) < 8 || b[0] != 'G' || b[1] != 'P' {
		return orb.Point{}, errors.New("not a GeoPackage geometry")
	}

	var envelope int
	switch (b[3] >> 1) & 0x07 {
	case 0:
	case 1:
		envelope = 32
	case 2, 3:
		envelope = 48
	case 4:
		envelope = 64
	default:
		return orb.Point{}, fmt.Errorf("invalid envelope flags %#x", b[3])
	}

	start := 8 + envelope
	if len(b) < start {
		return orb.Point{}, errors.New("truncated GeoPackage geometry")
	}

	g, err := wkb.Unmarshal(b[start:])
	if err != nil {
		return orb.Point{}, err
	}

	p, ok := g.(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Errorf("expected Point, got %T", g)
	}
	return p, nil
}
