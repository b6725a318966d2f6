package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"
)

const utf8BOM = "\ufeff"

// ParseStops reads stops.txt out of an in-memory GTFS archive.
func ParseStops(archive []byte) ([]Stop, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}

	f := findFile(zr, StopsFile)
	if f == nil {
		return nil, fmt.Errorf("%w: %s not found", ErrArchive, StopsFile)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrArchive, f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	return ReadStops(rc)
}

// ReadStops parses stops.txt content. The four required columns are checked
// before any row is read.
func ReadStops(r io.Reader) ([]Stop, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s is empty", ErrParse, StopsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrParse, err)
	}

	idx := makeIndex(header)
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %q (header: %s)", ErrMissingColumn, col, strings.Join(header, ","))
		}
	}

	var stops []Stop
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}

		line, _ := reader.FieldPos(0)

		lat, err := parseCoord(getField(record, idx, "stop_lat"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: stop_lat: %w", ErrParse, line, err)
		}
		lon, err := parseCoord(getField(record, idx, "stop_lon"))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: stop_lon: %w", ErrParse, line, err)
		}

		stops = append(stops, Stop{
			StopID:   getField(record, idx, "stop_id"),
			StopName: getField(record, idx, "stop_name"),
			StopLat:  lat,
			StopLon:  lon,
		})
	}

	return stops, nil
}

// findFile matches by base name so archives with a top-level folder still load.
func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.EqualFold(path.Base(f.Name), name) {
			return f
		}
	}
	return nil
}

func parseCoord(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	// "NaN" cells count as empty
	if math.IsNaN(v) {
		return nil, nil
	}
	return &v, nil
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
