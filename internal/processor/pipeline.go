// Package processor runs the stop pipeline: load feeds, clean, export, render.
package processor

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/bcnstops/internal/config"
	"github.com/woozymasta/bcnstops/internal/export"
	"github.com/woozymasta/bcnstops/internal/gtfs"
	"github.com/woozymasta/bcnstops/internal/preview"
	"github.com/woozymasta/bcnstops/internal/render"
	"github.com/woozymasta/bcnstops/internal/stops"
)

// CleanStats counts what each cleaning step removed.
type CleanStats struct {
	Rows          int `json:"rows"`
	Duplicates    int `json:"duplicates"`
	MissingCoords int `json:"missing_coords"`
}

// LoadFeeds downloads every feed in order. The first failure aborts.
func LoadFeeds(ctx context.Context, client *http.Client, feeds []config.Feed) ([][]gtfs.Stop, error) {
	tables := make([][]gtfs.Stop, 0, len(feeds))
	for _, feed := range feeds {
		table, err := gtfs.LoadFeed(ctx, client, feed.URL, feed.Label)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// MergeAndClean concatenates the tables, dedupes by stop_id and drops rows
// without coordinates.
func MergeAndClean(tables [][]gtfs.Stop) ([]gtfs.Stop, CleanStats) {
	merged := stops.Merge(tables...)
	unique := stops.Dedupe(merged)
	cleaned := stops.DropMissingCoords(unique)

	return cleaned, CleanStats{
		Rows:          len(merged),
		Duplicates:    len(merged) - len(unique),
		MissingCoords: len(unique) - len(cleaned),
	}
}

// ExportGeo writes the shapefile and the optional GeoJSON and GeoPackage.
// It returns the written file names as OutputName records them.
func ExportGeo(ctx context.Context, out config.Outputs, list []gtfs.Stop) ([]string, error) {
	if err := export.WriteShapefile(out.Path(out.Shapefile), list); err != nil {
		return nil, err
	}
	var written []string
	for _, part := range export.ShapefileParts(out.Path(out.Shapefile)) {
		written = append(written, OutputName(out, part))
	}
	log.Info().
		Str("path", out.Path(out.Shapefile)).
		Int("features", len(list)).
		Msg("Shapefile saved")

	if out.GeoJSON != "" {
		if err := export.WriteGeoJSON(out.Path(out.GeoJSON), list); err != nil {
			return nil, err
		}
		written = append(written, OutputName(out, out.Path(out.GeoJSON)))
		log.Info().Str("path", out.Path(out.GeoJSON)).Msg("GeoJSON saved")
	}

	if out.GeoPackage != "" {
		if err := export.WriteGeoPackage(ctx, out.Path(out.GeoPackage), list); err != nil {
			return nil, err
		}
		written = append(written, OutputName(out, out.Path(out.GeoPackage)))
		log.Info().Str("path", out.Path(out.GeoPackage)).Msg("GeoPackage saved")
	}

	return written, nil
}

// OutputName turns a resolved output path into its manifest entry: relative
// to the output directory with forward slashes, the form served under
// /files/. Paths outside the directory stay absolute.
func OutputName(out config.Outputs, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}

	dir, err := filepath.Abs(out.Dir)
	if err == nil {
		rel, err := filepath.Rel(dir, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}

	return filepath.ToSlash(abs)
}

// RenderMap writes the interactive map document and returns its name.
func RenderMap(out config.Outputs, m config.Map, list []gtfs.Stop) (string, error) {
	r, err := render.New()
	if err != nil {
		return "", err
	}

	if err := r.WriteFile(out.Path(out.HTML), list, m); err != nil {
		return "", err
	}

	log.Info().
		Str("path", out.Path(out.HTML)).
		Int("markers", len(list)).
		Msg("Map saved")

	return OutputName(out, out.Path(out.HTML)), nil
}

// RenderPreview writes the WebP thumbnail when enabled. An empty stop list
// only logs a warning.
func RenderPreview(out config.Outputs, opts config.Preview, m config.Map, list []gtfs.Stop) (string, error) {
	if out.Preview == "" {
		return "", nil
	}

	err := preview.WriteWebP(out.Path(out.Preview), list, opts, m)
	if errors.Is(err, preview.ErrNoStops) {
		log.Warn().Msg("No stops to draw, preview skipped")
		return "", nil
	}
	if err != nil {
		return "", err
	}

	log.Info().Str("path", out.Path(out.Preview)).Msg("Preview saved")
	return OutputName(out, out.Path(out.Preview)), nil
}

// Run executes the whole pipeline. The returned error keeps the sentinel of
// the failing stage (gtfs.ErrFetch, gtfs.ErrParse, export.ErrWrite, ...).
func Run(ctx context.Context, client *http.Client, cfg *config.Config) (*Manifest, error) {
	manifest := NewManifest()

	tables, err := LoadFeeds(ctx, client, cfg.Feeds)
	if err != nil {
		return nil, err
	}
	for i, feed := range cfg.Feeds {
		manifest.Feeds = append(manifest.Feeds, FeedSummary{
			Label: feed.Label,
			URL:   feed.URL,
			Rows:  len(tables[i]),
		})
	}

	cleaned, stats := MergeAndClean(tables)
	manifest.Stops = len(cleaned)
	manifest.ByAgency = stops.CountByAgency(cleaned)
	manifest.Cleaning = stats

	log.Info().
		Int("rows", stats.Rows).
		Int("duplicates", stats.Duplicates).
		Int("missing_coords", stats.MissingCoords).
		Int("stops", len(cleaned)).
		Msg("Stops merged and cleaned")

	written, err := ExportGeo(ctx, cfg.Outputs, cleaned)
	if err != nil {
		return nil, err
	}
	manifest.Outputs = append(manifest.Outputs, written...)

	html, err := RenderMap(cfg.Outputs, cfg.Map, cleaned)
	if err != nil {
		return nil, err
	}
	manifest.Outputs = append(manifest.Outputs, html)

	thumb, err := RenderPreview(cfg.Outputs, cfg.Preview, cfg.Map, cleaned)
	if err != nil {
		return nil, err
	}
	if thumb != "" {
		manifest.Outputs = append(manifest.Outputs, thumb)
	}

	if cfg.Outputs.Manifest != "" {
		if err := WriteManifest(cfg.Outputs.Path(cfg.Outputs.Manifest), manifest); err != nil {
			return nil, err
		}
	}

	return manifest, nil
}
